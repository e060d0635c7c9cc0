package sql

import (
	"fmt"
	"strings"
)

// PostgresQueryProvider builds the outbox table statements for Postgres.
type PostgresQueryProvider struct {
	Table   string
	Columns []string
}

func (m PostgresQueryProvider) InsertSql() string {
	q := `INSERT INTO %s (aggregate_type, aggregate_id, event_type, payload, headers, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NOW(), NOW()) RETURNING id`

	return fmt.Sprintf(q, m.Table)
}

func (m PostgresQueryProvider) UsesReturning() bool {
	return true
}

func (m PostgresQueryProvider) ClaimSql(batchSize int) string {
	q := `SELECT %s FROM %s WHERE status = $1 ORDER BY created_at ASC, id ASC LIMIT %d FOR UPDATE SKIP LOCKED`

	return fmt.Sprintf(q, strings.Join(m.Columns, ", "), m.Table, batchSize)
}

func (m PostgresQueryProvider) StatusTransitionSql(idCount int) string {
	q := `UPDATE %s SET status = $1, updated_at = NOW() WHERE status = $2 AND id IN (%s)`

	return fmt.Sprintf(q, m.Table, postgresPlaceholders(3, idCount))
}

func (m PostgresQueryProvider) MessagePublishedSql() string {
	q := `UPDATE %s SET status = $1, attempts = attempts + 1, last_error = NULL, published_at = NOW(), updated_at = NOW() WHERE id = $2 AND status = $3`

	return fmt.Sprintf(q, m.Table)
}

func (m PostgresQueryProvider) MessageErroredUpdateSql() string {
	q := `UPDATE %s SET status = $1, attempts = attempts + 1, last_error = $2, updated_at = NOW() WHERE id = $3 AND status = $4`

	return fmt.Sprintf(q, m.Table)
}

func (m PostgresQueryProvider) ReclaimStaleSql(limit int) string {
	q := `UPDATE %s SET status = $1, attempts = attempts + 1, last_error = $2, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM %s WHERE status = $3 AND updated_at < $4 ORDER BY updated_at ASC LIMIT %d FOR UPDATE SKIP LOCKED)`

	return fmt.Sprintf(q, m.Table, m.Table, limit)
}

func (m PostgresQueryProvider) RetryFailedSql(limit int) string {
	q := `UPDATE %s SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM %s WHERE status = $2 ORDER BY created_at ASC, id ASC LIMIT %d FOR UPDATE SKIP LOCKED)`

	return fmt.Sprintf(q, m.Table, m.Table, limit)
}

func (m PostgresQueryProvider) DeletePublishedMessagesSql() string {
	return fmt.Sprintf("DELETE FROM %s WHERE status = $1 AND published_at <= $2", m.Table)
}

func (m PostgresQueryProvider) GetQueueSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status <> $1", m.Table)
}

func (m PostgresQueryProvider) GetTotalSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", m.Table)
}

func (m PostgresQueryProvider) GetOverAttemptsSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status <> $1 AND attempts >= $2", m.Table)
}

func postgresPlaceholders(start, count int) string {
	var placeholders []string
	for i := start; i < start+count; i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
	}

	return strings.Join(placeholders, ", ")
}
