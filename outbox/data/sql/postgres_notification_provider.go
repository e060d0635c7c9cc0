package sql

import (
	"fmt"
	"strings"
)

// PostgresNotificationQueryProvider builds the notification table statements for Postgres.
type PostgresNotificationQueryProvider struct {
	Table   string
	Columns []string
}

func (m PostgresNotificationQueryProvider) InsertSql() string {
	q := `INSERT INTO %s (channel, recipient, subject, body, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`

	return fmt.Sprintf(q, m.Table)
}

func (m PostgresNotificationQueryProvider) UsesReturning() bool {
	return true
}

func (m PostgresNotificationQueryProvider) ClaimSql(batchSize int) string {
	q := `SELECT %s FROM %s WHERE status = $1 AND channel = $2 ORDER BY created_at ASC, id ASC LIMIT %d FOR UPDATE SKIP LOCKED`

	return fmt.Sprintf(q, strings.Join(m.Columns, ", "), m.Table, batchSize)
}

func (m PostgresNotificationQueryProvider) MarkSentSql() string {
	q := `UPDATE %s SET status = $1, sent_at = NOW(), error_message = NULL WHERE id = $2 AND status = $3`

	return fmt.Sprintf(q, m.Table)
}

func (m PostgresNotificationQueryProvider) MarkFailedSql() string {
	q := `UPDATE %s SET status = $1, error_message = $2 WHERE id = $3 AND status = $4`

	return fmt.Sprintf(q, m.Table)
}

func (m PostgresNotificationQueryProvider) RetryFailedSql(limit int) string {
	q := `UPDATE %s SET status = $1, error_message = NULL
		WHERE id IN (
			SELECT id FROM %s WHERE status = $2 ORDER BY created_at ASC, id ASC LIMIT %d FOR UPDATE SKIP LOCKED)`

	return fmt.Sprintf(q, m.Table, m.Table, limit)
}

func (m PostgresNotificationQueryProvider) DeleteSentSql() string {
	return fmt.Sprintf("DELETE FROM %s WHERE status = $1 AND sent_at <= $2", m.Table)
}

func (m PostgresNotificationQueryProvider) GetQueueSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = $1", m.Table)
}
