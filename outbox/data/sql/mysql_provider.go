package sql

import (
	"fmt"
	"strings"
)

// MysqlQueryProvider builds the outbox table statements for MySQL 8, older
// versions do not support SKIP LOCKED.
type MysqlQueryProvider struct {
	Table   string
	Columns []string
}

func (m MysqlQueryProvider) InsertSql() string {
	q := "INSERT INTO `%s` (`aggregate_type`, `aggregate_id`, `event_type`, `payload`, `headers`, `status`, `attempts`, `created_at`, `updated_at`) VALUES (?, ?, ?, ?, ?, ?, 0, NOW(6), NOW(6))"

	return fmt.Sprintf(q, m.Table)
}

func (m MysqlQueryProvider) UsesReturning() bool {
	return false
}

func (m MysqlQueryProvider) ClaimSql(batchSize int) string {
	q := "SELECT %s FROM `%s` WHERE `status` = ? ORDER BY `created_at` ASC, `id` ASC LIMIT %d FOR UPDATE SKIP LOCKED"

	return fmt.Sprintf(q, strings.Join(escapeColumns(m.Columns), ", "), m.Table, batchSize)
}

func (m MysqlQueryProvider) StatusTransitionSql(idCount int) string {
	q := "UPDATE `%s` SET `status` = ?, `updated_at` = NOW(6) WHERE `status` = ? AND `id` IN (%s)"

	return fmt.Sprintf(q, m.Table, mysqlPlaceholders(idCount))
}

func (m MysqlQueryProvider) MessagePublishedSql() string {
	q := "UPDATE `%s` SET `status` = ?, `attempts` = `attempts` + 1, `last_error` = NULL, `published_at` = NOW(6), `updated_at` = NOW(6) WHERE `id` = ? AND `status` = ?"

	return fmt.Sprintf(q, m.Table)
}

func (m MysqlQueryProvider) MessageErroredUpdateSql() string {
	q := "UPDATE `%s` SET `status` = ?, `attempts` = `attempts` + 1, `last_error` = ?, `updated_at` = NOW(6) WHERE `id` = ? AND `status` = ?"

	return fmt.Sprintf(q, m.Table)
}

// ReclaimStaleSql cannot use a sub-select on the updated table in MySQL, so the
// ordered and limited single table UPDATE form is used instead.
func (m MysqlQueryProvider) ReclaimStaleSql(limit int) string {
	q := "UPDATE `%s` SET `status` = ?, `attempts` = `attempts` + 1, `last_error` = ?, `updated_at` = NOW(6) WHERE `status` = ? AND `updated_at` < ? ORDER BY `updated_at` ASC LIMIT %d"

	return fmt.Sprintf(q, m.Table, limit)
}

func (m MysqlQueryProvider) RetryFailedSql(limit int) string {
	q := "UPDATE `%s` SET `status` = ?, `updated_at` = NOW(6) WHERE `status` = ? ORDER BY `created_at` ASC, `id` ASC LIMIT %d"

	return fmt.Sprintf(q, m.Table, limit)
}

func (m MysqlQueryProvider) DeletePublishedMessagesSql() string {
	return fmt.Sprintf("DELETE FROM `%s` WHERE `status` = ? AND `published_at` <= ?", m.Table)
}

func (m MysqlQueryProvider) GetQueueSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM `%s` WHERE `status` <> ?", m.Table)
}

func (m MysqlQueryProvider) GetTotalSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM `%s`", m.Table)
}

func (m MysqlQueryProvider) GetOverAttemptsSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM `%s` WHERE `status` <> ? AND `attempts` >= ?", m.Table)
}

func escapeColumns(columns []string) []string {
	var escaped []string
	for _, c := range columns {
		escaped = append(escaped, "`"+c+"`")
	}

	return escaped
}

func mysqlPlaceholders(count int) string {
	return strings.Trim(strings.Repeat("?, ", count), ", ")
}
