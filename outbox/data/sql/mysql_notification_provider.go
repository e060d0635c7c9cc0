package sql

import (
	"fmt"
	"strings"
)

// MysqlNotificationQueryProvider builds the notification table statements for MySQL 8.
type MysqlNotificationQueryProvider struct {
	Table   string
	Columns []string
}

func (m MysqlNotificationQueryProvider) InsertSql() string {
	q := "INSERT INTO `%s` (`channel`, `recipient`, `subject`, `body`, `status`, `created_at`) VALUES (?, ?, ?, ?, ?, NOW(6))"

	return fmt.Sprintf(q, m.Table)
}

func (m MysqlNotificationQueryProvider) UsesReturning() bool {
	return false
}

func (m MysqlNotificationQueryProvider) ClaimSql(batchSize int) string {
	q := "SELECT %s FROM `%s` WHERE `status` = ? AND `channel` = ? ORDER BY `created_at` ASC, `id` ASC LIMIT %d FOR UPDATE SKIP LOCKED"

	return fmt.Sprintf(q, strings.Join(escapeColumns(m.Columns), ", "), m.Table, batchSize)
}

func (m MysqlNotificationQueryProvider) MarkSentSql() string {
	q := "UPDATE `%s` SET `status` = ?, `sent_at` = NOW(6), `error_message` = NULL WHERE `id` = ? AND `status` = ?"

	return fmt.Sprintf(q, m.Table)
}

func (m MysqlNotificationQueryProvider) MarkFailedSql() string {
	q := "UPDATE `%s` SET `status` = ?, `error_message` = ? WHERE `id` = ? AND `status` = ?"

	return fmt.Sprintf(q, m.Table)
}

func (m MysqlNotificationQueryProvider) RetryFailedSql(limit int) string {
	q := "UPDATE `%s` SET `status` = ?, `error_message` = NULL WHERE `status` = ? ORDER BY `created_at` ASC, `id` ASC LIMIT %d"

	return fmt.Sprintf(q, m.Table, limit)
}

func (m MysqlNotificationQueryProvider) DeleteSentSql() string {
	return fmt.Sprintf("DELETE FROM `%s` WHERE `status` = ? AND `sent_at` <= ?", m.Table)
}

func (m MysqlNotificationQueryProvider) GetQueueSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM `%s` WHERE `status` = ?", m.Table)
}
