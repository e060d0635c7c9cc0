package outbox

import (
	"fmt"
)

type mockQueryProvider struct {
	returning bool
}

func (m *mockQueryProvider) InsertSql() string {
	return "INSERT INTO outbox"
}

func (m *mockQueryProvider) UsesReturning() bool {
	return m.returning
}

func (m *mockQueryProvider) ClaimSql(batchSize int) string {
	return fmt.Sprintf("SELECT claim LIMIT %d", batchSize)
}

func (m *mockQueryProvider) StatusTransitionSql(idCount int) string {
	return fmt.Sprintf("UPDATE transition %d", idCount)
}

func (m *mockQueryProvider) MessagePublishedSql() string {
	return "UPDATE published"
}

func (m *mockQueryProvider) MessageErroredUpdateSql() string {
	return "UPDATE errored"
}

func (m *mockQueryProvider) ReclaimStaleSql(limit int) string {
	return fmt.Sprintf("UPDATE reclaim LIMIT %d", limit)
}

func (m *mockQueryProvider) RetryFailedSql(limit int) string {
	return fmt.Sprintf("UPDATE retry LIMIT %d", limit)
}

func (m *mockQueryProvider) DeletePublishedMessagesSql() string {
	return "DELETE FROM outbox"
}

func (m *mockQueryProvider) GetQueueSizeSql() string {
	return "SELECT COUNT queue"
}

func (m *mockQueryProvider) GetTotalSizeSql() string {
	return "SELECT COUNT total"
}

func (m *mockQueryProvider) GetOverAttemptsSizeSql() string {
	return "SELECT COUNT attempts"
}
