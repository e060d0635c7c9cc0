//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"careplatform/outbox-relay/notification"
	"careplatform/outbox-relay/outbox"
)

func purgeTables() {
	for _, table := range []string{cfg.DBOutboxTable, cfg.DBNotificationTable} {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s;", table)); err != nil {
			panic(fmt.Sprintf("an error occurred cleaning the %s table for tests: %s", table, err))
		}
	}
}

// appendRecords writes the records in a single transaction, the way a
// service appends them next to its own mutation.
func appendRecords(reqs []outbox.AppendRequest) []outbox.RecordId {
	w := outbox.NewWriter(cfg)
	var ids []outbox.RecordId

	err := outbox.RunInTx(context.Background(), db, func(tx *sql.Tx) error {
		for _, req := range reqs {
			id, err := w.Append(context.Background(), tx, req)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("failed to append outbox records: %s", err))
	}

	return ids
}

func appendNotifications(reqs []notification.Request) []notification.Id {
	w := notification.NewWriter(cfg)
	var ids []notification.Id

	err := outbox.RunInTx(context.Background(), db, func(tx *sql.Tx) error {
		for _, req := range reqs {
			id, err := w.Append(context.Background(), tx, req)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("failed to append notifications: %s", err))
	}

	return ids
}

// insertUndeliverableRecord bypasses the writer's validation.
func insertUndeliverableRecord() outbox.RecordId {
	q := fmt.Sprintf("INSERT INTO %s (aggregate_type, aggregate_id, event_type, payload, status) VALUES (?, ?, ?, ?, ?)", cfg.DBOutboxTable)
	args := []interface{}{"", "rx-0", "PrescriptionIssued", []byte(`{}`), string(outbox.StatusPending)}

	if cfg.DBDriver.MySQL() {
		res, err := db.Exec(q, args...)
		if err != nil {
			panic(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			panic(err)
		}
		return outbox.RecordId(id)
	}

	var id outbox.RecordId
	if err := db.QueryRow(rebind(q)+" RETURNING id", args...).Scan(&id); err != nil {
		panic(err)
	}
	return id
}

// makeStale puts records in PUBLISHING as if a publisher had claimed them an
// hour ago and never came back.
func makeStale(ids ...outbox.RecordId) {
	q := fmt.Sprintf("UPDATE %s SET status = ?, updated_at = NOW() - INTERVAL '1 hour' WHERE id = ?", cfg.DBOutboxTable)
	if cfg.DBDriver.MySQL() {
		q = strings.Replace(q, "INTERVAL '1 hour'", "INTERVAL 1 HOUR", 1)
	}
	for _, id := range ids {
		if _, err := db.Exec(rebind(q), string(outbox.StatusPublishing), id); err != nil {
			panic(err)
		}
	}
}

// ageOutboxRecords moves published_at two hours into the past.
func ageOutboxRecords(ids ...outbox.RecordId) {
	q := fmt.Sprintf("UPDATE %s SET published_at = NOW() - INTERVAL '2 hours' WHERE id = ?", cfg.DBOutboxTable)
	if cfg.DBDriver.MySQL() {
		q = strings.Replace(q, "INTERVAL '2 hours'", "INTERVAL 2 HOUR", 1)
	}
	for _, id := range ids {
		if _, err := db.Exec(rebind(q), id); err != nil {
			panic(err)
		}
	}
}

func getRecord(id outbox.RecordId) *outbox.Record {
	q := fmt.Sprintf("SELECT id, aggregate_type, aggregate_id, event_type, status, attempts, last_error, published_at FROM %s WHERE id = ?", cfg.DBOutboxTable)

	r := &outbox.Record{}
	err := db.QueryRow(rebind(q), id).Scan(&r.Id, &r.AggregateType, &r.AggregateId, &r.EventType, &r.Status, &r.Attempts, &r.LastError, &r.PublishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			panic(fmt.Sprintf("no outbox records found with ID %d", id))
		}
		panic(fmt.Sprintf("an error occurred scanning the outbox record: %s", err))
	}

	return r
}

func getNotification(id notification.Id) *notification.Notification {
	q := fmt.Sprintf("SELECT id, channel, recipient, status, sent_at, error_message FROM %s WHERE id = ?", cfg.DBNotificationTable)

	n := &notification.Notification{}
	err := db.QueryRow(rebind(q), id).Scan(&n.Id, &n.Channel, &n.Recipient, &n.Status, &n.SentAt, &n.ErrorMessage)
	if err != nil {
		panic(fmt.Sprintf("an error occurred scanning notification %d: %s", id, err))
	}

	return n
}

func outboxRecordExists(id outbox.RecordId) bool {
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", cfg.DBOutboxTable)

	var count int
	if err := db.QueryRow(rebind(q), id).Scan(&count); err != nil {
		panic(err)
	}

	return count > 0
}

func countRecords() int {
	var count int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", cfg.DBOutboxTable)).Scan(&count); err != nil {
		panic(err)
	}
	return count
}

// rebind turns ? placeholders into $n ones for Postgres.
func rebind(q string) string {
	if cfg.DBDriver.MySQL() {
		return q
	}

	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
