// Package notification delivers the patient and staff notifications queued in
// the notification table. Unlike outbox records, a notification that fails is
// parked in FAILED and is only sent again when it is resubmitted.
package notification

import (
	"database/sql"
	"time"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/lifecycle"
)

const (
	ChannelEmail = config.ChannelEmail
	ChannelInApp = config.ChannelInApp

	StatusPending lifecycle.Status = "PENDING"
	StatusSent    lifecycle.Status = "SENT"
	StatusFailed  lifecycle.Status = "FAILED"
)

var Lifecycle = lifecycle.NewMachine("notification", map[lifecycle.Status][]lifecycle.Status{
	StatusPending: {StatusSent, StatusFailed},
	StatusFailed:  {StatusPending},
})

type Id uint64

type Notification struct {
	Id           Id
	Channel      string
	Recipient    string
	Subject      string
	Body         string
	Status       lifecycle.Status
	CreatedAt    time.Time
	SentAt       sql.NullTime
	ErrorMessage sql.NullString
}

func scanNotification(rows *sql.Rows) (*Notification, error) {
	n := &Notification{}
	err := rows.Scan(
		&n.Id,
		&n.Channel,
		&n.Recipient,
		&n.Subject,
		&n.Body,
		&n.Status,
		&n.CreatedAt,
		&n.SentAt,
		&n.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	return n, nil
}
