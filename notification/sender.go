package notification

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNoSender = errors.New("notification: no sender registered for channel")

// Sender hands one notification to its delivery channel.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

type SenderFunc func(ctx context.Context, n *Notification) error

func (f SenderFunc) Send(ctx context.Context, n *Notification) error {
	return f(ctx, n)
}

// Senders maps a channel to its Sender.
type Senders map[string]Sender

func (s Senders) For(channel string) (Sender, error) {
	sender, ok := s[channel]
	if !ok || sender == nil {
		return nil, errors.Wrapf(ErrNoSender, "%q", channel)
	}
	return sender, nil
}
