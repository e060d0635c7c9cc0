package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-test/deep"
	"github.com/google/uuid"
)

type mockRepository struct {
	sync.Mutex
	batch     *Batch
	claimErr  error
	markErr   error
	commitErr error
	claimed   []string
	sent      []Id
	failed    map[Id]string
	committed bool
	released  bool
}

func newMockRepository(items ...*Notification) *mockRepository {
	return &mockRepository{
		batch:  &Batch{Id: uuid.New(), Items: items},
		failed: map[Id]string{},
	}
}

func (m *mockRepository) ClaimBatch(ctx context.Context, channel string, size int) (*Batch, error) {
	m.Lock()
	defer m.Unlock()
	m.claimed = append(m.claimed, channel)
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	return m.batch, nil
}

func (m *mockRepository) MarkSent(ctx context.Context, b *Batch, n *Notification) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.sent = append(m.sent, n.Id)
	n.Status = StatusSent
	return nil
}

func (m *mockRepository) MarkFailed(ctx context.Context, b *Batch, n *Notification, cause error) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.failed[n.Id] = cause.Error()
	n.Status = StatusFailed
	return nil
}

func (m *mockRepository) CommitBatch(b *Batch) error {
	m.committed = m.commitErr == nil
	return m.commitErr
}

func (m *mockRepository) ReleaseBatch(b *Batch) {
	m.released = true
}

type recordingSender struct {
	sent  []Id
	fails map[Id]error
}

func (s *recordingSender) Send(ctx context.Context, n *Notification) error {
	if err, ok := s.fails[n.Id]; ok {
		return err
	}
	s.sent = append(s.sent, n.Id)
	return nil
}

func TestDispatcher_Tick(t *testing.T) {
	repo := newMockRepository(
		&Notification{Id: 1, Channel: ChannelEmail, Recipient: "a@clinic.test", Status: StatusPending},
		&Notification{Id: 2, Channel: ChannelEmail, Recipient: "b@clinic.test", Status: StatusPending},
		&Notification{Id: 3, Channel: ChannelEmail, Recipient: "", Status: StatusPending},
		&Notification{Id: 4, Channel: ChannelEmail, Recipient: "d@clinic.test", Status: StatusPending},
	)
	sender := &recordingSender{fails: map[Id]error{2: errors.New("mailbox unavailable")}}

	res, err := NewDispatcher(repo, ChannelEmail, sender, 50, nil).Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if diff := deep.Equal(Result{Claimed: 4, Sent: 2, Failed: 2}, res); diff != nil {
		t.Error(diff)
	}

	if diff := deep.Equal([]Id{1, 4}, sender.sent); diff != nil {
		t.Errorf("unexpected notifications handed to the sender: %v", diff)
	}

	expFailed := map[Id]string{2: "mailbox unavailable", 3: errNoRecipient.Error()}
	if diff := deep.Equal(expFailed, repo.failed); diff != nil {
		t.Error(diff)
	}

	if !repo.committed {
		t.Error("expected the batch to be committed")
	}

	if diff := deep.Equal([]string{ChannelEmail}, repo.claimed); diff != nil {
		t.Error(diff)
	}
}

func TestDispatcher_TickWithNothingToSend(t *testing.T) {
	repo := newMockRepository()

	res, err := NewDispatcher(repo, ChannelInApp, &recordingSender{}, 50, nil).Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if res.Claimed != 0 || repo.committed {
		t.Errorf("an empty batch should not be committed, got %+v", res)
	}
}

func TestDispatcher_TickWithClaimError(t *testing.T) {
	repo := newMockRepository()
	repo.claimErr = errors.New("database is down")

	if _, err := NewDispatcher(repo, ChannelEmail, &recordingSender{}, 50, nil).Tick(context.Background()); err == nil {
		t.Error("expected an error but got nil")
	}
}

func TestDispatcher_TickReleasesBatchWhenOutcomeCannotBeStored(t *testing.T) {
	repo := newMockRepository(&Notification{Id: 1, Recipient: "a@clinic.test", Status: StatusPending})
	repo.markErr = ErrClaimLost

	_, err := NewDispatcher(repo, ChannelEmail, &recordingSender{}, 50, nil).Tick(context.Background())
	if !errors.Is(err, ErrClaimLost) {
		t.Errorf("expected ErrClaimLost, but got %v", err)
	}

	if !repo.released || repo.committed {
		t.Error("expected the batch to be released and not committed")
	}
}

func TestDispatcher_TickWithCommitError(t *testing.T) {
	repo := newMockRepository(&Notification{Id: 1, Recipient: "a@clinic.test", Status: StatusPending})
	repo.commitErr = errors.New("connection reset")

	res, err := NewDispatcher(repo, ChannelEmail, &recordingSender{}, 50, nil).Tick(context.Background())
	if err == nil {
		t.Fatal("expected an error but got nil")
	}

	if res.Sent != 0 {
		t.Errorf("nothing should be reported as sent when the commit fails, got %d", res.Sent)
	}
}

func TestSenders_For(t *testing.T) {
	email := SenderFunc(func(ctx context.Context, n *Notification) error { return nil })
	senders := Senders{ChannelEmail: email}

	if _, err := senders.For(ChannelEmail); err != nil {
		t.Errorf("unexpected error: %s", err)
	}

	if _, err := senders.For(ChannelInApp); !errors.Is(err, ErrNoSender) {
		t.Errorf("expected ErrNoSender, but got %v", err)
	}
}
