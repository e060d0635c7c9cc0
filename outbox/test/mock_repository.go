package test

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"careplatform/outbox-relay/outbox"

	"github.com/google/uuid"
)

// MockRepository is an in-memory outbox. Claims hold records exclusively
// until the batch is committed or released, like the row locks of the real
// store.
type MockRepository struct {
	sync.Mutex
	records      []*outbox.Record
	held         map[outbox.RecordId]uuid.UUID
	snapshots    map[uuid.UUID][]outbox.Record
	claimCount   int
	commitCount  int
	releaseCount int
	returnError  bool
	failCommit   bool
	reclaimed    int64
	deleted      int64
	nextId       outbox.RecordId
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		held:      map[outbox.RecordId]uuid.UUID{},
		snapshots: map[uuid.UUID][]outbox.Record{},
		nextId:    1,
	}
}

// Add appends a PENDING record and returns it.
func (mr *MockRepository) Add(aggregateType, aggregateId, eventType string) *outbox.Record {
	mr.Lock()
	defer mr.Unlock()

	now := time.Now()
	r := &outbox.Record{
		Id:            mr.nextId,
		AggregateType: aggregateType,
		AggregateId:   aggregateId,
		EventType:     eventType,
		Payload:       []byte(`{}`),
		Status:        outbox.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	mr.nextId++
	mr.records = append(mr.records, r)

	return r
}

func (mr *MockRepository) ClaimBatch(ctx context.Context, size int) (*outbox.Batch, error) {
	mr.Lock()
	defer mr.Unlock()
	mr.claimCount++

	if mr.returnError {
		return nil, &outbox.PersistenceError{Op: "claim", Err: errors.New("oops")}
	}

	b := &outbox.Batch{Id: uuid.New(), Items: []*outbox.Record{}}
	var snapshot []outbox.Record

	for _, r := range mr.eligible() {
		if len(b.Items) == size {
			break
		}
		mr.held[r.Id] = b.Id
		snapshot = append(snapshot, *r)
		r.Status = outbox.StatusPublishing
		b.Items = append(b.Items, r)
	}

	mr.snapshots[b.Id] = snapshot

	return b, nil
}

func (mr *MockRepository) MarkPublished(ctx context.Context, b *outbox.Batch, r *outbox.Record) error {
	return mr.mark(b, r, outbox.StatusPublished, sql.NullString{})
}

func (mr *MockRepository) MarkFailed(ctx context.Context, b *outbox.Batch, r *outbox.Record, cause error) error {
	return mr.mark(b, r, outbox.StatusPending, sql.NullString{String: cause.Error(), Valid: true})
}

func (mr *MockRepository) MarkDead(ctx context.Context, b *outbox.Batch, r *outbox.Record, cause error) error {
	return mr.mark(b, r, outbox.StatusFailed, sql.NullString{String: cause.Error(), Valid: true})
}

func (mr *MockRepository) CommitBatch(b *outbox.Batch) error {
	mr.Lock()
	defer mr.Unlock()

	if mr.failCommit {
		mr.restore(b)
		return &outbox.PersistenceError{Op: "commit batch", Err: errors.New("oops")}
	}

	mr.commitCount++
	mr.unlock(b)

	return nil
}

func (mr *MockRepository) ReleaseBatch(b *outbox.Batch) {
	mr.Lock()
	defer mr.Unlock()
	mr.releaseCount++
	mr.restore(b)
}

func (mr *MockRepository) ReclaimStale(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	if mr.returnError {
		return 0, errors.New("oops")
	}
	return mr.reclaimed, nil
}

func (mr *MockRepository) RetryFailed(ctx context.Context, limit int) (int64, error) {
	mr.Lock()
	defer mr.Unlock()
	if mr.returnError {
		return 0, errors.New("oops")
	}

	var n int64
	for _, r := range mr.records {
		if r.Status == outbox.StatusFailed && int(n) < limit {
			r.Status = outbox.StatusPending
			n++
		}
	}
	return n, nil
}

func (mr *MockRepository) DeletePublished(olderThan time.Time) (int64, error) {
	if mr.returnError {
		return 0, errors.New("oops")
	}
	return mr.deleted, nil
}

func (mr *MockRepository) GetQueueSize() (uint, error) {
	mr.Lock()
	defer mr.Unlock()
	if mr.returnError {
		return 0, errors.New("oops")
	}

	var n uint
	for _, r := range mr.records {
		if r.Status != outbox.StatusPublished {
			n++
		}
	}
	return n, nil
}

func (mr *MockRepository) GetTotalSize() (uint, error) {
	mr.Lock()
	defer mr.Unlock()
	if mr.returnError {
		return 0, errors.New("oops")
	}
	return uint(len(mr.records)), nil
}

func (mr *MockRepository) GetOverAttemptsSize(threshold int) (uint, error) {
	mr.Lock()
	defer mr.Unlock()
	if mr.returnError {
		return 0, errors.New("oops")
	}

	var n uint
	for _, r := range mr.records {
		if r.Status != outbox.StatusPublished && r.Attempts >= threshold {
			n++
		}
	}
	return n, nil
}

// Record returns a copy of the stored record.
func (mr *MockRepository) Record(id outbox.RecordId) outbox.Record {
	mr.Lock()
	defer mr.Unlock()
	for _, r := range mr.records {
		if r.Id == id {
			return *r
		}
	}
	return outbox.Record{}
}

func (mr *MockRepository) ClaimCount() int {
	mr.Lock()
	defer mr.Unlock()
	return mr.claimCount
}

func (mr *MockRepository) CommitCount() int {
	mr.Lock()
	defer mr.Unlock()
	return mr.commitCount
}

func (mr *MockRepository) ReleaseCount() int {
	mr.Lock()
	defer mr.Unlock()
	return mr.releaseCount
}

func (mr *MockRepository) ReturnErrors() {
	mr.Lock()
	defer mr.Unlock()
	mr.returnError = true
}

func (mr *MockRepository) FailCommits() {
	mr.Lock()
	defer mr.Unlock()
	mr.failCommit = true
}

func (mr *MockRepository) SetReclaimedCount(n int64) {
	mr.reclaimed = n
}

func (mr *MockRepository) SetDeletedRowsCount(c int64) {
	mr.deleted = c
}

func (mr *MockRepository) mark(b *outbox.Batch, r *outbox.Record, to outbox.Status, lastError sql.NullString) error {
	mr.Lock()
	defer mr.Unlock()

	if mr.held[r.Id] != b.Id || r.Status != outbox.StatusPublishing {
		return outbox.ErrClaimLost
	}

	r.Status = to
	r.Attempts++
	r.LastError = lastError
	r.UpdatedAt = time.Now()
	if to == outbox.StatusPublished {
		r.PublishedAt = sql.NullTime{Time: r.UpdatedAt, Valid: true}
	}

	return nil
}

func (mr *MockRepository) eligible() []*outbox.Record {
	var pending []*outbox.Record
	for _, r := range mr.records {
		if _, held := mr.held[r.Id]; !held && r.Status == outbox.StatusPending {
			pending = append(pending, r)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].Id < pending[j].Id
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending
}

func (mr *MockRepository) restore(b *outbox.Batch) {
	for _, snap := range mr.snapshots[b.Id] {
		for _, r := range mr.records {
			if r.Id == snap.Id {
				*r = snap
			}
		}
	}
	mr.unlock(b)
}

func (mr *MockRepository) unlock(b *outbox.Batch) {
	for id, holder := range mr.held {
		if holder == b.Id {
			delete(mr.held, id)
		}
	}
	delete(mr.snapshots, b.Id)
}
