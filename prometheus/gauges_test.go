package prometheus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockSizer struct {
	queue, total, overAttempts uint
	threshold                  int
	err                        error
}

func (m *mockSizer) GetQueueSize() (uint, error) {
	return m.queue, m.err
}

func (m *mockSizer) GetTotalSize() (uint, error) {
	return m.total, m.err
}

func (m *mockSizer) GetOverAttemptsSize(threshold int) (uint, error) {
	m.threshold = threshold
	return m.overAttempts, m.err
}

func TestObserveAll(t *testing.T) {
	outbox := &mockSizer{queue: 32, total: 76, overAttempts: 3}
	notifications := &mockSizer{queue: 4}

	ctx, cancel := context.WithCancel(context.Background())
	ObserveAll(ctx, outbox, notifications, 5)
	time.Sleep(time.Millisecond * 100)
	cancel()

	tests := []struct {
		name string
		got  float64
		exp  float64
	}{
		{"queue size", testutil.ToFloat64(outboxQueueSize), 32},
		{"total size", testutil.ToFloat64(outboxTotalSize), 76},
		{"over attempts size", testutil.ToFloat64(outboxOverAttemptsSize), 3},
		{"notification queue size", testutil.ToFloat64(notificationQueueSize), 4},
	}

	for _, tt := range tests {
		if tt.got != tt.exp {
			t.Errorf("expected the %s to be %f, but got %f", tt.name, tt.exp, tt.got)
		}
	}
}

func TestObserveQueueSize_WithRepositoryError(t *testing.T) {
	outboxQueueSize.Set(0.0)

	ctx, cancel := context.WithCancel(context.Background())
	go ObserveQueueSize(ctx, &mockSizer{queue: 10, err: errors.New("oops")})
	time.Sleep(time.Millisecond * 100)
	cancel()

	actual := testutil.ToFloat64(outboxQueueSize)
	if actual != 0.00 {
		t.Errorf("expected outboxQueueSize to be 0.000000, but got %f", actual)
	}
}

func TestObserveOverAttemptsSize_PassesThreshold(t *testing.T) {
	sizer := &mockSizer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ObserveOverAttemptsSize(ctx, sizer, 7)

	if sizer.threshold != 7 {
		t.Errorf("expected the threshold 7 to be used, got %d", sizer.threshold)
	}
}
