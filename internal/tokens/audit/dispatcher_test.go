package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/domain"
	"github.com/stretchr/testify/require"
)

// memEvents is an in-memory store.AuditEvents with an optional induced fault.
type memEvents struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	fail   bool

	block chan struct{} // when non-nil, writes wait on it
}

func (m *memEvents) AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("sink unavailable")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memEvents) ListAuditEventsByOwner(ctx context.Context, ownerID string, limit int) ([]domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range m.events {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEvents) DeleteAuditEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *memEvents) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	t.Parallel()

	sink := &memEvents{}
	d := NewDispatcher(sink, slog.Default(), 16)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), domain.AuditEvent{
			ID:      "evt",
			Name:    domain.AuditRefreshTokenCreated,
			OwnerID: "owner-1",
		})
	}

	// Close drains the buffer before returning.
	d.Close()
	require.Equal(t, 10, sink.count())
	require.Zero(t, d.Dropped())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	sink := &memEvents{block: block}
	d := NewDispatcher(sink, slog.Default(), 1)

	// The writer is stuck on the first event; the buffer holds one more.
	// Everything past that must drop rather than block the caller.
	for i := 0; i < 5; i++ {
		done := make(chan struct{})
		go func() {
			d.Emit(context.Background(), domain.AuditEvent{Name: domain.AuditRefreshTokenRevoked})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Emit blocked")
		}
	}

	require.Positive(t, d.Dropped())
	close(block)
	d.Close()
}

func TestDispatcherSurvivesSinkFailure(t *testing.T) {
	t.Parallel()

	sink := &memEvents{fail: true}
	d := NewDispatcher(sink, slog.Default(), 4)

	d.Emit(context.Background(), domain.AuditEvent{Name: domain.AuditRefreshTokenCreated})
	d.Close()

	require.Zero(t, sink.count())
}

func TestEmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	sink := &memEvents{}
	d := NewDispatcher(sink, slog.Default(), 4)
	d.Close()

	d.Emit(context.Background(), domain.AuditEvent{Name: domain.AuditRefreshTokenCreated})
	require.Equal(t, 0, sink.count())
}
