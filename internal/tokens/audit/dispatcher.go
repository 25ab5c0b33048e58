package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/domain"
	"github.com/calderasec/keyturn/internal/tokens/store"
)

// writeTimeout bounds a single store write so a wedged database cannot stall
// the dispatcher loop forever.
const writeTimeout = 5 * time.Second

// Dispatcher persists events asynchronously through the store. Emit never
// blocks the caller: when the buffer is full the event is counted as dropped
// instead.
type Dispatcher struct {
	events store.AuditEvents
	logger *slog.Logger

	ch        chan domain.AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the background writer. bufferSize <= 0 defaults to 64.
func NewDispatcher(events store.AuditEvents, logger *slog.Logger, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 64
	}

	d := &Dispatcher{
		events: events,
		logger: logger,
		ch:     make(chan domain.AuditEvent, bufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case e := <-d.ch:
			d.write(e)
		case <-d.done:
			// Drain whatever is already buffered, then stop.
			for {
				select {
				case e := <-d.ch:
					d.write(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(e domain.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := d.events.AppendAuditEvent(ctx, e); err != nil {
		// Best-effort: the state transition already committed.
		d.logger.Warn("audit event write failed",
			"event", e.Name,
			"owner_id", e.OwnerID,
			"error", err,
		)
	}
}

// Emit queues an event for persistence. Never blocks; drops when the buffer
// is full or the dispatcher is closed.
func (d *Dispatcher) Emit(ctx context.Context, e domain.AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- e:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Close stops accepting events, drains the buffer and waits for the writer.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()

		if n := d.dropped.Load(); n > 0 {
			d.logger.Warn("audit events dropped", "count", n)
		}
	})
}

// Dropped reports how many events were discarded due to a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
