// Package audit delivers lifecycle events to the append-only audit log.
//
// Delivery is best-effort by design: the token-state transition that
// triggered an event is the source of truth, and a slow or failing sink must
// never block or roll it back. Events therefore flow through a buffered
// dispatcher that drops on overflow rather than applying backpressure.
package audit

import (
	"context"

	"github.com/calderasec/keyturn/internal/tokens/domain"
)

// Sink receives audit events. Implementations must tolerate concurrent use.
type Sink interface {
	Emit(ctx context.Context, e domain.AuditEvent)
}

// NopSink discards every event. Useful in tests.
type NopSink struct{}

func (NopSink) Emit(ctx context.Context, e domain.AuditEvent) {}
