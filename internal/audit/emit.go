package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Emitter stamps audit records and forwards them to a sink once the primary
// transaction has committed. Sink failures are logged and swallowed.
type Emitter struct {
	sink   shared.AuditSink
	logger *slog.Logger
	now    func() time.Time
}

// NewEmitter builds an Emitter. A nil sink turns Emit into a no-op.
func NewEmitter(sink shared.AuditSink, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{sink: sink, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (e *Emitter) WithNow(now func() time.Time) {
	if e != nil && now != nil {
		e.now = now
	}
}

// Emit records one mutating call.
func (e *Emitter) Emit(ctx context.Context, actor shared.Actor, action, entity string, entityID int64, meta map[string]any) {
	if e == nil || e.sink == nil {
		return
	}
	log := shared.AuditLog{
		EventID:   uuid.NewString(),
		CompanyID: actor.CompanyID,
		ActorID:   actor.UserID,
		Action:    action,
		Entity:    entity,
		EntityID:  fmt.Sprintf("%d", entityID),
		Meta:      meta,
		At:        e.now(),
	}
	if err := e.sink.Record(ctx, log); err != nil {
		e.logger.Warn("audit record dropped",
			slog.String("action", action),
			slog.String("entity", entity),
			slog.Int64("entity_id", entityID),
			slog.Any("error", err))
	}
}
