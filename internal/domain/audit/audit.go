// Package audit appends immutable records of decisions and recalculations.
// Records are written through the caller's transaction so the audited change
// and its record commit or roll back together.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/pkg/metrics"
)

// Writer appends an audit entry. Implemented by the repository transaction.
type Writer interface {
	AppendAudit(ctx context.Context, entry *model.AuditEntry) error
}

// Event describes one auditable operation.
type Event struct {
	Operation model.OperationType
	EntryID   string
	ReviewID  string
	Actor     model.ActorType
	ActorName string
	Details   any
}

// Log validates, timestamps and appends audit events.
type Log struct {
	now func() time.Time
}

// New creates a Log.
func New(opts ...Option) *Log {
	l := &Log{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends ev through w. A rejected event returns ErrInvalidEvent; a
// failed append returns a *WriteError, which callers must treat as fatal for
// the enclosing operation.
func (l *Log) Record(ctx context.Context, w Writer, ev Event) error {
	if ev.Operation == "" {
		return fmt.Errorf("%w: operation is required", ErrInvalidEvent)
	}
	switch ev.Actor {
	case model.ActorSystem, model.ActorCurator, model.ActorCommunity:
	default:
		return fmt.Errorf("%w: unknown actor %q", ErrInvalidEvent, ev.Actor)
	}
	if ev.EntryID == "" && ev.ReviewID == "" {
		return fmt.Errorf("%w: entry or review id is required", ErrInvalidEvent)
	}

	details := json.RawMessage("{}")
	if ev.Details != nil {
		b, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("%w: details: %w", ErrInvalidEvent, err)
		}
		details = b
	}

	entry := &model.AuditEntry{
		OperationType: ev.Operation,
		EntryID:       ev.EntryID,
		ReviewID:      ev.ReviewID,
		ActorType:     ev.Actor,
		Actor:         ev.ActorName,
		Details:       details,
		Timestamp:     l.now().UTC(),
	}
	if err := w.AppendAudit(ctx, entry); err != nil {
		metrics.RecordAuditWriteError()
		return &WriteError{Operation: ev.Operation, Err: err}
	}
	metrics.RecordAuditWrite(string(ev.Operation))
	return nil
}
