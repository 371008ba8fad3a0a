package audit

import (
	"errors"
	"fmt"

	"github.com/okian/trustgate/internal/domain/model"
)

// Sentinel errors.
var (
	ErrAuditWrite   = errors.New("audit write failed")
	ErrInvalidEvent = errors.New("invalid audit event")
)

// WriteError is returned when the audit store rejects an append.
type WriteError struct {
	Operation model.OperationType
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("audit write failed for %s: %v", e.Operation, e.Err)
}

// Unwrap exposes both ErrAuditWrite and the store error.
func (e *WriteError) Unwrap() []error {
	return []error{ErrAuditWrite, e.Err}
}
