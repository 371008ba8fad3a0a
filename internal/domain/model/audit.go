package model

import (
	"encoding/json"
	"time"
)

// OperationType names an audited operation.
type OperationType string

// Operation types.
const (
	OpTriage        OperationType = "triage"
	OpEntryCreated  OperationType = "entry-created"
	OpRecalculate   OperationType = "recalculate"
	OpReviewResolve OperationType = "review-resolve"
	OpVerification  OperationType = "verification"
	OpArchive       OperationType = "archive"
)

// ActorType names who caused an audited operation.
type ActorType string

// Actor types.
const (
	ActorSystem    ActorType = "system"
	ActorCurator   ActorType = "curator"
	ActorCommunity ActorType = "community"
)

// AuditEntry is an immutable record of one decision or recalculation.
// EntryID is empty for decisions on items that never became entries.
type AuditEntry struct {
	ID            uint64          `json:"id"`
	OperationType OperationType   `json:"operationType"`
	EntryID       string          `json:"entryId,omitempty"`
	ReviewID      string          `json:"reviewId,omitempty"`
	ActorType     ActorType       `json:"actorType"`
	Actor         string          `json:"actor,omitempty"`
	Details       json.RawMessage `json:"details"`
	Timestamp     time.Time       `json:"timestamp"`
}
