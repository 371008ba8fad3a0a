// Package repository implements the storage contract with GORM.
package repository

import "github.com/okian/trustgate/internal/domain/storage"

// The contract lives in the domain; these names keep adapter callers short.
type (
	AuditFilter = storage.AuditFilter
	Reader      = storage.Reader
	Tx          = storage.Tx
	Store       = storage.Store
)
