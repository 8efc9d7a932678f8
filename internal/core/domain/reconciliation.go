package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationStatus tracks a consumed token whose credit never landed.
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "PENDING"
	ReconciliationResolved ReconciliationStatus = "RESOLVED"
)

// Reconciliation is opened when a nonce was consumed but the credit failed.
type Reconciliation struct {
	ID         uuid.UUID            `json:"id"`
	Identifier string               `json:"identifier"`
	Amount     int64                `json:"amount"`
	TokenHash  string               `json:"-"`
	Status     ReconciliationStatus `json:"status"`
	LastError  string               `json:"last_error,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	ResolvedAt *time.Time           `json:"resolved_at,omitempty"`
}

// IsPending returns true while the credit is still owed.
func (r *Reconciliation) IsPending() bool {
	return r.Status == ReconciliationPending
}
