package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionNonceIssued            AuditAction = "NONCE_ISSUED"
	AuditActionRewardGranted          AuditAction = "REWARD_GRANTED"
	AuditActionRewardRejected         AuditAction = "REWARD_REJECTED"
	AuditActionReconciliationResolved AuditAction = "RECONCILIATION_RESOLVED"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Identifier   string      `json:"identifier,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
