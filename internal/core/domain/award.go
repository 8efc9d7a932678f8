package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRewardAmount is the points credited for one completed game.
const DefaultRewardAmount int64 = 1000000

// AwardSource records which path produced a credit.
type AwardSource string

const (
	AwardSourceRedeem         AwardSource = "REDEEM"
	AwardSourceReconciliation AwardSource = "RECONCILIATION"
)

// Award is the receipt of one credit. TokenHash is unique across awards,
// so a token can back at most one award.
type Award struct {
	ID         uuid.UUID   `json:"id"`
	Identifier string      `json:"identifier"`
	Amount     int64       `json:"amount"`
	TotalAfter int64       `json:"total_after"`
	TokenHash  string      `json:"-"`
	Source     AwardSource `json:"source"`
	CreatedAt  time.Time   `json:"created_at"`
}
