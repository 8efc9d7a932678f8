package dto

// NonceRequest is the request body for starting a game session.
type NonceRequest struct {
	Wallet string `json:"wallet" binding:"required,identifier"`
}

// NonceResponse carries the single-use token for the session.
type NonceResponse struct {
	Nonce string `json:"nonce"`
}

// RedeemRequest is the request body for redeeming a session token.
type RedeemRequest struct {
	Wallet string `json:"wallet" binding:"required,identifier"`
	Nonce  string `json:"nonce" binding:"required"`
}

// RedeemResponse is the response body for a granted reward.
type RedeemResponse struct {
	Status  string `json:"status"`
	AwardID string `json:"award_id"`
	Points  int64  `json:"points"`
	Total   int64  `json:"total"`
}

// PointsEntry is one leaderboard row.
type PointsEntry struct {
	Wallet string `json:"wallet"`
	Points int64  `json:"points"`
}

// ReconciliationResponse describes a reconciliation record.
type ReconciliationResponse struct {
	ID         string  `json:"id"`
	Wallet     string  `json:"wallet"`
	Amount     int64   `json:"amount"`
	Status     string  `json:"status"`
	LastError  string  `json:"last_error,omitempty"`
	CreatedAt  string  `json:"created_at"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
}

// ResolveResponse is returned after a reconciliation is credited.
type ResolveResponse struct {
	ReconciliationID string `json:"reconciliation_id"`
	AwardID          string `json:"award_id"`
	Wallet           string `json:"wallet"`
	Points           int64  `json:"points"`
	Total            int64  `json:"total"`
}

// LegacyMessage is the body shape older game clients expect.
type LegacyMessage struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}
