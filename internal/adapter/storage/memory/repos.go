package memory

import (
	"context"
	"sort"
	"time"

	"game-reward-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NonceRepo implements ports.NonceRepository.
type NonceRepo struct {
	store *Store
}

// NewNonceRepo creates a new NonceRepo.
func NewNonceRepo(store *Store) *NonceRepo {
	return &NonceRepo{store: store}
}

// Upsert replaces the identifier's record.
func (r *NonceRepo) Upsert(ctx context.Context, n *domain.Nonce) error {
	return r.store.autocommit(ctx, func(tx *Tx) error {
		if err := tx.lock(ctx, "nonce:"+n.Identifier); err != nil {
			return err
		}
		rec := *n
		rec.Consumed = false
		rec.ConsumedAt = nil
		tx.nonces[n.Identifier] = rec
		return nil
	})
}

// Consume marks a matching unconsumed record as consumed within tx.
func (r *NonceRepo) Consume(ctx context.Context, tx pgx.Tx, identifier, tokenHash string, at time.Time) (bool, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return false, err
	}
	if err := mtx.lock(ctx, "nonce:"+identifier); err != nil {
		return false, err
	}
	n, ok := mtx.nonce(identifier)
	if !ok || !n.Accepts(tokenHash) {
		return false, nil
	}
	n.Consumed = true
	n.ConsumedAt = &at
	mtx.nonces[identifier] = n
	return true, nil
}

// PointsRepo implements ports.PointsRepository.
type PointsRepo struct {
	store *Store
}

// NewPointsRepo creates a new PointsRepo.
func NewPointsRepo(store *Store) *PointsRepo {
	return &PointsRepo{store: store}
}

// Credit adds amount to the identifier's total within tx.
func (r *PointsRepo) Credit(ctx context.Context, tx pgx.Tx, identifier string, amount int64) (int64, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return 0, err
	}
	if err := mtx.lock(ctx, "points:"+identifier); err != nil {
		return 0, err
	}
	p, ok := mtx.pointsRecord(identifier)
	if !ok {
		p = domain.PointsRecord{Identifier: identifier}
	}
	p.Points += amount
	p.UpdatedAt = time.Now().UTC()
	mtx.points[identifier] = p
	return p.Points, nil
}

// Get returns the identifier's record, or nil when absent.
func (r *PointsRepo) Get(ctx context.Context, identifier string) (*domain.PointsRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.points[identifier]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// List returns every record ordered by identifier.
func (r *PointsRepo) List(ctx context.Context) ([]domain.PointsRecord, error) {
	out := r.snapshot()
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

// ListTop returns at most limit records by points descending, identifier ascending.
func (r *PointsRepo) ListTop(ctx context.Context, limit int) ([]domain.PointsRecord, error) {
	out := r.snapshot()
	domain.SortLeaderboard(out)
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *PointsRepo) snapshot() []domain.PointsRecord {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domain.PointsRecord, 0, len(r.store.points))
	for _, p := range r.store.points {
		out = append(out, p)
	}
	return out
}

// AwardRepo implements ports.AwardRepository.
type AwardRepo struct {
	store *Store
}

// NewAwardRepo creates a new AwardRepo.
func NewAwardRepo(store *Store) *AwardRepo {
	return &AwardRepo{store: store}
}

// Create inserts the award within tx. The token hash is unique.
func (r *AwardRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Award) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := mtx.lock(ctx, "award:"+a.TokenHash); err != nil {
		return err
	}
	if mtx.awardExists(a.TokenHash) {
		return ErrUniqueViolation
	}
	mtx.awards[a.TokenHash] = *a
	return nil
}

// ReconciliationRepo implements ports.ReconciliationRepository.
type ReconciliationRepo struct {
	store *Store
}

// NewReconciliationRepo creates a new ReconciliationRepo.
func NewReconciliationRepo(store *Store) *ReconciliationRepo {
	return &ReconciliationRepo{store: store}
}

// Create inserts a record. The token hash is unique.
func (r *ReconciliationRepo) Create(ctx context.Context, rec *domain.Reconciliation) error {
	return r.store.autocommit(ctx, func(tx *Tx) error {
		if err := tx.lock(ctx, "reconciliation-token:"+rec.TokenHash); err != nil {
			return err
		}
		r.store.mu.RLock()
		for _, existing := range r.store.reconciliations {
			if existing.TokenHash == rec.TokenHash {
				r.store.mu.RUnlock()
				return ErrUniqueViolation
			}
		}
		r.store.mu.RUnlock()
		tx.recs[rec.ID] = *rec
		return nil
	})
}

// GetByID returns the record, or nil when absent.
func (r *ReconciliationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reconciliation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	rec, ok := r.store.reconciliations[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// ListPending returns pending records, oldest first.
func (r *ReconciliationRepo) ListPending(ctx context.Context, limit int) ([]domain.Reconciliation, error) {
	r.store.mu.RLock()
	out := make([]domain.Reconciliation, 0)
	for _, rec := range r.store.reconciliations {
		if rec.IsPending() {
			out = append(out, rec)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// MarkResolved resolves a pending record within tx.
func (r *ReconciliationRepo) MarkResolved(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return false, err
	}
	if err := mtx.lock(ctx, "reconciliation:"+id.String()); err != nil {
		return false, err
	}
	rec, ok := mtx.reconciliation(id)
	if !ok || !rec.IsPending() {
		return false, nil
	}
	rec.Status = domain.ReconciliationResolved
	rec.ResolvedAt = &at
	mtx.recs[id] = rec
	return true, nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	store *Store
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store}
}

// Create appends an entry to the audit trail.
func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audit = append(r.store.audit, *log)
	return nil
}
