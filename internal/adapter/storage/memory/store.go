// Package memory is a single-process storage backend implementing the same
// ports as the postgres adapter. A transaction locks each row it writes
// (one lock per identifier, token hash or reconciliation id) until it ends,
// the way postgres row locks do, so writers for different identifiers do not
// wait on each other. Writes are buffered and applied on Commit, so readers
// never observe uncommitted state.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"game-reward-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUniqueViolation mirrors the SQLSTATE postgres reports for the same
	// constraint, so callers detect duplicates the same way for both backends.
	ErrUniqueViolation = &pgconn.PgError{Code: "23505", Message: "memory: unique constraint violation"}
	// ErrNotMemoryTx is returned when a repository receives a foreign pgx.Tx.
	ErrNotMemoryTx = errors.New("memory: transaction was not started by this store")

	errNoSQL = errors.New("memory: raw SQL is not supported")
)

// Store holds all tables of the memory backend.
type Store struct {
	locksMu sync.Mutex
	locks   map[string]chan struct{} // row key -> 1-slot lock

	mu              sync.RWMutex
	nonces          map[string]domain.Nonce
	points          map[string]domain.PointsRecord
	awards          map[string]domain.Award // keyed by token hash
	reconciliations map[uuid.UUID]domain.Reconciliation
	audit           []domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		locks:           make(map[string]chan struct{}),
		nonces:          make(map[string]domain.Nonce),
		points:          make(map[string]domain.PointsRecord),
		awards:          make(map[string]domain.Award),
		reconciliations: make(map[uuid.UUID]domain.Reconciliation),
	}
}

func (s *Store) rowLock(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

// autocommit runs fn as a single-statement transaction.
func (s *Store) autocommit(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) begin(ctx context.Context) (*Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:  s,
		held:   make(map[string]chan struct{}),
		nonces: make(map[string]domain.Nonce),
		points: make(map[string]domain.PointsRecord),
		awards: make(map[string]domain.Award),
		recs:   make(map[uuid.UUID]domain.Reconciliation),
	}, nil
}

// AuditLogs returns a copy of the persisted audit trail.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, len(s.audit))
	copy(out, s.audit)
	return out
}

// Transactor implements ports.DBTransactor for the memory store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor over store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin starts a transaction. Row locks are taken as the transaction writes.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.store.begin(ctx)
}

// HealthCheck implements ports.HealthChecker for the memory store.
type HealthCheck struct{}

// NewHealthCheck creates a memory health checker.
func NewHealthCheck() *HealthCheck { return &HealthCheck{} }

// Ping always succeeds.
func (h *HealthCheck) Ping(ctx context.Context) error { return ctx.Err() }

// Name returns the dependency name.
func (h *HealthCheck) Name() string { return "memory" }

// Tx is a pgx.Tx whose writes are buffered until Commit.
type Tx struct {
	store *Store
	done  bool
	held  map[string]chan struct{}

	nonces map[string]domain.Nonce
	points map[string]domain.PointsRecord
	awards map[string]domain.Award
	recs   map[uuid.UUID]domain.Reconciliation
}

func asTx(tx pgx.Tx) (*Tx, error) {
	mtx, ok := tx.(*Tx)
	if !ok {
		return nil, ErrNotMemoryTx
	}
	if mtx.done {
		return nil, pgx.ErrTxClosed
	}
	return mtx, nil
}

// lock takes the row lock for key, waiting for its holder to commit or roll
// back. Keys already held by t are not taken again.
func (t *Tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	l := t.store.rowLock(key)
	select {
	case l <- struct{}{}:
		t.held[key] = l
		return nil
	case <-ctx.Done():
		return fmt.Errorf("memory: waiting for lock on %s: %w", key, ctx.Err())
	}
}

func (t *Tx) unlockAll() {
	for key, l := range t.held {
		<-l
		delete(t.held, key)
	}
}

func (t *Tx) nonce(identifier string) (domain.Nonce, bool) {
	if n, ok := t.nonces[identifier]; ok {
		return n, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	n, ok := t.store.nonces[identifier]
	return n, ok
}

func (t *Tx) pointsRecord(identifier string) (domain.PointsRecord, bool) {
	if p, ok := t.points[identifier]; ok {
		return p, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	p, ok := t.store.points[identifier]
	return p, ok
}

func (t *Tx) awardExists(tokenHash string) bool {
	if _, ok := t.awards[tokenHash]; ok {
		return true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	_, ok := t.store.awards[tokenHash]
	return ok
}

func (t *Tx) reconciliation(id uuid.UUID) (domain.Reconciliation, bool) {
	if r, ok := t.recs[id]; ok {
		return r, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	r, ok := t.store.reconciliations[id]
	return r, ok
}

// Begin is not supported; the memory backend has no savepoints.
func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("memory: nested transactions are not supported")
}

// Commit applies buffered writes and releases the row locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	defer t.unlockAll()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range t.nonces {
		s.nonces[k] = v
	}
	for k, v := range t.points {
		s.points[k] = v
	}
	for k, v := range t.awards {
		s.awards[k] = v
	}
	for k, v := range t.recs {
		s.reconciliations[k] = v
	}
	return nil
}

// Rollback discards buffered writes and releases the row locks.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.unlockAll()
	return nil
}

func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errNoSQL
}
func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errNoSQL
}
func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errNoSQL
}
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errNoSQL
}
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}
func (t *Tx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(dest ...any) error { return errNoSQL }
