// Package store groups the multi-step writes that must be atomic. Single
// reads go straight to db.Querier through Store.Q.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/nyashahama/vitality-blueprint-backend/internal/db"
)

// maxTxAttempts bounds retries of a transaction aborted by Postgres with a
// serialization failure or deadlock.
const maxTxAttempts = 3

// Store runs the multi-step writes of the payment and generation flow.
type Store struct {
	pool *sql.DB
	q    *db.Queries
}

// New returns a Store over an open, verified pool.
func New(pool *sql.DB, q *db.Queries) *Store {
	return &Store{pool: pool, q: q}
}

// Q exposes the Querier for single-query reads.
//
//	a, err := s.Q().GetAssessmentByID(ctx, id)
func (s *Store) Q() db.Querier {
	return s.q
}

// withTx runs fn inside a serializable transaction and commits it. fn may be
// called more than once: when Postgres aborts the transaction with 40001 or
// 40P01 the whole function is retried, so fn must not have side effects
// outside q.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
		if attempt < maxTxAttempts {
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("store: gave up after %d attempts: %w", maxTxAttempts, err)
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("store: rollback: %w", rbErr))
		}
	}()

	if err := fn(ctx, s.q.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	committed = true
	return nil
}

// retryable reports whether err is a Postgres serialization failure or
// deadlock.
func retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01":
		return true
	}
	return false
}

// NewAccessToken returns an opaque 24-byte base64url capability token.
func NewAccessToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("store: access token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
