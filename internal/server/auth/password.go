package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost matches bcrypt.DefaultCost.
const DefaultBcryptCost = bcrypt.DefaultCost

// PasswordHasher turns plaintext passwords into one-way digests and checks
// candidates against them.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify reports whether candidate matches digest. A malformed digest is
	// a mismatch, not an error; only context errors are returned.
	Verify(ctx context.Context, digest, candidate string) (bool, error)
}

// BcryptHasher runs bcrypt off the caller's goroutine, with at most
// maxConcurrent hashes in flight.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewBcryptHasher builds a hasher. Out-of-range cost falls back to the
// default; maxConcurrent below one is treated as one.
func NewBcryptHasher(cost, maxConcurrent int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &BcryptHasher{cost: cost, sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	var (
		digest []byte
		err    error
	)
	if werr := h.run(ctx, func() {
		digest, err = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	}); werr != nil {
		return "", werr
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, digest, candidate string) (bool, error) {
	var err error
	if werr := h.run(ctx, func() {
		err = bcrypt.CompareHashAndPassword([]byte(digest), []byte(candidate))
	}); werr != nil {
		return false, werr
	}
	return err == nil, nil
}

// run executes fn in its own goroutine once a semaphore slot is free and waits
// for it or for ctx. The slot is held until fn returns even if the caller
// gave up, so the bound always reflects real CPU work.
func (h *BcryptHasher) run(ctx context.Context, fn func()) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		defer h.sem.Release(1)
		defer close(done)
		fn()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
