package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Purger periodically deletes expired refresh tokens so the store does not
// grow without bound.
type Purger struct {
	auth     *AuthService
	interval time.Duration
	log      logging.Logger
}

func NewPurger(a *AuthService, interval time.Duration, log logging.Logger) *Purger {
	if log == nil {
		log = logging.Nop()
	}
	return &Purger{auth: a, interval: interval, log: log.With("module", "purger")}
}

// Run blocks until ctx is done. A non-positive interval disables purging.
func (p *Purger) Run(ctx context.Context) error {
	if p.interval <= 0 {
		p.log.Info(ctx, "refresh token purge disabled")
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.purgeOnce(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Purger) purgeOnce(ctx context.Context) {
	n, err := p.auth.PurgeExpired(ctx)
	if err != nil {
		p.log.Error(ctx, "purge expired refresh tokens", "error", err)
		return
	}
	if n > 0 {
		p.log.Info(ctx, "purged expired refresh tokens", "count", n)
	}
}
