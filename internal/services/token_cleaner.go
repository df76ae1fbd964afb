package services

import (
	"context"
	"time"

	"cinema/internal/repositories"

	"go.uber.org/zap"
)

// TokenCleaner periodically deletes expired activation, reset and refresh
// tokens.
type TokenCleaner struct {
	tokens   repositories.TokenRepository
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewTokenCleaner creates a new TokenCleaner.
func NewTokenCleaner(tokens repositories.TokenRepository, interval time.Duration, log *zap.Logger) *TokenCleaner {
	return &TokenCleaner{
		tokens:   tokens,
		interval: interval,
		now:      time.Now,
		log:      log.Named("token_cleaner"),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (c *TokenCleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep deletes tokens that have expired and returns how many were removed.
func (c *TokenCleaner) Sweep(ctx context.Context) int64 {
	n, err := c.tokens.DeleteExpired(ctx, c.now().UTC())
	if err != nil {
		c.log.Error("Failed to delete expired tokens", zap.Error(err))
		return 0
	}
	if n > 0 {
		c.log.Info("Deleted expired tokens", zap.Int64("count", n))
	}
	return n
}
