package storage

import (
	"context"
	"sync"
	"time"

	"github.com/studykit/session-integrity/internal/domain"
	"github.com/studykit/session-integrity/internal/ports"
)

// RestrictionCache decorates a Storage with a short-lived per-user memo of
// IsUserRestricted. Restriction lookups happen on every session submission
// while restriction writes are rare, so a TTL of up to 60 seconds is
// acceptable: staleness only delays enforcement visibility, never prevents
// it.
//
// All other Storage methods pass straight through. Creating a restriction
// through the cache invalidates the affected user's entry so enforcement
// applied on this process becomes visible immediately.
type RestrictionCache struct {
	ports.Storage

	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[int64]restrictionEntry
}

type restrictionEntry struct {
	restricted bool
	expires    time.Time
}

// NewRestrictionCache wraps the storage with the given TTL
func NewRestrictionCache(inner ports.Storage, ttl time.Duration) *RestrictionCache {
	return &RestrictionCache{
		Storage: inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]restrictionEntry),
	}
}

// IsUserRestricted serves from the memo when fresh, otherwise queries the
// inner store and caches the result. Errors are never cached.
func (c *RestrictionCache) IsUserRestricted(ctx context.Context, userID int64) (bool, error) {
	c.mu.Lock()
	if e, ok := c.entries[userID]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.restricted, nil
	}
	c.mu.Unlock()

	restricted, err := c.Storage.IsUserRestricted(ctx, userID)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.entries[userID] = restrictionEntry{restricted: restricted, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return restricted, nil
}

// CreateRestriction writes through and drops the user's cached entry
func (c *RestrictionCache) CreateRestriction(ctx context.Context, r *domain.Restriction) error {
	if err := c.Storage.CreateRestriction(ctx, r); err != nil {
		return err
	}
	c.invalidate(r.UserID)
	return nil
}

// RecordVerdict writes through and drops the cached entry when the commit
// included a restriction.
func (c *RestrictionCache) RecordVerdict(ctx context.Context, verdict *domain.FraudVerdict, restriction *domain.Restriction) error {
	if err := c.Storage.RecordVerdict(ctx, verdict, restriction); err != nil {
		return err
	}
	if restriction != nil {
		c.invalidate(restriction.UserID)
	}
	return nil
}

func (c *RestrictionCache) invalidate(userID int64) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
