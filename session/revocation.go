package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

type (
	// Revocations remembers token ids that must be rejected before they
	// expire.
	Revocations interface {
		Revoke(ctx context.Context, tokenID string, until time.Time) error
		Revoked(ctx context.Context, tokenID string) (bool, error)
	}

	memRevocations struct {
		cache *bigcache.BigCache
		now   func() time.Time
	}
)

// InMemoryRevocations keeps revoked token ids for at most ttl, which should
// match the session ttl: once a token is expired the entry is useless.
func InMemoryRevocations(ttl time.Duration) (Revocations, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = time.Minute
	cfg.Verbose = false
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("session: unable to create revocation cache, cause %w", err)
	}
	return &memRevocations{cache: cache, now: time.Now}, nil
}

func (m *memRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(until.Unix()))
	return m.cache.Set(tokenID, buf[:])
}

func (m *memRevocations) Revoked(ctx context.Context, tokenID string) (bool, error) {
	buf, err := m.cache.Get(tokenID)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if len(buf) != 8 {
		return false, fmt.Errorf("session: corrupted revocation entry for %v", tokenID)
	}
	until := time.Unix(int64(binary.BigEndian.Uint64(buf)), 0)
	return m.now().Before(until), nil
}
