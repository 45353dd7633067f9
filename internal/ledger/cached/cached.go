// Package cached decorates a ledger.Store with a per-user read cache.
package cached

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kharcha/internal/cache"
	"kharcha/internal/core"
	"kharcha/internal/ledger"
	"kharcha/internal/metrics"
)

const (
	// DefaultLoadTimeout bounds a shared load once it no longer follows
	// the caller that started it.
	DefaultLoadTimeout = 30 * time.Second

	ownerCacheSize = 10000
	ownerTTL       = 24 * time.Hour
)

// Store caches reads of the wrapped store. Writes go straight through and
// drop the affected user's entries.
type Store struct {
	next        ledger.Store
	cache       cache.Cache[ledger.Batch]
	owners      *cache.LRUCache[string] // expense id -> normalized email
	group       singleflight.Group
	loadTimeout time.Duration

	// mu orders cache fills against invalidation. version counts writes;
	// a load started under an older version never fills the cache.
	mu      sync.Mutex
	version uint64
}

var _ ledger.Store = (*Store)(nil)

// New wraps next with an LRU cache of size entries that expire after ttl.
func New(next ledger.Store, size int, ttl time.Duration) *Store {
	return NewWithCache(next, cache.NewLRUCache[ledger.Batch](size, ttl))
}

// NewWithCache wraps next with a caller-supplied cache.
func NewWithCache(next ledger.Store, c cache.Cache[ledger.Batch]) *Store {
	return &Store{
		next:        next,
		cache:       c,
		owners:      cache.NewLRUCache[string](ownerCacheSize, ownerTTL),
		loadTimeout: DefaultLoadTimeout,
	}
}

// Cache exposes the underlying cache so it can be registered for sweeping.
func (s *Store) Cache() cache.Cache[ledger.Batch] {
	return s.cache
}

// Owners exposes the id-to-owner cache so it can be registered for sweeping.
func (s *Store) Owners() *cache.LRUCache[string] {
	return s.owners
}

func (s *Store) ListByUser(ctx context.Context, email string) (ledger.Batch, error) {
	return s.read(ctx, email, "all", func(ctx context.Context) (ledger.Batch, error) {
		return s.next.ListByUser(ctx, email)
	})
}

func (s *Store) ListByDay(ctx context.Context, email string, day core.Date) (ledger.Batch, error) {
	return s.read(ctx, email, "day|"+core.FormatISODate(day), func(ctx context.Context) (ledger.Batch, error) {
		return s.next.ListByDay(ctx, email, day)
	})
}

func (s *Store) ListByMonth(ctx context.Context, email string, year, month int) (ledger.Batch, error) {
	return s.read(ctx, email, fmt.Sprintf("month|%04d-%02d", year, month), func(ctx context.Context) (ledger.Batch, error) {
		return s.next.ListByMonth(ctx, email, year, month)
	})
}

// Add stores through and invalidates the user's cached reads.
func (s *Store) Add(ctx context.Context, e core.NewExpense) (string, error) {
	id, err := s.next.Add(ctx, e)
	if err != nil {
		return "", err
	}
	s.invalidate(userKey(e.UserEmail))
	if id != "" {
		s.remember(id, e.UserEmail)
	}
	return id, nil
}

// Delete removes through. When the owner of id is unknown every cached read
// is dropped.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}
	email, ok := s.owners.Get(id)
	s.owners.Delete(id)

	if ok && email != "" {
		s.invalidate(userKey(email))
	} else {
		s.invalidate("")
	}
	return nil
}

func (s *Store) SyncUser(ctx context.Context, id ledger.Identity) error {
	return s.next.SyncUser(ctx, id)
}

// read serves a user's view from the cache or loads it once for all
// concurrent callers. Each caller waits only as long as its own ctx allows.
func (s *Store) read(ctx context.Context, email, view string, load func(context.Context) (ledger.Batch, error)) (ledger.Batch, error) {
	key := userKey(email) + view
	if b, ok := s.cache.Get(key); ok {
		metrics.CacheHit()
		return b.Clone(), nil
	}
	metrics.CacheMiss()

	version := s.currentVersion()
	flight := fmt.Sprintf("%s#%d", key, version)
	ch := s.group.DoChan(flight, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		b, err := load(lctx)
		if err != nil {
			return ledger.Batch{}, err
		}
		for _, r := range b.Records {
			if r.ID != "" {
				s.remember(r.ID, email)
			}
		}
		s.fill(key, version, b)
		return b, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return ledger.Batch{}, res.Err
		}
		return res.Val.(ledger.Batch).Clone(), nil
	case <-ctx.Done():
		return ledger.Batch{}, ctx.Err()
	}
}

// fill caches b unless a write happened since its load began.
func (s *Store) fill(key string, version uint64, b ledger.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return
	}
	s.cache.Set(key, b)
}

func (s *Store) invalidate(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.cache.DeletePrefix(prefix)
}

func (s *Store) currentVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Store) remember(id, email string) {
	s.owners.Set(id, core.NormalizeEmail(email))
}

func userKey(email string) string {
	return core.NormalizeEmail(email) + "|"
}
