// Package cache provides the per-user bucket cache and the
// synchronization orchestrator that keeps derived read models
// (balance, activity feed, monthly report) consistent after mutations.
package cache

import (
	"sync"
	"time"
)

// Bucket names a partition of cached query results that is invalidated
// and refetched as a unit.
type Bucket string

const (
	BucketTransactions  Bucket = "transactions"
	BucketBalance       Bucket = "balance"
	BucketCategories    Bucket = "categories"
	BucketGoals         Bucket = "goals"
	BucketBills         Bucket = "bills"
	BucketMonthlyReport Bucket = "monthly-report"
	BucketActivityLog   Bucket = "activity-log"
)

// AllBuckets lists every known bucket.
var AllBuckets = []Bucket{
	BucketTransactions,
	BucketBalance,
	BucketCategories,
	BucketGoals,
	BucketBills,
	BucketMonthlyReport,
	BucketActivityLog,
}

// FinancialBuckets is the money-related subset touched by a financial sync.
var FinancialBuckets = []Bucket{
	BucketTransactions,
	BucketBalance,
	BucketBills,
	BucketGoals,
	BucketMonthlyReport,
}

type key struct {
	userID string
	bucket Bucket
}

type entry struct {
	value    interface{}
	storedAt time.Time
}

// Store is an in-memory bucket cache keyed by (user, bucket). Entries
// are fresh for the configured TTL; explicit invalidation is the
// primary consistency mechanism, the TTL is only a backstop.
type Store struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[key]entry
	now     func() time.Time
}

// NewStore creates a Store whose entries stay fresh for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		entries: make(map[key]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for (userID, bucket) if it is still fresh.
func (s *Store) Get(userID string, bucket Bucket) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key{userID, bucket}]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.storedAt) > s.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores a value for (userID, bucket).
func (s *Store) Set(userID string, bucket Bucket, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key{userID, bucket}] = entry{value: value, storedAt: s.now()}
}

// Invalidate drops the given buckets for a user. Invalidating an absent
// bucket is a no-op, so repeated invalidation is idempotent.
func (s *Store) Invalidate(userID string, buckets ...Bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range buckets {
		delete(s.entries, key{userID, b})
	}
}

// PurgeUser drops every bucket belonging to a user. Used on logout.
func (s *Store) PurgeUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.userID == userID {
			delete(s.entries, k)
		}
	}
}

// Len reports the number of live entries. Intended for tests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
