package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "granafacil/internal/errors"
	"granafacil/internal/logger"
)

// FetchFunc loads the authoritative value for a user's bucket.
type FetchFunc func(ctx context.Context, userID string) (interface{}, error)

// Orchestrator coordinates invalidation and refetch across cache
// buckets. The cache itself has no knowledge of which mutations affect
// which derived views, so the edges (for example categories →
// transactions) are declared here.
type Orchestrator struct {
	store       *Store
	settleDelay time.Duration

	mu       sync.RWMutex
	fetchers map[Bucket]FetchFunc
}

// NewOrchestrator creates an orchestrator over the given store.
// settleDelay is the heuristic wait between invalidation and forced
// refetch; pass zero to disable it (tests do).
func NewOrchestrator(store *Store, settleDelay time.Duration) *Orchestrator {
	return &Orchestrator{
		store:       store,
		settleDelay: settleDelay,
		fetchers:    make(map[Bucket]FetchFunc),
	}
}

// Register installs the fetcher used to (re)load a bucket.
func (o *Orchestrator) Register(bucket Bucket, fn FetchFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetchers[bucket] = fn
}

// GetCached returns the bucket's cached value, loading it through the
// registered fetcher when stale or absent.
func (o *Orchestrator) GetCached(ctx context.Context, userID string, bucket Bucket) (interface{}, error) {
	if value, ok := o.store.Get(userID, bucket); ok {
		return value, nil
	}
	return o.refetch(ctx, userID, bucket)
}

// Invalidate drops the given buckets for a user.
func (o *Orchestrator) Invalidate(userID string, buckets ...Bucket) {
	o.store.Invalidate(userID, buckets...)
}

// InvalidateCategories drops the categories bucket and, because
// transaction display depends on category names, the transactions
// bucket as well.
func (o *Orchestrator) InvalidateCategories(userID string) {
	o.store.Invalidate(userID, BucketCategories, BucketTransactions)
}

// SyncAll invalidates every bucket in parallel, waits the settle delay,
// then force-refetches the three highest-visibility buckets.
func (o *Orchestrator) SyncAll(ctx context.Context, userID string) error {
	return o.sync(ctx, userID, AllBuckets, []Bucket{BucketTransactions, BucketBalance, BucketActivityLog})
}

// SyncFinancial is SyncAll scoped to the money-related buckets.
func (o *Orchestrator) SyncFinancial(ctx context.Context, userID string) error {
	return o.sync(ctx, userID, FinancialBuckets, []Bucket{BucketTransactions, BucketBalance})
}

// PurgeUser drops every bucket of a user (logout teardown).
func (o *Orchestrator) PurgeUser(userID string) {
	o.store.PurgeUser(userID)
}

func (o *Orchestrator) sync(ctx context.Context, userID string, invalidate, refetch []Bucket) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, bucket := range invalidate {
		bucket := bucket
		g.Go(func() error {
			o.store.Invalidate(userID, bucket)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Heuristic wait for backend write propagation before repopulating.
	if o.settleDelay > 0 {
		select {
		case <-time.After(o.settleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, bucket := range refetch {
		bucket := bucket
		g.Go(func() error {
			if _, err := o.refetch(gctx, userID, bucket); err != nil {
				logger.Get().Warnw("bucket refetch failed",
					"bucket", bucket,
					"user_id", userID,
					"error", err,
				)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) refetch(ctx context.Context, userID string, bucket Bucket) (interface{}, error) {
	o.mu.RLock()
	fn, ok := o.fetchers[bucket]
	o.mu.RUnlock()
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrInternalServer, "no fetcher registered for bucket "+string(bucket))
	}

	value, err := fn(ctx, userID)
	if err != nil {
		return nil, err
	}
	o.store.Set(userID, bucket, value)
	return value, nil
}
