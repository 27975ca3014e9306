package eventcache

import (
	"context"
	"strconv"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/google/btree"
	"golang.org/x/sync/singleflight"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/metrics"
)

// Finder locates data commitments on the settlement chain.
type Finder interface {
	FindCovering(ctx context.Context, height uint64) (blobstream.DataCommitment, error)
	First(ctx context.Context) (blobstream.DataCommitment, error)
}

var _ Finder = (*blobstream.EventFinder)(nil)

// Cache maps DA block heights to the data commitment covering them. It owns
// its finder: a miss triggers at most one scan per height at a time, and
// the result is kept as a [start, end) interval.
type Cache struct {
	finder  Finder
	store   *Store
	metrics *metrics.Metrics
	logger  log.Logger

	mu    sync.RWMutex
	tree  *btree.BTreeG[blobstream.DataCommitment]
	first *blobstream.DataCommitment

	group singleflight.Group
}

func byStart(a, b blobstream.DataCommitment) bool {
	return a.StartBlock < b.StartBlock
}

// New returns a cache over finder. When store is not nil the cache is
// loaded from it and every new commitment is persisted.
func New(finder Finder, store *Store, m *metrics.Metrics, logger log.Logger) (*Cache, error) {
	c := &Cache{
		finder:  finder,
		store:   store,
		metrics: m,
		logger:  logger.With("module", "eventcache"),
		tree:    btree.NewG(32, byStart),
	}
	if store == nil {
		return c, nil
	}

	commitments, err := store.Load()
	if err != nil {
		return nil, err
	}
	for _, commitment := range commitments {
		if err := c.insertLocked(commitment); err != nil {
			return nil, err
		}
	}
	first, found, err := store.First()
	if err != nil {
		return nil, err
	}
	if found {
		c.first = &first
	}
	c.metrics.SetCachedEvents(c.tree.Len())
	c.logger.Info("loaded data commitments", "count", len(commitments))
	return c, nil
}

// Lookup returns the cached commitment covering height.
func (c *Cache) Lookup(height uint64) (blobstream.DataCommitment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var found blobstream.DataCommitment
	ok := false
	c.tree.DescendLessOrEqual(blobstream.DataCommitment{StartBlock: height}, func(item blobstream.DataCommitment) bool {
		found, ok = item, item.Contains(height)
		return false
	})
	return found, ok
}

// Get returns the commitment covering height, scanning the chain on a miss.
func (c *Cache) Get(ctx context.Context, height uint64) (blobstream.DataCommitment, error) {
	if commitment, ok := c.Lookup(height); ok {
		c.metrics.CacheHit()
		return commitment, nil
	}
	c.metrics.CacheMiss()

	v, err, _ := c.group.Do(strconv.FormatUint(height, 10), func() (any, error) {
		if commitment, ok := c.Lookup(height); ok {
			return commitment, nil
		}
		c.logger.Debug("scanning for data commitment", "height", height)
		commitment, err := c.finder.FindCovering(ctx, height)
		if err != nil {
			return nil, err
		}
		if err := c.Insert(commitment); err != nil {
			return nil, err
		}
		return commitment, nil
	})
	if err != nil {
		return blobstream.DataCommitment{}, err
	}
	return v.(blobstream.DataCommitment), nil
}

// First returns the first commitment of the bridge.
func (c *Cache) First(ctx context.Context) (blobstream.DataCommitment, error) {
	c.mu.RLock()
	first := c.first
	c.mu.RUnlock()
	if first != nil {
		return *first, nil
	}

	v, err, _ := c.group.Do("first", func() (any, error) {
		commitment, err := c.finder.First(ctx)
		if err != nil {
			return nil, err
		}
		if c.store != nil {
			if err := c.store.PutFirst(commitment); err != nil {
				return nil, err
			}
		}
		c.mu.Lock()
		c.first = &commitment
		c.mu.Unlock()
		return commitment, nil
	})
	if err != nil {
		return blobstream.DataCommitment{}, err
	}
	return v.(blobstream.DataCommitment), nil
}

// Insert adds a commitment. Inserting a cached commitment again is a no-op;
// a commitment overlapping a different one is rejected.
func (c *Cache) Insert(commitment blobstream.DataCommitment) error {
	if err := commitment.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.tree.Get(commitment); ok && existing == commitment {
		return nil
	}
	if err := c.insertLocked(commitment); err != nil {
		return err
	}
	if c.store != nil {
		if err := c.store.Put(commitment); err != nil {
			c.tree.Delete(commitment)
			return err
		}
	}
	c.metrics.SetCachedEvents(c.tree.Len())
	return nil
}

func (c *Cache) insertLocked(commitment blobstream.DataCommitment) error {
	var (
		conflict blobstream.DataCommitment
		overlaps bool
	)
	c.tree.DescendLessOrEqual(commitment, func(item blobstream.DataCommitment) bool {
		overlaps = item.EndBlock > commitment.StartBlock
		conflict = item
		return false
	})
	if !overlaps {
		c.tree.AscendGreaterOrEqual(commitment, func(item blobstream.DataCommitment) bool {
			overlaps = item.StartBlock < commitment.EndBlock
			conflict = item
			return false
		})
	}
	if overlaps {
		if conflict == commitment {
			return nil
		}
		return errorsmod.Wrapf(ErrOverlap, "%s overlaps %s", commitment, conflict)
	}
	c.tree.ReplaceOrInsert(commitment)
	return nil
}

// Commitments returns the cached commitments in increasing height order.
func (c *Cache) Commitments() []blobstream.DataCommitment {
	c.mu.RLock()
	defer c.mu.RUnlock()

	commitments := make([]blobstream.DataCommitment, 0, c.tree.Len())
	c.tree.Ascend(func(item blobstream.DataCommitment) bool {
		commitments = append(commitments, item)
		return true
	})
	return commitments
}

// Len returns the number of cached commitments.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Len()
}
