package eventcache_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/eventcache"
	"github.com/celestiaorg/celestia-da-challenge/metrics"
	"github.com/celestiaorg/celestia-da-challenge/testing/fixtures"
)

var bridgeAddress = common.HexToAddress("0xF0c6429ebAB2e7DC6e05DaFB61128bE21f13cb1e")

// countingFinder wraps a finder and blocks scans until release is closed.
type countingFinder struct {
	eventcache.Finder
	release chan struct{}
	scans   atomic.Int32
	firsts  atomic.Int32
}

func (f *countingFinder) FindCovering(ctx context.Context, height uint64) (blobstream.DataCommitment, error) {
	f.scans.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.Finder.FindCovering(ctx, height)
}

func (f *countingFinder) First(ctx context.Context) (blobstream.DataCommitment, error) {
	f.firsts.Add(1)
	return f.Finder.First(ctx)
}

func commitments(n int) []blobstream.DataCommitment {
	out := make([]blobstream.DataCommitment, n)
	for i := range out {
		out[i] = blobstream.DataCommitment{
			Nonce:      uint64(i + 1),
			StartBlock: uint64(1000 + 100*i),
			EndBlock:   uint64(1100 + 100*i),
			Root:       common.BigToHash(common.Big3),
		}
	}
	return out
}

func newFinder(t *testing.T, n int) *countingFinder {
	t.Helper()
	contract, err := blobstream.NewContract(bridgeAddress, nil, nil)
	require.NoError(t, err)
	chain := &fixtures.Chain{}
	require.NoError(t, chain.EmitCommitments(bridgeAddress, commitments(n), 5_000, 500))
	return &countingFinder{Finder: blobstream.NewEventFinder(contract, chain, 31337, 1_000)}
}

func TestCacheGet(t *testing.T) {
	ctx := context.Background()
	finder := newFinder(t, 10)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	cache, err := eventcache.New(finder, nil, m, log.NewNopLogger())
	require.NoError(t, err)

	commitment, err := cache.Get(ctx, 1250)
	require.NoError(t, err)
	require.Equal(t, uint64(3), commitment.Nonce)

	// the same interval answers without a scan
	for _, height := range []uint64{1200, 1250, 1299} {
		commitment, err = cache.Get(ctx, height)
		require.NoError(t, err)
		require.Equal(t, uint64(3), commitment.Nonce)
	}
	require.Equal(t, int32(1), finder.scans.Load())

	commitment, err = cache.Get(ctx, 1300)
	require.NoError(t, err)
	require.Equal(t, uint64(4), commitment.Nonce)
	require.Equal(t, int32(2), finder.scans.Load())
	require.Equal(t, 2, cache.Len())

	_, err = cache.Get(ctx, 5000)
	require.ErrorIs(t, err, blobstream.ErrEventNotFound)

	require.Equal(t, 3.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.CachedEvents))
}

func TestCacheConcurrentGetScansOnce(t *testing.T) {
	finder := newFinder(t, 10)
	finder.release = make(chan struct{})
	cache, err := eventcache.New(finder, nil, nil, log.NewNopLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]blobstream.DataCommitment, 16)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Get(context.Background(), 1555)
		}(i)
	}
	close(finder.release)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, uint64(6), results[i].Nonce)
	}
	require.Equal(t, int32(1), finder.scans.Load())
}

func TestCacheRejectsOverlap(t *testing.T) {
	cache, err := eventcache.New(newFinder(t, 1), nil, nil, log.NewNopLogger())
	require.NoError(t, err)

	base := blobstream.DataCommitment{Nonce: 1, StartBlock: 100, EndBlock: 200}
	require.NoError(t, cache.Insert(base))
	require.NoError(t, cache.Insert(base))
	require.Equal(t, 1, cache.Len())

	for _, c := range []blobstream.DataCommitment{
		{Nonce: 2, StartBlock: 150, EndBlock: 250},
		{Nonce: 2, StartBlock: 50, EndBlock: 101},
		{Nonce: 2, StartBlock: 100, EndBlock: 200},
		{Nonce: 2, StartBlock: 120, EndBlock: 130},
		{Nonce: 2, StartBlock: 0, EndBlock: 300},
	} {
		require.ErrorIs(t, cache.Insert(c), eventcache.ErrOverlap, "%s", c)
	}

	require.NoError(t, cache.Insert(blobstream.DataCommitment{Nonce: 2, StartBlock: 200, EndBlock: 300}))
	require.NoError(t, cache.Insert(blobstream.DataCommitment{Nonce: 0, StartBlock: 50, EndBlock: 100}))
	require.Error(t, cache.Insert(blobstream.DataCommitment{Nonce: 3, StartBlock: 300, EndBlock: 300}))

	got := cache.Commitments()
	require.Len(t, got, 3)
	require.Equal(t, uint64(50), got[0].StartBlock)
	require.Equal(t, uint64(200), got[2].StartBlock)

	_, ok := cache.Lookup(300)
	require.False(t, ok)
	c, ok := cache.Lookup(299)
	require.True(t, ok)
	require.Equal(t, uint64(2), c.Nonce)
}

func TestCacheFirst(t *testing.T) {
	finder := newFinder(t, 3)
	cache, err := eventcache.New(finder, nil, nil, log.NewNopLogger())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		first, err := cache.First(context.Background())
		require.NoError(t, err)
		require.Equal(t, uint64(1), first.Nonce)
	}
	require.Equal(t, int32(1), finder.firsts.Load())
}

type failingFinder struct{ eventcache.Finder }

func (failingFinder) FindCovering(context.Context, uint64) (blobstream.DataCommitment, error) {
	return blobstream.DataCommitment{}, errors.New("unreachable")
}

func (failingFinder) First(context.Context) (blobstream.DataCommitment, error) {
	return blobstream.DataCommitment{}, errors.New("unreachable")
}

func TestStoreReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.db")

	store, err := eventcache.OpenStore(path, bridgeAddress)
	require.NoError(t, err)
	cache, err := eventcache.New(newFinder(t, 10), store, nil, log.NewNopLogger())
	require.NoError(t, err)
	for _, height := range []uint64{1010, 1420, 1999} {
		_, err := cache.Get(ctx, height)
		require.NoError(t, err)
	}
	_, err = cache.First(ctx)
	require.NoError(t, err)
	want := cache.Commitments()
	require.NoError(t, store.Close())

	store, err = eventcache.OpenStore(path, bridgeAddress)
	require.NoError(t, err)
	defer store.Close()
	reloaded, err := eventcache.New(failingFinder{}, store, nil, log.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, want, reloaded.Commitments())

	commitment, err := reloaded.Get(ctx, 1450)
	require.NoError(t, err)
	require.Equal(t, uint64(5), commitment.Nonce)
	first, err := reloaded.First(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), first.StartBlock)

	_, err = reloaded.Get(ctx, 1500)
	require.Error(t, err)
}

func TestStoreSeparatesBridges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	store, err := eventcache.OpenStore(path, bridgeAddress)
	require.NoError(t, err)
	require.NoError(t, store.Put(blobstream.DataCommitment{Nonce: 1, StartBlock: 1, EndBlock: 2}))
	require.NoError(t, store.Close())

	store, err = eventcache.OpenStore(path, common.HexToAddress("0x01"))
	require.NoError(t, err)
	defer store.Close()
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, loaded)
	_, found, err := store.First()
	require.NoError(t, err)
	require.False(t, found)
}
