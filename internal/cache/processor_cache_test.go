package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/stylefire/internal/memtree"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCache(t *testing.T, config Config) (*ProcessorCache, *memtree.Tree) {
	t.Helper()
	tr := memtree.New("/p")
	c := NewProcessorCache(tr, config)
	t.Cleanup(c.Close)
	return c, tr
}

func TestProcessorCache_Defaults(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, DefaultMaxEntries, config.MaxEntries)
	assert.Equal(t, DefaultTTL, config.TTL)
	assert.True(t, config.AutoCleanup)

	c, tr := newTestCache(t, Config{})
	assert.Same(t, tr, c.Tree())
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestProcessorCache_SameProcessorForNormalizedText(t *testing.T) {
	c, tr := newTestCache(t, DefaultConfig())
	tr.AddFile("a.css").AddBlock(".a > .b")

	p1 := c.Selector(".a > .b")
	p2 := c.Selector("  .a  >\n.b ")
	assert.Same(t, p1, p2)
	assert.Len(t, p1.Blocks(), 1)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestProcessorCache_SelectorAndMediaKeysDiffer(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())

	s := c.Selector("print")
	m := c.Media("print")
	assert.Equal(t, "print", s.Selector())
	assert.Equal(t, "print", m.Media())
	assert.Equal(t, 2, c.Stats().Entries)
}

func TestProcessorCache_HashCollisionDoesNotShareProcessor(t *testing.T) {
	c, tr := newTestCache(t, DefaultConfig())
	tr.AddFile("a.css").AddBlock(".a")
	tr.AddFile("b.css").AddBlock(".b")

	resident := c.Selector(".a")
	val, ok := c.entries.Load(key(kindSelector, ".a"))
	require.True(t, ok)
	// plant the .a entry in the slot of .b as if both texts hashed alike
	c.entries.Store(key(kindSelector, ".b"), val)

	other := c.Selector(".b")
	assert.NotSame(t, resident, other)
	assert.Equal(t, ".b", other.Selector())
	require.Len(t, other.Blocks(), 1)
	assert.Equal(t, ".b", other.Blocks()[0].Selector())

	assert.Same(t, resident, c.Selector(".a"))
}

func TestProcessorCache_Invalidate(t *testing.T) {
	c, tr := newTestCache(t, DefaultConfig())
	f := tr.AddFile("a.css")
	f.AddBlock(".x")

	before := c.Selector(".x")
	assert.Len(t, before.Blocks(), 1)

	f.AddBlock(".x")
	assert.Len(t, c.Selector(".x").Blocks(), 1, "cached processor keeps its first result")

	c.Invalidate()
	after := c.Selector(".x")
	assert.NotSame(t, before, after)
	assert.Len(t, after.Blocks(), 2)
	assert.Equal(t, int64(1), c.Stats().Invalidations)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestProcessorCache_Eviction(t *testing.T) {
	c, _ := newTestCache(t, Config{MaxEntries: 2, TTL: time.Hour})

	c.Selector(".a")
	c.Selector(".b")
	c.Selector(".c")

	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestProcessorCache_Expiry(t *testing.T) {
	c, _ := newTestCache(t, Config{MaxEntries: 10, TTL: time.Hour})

	first := c.Selector(".a")
	c.UpdateTTL(time.Nanosecond)
	time.Sleep(time.Millisecond)

	assert.NotSame(t, first, c.Selector(".a"), "expired entry is rebuilt")

	time.Sleep(time.Millisecond)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestProcessorCache_AutoCleanupStops(t *testing.T) {
	c := NewProcessorCache(memtree.New("/p"), Config{
		TTL:             time.Nanosecond,
		AutoCleanup:     true,
		CleanupInterval: time.Millisecond,
	})
	c.Selector(".a")

	require.Eventually(t, func() bool {
		return c.Stats().Entries == 0
	}, time.Second, time.Millisecond)

	c.Close()
	c.Close()
}

func TestProcessorCache_ConcurrentGet(t *testing.T) {
	c, tr := newTestCache(t, DefaultConfig())
	tr.AddFile("a.css").AddBlock(".shared")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, c.Selector(".shared").Blocks(), 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Stats().Entries)
}

func TestStatsStatus(t *testing.T) {
	assert.Equal(t, "excellent", Stats{HitRate: 0.99}.Status())
	assert.Equal(t, "good", Stats{HitRate: 0.9}.Status())
	assert.Equal(t, "fair", Stats{HitRate: 0.75}.Status())
	assert.Equal(t, "poor", Stats{HitRate: 0.1}.Status())
}
