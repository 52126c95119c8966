package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/search"
	"github.com/standardbeagle/stylefire/internal/source"
)

// Cache configuration constants
const (
	DefaultMaxEntries      = 256
	DefaultTTL             = 10 * time.Minute
	DefaultCleanupInterval = time.Minute
)

type processorKind byte

const (
	kindSelector processorKind = 's'
	kindMedia    processorKind = 'm'
)

// cachedProcessor is one cache slot. Processors memoize their search result,
// so an entry is only as fresh as the tree it was first run against.
type cachedProcessor struct {
	kind        processorKind
	text        string
	processor   any
	cachedAt    int64 // unix nano
	accessCount int64
}

// ProcessorCache holds the search processors of one project session, keyed by
// normalized query text. Lookups are lock-free via sync.Map.
type ProcessorCache struct {
	tree    source.Tree
	entries sync.Map // map[uint64]*cachedProcessor

	// read-only after creation
	maxEntries int
	ttlNanos   int64

	hits          int64
	misses        int64
	evictions     int64
	invalidations int64
	count         int64

	createdAt   time.Time
	lastCleanup int64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Config defines cache options
type Config struct {
	MaxEntries      int
	TTL             time.Duration
	AutoCleanup     bool
	CleanupInterval time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxEntries:      DefaultMaxEntries,
		TTL:             DefaultTTL,
		AutoCleanup:     true,
		CleanupInterval: DefaultCleanupInterval,
	}
}

// NewProcessorCache creates a cache bound to a source tree. When AutoCleanup
// is set a background goroutine drops expired entries until Close is called.
func NewProcessorCache(tree source.Tree, config Config) *ProcessorCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	c := &ProcessorCache{
		tree:        tree,
		maxEntries:  config.MaxEntries,
		ttlNanos:    config.TTL.Nanoseconds(),
		createdAt:   time.Now(),
		lastCleanup: time.Now().UnixNano(),
		stop:        make(chan struct{}),
	}

	if config.AutoCleanup {
		interval := config.CleanupInterval
		if interval <= 0 {
			interval = DefaultCleanupInterval
		}
		c.wg.Add(1)
		go c.autoCleanup(interval)
	}
	return c
}

// Tree returns the source tree processors are created against
func (c *ProcessorCache) Tree() source.Tree {
	return c.tree
}

func key(kind processorKind, normalized string) uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte{byte(kind), 0})
	_, _ = d.WriteString(normalized)
	return d.Sum64()
}

// Selector returns the processor for a selector text
func (c *ProcessorCache) Selector(selector string) *search.SelectorProcessor {
	normalized := search.NormalizeWhitespace(selector)
	p := c.get(kindSelector, normalized, func() any {
		return search.NewSelectorProcessor(c.tree, normalized)
	})
	return p.(*search.SelectorProcessor)
}

// Media returns the processor for a media query text
func (c *ProcessorCache) Media(media string) *search.MediaProcessor {
	normalized := search.NormalizeWhitespace(media)
	p := c.get(kindMedia, normalized, func() any {
		return search.NewMediaProcessor(c.tree, normalized)
	})
	return p.(*search.MediaProcessor)
}

func (c *ProcessorCache) get(kind processorKind, normalized string, create func() any) any {
	k := key(kind, normalized)
	now := time.Now().UnixNano()

	if val, ok := c.entries.Load(k); ok {
		cached := val.(*cachedProcessor)
		if !cached.holds(kind, normalized) {
			return c.uncached(kind, normalized, create)
		}
		if now-atomic.LoadInt64(&cached.cachedAt) <= atomic.LoadInt64(&c.ttlNanos) {
			atomic.AddInt64(&cached.accessCount, 1)
			atomic.AddInt64(&c.hits, 1)
			return cached.processor
		}
		if c.entries.CompareAndDelete(k, val) {
			atomic.AddInt64(&c.count, -1)
			atomic.AddInt64(&c.evictions, 1)
		}
	}

	atomic.AddInt64(&c.misses, 1)
	fresh := &cachedProcessor{kind: kind, text: normalized, processor: create(), cachedAt: now, accessCount: 1}
	actual, loaded := c.entries.LoadOrStore(k, fresh)
	if loaded && !actual.(*cachedProcessor).holds(kind, normalized) {
		return fresh.processor
	}
	if !loaded {
		if atomic.AddInt64(&c.count, 1) > int64(c.maxEntries) {
			c.evictOldest()
		}
		debug.Log("CACHE", "new %c processor %q\n", kind, normalized)
	}
	return actual.(*cachedProcessor).processor
}

func (p *cachedProcessor) holds(kind processorKind, normalized string) bool {
	return p.kind == kind && p.text == normalized
}

// uncached serves a query whose hash slot belongs to different text. The
// resident entry keeps the slot.
func (c *ProcessorCache) uncached(kind processorKind, normalized string, create func() any) any {
	atomic.AddInt64(&c.misses, 1)
	debug.Log("CACHE", "key collision for %c %q\n", kind, normalized)
	return create()
}

// evictOldest removes the least recently created entry
func (c *ProcessorCache) evictOldest() {
	var oldestKey any
	oldestTime := time.Now().UnixNano()

	c.entries.Range(func(k, v any) bool {
		cachedAt := atomic.LoadInt64(&v.(*cachedProcessor).cachedAt)
		if cachedAt < oldestTime {
			oldestTime = cachedAt
			oldestKey = k
		}
		return true
	})

	if oldestKey != nil {
		if _, ok := c.entries.LoadAndDelete(oldestKey); ok {
			atomic.AddInt64(&c.count, -1)
			atomic.AddInt64(&c.evictions, 1)
		}
	}
}

// Invalidate drops every processor. Call it whenever the source tree changes,
// since processors keep the result of their first search.
func (c *ProcessorCache) Invalidate() {
	dropped := int64(0)
	c.entries.Range(func(k, _ any) bool {
		if _, ok := c.entries.LoadAndDelete(k); ok {
			dropped++
		}
		return true
	})
	atomic.AddInt64(&c.count, -dropped)
	atomic.AddInt64(&c.invalidations, 1)
	debug.Log("CACHE", "invalidated %d processors\n", dropped)
}

// CleanExpired removes expired entries and returns how many were dropped
func (c *ProcessorCache) CleanExpired() int {
	now := time.Now().UnixNano()
	ttl := atomic.LoadInt64(&c.ttlNanos)
	cleaned := int64(0)

	c.entries.Range(func(k, v any) bool {
		if now-atomic.LoadInt64(&v.(*cachedProcessor).cachedAt) > ttl {
			if c.entries.CompareAndDelete(k, v) {
				cleaned++
			}
		}
		return true
	})

	atomic.AddInt64(&c.count, -cleaned)
	atomic.AddInt64(&c.evictions, cleaned)
	atomic.StoreInt64(&c.lastCleanup, now)
	return int(cleaned)
}

func (c *ProcessorCache) autoCleanup(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanExpired()
		case <-c.stop:
			return
		}
	}
}

// UpdateTTL changes the TTL and drops entries that are now expired
func (c *ProcessorCache) UpdateTTL(ttl time.Duration) {
	atomic.StoreInt64(&c.ttlNanos, ttl.Nanoseconds())
	c.CleanExpired()
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *ProcessorCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
}

// Stats returns cache statistics
func (c *ProcessorCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)

	hitRate := float64(0)
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:          hits,
		Misses:        misses,
		Evictions:     atomic.LoadInt64(&c.evictions),
		Invalidations: atomic.LoadInt64(&c.invalidations),
		Entries:       int(atomic.LoadInt64(&c.count)),
		HitRate:       hitRate,
		CreatedAt:     c.createdAt,
		LastCleanup:   time.Unix(0, atomic.LoadInt64(&c.lastCleanup)),
		Uptime:        time.Since(c.createdAt),
	}
}

// Stats holds cache statistics
type Stats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	Invalidations int64
	Entries       int
	HitRate       float64
	CreatedAt     time.Time
	LastCleanup   time.Time
	Uptime        time.Duration
}

// Status summarizes the hit rate
func (s Stats) Status() string {
	switch {
	case s.HitRate >= 0.95:
		return "excellent"
	case s.HitRate >= 0.85:
		return "good"
	case s.HitRate >= 0.70:
		return "fair"
	default:
		return "poor"
	}
}
