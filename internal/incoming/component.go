package incoming

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/stylefire/internal/cache"
	"github.com/standardbeagle/stylefire/internal/config"
	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/filter"
	"github.com/standardbeagle/stylefire/internal/source"
	"github.com/standardbeagle/stylefire/internal/symbols"
	"github.com/standardbeagle/stylefire/internal/tree"
	"github.com/standardbeagle/stylefire/internal/types"
)

// ErrStopped is returned by Submit once the component has been stopped
var ErrStopped = errors.New("incoming: component stopped")

// View is the optional presentation of the model
type View interface {
	ExpandAll()
}

// Component owns one project session: the processor cache, the declaration
// model and the queue of change events. Events are processed one at a time in
// arrival order; every model mutation happens under one lock.
type Component struct {
	cfg        atomic.Pointer[config.Config]
	tree       source.Tree
	editor     tree.SourceEditor
	processors *cache.ProcessorCache
	resolver   *symbols.Resolver
	model      *tree.Model

	// guards model writes and write-back
	mu sync.Mutex

	docs filter.DocumentSet
	view View

	queue    chan types.ChangeEvent
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  atomic.Bool
	stopOnce sync.Once

	processed atomic.Int64
	// events submitted and not yet merged or dropped
	pending atomic.Int64

	// Optional callback for test synchronization
	onProcessed func(event types.ChangeEvent, survivors []tree.DeclarationPath)
}

// NewComponent creates a component for a project tree. editor may be nil when
// changes are never written back.
func NewComponent(cfg *config.Config, tr source.Tree, editor tree.SourceEditor) *Component {
	cacheCfg := cache.DefaultConfig()
	if cfg.Cache.MaxEntries > 0 {
		cacheCfg.MaxEntries = cfg.Cache.MaxEntries
	}
	if cfg.Cache.TTLSeconds > 0 {
		cacheCfg.TTL = time.Duration(cfg.Cache.TTLSeconds) * time.Second
	}
	if cfg.Cache.CleanupIntervalSeconds > 0 {
		cacheCfg.CleanupInterval = time.Duration(cfg.Cache.CleanupIntervalSeconds) * time.Second
	}

	size := cfg.Queue.Size
	if size <= 0 {
		size = types.DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Component{
		tree:       tr,
		editor:     editor,
		processors: cache.NewProcessorCache(tr, cacheCfg),
		resolver:   symbols.NewResolver(tr),
		model:      tree.NewModel(),
		queue:      make(chan types.ChangeEvent, size),
		ctx:        ctx,
		cancel:     cancel,
	}
	c.cfg.Store(cfg)
	return c
}

// Config returns the configuration in effect
func (c *Component) Config() *config.Config { return c.cfg.Load() }

// UpdateConfig swaps the configuration used for events resolved from now on.
// Queue sizing is fixed at construction; the cache TTL follows the new value.
func (c *Component) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	c.cfg.Store(cfg)
	if cfg.Cache.TTLSeconds > 0 {
		c.processors.UpdateTTL(time.Duration(cfg.Cache.TTLSeconds) * time.Second)
	}
	c.processors.Invalidate()
	debug.LogResolve("incoming: configuration updated\n")
}

// SetView sets the view expanded after each change when AutoExpand is on
func (c *Component) SetView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
}

// SetDocuments sets the open documents used by the current documents filter
func (c *Component) SetDocuments(docs filter.DocumentSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = docs
}

// SetOnProcessed sets a callback invoked after each queued event is merged
func (c *Component) SetOnProcessed(fn func(event types.ChangeEvent, survivors []tree.DeclarationPath)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onProcessed = fn
}

// Model returns the declaration model
func (c *Component) Model() *tree.Model { return c.model }

// Processors returns the session's processor cache
func (c *Component) Processors() *cache.ProcessorCache { return c.processors }

// Resolver returns the symbol resolver bound to the project tree
func (c *Component) Resolver() *symbols.Resolver { return c.resolver }

// Processed returns the number of events merged so far
func (c *Component) Processed() int64 { return c.processed.Load() }

// Start launches the queue worker. Calling it again has no effect.
func (c *Component) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.wg.Add(1)
	go c.run()
	debug.LogResolve("incoming: worker started (queue %d)\n", cap(c.queue))
}

// Stop stops the worker and the cache cleanup. Events still queued are
// dropped.
func (c *Component) Stop() {
	c.stopOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		c.processors.Close()
		debug.LogResolve("incoming: stopped after %d events\n", c.processed.Load())
	})
}

// Submit queues an event. It blocks while the queue is full.
func (c *Component) Submit(ctx context.Context, event types.ChangeEvent) error {
	if c.ctx.Err() != nil {
		return ErrStopped
	}
	c.pending.Add(1)
	select {
	case c.queue <- event:
		return nil
	case <-ctx.Done():
		c.pending.Add(-1)
		return ctx.Err()
	case <-c.ctx.Done():
		c.pending.Add(-1)
		return ErrStopped
	}
}

// Drain waits until every event submitted so far has been merged
func (c *Component) Drain(ctx context.Context) error {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return ErrStopped
		}
	}
	return nil
}

const drainPollInterval = 5 * time.Millisecond

func (c *Component) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case event := <-c.queue:
			survivors := c.ProcessChange(event)
			c.pending.Add(-1)

			c.mu.Lock()
			fn := c.onProcessed
			c.mu.Unlock()
			if fn != nil {
				fn(event, survivors)
			}
		}
	}
}

// Resolve routes the event, collects its candidates and reduces them with the
// enabled filters. It does not touch the model and is safe to run
// concurrently.
func (c *Component) Resolve(event types.ChangeEvent) []tree.DeclarationPath {
	cfg := c.cfg.Load()
	routed := cfg.ApplyRoutes(event)
	candidates := Candidates(c.tree, c.processors, routed)

	c.mu.Lock()
	docs := c.docs
	c.mu.Unlock()

	chain := filter.Build(cfg.Settings, routed, docs, cfg.BaseURL())
	return chain.Reduce(candidates)
}

// ProcessChange resolves one event and merges the survivors into the model
func (c *Component) ProcessChange(event types.ChangeEvent) []tree.DeclarationPath {
	survivors := c.Resolve(event)
	c.merge(survivors)
	return survivors
}

// ProcessBatch resolves events in parallel and merges their survivors in
// input order, as if each had been processed in turn.
func (c *Component) ProcessBatch(ctx context.Context, events []types.ChangeEvent) error {
	results := make([][]tree.DeclarationPath, len(events))

	g, ctx := errgroup.WithContext(ctx)
	if workers := c.cfg.Load().Queue.Workers; workers > 0 {
		g.SetLimit(workers)
	}
	for i, ev := range events {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.Resolve(ev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, survivors := range results {
		c.merge(survivors)
	}
	return nil
}

func (c *Component) merge(survivors []tree.DeclarationPath) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range survivors {
		c.model.Intersect(p)
	}
	c.processed.Add(1)
	if c.cfg.Load().Settings.AutoExpand && c.view != nil {
		c.view.ExpandAll()
	}
}

// HandleEvent reacts to browser notifications. A page refresh clears the
// model when AutoClear is on.
func (c *Component) HandleEvent(event types.Event) {
	if !event.IsRefresh() || !c.cfg.Load().Settings.AutoClear {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model.Clear()
	debug.LogResolve("incoming: model cleared on refresh\n")
}

// SourceChanged must be called after the project sources change. It drops
// cached searches and re-checks every leaf, returning the number of leaves
// that no longer point at live source.
func (c *Component) SourceChanged() int {
	c.processors.Invalidate()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.RefreshLeafs()
}

// Apply writes every pending change back through the editor. Values that are
// plain variable references go to the variable's definition when
// ResolveVariables is on.
func (c *Component) Apply() error {
	if c.editor == nil {
		return errors.New("incoming: no source editor configured")
	}

	var resolver tree.VariableResolver
	if c.cfg.Load().Settings.ResolveVariables {
		resolver = c.resolver
	}

	c.mu.Lock()
	err := c.model.Apply(c.editor, resolver)
	c.mu.Unlock()

	// Write-back changed the sources under the cached searches
	c.processors.Invalidate()
	return err
}
