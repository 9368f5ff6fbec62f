package contextid

import (
	"context"
	"sync"
)

type collectorKey struct{}

// Collector records the context ids resolved while it is open. It travels in
// a context.Context, so concurrent operations each see their own collector
// and a nested scope shadows its parent until the inner context is dropped.
type Collector struct {
	mu     sync.Mutex
	parent *Collector
	ids    []ID
	seen   map[string]bool
	closed bool
}

// OpenScanCollector starts a collection scope. Use the returned context for
// the work to observe and Close the collector when done.
func OpenScanCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{parent: CollectorFrom(ctx), seen: make(map[string]bool)}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// CollectorFrom returns the innermost open collector in ctx, or nil.
func CollectorFrom(ctx context.Context) *Collector {
	c, _ := ctx.Value(collectorKey{}).(*Collector)
	for c != nil && c.isClosed() {
		c = c.parent
	}
	return c
}

// Record adds id unless it was already recorded or the collector is closed.
func (c *Collector) Record(id ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.seen[id.String()] {
		return
	}
	c.seen[id.String()] = true
	c.ids = append(c.ids, id)
}

// IDs returns the recorded ids in order.
func (c *Collector) IDs() []ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ID(nil), c.ids...)
}

// Close ends the scope. Later lookups through a context carrying this
// collector record into its parent instead.
func (c *Collector) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Collector) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
