package relationships

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var collectorsRented = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "contentq_id_collectors_rented",
	Help: "ID collectors currently rented from their pools.",
}, []string{"field"})

// IDCollector is a set of candidate ids proven to satisfy one join.
// Collectors rented by a filter form a singly-linked chain through Next.
type IDCollector struct {
	ids  map[interface{}]struct{}
	pool *CollectorPool

	// Next is the following collector in the owner's chain
	Next *IDCollector
}

// Add records a candidate id
func (c *IDCollector) Add(key interface{}) {
	c.ids[key] = struct{}{}
}

// Contains reports whether key was collected
func (c *IDCollector) Contains(key interface{}) bool {
	_, ok := c.ids[key]
	return ok
}

// Len returns the number of collected ids
func (c *IDCollector) Len() int {
	return len(c.ids)
}

// SetAll replaces the contents with keys
func (c *IDCollector) SetAll(keys []interface{}) {
	c.Reset()
	for _, k := range keys {
		c.ids[k] = struct{}{}
	}
}

// Intersect keeps only the ids also present in keys
func (c *IDCollector) Intersect(keys []interface{}) {
	keep := make(map[interface{}]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := c.ids[k]; ok {
			keep[k] = struct{}{}
		}
	}
	c.ids = keep
}

// Reset empties the collector
func (c *IDCollector) Reset() {
	for k := range c.ids {
		delete(c.ids, k)
	}
}

// Field returns the name of the field the collector's pool serves
func (c *IDCollector) Field() string {
	if c.pool == nil {
		return ""
	}
	return c.pool.field
}

// CollectorPool is a lock-guarded free list of collectors for one virtual field
type CollectorPool struct {
	field string
	mu    sync.Mutex
	free  []*IDCollector
}

// Rent takes a collector from the free list or allocates one
func (p *CollectorPool) Rent() *IDCollector {
	p.mu.Lock()
	var c *IDCollector
	if n := len(p.free); n > 0 {
		c = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if c == nil {
		c = &IDCollector{ids: make(map[interface{}]struct{}), pool: p}
	}
	collectorsRented.WithLabelValues(p.field).Inc()
	return c
}

// Return resets c and puts it back on the free list
func (p *CollectorPool) Return(c *IDCollector) {
	c.Reset()
	c.Next = nil

	p.mu.Lock()
	p.free = append(p.free, c)
	p.mu.Unlock()

	collectorsRented.WithLabelValues(p.field).Dec()
}

// Idle returns the number of collectors on the free list
func (p *CollectorPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Pools holds one collector pool per virtual field or association
type Pools struct {
	mu    sync.Mutex
	pools map[string]*CollectorPool
}

// NewPools creates an empty pool set
func NewPools() *Pools {
	return &Pools{pools: make(map[string]*CollectorPool)}
}

// Get returns the pool for field, creating it on first use
func (p *Pools) Get(field string) *CollectorPool {
	key := strings.ToLower(field)

	p.mu.Lock()
	defer p.mu.Unlock()

	pool, ok := p.pools[key]
	if !ok {
		pool = &CollectorPool{field: key}
		p.pools[key] = pool
	}
	return pool
}

// ReleaseChain returns every collector of the chain starting at head to its pool
func ReleaseChain(head *IDCollector) {
	for c := head; c != nil; {
		next := c.Next
		if c.pool != nil {
			c.pool.Return(c)
		}
		c = next
	}
}
