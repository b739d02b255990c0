// Package cache memoizes compiled filters for the life of the process.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
	"github.com/conduit-lang/contentq/internal/filter/runtime"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

var (
	compilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentq_filter_compiles_total",
		Help: "Filter compilations by result.",
	}, []string{"result"})

	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contentq_filter_cache_lookups_total",
		Help: "Filter cache lookups by outcome.",
	}, []string{"outcome"})
)

// Key identifies a compiled filter
type Key struct {
	TypeName       string // lowercase
	Text           string
	AllowConstants bool
}

// entry compiles its key exactly once
type entry struct {
	once sync.Once
	meta *runtime.FilterMeta
	err  error
}

// MetaCache is a process-wide, concurrency-safe cache of compiled filters.
// Entries are never evicted; failed compilations are not kept.
type MetaCache struct {
	provider schema.Provider
	opts     runtime.Options
	logger   *zap.Logger

	entries  sync.Map // Key -> *entry
	compiles atomic.Int64
}

// New creates a cache compiling against provider
func New(provider schema.Provider, opts runtime.Options) *MetaCache {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaCache{provider: provider, opts: opts, logger: logger}
}

// GetOrCompile returns the compiled filter for (typeName, text, allowConstants),
// compiling it on first request. Concurrent first requests share one compilation.
func (c *MetaCache) GetOrCompile(typeName, text string, allowConstants bool) (*runtime.FilterMeta, error) {
	key := Key{TypeName: strings.ToLower(typeName), Text: text, AllowConstants: allowConstants}

	if v, ok := c.entries.Load(key); ok {
		e := v.(*entry)
		e.once.Do(func() { c.compile(key, e) })
		if e.err != nil {
			lookupsTotal.WithLabelValues("error").Inc()
		} else {
			lookupsTotal.WithLabelValues("hit").Inc()
		}
		return e.meta, e.err
	}

	v, _ := c.entries.LoadOrStore(key, &entry{})
	e := v.(*entry)
	e.once.Do(func() { c.compile(key, e) })
	lookupsTotal.WithLabelValues("miss").Inc()
	return e.meta, e.err
}

func (c *MetaCache) compile(key Key, e *entry) {
	c.compiles.Add(1)
	e.meta, e.err = runtime.Compile(key.TypeName, key.Text, key.AllowConstants, c.provider, c.opts)
	if e.err != nil {
		compilesTotal.WithLabelValues("error").Inc()
		c.logger.Warn("filter compile failed",
			zap.String("type", key.TypeName),
			zap.String("query", key.Text),
			zap.String("code", string(ferrors.CodeOf(e.err))),
			zap.Error(e.err))
		c.entries.CompareAndDelete(key, e)
		return
	}
	compilesTotal.WithLabelValues("ok").Inc()
}

// Compilations returns how many compilations the cache has run
func (c *MetaCache) Compilations() int64 {
	return c.compiles.Load()
}

// Len returns the number of cached filters
func (c *MetaCache) Len() int {
	n := 0
	c.entries.Range(func(_, v interface{}) bool {
		if v.(*entry).err == nil {
			n++
		}
		return true
	})
	return n
}
