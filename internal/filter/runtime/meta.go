// Package runtime holds compiled filters and the pooled, per-use filter
// instances callers bind arguments into and match records with.
package runtime

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	"github.com/conduit-lang/contentq/internal/filter/codegen"
	"github.com/conduit-lang/contentq/internal/filter/index"
	"github.com/conduit-lang/contentq/internal/filter/parser"
	"github.com/conduit-lang/contentq/internal/filter/resolver"
	"github.com/conduit-lang/contentq/internal/orm/relationships"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// DefaultMaxPageSize bounds SetPage when Options.MaxPageSize is zero
const DefaultMaxPageSize = 1000

// Options configures compiled filters
type Options struct {
	// Locator resolves associations for joins; required only by filters with joins
	Locator *relationships.Locator
	// Pools supplies ID collectors; a private set is created when nil
	Pools *relationships.Pools
	// Logger receives setup diagnostics; nil disables logging
	Logger *zap.Logger
	// MaxPageSize bounds SetPage
	MaxPageSize int
}

func (o Options) withDefaults() Options {
	if o.Pools == nil {
		o.Pools = relationships.NewPools()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = DefaultMaxPageSize
	}
	return o
}

// FilterMeta is a compiled filter. It is immutable after construction and
// shared by every instance rented from it.
type FilterMeta struct {
	program        *codegen.Program
	indexable      *index.FieldSet
	allowConstants bool
	joins          []*join
	opts           Options
	pool           sync.Pool
}

// join caches the association service of one collector for the life of the meta
type join struct {
	spec *codegen.CollectorSpec
	pool *relationships.CollectorPool

	mu  sync.Mutex
	svc relationships.Service
}

// Compile parses, resolves and compiles text against typeName
func Compile(typeName, text string, allowConstants bool, provider schema.Provider, opts Options) (*FilterMeta, error) {
	start := time.Now()
	opts = opts.withDefaults()

	q, err := parser.Parse(text, allowConstants)
	if err != nil {
		return nil, err
	}
	if q, err = resolver.Resolve(q, typeName, provider); err != nil {
		return nil, err
	}
	program, err := codegen.Compile(q, provider)
	if err != nil {
		return nil, err
	}

	meta := NewFilterMeta(program, allowConstants, opts)
	opts.Logger.Debug("filter compiled",
		zap.String("type", q.TypeName),
		zap.String("query", text),
		zap.Bool("allow_constants", allowConstants),
		zap.Int("slots", len(q.Slots)),
		zap.Int("joins", len(program.Collectors)),
		zap.Duration("duration", time.Since(start)))
	return meta, nil
}

// NewFilterMeta wraps a compiled program
func NewFilterMeta(program *codegen.Program, allowConstants bool, opts Options) *FilterMeta {
	opts = opts.withDefaults()
	m := &FilterMeta{
		program:        program,
		indexable:      index.AnalyzeQuery(program.Query),
		allowConstants: allowConstants,
		opts:           opts,
	}
	for _, spec := range program.Collectors {
		m.joins = append(m.joins, &join{spec: spec, pool: opts.Pools.Get(spec.MapName)})
	}
	m.pool.New = func() interface{} {
		return &Filter{meta: m, state: Released}
	}
	return m
}

// Rent returns a filter instance ready for binding. The caller owns it until Release.
func (m *FilterMeta) Rent() *Filter {
	f := m.pool.Get().(*Filter)
	f.reset()
	return f
}

// QueryText returns the source text
func (m *FilterMeta) QueryText() string {
	return m.program.Query.Text
}

// TypeName returns the content type the filter was compiled for
func (m *FilterMeta) TypeName() string {
	return m.program.Query.TypeName
}

// AllowConstants reports whether literals were permitted at compile time
func (m *FilterMeta) AllowConstants() bool {
	return m.allowConstants
}

// Query returns the resolved syntax tree
func (m *FilterMeta) Query() *ast.Query {
	return m.program.Query
}

// Slots returns the argument slots in binding order
func (m *FilterMeta) Slots() []*ast.ArgSlot {
	return m.program.Query.Slots
}

// Collectors returns the joins populated by Setup
func (m *FilterMeta) Collectors() []*codegen.CollectorSpec {
	return m.program.Collectors
}

// RequiresSetup reports whether instances must run Setup before matching
func (m *FilterMeta) RequiresSetup() bool {
	return len(m.joins) > 0
}

// Indexable returns the fields that could serve as an index, or nil
func (m *FilterMeta) Indexable() *index.FieldSet {
	return m.indexable
}

// Resource returns the schema of the filtered type
func (m *FilterMeta) Resource() *schema.ResourceSchema {
	return m.program.Resource
}

// KeyOf returns the normalized primary key of rec
func (m *FilterMeta) KeyOf(rec schema.Record) (interface{}, bool) {
	return m.program.CandidateID(rec)
}

// service returns the association service for j, resolving it on first use
func (m *FilterMeta) service(j *join) (relationships.Service, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.svc != nil {
		return j.svc, nil
	}
	if m.opts.Locator == nil {
		return nil, errNoLocator(j.spec)
	}
	svc, _, err := m.opts.Locator.Resolve(j.spec.SourceType, j.spec.TargetType, j.spec.MapName)
	if err != nil {
		return nil, err
	}
	j.svc = svc
	return svc, nil
}
