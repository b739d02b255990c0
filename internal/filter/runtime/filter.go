package runtime

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/contentq/internal/filter/codegen"
	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
	"github.com/conduit-lang/contentq/internal/filter/index"
	"github.com/conduit-lang/contentq/internal/orm/relationships"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// State is the lifecycle state of a filter instance
type State int

const (
	// Idle means rented with no argument bound yet
	Idle State = iota
	// Binding means some but not all arguments are bound
	Binding
	// Bound means every argument is bound and joins still need Setup
	Bound
	// SettingUp means Setup is populating join collectors
	SettingUp
	// Ready means the filter can match records
	Ready
	// Released means the filter is back in its pool
	Released
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Binding:
		return "Binding"
	case Bound:
		return "Bound"
	case SettingUp:
		return "SettingUp"
	case Ready:
		return "Ready"
	case Released:
		return "Released"
	default:
		return "Unknown"
	}
}

// Filter is a per-use instance of a compiled filter. It is not safe for
// concurrent use: one caller owns it from Rent until Release.
type Filter struct {
	meta  *FilterMeta
	state State

	args []interface{}
	next int

	offset       int
	pageSize     int
	sortField    *schema.Field
	ascending    bool
	includeTotal bool

	collectors  *relationships.IDCollector // chain head
	memberships []codegen.Membership
	failed      error
	frame       codegen.Frame
}

// everything is the membership of a containsAll join with no targets
type everything struct{}

func (everything) Contains(interface{}) bool { return true }

func (f *Filter) reset() {
	f.args = f.args[:0]
	for range f.meta.Slots() {
		f.args = append(f.args, nil)
	}
	f.next = 0
	f.offset = 0
	f.pageSize = 0
	f.sortField = nil
	f.ascending = true
	f.includeTotal = false
	f.collectors = nil
	f.memberships = f.memberships[:0]
	f.failed = nil
	f.frame = codegen.Frame{}
	f.state = Idle
	f.settle()
}

// settle moves the filter forward once binding is complete
func (f *Filter) settle() {
	switch {
	case f.next < len(f.args):
		if f.next > 0 {
			f.state = Binding
		}
	case f.meta.RequiresSetup():
		f.state = Bound
	default:
		f.state = Ready
	}
}

// State returns the lifecycle state
func (f *Filter) State() State {
	return f.state
}

// Meta returns the compiled filter the instance was rented from
func (f *Filter) Meta() *FilterMeta {
	return f.meta
}

// Bind converts v for the next slot and binds it
func (f *Filter) Bind(v interface{}) error {
	if err := f.canBind(); err != nil {
		return err
	}
	val, err := codegen.BindArg(f.meta.Slots()[f.next], v)
	if err != nil {
		return err
	}
	f.bind(val)
	return nil
}

// BindArg binds v into slot, which must be the next unbound slot
func (f *Filter) BindArg(slot int, v interface{}) error {
	if err := f.canBind(); err != nil {
		return err
	}
	if slot != f.next {
		return ferrors.NewArgOutOfOrder(slot, f.next)
	}
	return f.Bind(v)
}

// BindFromString parses text for the next slot and binds it
func (f *Filter) BindFromString(text string) error {
	if err := f.canBind(); err != nil {
		return err
	}
	val, err := codegen.ParseArg(f.meta.Slots()[f.next], text)
	if err != nil {
		return err
	}
	f.bind(val)
	return nil
}

// BindAll binds values in order
func (f *Filter) BindAll(values ...interface{}) error {
	for _, v := range values {
		if err := f.Bind(v); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filter) canBind() error {
	switch f.state {
	case Idle, Binding:
		return nil
	case Bound, Ready:
		if f.next >= len(f.args) {
			return ferrors.NewTooManyArgs(len(f.args))
		}
	}
	return ferrors.NewInvalidState("bind", f.state.String())
}

func (f *Filter) bind(val interface{}) {
	f.args[f.next] = val
	f.next++
	f.settle()
}

// SetPage sets the window of matches the execution layer returns
func (f *Filter) SetPage(offset, size int) error {
	if f.state == Released {
		return ferrors.NewInvalidState("set page", f.state.String())
	}
	if offset < 0 || size < 0 || size > f.meta.opts.MaxPageSize {
		return ferrors.NewInvalidPage(offset, size, f.meta.opts.MaxPageSize)
	}
	f.offset = offset
	f.pageSize = size
	return nil
}

// Page returns the offset and size; a zero size means no limit
func (f *Filter) Page() (offset, size int) {
	return f.offset, f.pageSize
}

// Sort orders matches by a scalar field of the filtered type
func (f *Filter) Sort(field string, ascending bool) error {
	if f.state == Released {
		return ferrors.NewInvalidState("sort", f.state.String())
	}
	res := f.meta.Resource()
	fd, ok := res.LookupField(field)
	if !ok || fd.Virtual {
		return ferrors.NewUnknownSortField(res.Name, field)
	}
	f.sortField = fd
	f.ascending = ascending
	return nil
}

// SortOrder returns the sort field (nil when unsorted) and direction
func (f *Filter) SortOrder() (*schema.Field, bool) {
	return f.sortField, f.ascending
}

// IncludeTotal asks the execution layer to report the total match count
func (f *Filter) IncludeTotal(include bool) {
	f.includeTotal = include
}

// TotalRequested reports whether IncludeTotal(true) was called
func (f *Filter) TotalRequested() bool {
	return f.includeTotal
}

// RequiresSetup reports whether Setup must run before Match
func (f *Filter) RequiresSetup() bool {
	return f.meta.RequiresSetup() && f.state != Ready
}

// Setup populates the join collectors. rc supplies join targets taken from
// the request context. A failed setup leaves the filter unusable until Release.
func (f *Filter) Setup(ctx context.Context, rc *schema.RequestContext) error {
	if f.failed != nil {
		return f.failed
	}
	switch f.state {
	case Ready:
		return nil
	case Bound:
	default:
		return ferrors.NewInvalidState("setup", f.state.String())
	}

	f.state = SettingUp
	joins := f.meta.joins
	rented := make([]*relationships.IDCollector, len(joins))
	members := make([]codegen.Membership, len(joins))
	for i, j := range joins {
		rented[i] = j.pool.Rent()
		members[i] = rented[i]
		if i > 0 {
			rented[i-1].Next = rented[i]
		}
	}
	f.collectors = rented[0]

	g, gctx := errgroup.WithContext(ctx)
	for i, j := range joins {
		i, j := i, j
		g.Go(func() error {
			all, err := f.populate(gctx, j, rented[i], rc)
			if err != nil {
				return err
			}
			if all {
				members[i] = everything{}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		f.failed = err
		f.state = Bound
		setupsTotal.WithLabelValues("error").Inc()
		f.meta.opts.Logger.Warn("filter setup failed",
			zap.String("query", f.meta.QueryText()),
			zap.Error(err))
		return err
	}

	f.memberships = append(f.memberships[:0], members...)
	f.state = Ready
	setupsTotal.WithLabelValues("ok").Inc()
	return nil
}

// populate fills c with the candidate ids satisfying j. It reports true when
// every candidate satisfies j.
func (f *Filter) populate(ctx context.Context, j *join, c *relationships.IDCollector, rc *schema.RequestContext) (bool, error) {
	spec := j.spec
	targets := spec.Targets(f.args, rc)
	if len(targets) == 0 {
		return spec.Mode == codegen.CollectAll, nil
	}

	svc, err := f.meta.service(j)
	if err != nil {
		return false, err
	}

	collect := func(ids []interface{}) ([]interface{}, error) {
		sources, err := svc.CollectSourcesForTargets(ctx, ids)
		if err != nil {
			return nil, ferrors.NewSetupFailed(spec.SourceType, spec.TargetType, spec.MapName, err)
		}
		keys := make([]interface{}, 0, len(sources))
		for _, id := range sources {
			key, err := f.meta.program.NormalizeID(id)
			if err != nil {
				return nil, ferrors.NewSetupFailed(spec.SourceType, spec.TargetType, spec.MapName, err)
			}
			keys = append(keys, key)
		}
		return keys, nil
	}

	if spec.Mode == codegen.CollectAny {
		keys, err := collect(targets)
		if err != nil {
			return false, err
		}
		c.SetAll(keys)
		return false, nil
	}

	for i, target := range targets {
		keys, err := collect([]interface{}{target})
		if err != nil {
			return false, err
		}
		if i == 0 {
			c.SetAll(keys)
		} else {
			c.Intersect(keys)
		}
		if c.Len() == 0 {
			break
		}
	}
	return false, nil
}

// Match evaluates the filter against one record
func (f *Filter) Match(rc *schema.RequestContext, rec schema.Record, included bool) (bool, error) {
	if f.state != Ready {
		return false, ferrors.NewInvalidState("match", f.state.String())
	}

	f.frame.Context = rc
	f.frame.Record = rec
	f.frame.Included = included
	f.frame.Args = f.args
	f.frame.Collectors = f.memberships
	f.frame.ID = nil
	if len(f.memberships) > 0 {
		f.frame.ID, _ = f.meta.program.CandidateID(rec)
	}
	return f.meta.program.Eval(&f.frame)
}

// GetIndexable returns the fields that could serve as an index, or nil
func (f *Filter) GetIndexable() *index.FieldSet {
	return f.meta.Indexable()
}

// GetQueryText returns the source text of the filter
func (f *Filter) GetQueryText() string {
	return f.meta.QueryText()
}

// Release returns the collectors and the filter to their pools. It is
// idempotent; the filter must not be used afterwards.
func (f *Filter) Release() {
	if f.state == Released {
		return
	}
	relationships.ReleaseChain(f.collectors)
	f.collectors = nil
	f.memberships = f.memberships[:0]
	for i := range f.args {
		f.args[i] = nil
	}
	f.frame = codegen.Frame{}
	f.failed = nil
	f.offset, f.pageSize = 0, 0
	f.sortField, f.ascending = nil, true
	f.includeTotal = false
	f.state = Released
	f.meta.pool.Put(f)
}

func errNoLocator(spec *codegen.CollectorSpec) error {
	return ferrors.NewSetupFailed(spec.SourceType, spec.TargetType, spec.MapName,
		errors.New("no association locator configured"))
}
