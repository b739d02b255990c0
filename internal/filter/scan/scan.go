// Package scan is an in-memory execution layer for compiled filters:
// it matches records, sorts and pages the matches and counts the total.
package scan

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/contentq/internal/filter/codegen"
	"github.com/conduit-lang/contentq/internal/filter/runtime"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// Source supplies candidate records
type Source interface {
	// Records returns every candidate
	Records(ctx context.Context) ([]schema.Record, error)
	// Indexed reports whether the source keeps an index for field
	Indexed(field string) bool
}

// MemorySource holds records in memory
type MemorySource struct {
	records []schema.Record
	indexes map[string]struct{}
}

var _ Source = (*MemorySource)(nil)

// NewMemorySource creates a source over records with indexes on the named fields
func NewMemorySource(records []schema.Record, indexes ...string) *MemorySource {
	s := &MemorySource{records: records, indexes: make(map[string]struct{}, len(indexes))}
	for _, name := range indexes {
		s.indexes[strings.ToLower(name)] = struct{}{}
	}
	return s
}

// Records returns every record
func (s *MemorySource) Records(context.Context) ([]schema.Record, error) {
	return s.records, nil
}

// Indexed reports whether field is indexed
func (s *MemorySource) Indexed(field string) bool {
	_, ok := s.indexes[strings.ToLower(field)]
	return ok
}

// Path names the access path chosen for a scan
type Path string

const (
	// FullScan evaluates every record
	FullScan Path = "full"
	// IndexScan starts from an index the filter can use
	IndexScan Path = "index"
)

// Result holds one page of matches
type Result struct {
	Records []schema.Record
	// Total is the number of matches before paging, -1 when not requested
	Total int
	Path  Path
	// Index is the field the scan used, empty for full scans
	Index string
}

// Scanner runs filters over sources
type Scanner struct {
	logger *zap.Logger

	// Included reports the is-included flag passed to Match; nil means false
	Included func(schema.Record) bool
}

// NewScanner creates a scanner. A nil logger disables logging.
func NewScanner(logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{logger: logger}
}

// Scan runs f over src. f must be fully bound; Setup runs first when needed.
func (s *Scanner) Scan(ctx context.Context, f *runtime.Filter, rc *schema.RequestContext, src Source) (*Result, error) {
	if f.RequiresSetup() {
		if err := f.Setup(ctx, rc); err != nil {
			return nil, err
		}
	}

	result := &Result{Total: -1, Path: FullScan}
	for _, e := range f.GetIndexable().Entries() {
		if src.Indexed(e.Name) {
			result.Path = IndexScan
			result.Index = e.Name
			break
		}
	}
	s.logger.Debug("scan path chosen",
		zap.String("query", f.GetQueryText()),
		zap.String("path", string(result.Path)),
		zap.String("index", result.Index))

	records, err := src.Records(ctx)
	if err != nil {
		return nil, err
	}

	var matches []schema.Record
	for i, rec := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		included := s.Included != nil && s.Included(rec)
		ok, err := f.Match(rc, rec, included)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, rec)
		}
	}

	if field, ascending := f.SortOrder(); field != nil {
		sortRecords(matches, field, ascending)
	}
	if f.TotalRequested() {
		result.Total = len(matches)
	}
	result.Records = page(matches, f)
	return result, nil
}

func page(matches []schema.Record, f *runtime.Filter) []schema.Record {
	offset, size := f.Page()
	if offset >= len(matches) {
		return []schema.Record{}
	}
	matches = matches[offset:]
	if size > 0 && size < len(matches) {
		matches = matches[:size]
	}
	return matches
}

// sortRecords sorts stably by field. Absent values come first in either direction.
func sortRecords(records []schema.Record, field *schema.Field, ascending bool) {
	keys := make([]interface{}, len(records))
	for i, rec := range records {
		raw, ok := rec.Get(field.Name)
		if !ok || raw == nil {
			continue
		}
		if v, err := codegen.Coerce(field.Type, raw, false); err == nil {
			keys[i] = v
		}
	}

	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		switch {
		case ka == nil || kb == nil:
			return ka == nil && kb != nil
		case ascending:
			return codegen.Compare(ka, kb) < 0
		default:
			return codegen.Compare(ka, kb) > 0
		}
	})

	sorted := make([]schema.Record, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}
