package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/contentq/internal/filter/runtime"
	"github.com/conduit-lang/contentq/internal/orm/relationships"
	"github.com/conduit-lang/contentq/internal/orm/schema"
	"github.com/conduit-lang/contentq/internal/orm/schema/schematest"
)

func articles() []schema.Record {
	return []schema.Record{
		{"Id": 1, "Title": "Go", "Age": 20, "Name": "Al", "Score": 3.5},
		{"Id": 2, "Title": "Rust", "Age": 16, "Name": "Al"},
		{"Id": 3, "Title": "Zig", "Age": 30, "Name": "Bob", "Score": 1.0},
		{"Id": 4, "Title": "C", "Age": 44, "Name": "Ann", "Score": 2.0},
		{"Id": 5, "Title": "Ada", "Age": 50, "Name": "Amy"},
	}
}

func ids(records []schema.Record) []interface{} {
	out := make([]interface{}, len(records))
	for i, r := range records {
		out[i] = r["Id"]
	}
	return out
}

func rent(t *testing.T, text string, args ...interface{}) *runtime.Filter {
	t.Helper()
	reg := schematest.NewRegistry()
	store := relationships.NewMemoryStore()
	res, _ := reg.Resource("Article")
	require.NoError(t, store.Link(res.Relationships["Tags"], 3, 10))
	require.NoError(t, store.Link(res.Relationships["Tags"], 4, 10))

	meta, err := runtime.Compile("Article", text, true, reg, runtime.Options{
		Locator: relationships.NewLocator(reg, store, nil),
	})
	require.NoError(t, err)
	f := meta.Rent()
	t.Cleanup(f.Release)
	require.NoError(t, f.BindAll(args...))
	return f
}

func TestScan_Matches(t *testing.T) {
	f := rent(t, `Age>=18 and Name startsWith "A"`)

	res, err := NewScanner(nil).Scan(context.Background(), f, nil, NewMemorySource(articles()))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1, 4, 5}, ids(res.Records))
	assert.Equal(t, -1, res.Total)
	assert.Equal(t, FullScan, res.Path)
}

func TestScan_SortPageTotal(t *testing.T) {
	f := rent(t, "Age>?", 0)
	require.NoError(t, f.Sort("Score", true))
	require.NoError(t, f.SetPage(1, 3))
	f.IncludeTotal(true)

	res, err := NewScanner(nil).Scan(context.Background(), f, nil, NewMemorySource(articles()))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	// nulls first and stable: 2, 5, then 3 (1.0), 4 (2.0), 1 (3.5)
	assert.Equal(t, []interface{}{5, 3, 4}, ids(res.Records))
}

func TestScan_SortDescending(t *testing.T) {
	f := rent(t, "Age>0")
	require.NoError(t, f.Sort("title", false))

	res, err := NewScanner(nil).Scan(context.Background(), f, nil, NewMemorySource(articles()))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{3, 2, 1, 4, 5}, ids(res.Records))
}

func TestScan_SortUUID(t *testing.T) {
	records := []schema.Record{
		{"Id": 1, "Age": 1, "Ref": "cccccccc-0000-0000-0000-000000000000"},
		{"Id": 2, "Age": 1, "Ref": "aaaaaaaa-0000-0000-0000-000000000000"},
		{"Id": 3, "Age": 1, "Ref": "bbbbbbbb-0000-0000-0000-000000000000"},
		{"Id": 4, "Age": 1},
	}

	f := rent(t, "Age>0")
	require.NoError(t, f.Sort("Ref", true))
	res, err := NewScanner(nil).Scan(context.Background(), f, nil, NewMemorySource(records))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{4, 2, 3, 1}, ids(res.Records))

	g := rent(t, "Age>0")
	require.NoError(t, g.Sort("ref", false))
	res, err = NewScanner(nil).Scan(context.Background(), g, nil, NewMemorySource(records))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{4, 1, 3, 2}, ids(res.Records))
}

func TestScan_PageBeyondEnd(t *testing.T) {
	f := rent(t, "Age>0")
	require.NoError(t, f.SetPage(10, 5))

	res, err := NewScanner(nil).Scan(context.Background(), f, nil, NewMemorySource(articles()))
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestScan_IndexPathAndSetup(t *testing.T) {
	f := rent(t, "Tags=? and Age>?", 10, 40)
	assert.True(t, f.RequiresSetup())

	res, err := NewScanner(nil).Scan(context.Background(), f, nil, NewMemorySource(articles(), "tags"))
	require.NoError(t, err)
	assert.Equal(t, IndexScan, res.Path)
	assert.Equal(t, "Tags", res.Index)
	assert.Equal(t, []interface{}{4}, ids(res.Records))
}

func TestScan_Included(t *testing.T) {
	f := rent(t, "IsIncluded() or Age>45")

	s := NewScanner(nil)
	s.Included = func(rec schema.Record) bool { return rec["Id"] == 2 }

	res, err := s.Scan(context.Background(), f, nil, NewMemorySource(articles()))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{2, 5}, ids(res.Records))
}

func TestScan_Cancelled(t *testing.T) {
	f := rent(t, "Age>0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(nil).Scan(ctx, f, nil, NewMemorySource(articles()))
	assert.ErrorIs(t, err, context.Canceled)
}
