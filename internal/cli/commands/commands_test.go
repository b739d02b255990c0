package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = filepath.Join("testdata", "contentq.yml")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-color", "--config", testConfig}, args...))
	err := cmd.Execute()
	return out.String(), err
}

type evalOutput struct {
	Records []map[string]interface{} `json:"records"`
	Total   *int                     `json:"total"`
	Path    string                   `json:"path"`
	Index   string                   `json:"index"`
}

func evalJSONOutput(t *testing.T, args ...string) evalOutput {
	t.Helper()
	out, err := run(t, append([]string{"eval", "--json", "-t", "Article", "-r", filepath.Join("testdata", "articles.json")}, args...)...)
	require.NoError(t, err, out)

	var res evalOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func ids(res evalOutput) []float64 {
	out := make([]float64, len(res.Records))
	for i, r := range res.Records {
		out[i] = r["Id"].(float64)
	}
	return out
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "contentq", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"version", "check", "explain", "eval", "types"} {
		assert.Contains(t, names, expected)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "contentq version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: ")
}

func TestCheck(t *testing.T) {
	out, err := run(t, "check", "-t", "article", "Title = ? and Age > ?")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Article: (Title=? and Age>?)")
	assert.Contains(t, out, "?0 string!, ?1 int!")
	assert.Contains(t, out, "Indexable: {Title}")
}

func TestCheck_FilterError(t *testing.T) {
	out, err := run(t, "check", "-t", "Article", "Titel = ?")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "[SEM201]")
	assert.Contains(t, out, "Titel = ?")
}

func TestCheck_Constants(t *testing.T) {
	out, err := run(t, "check", "-t", "Article", `Status = "draft"`)
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "[SEM204]")

	_, err = run(t, "check", "-t", "Article", "--allow-constants", `Status = "draft"`)
	assert.NoError(t, err)
}

func TestCheck_UnknownType(t *testing.T) {
	out, err := run(t, "check", "-t", "Artcle", "Title = ?")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "Did you mean: Article?")
}

func TestCheck_RequiresType(t *testing.T) {
	_, err := run(t, "check", "Title = ?")
	assert.Error(t, err)
}

func TestExplain(t *testing.T) {
	out, err := run(t, "explain", "-t", "Article", "Tags containsAll [?] and IsSelf()")
	require.NoError(t, err)

	assert.Contains(t, out, "Resolved:")
	assert.Contains(t, out, "OwnerId=@UserId")
	assert.Contains(t, out, "Requires setup: true")
	assert.Contains(t, out, "[int!]")
	assert.Contains(t, out, "Tags")
	assert.Contains(t, out, "all")
	assert.Contains(t, out, "Indexable fields")
}

func TestExplain_NoSlots(t *testing.T) {
	out, err := run(t, "explain", "-t", "Article", "IsSelf()")
	require.NoError(t, err)
	assert.Contains(t, out, "Requires setup: false")
	assert.Contains(t, out, "none (full scan)")
}

func TestEval_Join(t *testing.T) {
	res := evalJSONOutput(t, "--arg", "10", "Tags = ?")
	assert.Equal(t, []float64{1, 2}, ids(res))
	assert.Equal(t, "index", res.Path)
	assert.Equal(t, "Tags", res.Index)
	assert.Nil(t, res.Total)
}

func TestEval_ContainsAll(t *testing.T) {
	res := evalJSONOutput(t, "--arg", "10,11", "Tags containsAll [?]")
	assert.Equal(t, []float64{2}, ids(res))
}

func TestEval_SortPageTotal(t *testing.T) {
	res := evalJSONOutput(t, "--arg", "18", "--sort", "age", "--desc", "--limit", "2", "--total", "Age > ?")
	assert.Equal(t, []float64{3, 4}, ids(res))
	require.NotNil(t, res.Total)
	assert.Equal(t, 3, *res.Total)
	assert.Equal(t, "full", res.Path)
}

func TestEval_Context(t *testing.T) {
	res := evalJSONOutput(t, "--user-id", "7", "IsSelf()")
	assert.Equal(t, []float64{1, 3}, ids(res))

	res = evalJSONOutput(t, "--included", "4", "IsIncluded() or IsSelf()")
	assert.Equal(t, []float64{4}, ids(res))
}

func TestEval_Table(t *testing.T) {
	out, err := run(t, "eval", "-t", "Article", "-r", filepath.Join("testdata", "articles.json"),
		"--arg", "Zig", "--total", "Title = ?")
	require.NoError(t, err)

	assert.Contains(t, out, "Id")
	assert.Contains(t, out, "Zig")
	assert.Contains(t, out, "Returned: 1")
	assert.Contains(t, out, "Total:    1")
	assert.Contains(t, out, "Path:     index (Title)")
}

func TestEval_ArgErrors(t *testing.T) {
	records := filepath.Join("testdata", "articles.json")

	_, err := run(t, "eval", "-t", "Article", "-r", records, "Age > ?")
	assert.Error(t, err)

	out, err := run(t, "eval", "-t", "Article", "-r", records, "--arg", "old", "Age > ?")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "[BND305]")

	out, err = run(t, "eval", "-t", "Article", "-r", records, "--arg", "1", "--limit", "5000", "Age > ?")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "[BND307]")
}

func TestEval_LargeIDs(t *testing.T) {
	records := filepath.Join(t.TempDir(), "big.json")
	require.NoError(t, os.WriteFile(records, []byte(`[
  {"Id": 9007199254740993, "Title": "Big", "Age": 1},
  {"Id": 9007199254740992, "Title": "Near", "Age": 1}
]`), 0o644))

	out, err := run(t, "eval", "-t", "Article", "-r", records, "--arg", "9007199254740993", "Id = ?")
	require.NoError(t, err, out)
	assert.Contains(t, out, "9007199254740993")
	assert.NotContains(t, out, "Near")
	assert.Contains(t, out, "Returned: 1")
}

func TestEval_MissingRecords(t *testing.T) {
	_, err := run(t, "eval", "-t", "Article", "-r", filepath.Join("testdata", "absent.json"), "IsSelf()")
	assert.Error(t, err)
}

func TestTypes(t *testing.T) {
	out, err := run(t, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "Article")
	assert.Contains(t, out, "Tags")
	assert.Contains(t, out, "Category")

	out, err = run(t, "types", "Article")
	require.NoError(t, err)
	assert.Contains(t, out, "primary")
	assert.Contains(t, out, "owner")
	assert.Contains(t, out, "enum!")
}
