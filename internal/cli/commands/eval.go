package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/contentq/internal/filter/scan"
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

var (
	evalType           string
	evalAllowConstants bool
	evalRecords        string
	evalArgs           []string
	evalUserID         string
	evalRoleID         string
	evalContext        map[string]string
	evalIncluded       []string
	evalSort           string
	evalDesc           bool
	evalOffset         int
	evalLimit          int
	evalTotal          bool
	evalJSON           bool
)

// NewEvalCommand creates the eval command
func NewEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <query>",
		Short: "Run a filter over JSON records",
		Long: `Compile a filter, bind its arguments and run it over a JSON array of
records. Joins are answered by the configured association store.

Arguments are bound in order, one --arg per slot. Array slots take a
comma-separated list.

Examples:
  contentq eval -t Article --records articles.json --arg 18 'Age >= ?'
  contentq eval -t Article --records articles.json --user-id 7 'IsSelf() or HasUserPermit()'
  contentq eval -t Article --records articles.json --arg 10,11 --sort Title --limit 20 --total 'Tags containsAll [?]'`,
		Args: cobra.ExactArgs(1),
		RunE: runEval,
	}

	cmd.Flags().StringVarP(&evalType, "type", "t", "", "Content type to compile against (required)")
	cmd.Flags().BoolVar(&evalAllowConstants, "allow-constants", false, "Accept literal values (overrides filter.allow_constants)")
	cmd.Flags().StringVarP(&evalRecords, "records", "r", "", "JSON file holding an array of records (required)")
	cmd.Flags().StringArrayVarP(&evalArgs, "arg", "a", nil, "Argument value, one per slot in order")
	cmd.Flags().StringVar(&evalUserID, "user-id", "", "Request @UserId")
	cmd.Flags().StringVar(&evalRoleID, "role-id", "", "Request @RoleId")
	cmd.Flags().StringToStringVar(&evalContext, "ctx", nil, "Other request attributes, e.g. --ctx Locale=de")
	cmd.Flags().StringSliceVar(&evalIncluded, "included", nil, "Record keys reported to IsIncluded()")
	cmd.Flags().StringVar(&evalSort, "sort", "", "Sort by field")
	cmd.Flags().BoolVar(&evalDesc, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&evalOffset, "offset", 0, "Skip this many matches")
	cmd.Flags().IntVar(&evalLimit, "limit", 0, "Return at most this many matches (0 = no limit)")
	cmd.Flags().BoolVar(&evalTotal, "total", false, "Report the total number of matches")
	cmd.Flags().BoolVar(&evalJSON, "json", false, "Print matches as JSON")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("records")

	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.resource(evalType)
	if err != nil {
		return err
	}
	records, err := readRecords(evalRecords)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	metas, err := e.filterCache(ctx, true)
	if err != nil {
		return err
	}
	meta, err := metas.GetOrCompile(res.Name, args[0], e.cfg.Filter.AllowConstants || evalAllowConstants)
	if err != nil {
		e.out.FilterError(err)
		return errReported
	}

	f := meta.Rent()
	defer f.Release()

	if len(evalArgs) != len(meta.Slots()) {
		return fmt.Errorf("filter has %d argument slot(s), got %d --arg value(s)", len(meta.Slots()), len(evalArgs))
	}
	for _, a := range evalArgs {
		if err := f.BindFromString(a); err != nil {
			e.out.FilterError(err)
			return errReported
		}
	}
	if err := f.SetPage(evalOffset, evalLimit); err != nil {
		e.out.FilterError(err)
		return errReported
	}
	if evalSort != "" {
		if err := f.Sort(evalSort, !evalDesc); err != nil {
			e.out.FilterError(err)
			return errReported
		}
	}
	f.IncludeTotal(evalTotal)

	scanner := scan.NewScanner(e.logger)
	if len(evalIncluded) > 0 {
		included := make(map[string]bool, len(evalIncluded))
		for _, k := range evalIncluded {
			included[k] = true
		}
		scanner.Included = func(rec schema.Record) bool {
			key, ok := meta.KeyOf(rec)
			return ok && included[fmt.Sprint(key)]
		}
	}

	result, err := scanner.Scan(ctx, f, requestContext(), scan.NewMemorySource(records, indexedFields(res)...))
	if err != nil {
		e.out.FilterError(err)
		return errReported
	}
	e.logger.Debug("eval finished",
		zap.String("type", res.Name),
		zap.Int("candidates", len(records)),
		zap.Int("returned", len(result.Records)))

	if evalJSON {
		return printJSON(e, result)
	}
	printRecords(e, res, result)
	return nil
}

func readRecords(path string) ([]schema.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	// Numbers stay json.Number so ids above 2^53 keep their digits
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []schema.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse records in %s: %w", path, err)
	}
	return records, nil
}

func requestContext() *schema.RequestContext {
	rc := &schema.RequestContext{Values: make(map[string]interface{}, len(evalContext))}
	if evalUserID != "" {
		rc.UserID = evalUserID
	}
	if evalRoleID != "" {
		rc.RoleID = evalRoleID
	}
	for k, v := range evalContext {
		rc.Values[k] = v
	}
	return rc
}

// indexedFields lists the fields the in-memory source treats as indexed
func indexedFields(res *schema.ResourceSchema) []string {
	var names []string
	for _, f := range res.Fields {
		if f.Indexed() {
			names = append(names, f.Name)
		}
	}
	for _, rel := range res.Relationships {
		if rel.IsAssociation() {
			names = append(names, rel.MapName())
		}
	}
	return names
}

func printJSON(e *env, result *scan.Result) error {
	payload := struct {
		Records []schema.Record `json:"records"`
		Total   *int            `json:"total,omitempty"`
		Path    scan.Path       `json:"path"`
		Index   string          `json:"index,omitempty"`
	}{Records: result.Records, Path: result.Path, Index: result.Index}
	if result.Total >= 0 {
		payload.Total = &result.Total
	}
	if payload.Records == nil {
		payload.Records = []schema.Record{}
	}

	enc := json.NewEncoder(e.out.Writer())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func printRecords(e *env, res *schema.ResourceSchema, result *scan.Result) {
	out := e.out
	columns := recordColumns(res, result.Records)

	rows := make([][]string, 0, len(result.Records))
	for _, rec := range result.Records {
		row := make([]string, len(columns))
		for i, c := range columns {
			if v, ok := rec.Get(c); ok && v != nil {
				row[i] = formatValue(v)
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		out.Lines(out.Dim("no matches"))
	} else {
		out.Table(columns, rows)
	}
	fmt.Fprintln(out.Writer())

	summary := [][2]string{{"Returned", strconv.Itoa(len(result.Records))}}
	if result.Total >= 0 {
		summary = append(summary, [2]string{"Total", strconv.Itoa(result.Total)})
	}
	path := string(result.Path)
	if result.Index != "" {
		path += " (" + result.Index + ")"
	}
	summary = append(summary, [2]string{"Path", path})
	out.KeyValues(summary)
}

// recordColumns returns the primary key first, then every other key seen, sorted
func recordColumns(res *schema.ResourceSchema, records []schema.Record) []string {
	pkName := ""
	if pk, err := res.GetPrimaryKey(); err == nil {
		pkName = pk.Name
	}

	seen := make(map[string]bool)
	var rest []string
	for _, rec := range records {
		for k := range rec {
			if seen[k] || strings.EqualFold(k, pkName) {
				continue
			}
			seen[k] = true
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	if pkName == "" {
		return rest
	}
	return append([]string{pkName}, rest...)
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
