package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/contentq/internal/filter/ast"
)

var (
	explainType           string
	explainAllowConstants bool
)

// NewExplainCommand creates the explain command
func NewExplainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <query>",
		Short: "Show how a filter compiles",
		Long: `Compile a filter and print its resolved expression, argument slots,
association joins and the indexed fields an execution layer can use.

Examples:
  contentq explain --type Article 'Tags containsAll [?] and IsSelf()'`,
		Args: cobra.ExactArgs(1),
		RunE: runExplain,
	}

	cmd.Flags().StringVarP(&explainType, "type", "t", "", "Content type to compile against (required)")
	cmd.Flags().BoolVar(&explainAllowConstants, "allow-constants", false, "Accept literal values (overrides filter.allow_constants)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runExplain(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.resource(explainType)
	if err != nil {
		return err
	}

	metas, err := e.filterCache(cmd.Context(), false)
	if err != nil {
		return err
	}
	meta, err := metas.GetOrCompile(res.Name, args[0], e.cfg.Filter.AllowConstants || explainAllowConstants)
	if err != nil {
		e.out.FilterError(err)
		return errReported
	}

	out := e.out
	pk, _ := res.GetPrimaryKey()
	out.KeyValues([][2]string{
		{"Type", res.Name},
		{"Query", meta.QueryText()},
		{"Resolved", meta.Query().Root.String()},
		{"Key", pk.Name},
		{"Requires setup", strconv.FormatBool(meta.RequiresSetup())},
	})
	fmt.Fprintln(out.Writer())

	out.Title("Argument slots")
	if len(meta.Slots()) == 0 {
		out.Lines(out.Dim("none"))
	} else {
		rows := make([][]string, 0, len(meta.Slots()))
		for _, s := range meta.Slots() {
			rows = append(rows, []string{strconv.Itoa(s.Index), slotType(s), fmt.Sprintf("offset %d", s.Loc.Offset)})
		}
		out.Table([]string{"SLOT", "TYPE", "POSITION"}, rows)
	}
	fmt.Fprintln(out.Writer())

	out.Title("Joins")
	if len(meta.Collectors()) == 0 {
		out.Lines(out.Dim("none"))
	} else {
		rows := make([][]string, 0, len(meta.Collectors()))
		for _, c := range meta.Collectors() {
			rows = append(rows, []string{
				strconv.Itoa(c.Index), c.TargetType, c.MapName, c.Mode.String(), c.Text,
			})
		}
		out.Table([]string{"#", "TARGET", "MAP", "MODE", "EXPRESSION"}, rows)
	}
	fmt.Fprintln(out.Writer())

	out.Title("Indexable fields")
	names := meta.Indexable().Names()
	if len(names) == 0 {
		out.Lines(out.Dim("none (full scan)"))
	} else {
		for i, n := range names {
			names[i] = out.Highlight(n)
		}
		out.Lines(strings.Join(names, ", "))
	}
	return nil
}

func slotType(s *ast.ArgSlot) string {
	if s.Type == nil {
		return "?"
	}
	if s.IsArray {
		return "[" + s.Type.String() + "]"
	}
	return s.Type.String()
}

func slotSummary(slots []*ast.ArgSlot) string {
	if len(slots) == 0 {
		return "none"
	}
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = fmt.Sprintf("?%d %s", s.Index, slotType(s))
	}
	return strings.Join(parts, ", ")
}

func countOrNone(n int) string {
	if n == 0 {
		return "none"
	}
	return strconv.Itoa(n)
}
