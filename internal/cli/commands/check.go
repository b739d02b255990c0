package commands

import (
	"github.com/spf13/cobra"
)

var (
	checkType           string
	checkAllowConstants bool
)

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <query>",
		Short: "Compile a filter and report errors",
		Long: `Compile a filter against a content type and print OK or the error with
its code and position.

Examples:
  contentq check --type Article 'Title = ? and Age > ?'
  contentq check --type Article --allow-constants 'Status = "draft"'`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}

	cmd.Flags().StringVarP(&checkType, "type", "t", "", "Content type to compile against (required)")
	cmd.Flags().BoolVar(&checkAllowConstants, "allow-constants", false, "Accept literal values (overrides filter.allow_constants)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.resource(checkType)
	if err != nil {
		return err
	}

	allow := e.cfg.Filter.AllowConstants || checkAllowConstants
	metas, err := e.filterCache(cmd.Context(), false)
	if err != nil {
		return err
	}
	meta, err := metas.GetOrCompile(res.Name, args[0], allow)
	if err != nil {
		e.out.FilterError(err)
		return errReported
	}

	e.out.Success("%s: %s", res.Name, meta.Query().Root.String())
	e.out.KeyValues([][2]string{
		{"Slots", slotSummary(meta.Slots())},
		{"Joins", countOrNone(len(meta.Collectors()))},
		{"Indexable", meta.Indexable().String()},
	})
	return nil
}
