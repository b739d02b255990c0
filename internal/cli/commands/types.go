package commands

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// NewTypesCommand creates the types command
func NewTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types [type]",
		Short: "List content types or show one type's fields",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTypes,
	}
}

func runTypes(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if len(args) == 1 {
		res, err := e.resource(args[0])
		if err != nil {
			return err
		}
		printFields(e, res)
		return nil
	}

	rows := make([][]string, 0, e.registry.Count())
	for _, name := range e.registry.List() {
		res, _ := e.registry.Resource(name)
		var assoc []string
		for _, rel := range res.Relationships {
			if rel.IsAssociation() {
				assoc = append(assoc, rel.MapName())
			}
		}
		sort.Strings(assoc)
		rows = append(rows, []string{res.Name, strconv.Itoa(len(res.Fields)), strings.Join(assoc, ", ")})
	}
	e.out.Table([]string{"TYPE", "FIELDS", "ASSOCIATIONS"}, rows)
	return nil
}

func printFields(e *env, res *schema.ResourceSchema) {
	names := make([]string, 0, len(res.Fields))
	for name := range res.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		f := res.Fields[name]
		typ := "virtual"
		if f.Type != nil {
			typ = f.Type.String()
		}
		var notes []string
		if f.IsPrimary() {
			notes = append(notes, "primary")
		}
		if f.Indexed() {
			notes = append(notes, "indexed")
		}
		if strings.EqualFold(name, res.OwnerField) {
			notes = append(notes, "owner")
		}
		if strings.EqualFold(name, res.RoleField) {
			notes = append(notes, "role")
		}
		rows = append(rows, []string{f.Name, typ, strings.Join(notes, ", ")})
	}
	e.out.Title(res.Name)
	e.out.Table([]string{"FIELD", "TYPE", "NOTES"}, rows)
}
