// Package rules implements the command that prints the schema rule table.
package rules

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/schema-auditor/cmd/common"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/schema"
)

// Command returns the rules command.
func Command() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the schema types the auditor validates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps(cmd)
			if err != nil {
				return err
			}

			validator, err := bootstrap.SetupValidator(deps.Config)
			if err != nil {
				return err
			}

			if typeName != "" {
				rule, ok := validator.Table().Lookup(typeName)
				if !ok {
					return fmt.Errorf("%w: %s", schema.ErrUnknownType, typeName)
				}
				RenderRule(cmd.OutOrStdout(), rule)
				return nil
			}
			RenderTable(cmd.OutOrStdout(), validator.Table().Library())
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "show the full rule and example for one type")
	return cmd
}

// RenderTable writes one row per rule.
func RenderTable(w io.Writer, rules []schema.Rule) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Type", "Category", "Importance", "Rich Result", "Required", "Recommended"})
	for _, r := range rules {
		t.AppendRow(table.Row{
			r.Type,
			r.Category,
			r.Importance,
			yesNo(r.RichResult),
			strings.Join(r.Required, ", "),
			strings.Join(r.Recommended, ", "),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(rules)})
	t.Render()
}

// RenderRule writes the details and example of a single rule.
func RenderRule(w io.Writer, r schema.Rule) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendRows([]table.Row{
		{"Type", r.Type},
		{"Description", r.Description},
		{"Use cases", strings.Join(r.UseCases, "; ")},
		{"Required", strings.Join(r.Required, ", ")},
		{"Recommended", strings.Join(r.Recommended, ", ")},
	})
	t.Render()

	_, _ = fmt.Fprintf(w, "\nExample:\n%s\n", strings.TrimSpace(r.Example))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
