package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancestry/internal/schema"
	"github.com/Aman-CERP/ancestry/internal/ui"
)

func newDiscoverCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List hierarchy candidate fields and their relation options",
		Long: `Inspect the schema and list every field of the index that references an
entity type with a self-referencing relation. Each option is printed as a
relation key (<entity type>-<property>) usable with 'ancestry configure'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(projectDir)
			if err != nil {
				return err
			}
			s, err := p.loadSchema()
			if err != nil {
				return err
			}
			inspector, err := p.inspector(s)
			if err != nil {
				return err
			}
			opts, err := inspector.Options(p.indexID())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(opts)
			}
			return printOptions(cmd, p.indexID(), opts)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printOptions(cmd *cobra.Command, indexID string, opts schema.Options) error {
	out := cmd.OutOrStdout()
	styles := ui.GetStyles(ui.DetectNoColor() || !ui.IsTTY(out))

	fields := opts.Fields()
	if len(fields) == 0 {
		_, err := fmt.Fprintf(out, "Index %s has no hierarchy candidate fields.\n", indexID)
		return err
	}

	_, _ = fmt.Fprintf(out, "%s\n", styles.Header.Render("Hierarchy options: "+indexID))
	for _, field := range fields {
		_, _ = fmt.Fprintf(out, "\n  %s\n", styles.Label.Render(field))
		for _, key := range opts.Keys(field) {
			_, _ = fmt.Fprintf(out, "    %-40s %s\n", key, styles.Dim.Render(opts[field][key]))
		}
	}
	return nil
}
