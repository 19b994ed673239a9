package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancestry/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var (
		field      string
		within     string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search documents located below an ancestor",
		Long: `Find indexed documents whose hierarchy field contains the given ancestor,
so items in nested sub-collections are found too. An optional query is
matched against document labels.`,
		Example: `  ancestry search --field member_of --within A
  ancestry search --field member_of --within A charters`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if field == "" || within == "" {
				return fmt.Errorf("--field and --within are required")
			}
			if limit <= 0 {
				limit = 10
			}

			p, err := openProject(projectDir)
			if err != nil {
				return err
			}
			if !fileExists(p.searchIndexPath()) {
				return fmt.Errorf("no search index at %s\nRun 'ancestry index' first", p.searchIndexPath())
			}
			sink, err := p.openSearch()
			if err != nil {
				return err
			}
			defer func() { _ = sink.Close() }()

			hits, err := sink.SearchWithin(cmd.Context(), field, within, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(hits)
			}
			if len(hits) == 0 {
				_, err := fmt.Fprintf(out, "No documents found below %s.\n", within)
				return err
			}
			styles := ui.GetStyles(ui.DetectNoColor() || !ui.IsTTY(out))
			for i, h := range hits {
				_, _ = fmt.Fprintf(out, "%2d. %s  %s %s\n", i+1,
					styles.Label.Render(h.EntityID), h.Label,
					styles.Dim.Render(fmt.Sprintf("(%.2f)", h.Score)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Hierarchy field to filter on")
	cmd.Flags().StringVar(&within, "within", "", "Ancestor entity id")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
