package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancestry/internal/store"
)

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <entities-file>",
		Short: "Load entities into the entity database",
		Long: `Read a YAML entity file and write every entity to the entity database.
Entities already present are replaced. Properties are checked against the
schema and reference values are recorded as links to other entities.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(projectDir)
			if err != nil {
				return err
			}
			s, err := p.loadSchema()
			if err != nil {
				return err
			}
			entities, err := p.openEntities(false)
			if err != nil {
				return err
			}
			defer func() { _ = entities.Close() }()

			n, err := store.LoadEntitiesFile(cmd.Context(), entities, args[0], s)
			if err != nil {
				return err
			}
			slog.Info("entities_loaded", slog.String("file", args[0]), slog.Int("count", n))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d entities into %s\n", n, entities.Path())
			return err
		},
	}
	return cmd
}
