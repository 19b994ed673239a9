package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancestry/internal/config"
	"github.com/Aman-CERP/ancestry/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and status",
		Long: `Display information about the current project including:
  - Number of stored entities and indexed documents
  - Storage sizes (entity database, search index)
  - Enabled hierarchy fields and their relations
  - Available backups of the hierarchy file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(projectDir)
			if err != nil {
				return err
			}
			info, err := collectStatus(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("failed to collect status: %w", err)
			}

			renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor())
			if jsonOutput {
				return renderer.RenderJSON(info)
			}
			return renderer.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// collectStatus gathers status information. Missing stores report zero
// counts rather than failing.
func collectStatus(ctx context.Context, p *project) (ui.StatusInfo, error) {
	info := ui.StatusInfo{
		Index:         p.indexID(),
		SchemaPath:    p.schemaPath(),
		HierarchyPath: p.hierarchy.Path(),
	}

	cfg, err := p.hierarchy.Load()
	if err != nil {
		return info, err
	}
	info.HierarchyFields = cfg.Fields

	if backups, err := config.ListBackups(p.hierarchy.Path()); err == nil {
		info.HierarchyBackups = len(backups)
	}

	if s, err := p.loadSchema(); err == nil {
		if inspector, err := p.inspector(s); err == nil {
			if opts, err := inspector.Options(p.indexID()); err == nil {
				info.CandidateFields = len(opts)
			}
		}
	} else {
		slog.Debug("status_schema_unavailable", slog.String("error", err.Error()))
	}

	if fileExists(p.entityDBPath()) {
		entities, err := p.openEntities(true)
		if err != nil {
			return info, err
		}
		n, err := entities.Count(ctx)
		_ = entities.Close()
		if err != nil {
			return info, err
		}
		info.Entities = n
		info.EntityDBSize = getFileSize(p.entityDBPath())
	}

	if fileExists(p.searchIndexPath()) {
		sink, err := p.openSearch()
		if err != nil {
			return info, err
		}
		docs, err := sink.Count()
		_ = sink.Close()
		if err != nil {
			return info, err
		}
		info.Documents = docs
		info.SearchIndexSize = getDirSize(p.searchIndexPath())
	}

	return info, nil
}

// getFileSize returns the size of a file in bytes.
func getFileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// getDirSize returns the total size of all files in a directory.
func getDirSize(path string) int64 {
	var size int64

	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})

	return size
}
