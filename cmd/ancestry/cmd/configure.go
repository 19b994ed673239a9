package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/ancestry/internal/config"
	"github.com/Aman-CERP/ancestry/internal/hierarchy"
)

func newConfigureCmd() *cobra.Command {
	var (
		enable  []string
		disable []string
		restore bool
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Choose which fields are expanded with ancestors",
		Long: `Enable hierarchy fields and select the relations walked for each.

Each --enable takes <field>=<key>[,<key>...] where keys come from
'ancestry discover'. Fields already configured stay enabled unless listed
with --disable. The whole submission is validated and nothing is written
when any field is invalid. The previous file is backed up before saving.

Without flags the current configuration is printed.`,
		Example: `  ancestry configure --enable member_of=Collection-memberOf,Collection-additionalMemberOf
  ancestry configure --disable subject
  ancestry configure --restore`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(projectDir)
			if err != nil {
				return err
			}
			if restore {
				return restoreHierarchy(cmd, p)
			}
			if len(enable) == 0 && len(disable) == 0 {
				return printHierarchy(cmd, p)
			}
			return runConfigure(cmd, p, enable, disable)
		},
	}

	cmd.Flags().StringArrayVar(&enable, "enable", nil, "Enable a field: <field>=<key>[,<key>...] (repeatable)")
	cmd.Flags().StringArrayVar(&disable, "disable", nil, "Disable a configured field (repeatable)")
	cmd.Flags().BoolVar(&restore, "restore", false, "Restore the most recent backup of the hierarchy file")

	return cmd
}

// buildSubmission starts from the saved configuration, applies the enable
// and disable flags and returns the submission to validate.
func buildSubmission(current hierarchy.Configuration, enable, disable []string) (hierarchy.Submission, error) {
	sub := make(hierarchy.Submission)
	for _, field := range current.FieldIDs() {
		sub[field] = hierarchy.FieldSelection{Enabled: true, Selected: current.Keys(field)}
	}

	for _, spec := range enable {
		field, keys, ok := strings.Cut(spec, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --enable %q: expected <field>=<key>[,<key>...]", spec)
		}
		var selected []string
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				selected = append(selected, k)
			}
		}
		sub[field] = hierarchy.FieldSelection{Enabled: true, Selected: selected}
	}

	for _, field := range disable {
		sub[strings.TrimSpace(field)] = hierarchy.FieldSelection{Enabled: false}
	}
	return sub, nil
}

func runConfigure(cmd *cobra.Command, p *project, enable, disable []string) error {
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

	current, err := p.hierarchy.Load()
	if err != nil {
		return err
	}
	sub, err := buildSubmission(current, enable, disable)
	if err != nil {
		return err
	}

	cfg, err := hierarchy.Validate(opts, sub)
	if err != nil {
		var verrs hierarchy.ValidationErrors
		if errors.As(err, &verrs) {
			for _, v := range verrs {
				field := v.Field
				if field == "" {
					field = "-"
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s (%s)\n", field, v.Message, v.Code)
			}
			return fmt.Errorf("hierarchy configuration rejected, nothing was saved")
		}
		return err
	}

	backup, err := config.BackupFile(p.hierarchy.Path())
	if err != nil {
		return err
	}
	if err := p.hierarchy.Save(cfg); err != nil {
		return err
	}

	slog.Info("hierarchy_configured",
		slog.String("index", p.indexID()),
		slog.Int("fields", len(cfg.Fields)),
		slog.String("backup", backup))

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Saved %s\n", p.hierarchy.Path())
	if backup != "" {
		_, _ = fmt.Fprintf(out, "Previous configuration backed up to %s\n", backup)
	}
	_, _ = fmt.Fprintln(out, "Run 'ancestry index' to apply the change.")
	return nil
}

func printHierarchy(cmd *cobra.Command, p *project) error {
	cfg, err := p.hierarchy.Load()
	if err != nil {
		return err
	}
	if cfg.IsEmpty() {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No hierarchy fields configured. See 'ancestry discover'.")
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func restoreHierarchy(cmd *cobra.Command, p *project) error {
	backups, err := config.ListBackups(p.hierarchy.Path())
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups of %s", p.hierarchy.Path())
	}
	if err := config.RestoreFile(p.hierarchy.Path(), backups[0]); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", p.hierarchy.Path(), backups[0])
	return err
}
