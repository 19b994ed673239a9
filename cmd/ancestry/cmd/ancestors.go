package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
	"github.com/Aman-CERP/ancestry/internal/schema"
)

type ancestorsOutput struct {
	EntityID  string   `json:"entity_id"`
	Relations []string `json:"relations"`
	Ancestors []string `json:"ancestors"`
	Truncated bool     `json:"truncated,omitempty"`
}

func newAncestorsCmd() *cobra.Command {
	var (
		field      string
		relations  []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "ancestors <entity-id>",
		Short: "List the ancestors of an entity",
		Long: `Walk the given relations breadth-first from an entity and list every entity
reached, nearest first. Relations are property names or relation keys;
with --field the relations configured for that field are used.`,
		Example: `  ancestry ancestors D --relation memberOf --relation additionalMemberOf
  ancestry ancestors D --field member_of`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(projectDir)
			if err != nil {
				return err
			}

			rels, err := resolveRelations(p, field, relations)
			if err != nil {
				return err
			}

			entities, err := p.openEntities(true)
			if err != nil {
				return err
			}
			defer func() { _ = entities.Close() }()

			entity, err := entities.Resolve(cmd.Context(), args[0])
			if errors.Is(err, ancestry.ErrNotFound) {
				return fmt.Errorf("entity %q not found", args[0])
			}
			if err != nil {
				return err
			}

			resolver := ancestry.NewResolver(entities, ancestry.WithLimits(p.limits()))
			set, err := resolver.FindAncestors(cmd.Context(), entity, rels)
			truncated := ancerrors.GetCode(err) == ancerrors.ErrCodeTraversalLimit
			if err != nil && !truncated {
				return err
			}

			out := ancestorsOutput{EntityID: args[0], Relations: rels, Ancestors: set.IDs(), Truncated: truncated}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			for _, id := range out.Ancestors {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			if truncated {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: traversal limit reached, the list is incomplete")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Use the relations configured for this field")
	cmd.Flags().StringArrayVar(&relations, "relation", nil, "Relation property name or key (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// resolveRelations returns the relation property names to walk. Explicit
// relations win over the field's configured relations.
func resolveRelations(p *project, field string, relations []string) ([]string, error) {
	if len(relations) > 0 {
		seen := make(map[string]bool, len(relations))
		var out []string
		for _, r := range relations {
			if _, prop, ok := schema.SplitRelationKey(r); ok {
				r = prop
			}
			if r != "" && !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
		sort.Strings(out)
		return out, nil
	}
	if field == "" {
		return nil, fmt.Errorf("either --field or --relation is required")
	}

	cfg, err := p.hierarchy.Load()
	if err != nil {
		return nil, err
	}
	rels := cfg.Relations(field)
	if len(rels) == 0 {
		return nil, fmt.Errorf("field %q has no configured relations", field)
	}
	return rels, nil
}
