package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// StatusInfo describes the state of a project's data.
type StatusInfo struct {
	Index            string              `json:"index"`
	SchemaPath       string              `json:"schema_path"`
	HierarchyPath    string              `json:"hierarchy_path"`
	Entities         int                 `json:"entities"`
	Documents        uint64              `json:"documents"`
	EntityDBSize     int64               `json:"entity_db_size"`
	SearchIndexSize  int64               `json:"search_index_size"`
	HierarchyFields  map[string][]string `json:"hierarchy_fields"`
	CandidateFields  int                 `json:"candidate_fields"`
	HierarchyBackups int                 `json:"hierarchy_backups"`
}

// StatusRenderer displays project status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status: "+info.Index))

	_, _ = fmt.Fprintf(r.out, "  Schema:     %s\n", info.SchemaPath)
	_, _ = fmt.Fprintf(r.out, "  Hierarchy:  %s\n", info.HierarchyPath)
	_, _ = fmt.Fprintf(r.out, "  Entities:   %d\n", info.Entities)
	_, _ = fmt.Fprintf(r.out, "  Documents:  %d\n", info.Documents)
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    Entities:     %s\n", FormatBytes(info.EntityDBSize))
	_, _ = fmt.Fprintf(r.out, "    Search index: %s\n", FormatBytes(info.SearchIndexSize))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintf(r.out, "  Hierarchy fields (%d candidates):\n", info.CandidateFields)
	if len(info.HierarchyFields) == 0 {
		_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Warning.Render("none enabled"))
	}
	fields := make([]string, 0, len(info.HierarchyFields))
	for f := range info.HierarchyFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		_, _ = fmt.Fprintf(r.out, "    %s %v\n", r.styles.Success.Render(f+":"), info.HierarchyFields[f])
	}
	if info.HierarchyBackups > 0 {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Dim.Render(fmt.Sprintf("%d backups available", info.HierarchyBackups)))
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
