package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
	"github.com/Aman-CERP/ancestry/internal/hierarchy"
	"github.com/Aman-CERP/ancestry/internal/schema"
	"github.com/Aman-CERP/ancestry/internal/store"
	"github.com/Aman-CERP/ancestry/pkg/version"
)

const serverName = "ancestry"

// Searcher runs within-ancestor searches.
type Searcher interface {
	SearchWithin(ctx context.Context, field, ancestorID, text string, limit int) ([]store.Hit, error)
}

// Dependencies contains the injected collaborators of a Server.
type Dependencies struct {
	// IndexID names the index served (required).
	IndexID string

	// Inspector discovers hierarchy options (required).
	Inspector *schema.Inspector

	// Hierarchy loads and saves the configuration (required).
	Hierarchy hierarchy.Store

	// Entities resolves entities for find_ancestors (required).
	Entities ancestry.Store

	// Search backs search_within. Optional.
	Search Searcher

	Limits ancestry.Limits
	Logger *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "hierarchy_options",
		Description: "List the index fields that can be expanded with ancestors and the parent relations offered for each, marking what is currently configured.",
	},
	{
		Name:        "configure_hierarchy",
		Description: "Enable hierarchy fields and choose their parent relations. The whole submission is validated and nothing is saved if any field is invalid.",
	},
	{
		Name:        "find_ancestors",
		Description: "List every ancestor of an entity reachable through the given parent relations, or through the relations configured for a field.",
	},
	{
		Name:        "search_within",
		Description: "Find indexed documents located anywhere below an ancestor entity, optionally narrowed by a text query on their labels.",
	},
}

// Server is the MCP server for hierarchy tools.
type Server struct {
	mcp       *mcp.Server
	indexID   string
	inspector *schema.Inspector
	hierarchy hierarchy.Store
	entities  ancestry.Store
	resolver  *ancestry.Resolver
	search    Searcher
	logger    *slog.Logger
}

// NewServer creates a Server and registers its tools and resources.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.IndexID == "" {
		return nil, errors.New("index id is required")
	}
	if deps.Inspector == nil {
		return nil, errors.New("schema inspector is required")
	}
	if deps.Hierarchy == nil {
		return nil, errors.New("hierarchy store is required")
	}
	if deps.Entities == nil {
		return nil, errors.New("entity store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limits := deps.Limits
	if limits == (ancestry.Limits{}) {
		limits = ancestry.DefaultLimits()
	}

	s := &Server{
		indexID:   deps.IndexID,
		inspector: deps.Inspector,
		hierarchy: deps.Hierarchy,
		entities:  deps.Entities,
		resolver: ancestry.NewResolver(deps.Entities,
			ancestry.WithLimits(limits),
			ancestry.WithLogger(logger)),
		search: deps.Search,
		logger: logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: serverName, Version: version.Version},
		nil,
	)
	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return serverName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name. args are decoded into the tool's input
// type the same way the protocol layer decodes them. Every error returned is
// an *MCPError.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	out, err := s.callTool(ctx, name, args)
	if err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

func (s *Server) callTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "hierarchy_options":
		return s.hierarchyOptions(ctx)
	case "configure_hierarchy":
		var in ConfigureInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.configure(ctx, in)
	case "find_ancestors":
		var in FindAncestorsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.findAncestors(ctx, in)
	case "search_within":
		var in SearchWithinInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.searchWithin(ctx, in)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return NewInvalidParamsError(err.Error())
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, _ HierarchyOptionsInput) (*mcp.CallToolResult, HierarchyOptionsOutput, error) {
			return result(s.hierarchyOptions(ctx))
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in ConfigureInput) (*mcp.CallToolResult, ConfigureOutput, error) {
			return result(s.configure(ctx, in))
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in FindAncestorsInput) (*mcp.CallToolResult, FindAncestorsOutput, error) {
			return result(s.findAncestors(ctx, in))
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in SearchWithinInput) (*mcp.CallToolResult, SearchWithinOutput, error) {
			return result(s.searchWithin(ctx, in))
		})

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// result adapts a handler's return values to the SDK's typed tool signature.
func result[T any](out *T, err error) (*mcp.CallToolResult, T, error) {
	var zero T
	if err != nil {
		return nil, zero, MapError(err)
	}
	if out == nil {
		return nil, zero, nil
	}
	return nil, *out, nil
}

func (s *Server) hierarchyOptions(_ context.Context) (*HierarchyOptionsOutput, error) {
	opts, err := s.inspector.Options(s.indexID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.hierarchy.Load()
	if err != nil {
		return nil, err
	}

	out := &HierarchyOptionsOutput{Index: s.indexID, Fields: make([]FieldOptions, 0, len(opts))}
	for _, field := range opts.Fields() {
		selected := make(map[string]bool)
		for _, k := range cfg.Keys(field) {
			selected[k] = true
		}
		fo := FieldOptions{Field: field, Enabled: len(selected) > 0}
		for _, key := range opts.Keys(field) {
			fo.Options = append(fo.Options, RelationOption{
				Key:      key,
				Label:    opts[field][key],
				Selected: selected[key],
			})
		}
		out.Fields = append(out.Fields, fo)
	}
	return out, nil
}

func (s *Server) configure(_ context.Context, in ConfigureInput) (*ConfigureOutput, error) {
	opts, err := s.inspector.Options(s.indexID)
	if err != nil {
		return nil, err
	}

	submission := make(hierarchy.Submission, len(in.Fields))
	for _, f := range in.Fields {
		submission[f.Field] = hierarchy.FieldSelection{Enabled: f.Enabled, Selected: f.Relations}
	}

	cfg, err := hierarchy.Validate(opts, submission)
	if err != nil {
		var verrs hierarchy.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		out := &ConfigureOutput{}
		for _, v := range verrs {
			out.Errors = append(out.Errors, FieldErrorOutput{Field: v.Field, Code: v.Code, Message: v.Message})
		}
		return out, nil
	}

	if err := s.hierarchy.Save(cfg); err != nil {
		return nil, err
	}
	s.logger.Info("hierarchy_configured",
		slog.String("index", s.indexID),
		slog.Int("fields", len(cfg.Fields)))
	return &ConfigureOutput{Saved: true, Fields: cfg.Fields}, nil
}

func (s *Server) findAncestors(ctx context.Context, in FindAncestorsInput) (*FindAncestorsOutput, error) {
	if strings.TrimSpace(in.EntityID) == "" {
		return nil, NewInvalidParamsError("entity_id is required")
	}

	relations, err := s.relations(in)
	if err != nil {
		return nil, err
	}

	entity, err := s.entities.Resolve(ctx, in.EntityID)
	if err != nil {
		return nil, err
	}

	set, err := s.resolver.FindAncestors(ctx, entity, relations)
	truncated := ancerrors.GetCode(err) == ancerrors.ErrCodeTraversalLimit
	if err != nil && !truncated {
		return nil, err
	}
	return &FindAncestorsOutput{
		EntityID:  in.EntityID,
		Relations: relations,
		Ancestors: set.IDs(),
		Truncated: truncated,
	}, nil
}

// relations resolves the relation property names for a find_ancestors call.
// Explicit relations may be bare property names or relation keys.
func (s *Server) relations(in FindAncestorsInput) ([]string, error) {
	if len(in.Relations) > 0 {
		seen := make(map[string]bool, len(in.Relations))
		var out []string
		for _, r := range in.Relations {
			if _, prop, ok := schema.SplitRelationKey(r); ok {
				r = prop
			}
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
		sort.Strings(out)
		return out, nil
	}

	if in.Field == "" {
		return nil, NewInvalidParamsError("either field or relations is required")
	}
	cfg, err := s.hierarchy.Load()
	if err != nil {
		return nil, err
	}
	relations := cfg.Relations(in.Field)
	if len(relations) == 0 {
		return nil, NewInvalidParamsError(fmt.Sprintf("field %q has no configured relations", in.Field))
	}
	return relations, nil
}

func (s *Server) searchWithin(ctx context.Context, in SearchWithinInput) (*SearchWithinOutput, error) {
	if s.search == nil {
		return nil, ErrSearchUnavailable
	}
	if in.Field == "" || in.AncestorID == "" {
		return nil, NewInvalidParamsError("field and ancestor_id are required")
	}
	limit := in.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	hits, err := s.search.SearchWithin(ctx, in.Field, in.AncestorID, in.Query, limit)
	if err != nil {
		s.logger.Warn("search_within_failed",
			slog.String("field", in.Field),
			slog.String("ancestor", in.AncestorID),
			slog.String("error", err.Error()))
		return nil, err
	}

	out := &SearchWithinOutput{Results: make([]SearchHit, 0, len(hits))}
	for _, h := range hits {
		out.Results = append(out.Results, SearchHit{ID: h.ID, EntityID: h.EntityID, Label: h.Label, Score: h.Score})
	}
	return out, nil
}

// Serve runs the server on the given transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp_server_stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
