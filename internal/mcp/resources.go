package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

// Resource URIs.
const (
	ConfigResourceURI  = "hierarchy://config"
	OptionsResourceURI = "hierarchy://options"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "hierarchy_config",
			URI:         ConfigResourceURI,
			Description: "The saved hierarchy configuration: enabled fields and their relation keys",
			MIMEType:    "application/yaml",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			text, err := s.configDocument()
			if err != nil {
				return nil, MapError(err)
			}
			return textResource(ConfigResourceURI, "application/yaml", text), nil
		},
	)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "hierarchy_options",
			URI:         OptionsResourceURI,
			Description: "Hierarchy candidate fields of the served index with their relation options",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			text, err := s.optionsDocument(ctx)
			if err != nil {
				return nil, MapError(err)
			}
			return textResource(OptionsResourceURI, "application/json", text), nil
		},
	)
}

func (s *Server) configDocument() (string, error) {
	cfg, err := s.hierarchy.Load()
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) optionsDocument(ctx context.Context) (string, error) {
	out, err := s.hierarchyOptions(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func textResource(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
	}
}
