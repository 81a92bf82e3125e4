package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

// SchemaVersion is the current MCP tool schema version (semver).
const SchemaVersion = "1.0.0"

const (
	reportSchemaURI = "buraco://schema/report"
	promptURI       = "buraco://prompt"
)

type promptResponse struct {
	SchemaVersion string `json:"schema_version"`
	ServerVersion string `json:"server_version"`
	PromptVersion string `json:"prompt_version"`
	Prompt        string `json:"prompt"`
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource(reportSchemaURI).
		Name(reportSchemaURI).
		Description("JSON schema of exported pothole reports").
		MimeType("application/schema+json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			return &mcplib.ResourceContent{
				URI:      reportSchemaURI,
				MimeType: "application/schema+json",
				Text:     report.Schema(),
			}, nil
		})

	s.mcpServer.Resource(promptURI).
		Name(promptURI).
		Description("Assessment prompt sent with every photo, with its version").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			data, err := json.Marshal(promptResponse{
				SchemaVersion: SchemaVersion,
				ServerVersion: Version,
				PromptVersion: analysis.PromptVersion,
				Prompt:        analysis.Prompt,
			})
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      promptURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
