package mcp

import (
	"encoding/json"
	"sort"

	mcpschema "github.com/felixgeelhaar/mcp-go/schema"

	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
)

// Document is an OpenAPI 3.0 view of the tools: each tool is a POST on
// /tools/{name} taking the tool arguments and returning the tool result.
type Document struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
}

type Info struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Version       string `json:"version"`
	PromptVersion string `json:"x-prompt-version"`
}

type Components struct {
	Schemas map[string]any `json:"schemas"`
}

type PathItem struct {
	Post *Operation `json:"post,omitempty"`
}

type Operation struct {
	OperationID string              `json:"operationId"`
	Summary     string              `json:"summary,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
	Tags        []string            `json:"tags,omitempty"`
}

type RequestBody struct {
	Required bool                 `json:"required"`
	Content  map[string]MediaType `json:"content"`
}

type MediaType struct {
	Schema any `json:"schema"`
}

type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// toolResults names the component each tool returns on success.
var toolResults = map[string]string{
	"buraco_assess_image":     "QualityReport",
	"buraco_analyze_image":    "AnalyzeImageResult",
	"buraco_extract_severity": "SeverityResult",
	"buraco_lookup_cep":       "Address",
}

// toolTags groups tools by the part of the intake they serve.
var toolTags = map[string]string{
	"buraco_assess_image":     "photo",
	"buraco_analyze_image":    "photo",
	"buraco_extract_severity": "severity",
	"buraco_lookup_cep":       "address",
}

// OpenAPI returns the document for the tools registered on this server.
func (s *Server) OpenAPI() ([]byte, error) {
	paths := make(map[string]PathItem)
	for _, t := range s.mcpServer.Tools() {
		op := Operation{
			OperationID: t.Name,
			Summary:     t.Description,
			Responses: map[string]Response{
				"422": jsonResponse("The tool refused the call; message holds the reason", ref("ToolError")),
			},
			Tags: []string{toolTags[t.Name]},
		}
		if name, ok := toolResults[t.Name]; ok {
			op.Responses["200"] = jsonResponse("Tool result", ref(name))
		} else {
			op.Responses["200"] = Response{Description: "Tool result"}
		}
		if hasProperties(t.InputSchema) {
			op.RequestBody = &RequestBody{
				Required: true,
				Content:  map[string]MediaType{"application/json": {Schema: t.InputSchema}},
			}
		}
		paths["/tools/"+t.Name] = PathItem{Post: &op}
	}

	doc := Document{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:         "Buraco MCP API",
			Description:   "Pothole photo grading, severity extraction and CEP lookups exposed as MCP tools.",
			Version:       SchemaVersion,
			PromptVersion: analysis.PromptVersion,
		},
		Paths:      paths,
		Components: Components{Schemas: componentSchemas()},
	}
	return json.MarshalIndent(doc, "", "  ")
}

func jsonResponse(description string, schema any) Response {
	return Response{
		Description: description,
		Content:     map[string]MediaType{"application/json": {Schema: schema}},
	}
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func componentSchemas() map[string]any {
	problems := []string{
		quality.ProblemUndecodable,
		quality.ProblemLowResolution,
		quality.ProblemTooSmall,
		quality.ProblemBadProportions,
	}
	sort.Strings(problems)

	return map[string]any{
		"QualityReport": object(map[string]any{
			"passed":   typed("boolean"),
			"width":    typed("integer"),
			"height":   typed("integer"),
			"size_kb":  typed("number"),
			"format":   typed("string"),
			"problems": map[string]any{"type": "array", "items": map[string]any{"type": "string", "enum": problems}},
		}, "passed", "width", "height", "size_kb", "problems"),
		"AnalysisResult": object(map[string]any{
			"status":   map[string]any{"type": "string", "enum": []string{string(analysis.StatusSuccess), string(analysis.StatusError)}},
			"analysis": typed("string"),
		}, "status", "analysis"),
		"Feedback": object(map[string]any{
			"icon":     typed("string"),
			"message":  typed("string"),
			"deadline": typed("string"),
		}, "icon", "message", "deadline"),
		"AnalyzeImageResult": object(map[string]any{
			"quality":    ref("QualityReport"),
			"overridden": typed("boolean"),
			"analysis":   ref("AnalysisResult"),
			"severity":   map[string]any{"type": "string", "description": "Label as written between brackets in the analysis"},
			"feedback":   ref("Feedback"),
			"message":    typed("string"),
		}, "quality"),
		"SeverityResult": object(map[string]any{
			"severity": typed("string"),
			"level":    map[string]any{"type": "string", "enum": []string{"unknown", "low", "medium", "high", "critical"}},
			"feedback": ref("Feedback"),
		}, "severity", "level", "feedback"),
		"Address": object(map[string]any{
			"cep":      typed("string"),
			"street":   typed("string"),
			"district": typed("string"),
			"city":     typed("string"),
			"state":    typed("string"),
		}, "cep", "city", "state"),
		"ToolError": object(map[string]any{
			"message": typed("string"),
		}, "message"),
	}
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func typed(t string) map[string]any {
	return map[string]any{"type": t}
}

// hasProperties reports whether a JSON schema declares any properties.
// Registered tools carry a generated *mcpschema.Schema.
func hasProperties(schema any) bool {
	switch s := schema.(type) {
	case *mcpschema.Schema:
		return s != nil && len(s.Properties) > 0
	case map[string]any:
		pm, ok := s["properties"].(map[string]any)
		return ok && len(pm) > 0
	}
	return false
}
