package mcp

import (
	"encoding/json"
	"testing"

	mcpschema "github.com/felixgeelhaar/mcp-go/schema"

	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
)

func openAPIDocument(t *testing.T) Document {
	t.Helper()
	srv, _ := newTestServer(t, "k")
	data, err := srv.OpenAPI()
	if err != nil {
		t.Fatalf("OpenAPI: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return doc
}

func TestOpenAPI_DescribesEveryTool(t *testing.T) {
	doc := openAPIDocument(t)

	if doc.OpenAPI != "3.0.3" {
		t.Errorf("openapi = %s", doc.OpenAPI)
	}
	if doc.Info.Title != "Buraco MCP API" || doc.Info.Version != SchemaVersion {
		t.Errorf("info = %+v", doc.Info)
	}
	if doc.Info.PromptVersion != analysis.PromptVersion {
		t.Errorf("x-prompt-version = %q, want %q", doc.Info.PromptVersion, analysis.PromptVersion)
	}

	tests := []struct {
		tool   string
		result string
		tag    string
	}{
		{"buraco_assess_image", "QualityReport", "photo"},
		{"buraco_analyze_image", "AnalyzeImageResult", "photo"},
		{"buraco_extract_severity", "SeverityResult", "severity"},
		{"buraco_lookup_cep", "Address", "address"},
	}
	if len(doc.Paths) != len(tests) {
		t.Errorf("got %d paths, want %d", len(doc.Paths), len(tests))
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			item, ok := doc.Paths["/tools/"+tt.tool]
			if !ok || item.Post == nil {
				t.Fatalf("missing POST /tools/%s", tt.tool)
			}
			op := item.Post
			if op.OperationID != tt.tool || op.Summary == "" {
				t.Errorf("operation = %+v", op)
			}
			if len(op.Tags) != 1 || op.Tags[0] != tt.tag {
				t.Errorf("tags = %v, want [%s]", op.Tags, tt.tag)
			}
			if op.RequestBody == nil || !op.RequestBody.Required {
				t.Error("every tool takes arguments")
			}
			if got := schemaRef(op.Responses["200"]); got != "#/components/schemas/"+tt.result {
				t.Errorf("200 schema = %q", got)
			}
			if got := schemaRef(op.Responses["422"]); got != "#/components/schemas/ToolError" {
				t.Errorf("422 schema = %q", got)
			}
			if _, ok := doc.Components.Schemas[tt.result]; !ok {
				t.Errorf("component %s not defined", tt.result)
			}
		})
	}
}

func TestOpenAPI_QualityReportListsProblems(t *testing.T) {
	doc := openAPIDocument(t)

	report, ok := doc.Components.Schemas["QualityReport"].(map[string]any)
	if !ok {
		t.Fatal("QualityReport schema missing")
	}
	props := report["properties"].(map[string]any)
	problems := props["problems"].(map[string]any)
	enum := problems["items"].(map[string]any)["enum"].([]any)
	want := map[string]bool{
		"cannot process image":   true,
		"resolution too low":     true,
		"file too small":         true,
		"inadequate proportions": true,
	}
	if len(enum) != len(want) {
		t.Fatalf("enum = %v", enum)
	}
	for _, p := range enum {
		if !want[p.(string)] {
			t.Errorf("unexpected problem %v", p)
		}
	}
}

func TestOpenAPI_AssessImageArguments(t *testing.T) {
	doc := openAPIDocument(t)

	op := doc.Paths["/tools/buraco_assess_image"].Post
	schema, ok := op.RequestBody.Content["application/json"].Schema.(map[string]any)
	if !ok {
		t.Fatalf("request schema = %T", op.RequestBody.Content["application/json"].Schema)
	}
	props := schema["properties"].(map[string]any)
	for _, name := range []string{"path", "image_base64"} {
		if _, ok := props[name]; !ok {
			t.Errorf("argument %s missing from %v", name, props)
		}
	}
}

func TestHasProperties(t *testing.T) {
	tests := []struct {
		name   string
		schema any
		want   bool
	}{
		{"nil", nil, false},
		{"not a map", "object", false},
		{"no properties", map[string]any{"type": "object"}, false},
		{"empty properties", map[string]any{"properties": map[string]any{}}, false},
		{"with properties", map[string]any{"properties": map[string]any{"cep": map[string]any{}}}, true},
		{"nil generated schema", (*mcpschema.Schema)(nil), false},
		{"generated schema", &mcpschema.Schema{Type: "object", Properties: map[string]*mcpschema.Schema{"cep": {Type: "string"}}}, true},
	}
	for _, tt := range tests {
		if got := hasProperties(tt.schema); got != tt.want {
			t.Errorf("%s: hasProperties = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func schemaRef(r Response) string {
	media, ok := r.Content["application/json"]
	if !ok {
		return ""
	}
	m, _ := media.Schema.(map[string]any)
	s, _ := m["$ref"].(string)
	return s
}
