package mcp_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/buraco/pkg/mcp"
)

func TestNewServer_Initialization(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_MAPS_API_KEY", "REDIS_ADDR", "BURACO_WEBHOOK_URL", "BURACO_SLACK_WEBHOOK_URL", "BURACO_AUDIT_LOG"} {
		t.Setenv(name, "")
	}
	t.Setenv("BURACO_AI_PROVIDER", "mock")
	t.Setenv("LOG_MODE", "production")

	s, closeFn, err := mcp.NewServer(context.Background(), "")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer closeFn()

	doc, err := s.OpenAPI()
	if err != nil {
		t.Fatalf("OpenAPI: %v", err)
	}
	if !strings.Contains(string(doc), "/tools/buraco_lookup_cep") {
		t.Errorf("expected the CEP tool in %s", doc)
	}
}

func TestNewServer_MissingConfig(t *testing.T) {
	if _, _, err := mcp.NewServer(context.Background(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}
