package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	infraAI "github.com/felixgeelhaar/buraco/pkg/ai"
	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/ai"
	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

type stubAddresses struct{}

func (stubAddresses) LookupAddress(_ context.Context, cep string) (geo.Address, error) {
	digits, err := geo.NormalizeCEP(cep)
	if err != nil {
		return geo.Address{}, err
	}
	switch digits {
	case "00000000":
		return geo.Address{}, fmt.Errorf("%w: %s", geo.ErrAddressNotFound, digits)
	case "11111111":
		return geo.Address{}, fmt.Errorf("%w: connection refused", geo.ErrLookupFailed)
	}
	return geo.Address{CEP: digits, Street: "Rua Chile", City: "Salvador", State: "BA"}, nil
}

func newTestServer(t *testing.T, aiKey string) (*Server, *infraAI.MockProvider) {
	t.Helper()
	provider := &infraAI.MockProvider{Text: "AVALIAÇÃO DE SEVERIDADE:\n- Nível: [MÉDIO]"}
	pipeline := application.NewPipeline(analysis.NewClient(func(string) ai.Provider { return provider }))
	srv, err := NewServer(Deps{Pipeline: pipeline, Addresses: stubAddresses{}, AIKey: aiKey})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv, provider
}

func testPNG(t *testing.T, w, h, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if buf.Len() > size {
		t.Fatalf("png is %d bytes, want at most %d", buf.Len(), size)
	}
	return append(buf.Bytes(), make([]byte, size-buf.Len())...)
}

func TestNewServer_RequiresDeps(t *testing.T) {
	if _, err := NewServer(Deps{}); err == nil {
		t.Fatal("expected error without pipeline")
	}
	if _, err := NewServerFromServices(nil); err == nil {
		t.Fatal("expected error for nil services")
	}
}

func TestServer_RegistersTools(t *testing.T) {
	srv, _ := newTestServer(t, "k")
	names := map[string]bool{}
	for _, tool := range srv.mcpServer.Tools() {
		names[tool.Name] = true
	}
	for _, want := range []string{"buraco_assess_image", "buraco_analyze_image", "buraco_extract_severity", "buraco_lookup_cep"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}

func TestHandleAssessImage_Path(t *testing.T) {
	srv, provider := newTestServer(t, "k")
	path := filepath.Join(t.TempDir(), "buraco.png")
	if err := os.WriteFile(path, testPNG(t, 800, 600, 20000), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := srv.handleAssessImage(context.Background(), ImageArgs{Path: path})
	if err != nil {
		t.Fatalf("handleAssessImage: %v", err)
	}
	rep := got.(quality.Report)
	if !rep.Passed || rep.Width != 800 {
		t.Errorf("report = %+v", rep)
	}
	if provider.Calls() != 0 {
		t.Error("assess must not call the model")
	}
}

func TestHandleAssessImage_InputErrors(t *testing.T) {
	srv, _ := newTestServer(t, "k")
	tests := []struct {
		name string
		args ImageArgs
	}{
		{"none", ImageArgs{}},
		{"both", ImageArgs{Path: "a.png", ImageBase64: "AAAA"}},
		{"missing file", ImageArgs{Path: filepath.Join(t.TempDir(), "nope.png")}},
		{"bad base64", ImageArgs{ImageBase64: "!!not base64!!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := srv.handleAssessImage(context.Background(), tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHandleAnalyzeImage(t *testing.T) {
	srv, provider := newTestServer(t, "k")
	b64 := base64.StdEncoding.EncodeToString(testPNG(t, 800, 600, 20000))

	got, err := srv.handleAnalyzeImage(context.Background(), AnalyzeImageArgs{ImageBase64: b64})
	if err != nil {
		t.Fatalf("handleAnalyzeImage: %v", err)
	}
	res := got.(AnalyzeImageResult)
	if res.Severity == nil || *res.Severity != "MÉDIO" {
		t.Errorf("severity = %v", res.Severity)
	}
	if res.Feedback == nil || *res.Feedback != severity.FeedbackFor(severity.LabelMedium) {
		t.Errorf("feedback = %+v", res.Feedback)
	}
	if provider.Calls() != 1 {
		t.Errorf("calls = %d", provider.Calls())
	}
}

func TestHandleAnalyzeImage_GateAndForce(t *testing.T) {
	srv, provider := newTestServer(t, "k")
	b64 := base64.StdEncoding.EncodeToString(testPNG(t, 100, 100, 3000))

	got, err := srv.handleAnalyzeImage(context.Background(), AnalyzeImageArgs{ImageBase64: b64})
	if err != nil {
		t.Fatalf("handleAnalyzeImage: %v", err)
	}
	res := got.(AnalyzeImageResult)
	if res.Analyzed() || !strings.Contains(res.Message, "force=true") {
		t.Errorf("gate result = %+v", res)
	}
	if provider.Calls() != 0 {
		t.Fatal("model called despite failing gate")
	}

	got, err = srv.handleAnalyzeImage(context.Background(), AnalyzeImageArgs{ImageBase64: b64, Force: true})
	if err != nil {
		t.Fatalf("forced: %v", err)
	}
	if res := got.(AnalyzeImageResult); !res.Overridden || !res.Analyzed() {
		t.Errorf("forced result = %+v", res)
	}
}

func TestHandleAnalyzeImage_MissingKey(t *testing.T) {
	srv, provider := newTestServer(t, "")
	b64 := base64.StdEncoding.EncodeToString(testPNG(t, 800, 600, 20000))
	_, err := srv.handleAnalyzeImage(context.Background(), AnalyzeImageArgs{ImageBase64: b64})
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("err = %v", err)
	}
	if provider.Calls() != 0 {
		t.Error("model called without key")
	}
}

func TestHandleExtractSeverity(t *testing.T) {
	srv, _ := newTestServer(t, "k")
	got, _ := srv.handleExtractSeverity(context.Background(), ExtractSeverityArgs{Text: "AVALIAÇÃO DE SEVERIDADE:\n- Nível: [HIGH]"})
	res := got.(SeverityResult)
	if res.Severity != severity.LabelHigh || res.Level != "high" {
		t.Errorf("result = %+v", res)
	}

	got, _ = srv.handleExtractSeverity(context.Background(), ExtractSeverityArgs{Text: "no section"})
	if res := got.(SeverityResult); res.Severity != severity.LabelUndefined || res.Level != "unknown" {
		t.Errorf("result = %+v", res)
	}
}

func TestHandleLookupCEP(t *testing.T) {
	srv, _ := newTestServer(t, "k")
	got, err := srv.handleLookupCEP(context.Background(), LookupCEPArgs{CEP: "40020-000"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if addr := got.(geo.Address); addr.City != "Salvador" {
		t.Errorf("address = %+v", addr)
	}

	if _, err := srv.handleLookupCEP(context.Background(), LookupCEPArgs{CEP: "00000-000"}); err == nil || !strings.Contains(err.Error(), "No address found") {
		t.Errorf("not found err = %v", err)
	}
	_, err = srv.handleLookupCEP(context.Background(), LookupCEPArgs{CEP: "11111111"})
	if err == nil || strings.Contains(err.Error(), "connection refused") {
		t.Errorf("upstream err should be friendly, got %v", err)
	}
}

func TestFlexBool(t *testing.T) {
	for in, want := range map[string]bool{`true`: true, `false`: false, `"true"`: true, `"yes"`: true, `"no"`: false} {
		var fb FlexBool
		if err := json.Unmarshal([]byte(in), &fb); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if bool(fb) != want {
			t.Errorf("%s = %v, want %v", in, fb, want)
		}
	}
	var fb FlexBool
	if err := json.Unmarshal([]byte(`{}`), &fb); err == nil {
		t.Error("expected error for object")
	}
}

func TestServe_UnknownTransport(t *testing.T) {
	srv, _ := newTestServer(t, "k")
	if err := srv.Serve(context.Background(), "grpc", ""); err == nil {
		t.Fatal("expected error for unsupported transport")
	}
}

func TestServer_OpenAPI(t *testing.T) {
	srv, _ := newTestServer(t, "k")
	data, err := srv.OpenAPI()
	if err != nil {
		t.Fatalf("OpenAPI: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Paths["/tools/buraco_lookup_cep"]; !ok {
		t.Errorf("paths = %v", doc.Paths)
	}
}

func TestHandleAssessImage_NetworkRequiresBase64(t *testing.T) {
	srv, _ := newTestServer(t, "k")
	srv.network.Store(true)

	data := testPNG(t, 800, 600, 20000)
	path := filepath.Join(t.TempDir(), "buraco.png")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	_, err := srv.handleAssessImage(context.Background(), ImageArgs{Path: path})
	if err == nil || !strings.Contains(err.Error(), "image_base64") {
		t.Fatalf("expected paths to be refused over the network, got %v", err)
	}
	_, err = srv.handleAnalyzeImage(context.Background(), AnalyzeImageArgs{Path: "/etc/passwd", Force: true})
	if err == nil {
		t.Fatal("forced analysis must not read arbitrary files")
	}

	got, err := srv.handleAssessImage(context.Background(), ImageArgs{ImageBase64: base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		t.Fatalf("base64 should still work: %v", err)
	}
	if !got.(quality.Report).Passed {
		t.Errorf("report = %+v", got)
	}
}

func TestHandleAssessImage_ImageRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	data := testPNG(t, 800, 600, 20000)
	for _, dir := range []string{root, outside} {
		if err := os.WriteFile(filepath.Join(dir, "buraco.png"), data, 0600); err != nil {
			t.Fatal(err)
		}
	}

	provider := &infraAI.MockProvider{}
	pipeline := application.NewPipeline(analysis.NewClient(func(string) ai.Provider { return provider }))
	srv, err := NewServer(Deps{Pipeline: pipeline, Addresses: stubAddresses{}, AIKey: "k", ImageRoot: root})
	if err != nil {
		t.Fatal(err)
	}
	srv.network.Store(true)

	for _, path := range []string{"buraco.png", filepath.Join(root, "buraco.png")} {
		if _, err := srv.handleAssessImage(context.Background(), ImageArgs{Path: path}); err != nil {
			t.Errorf("%s inside the root should be readable: %v", path, err)
		}
	}

	escapes := []string{
		filepath.Join(outside, "buraco.png"),
		filepath.Join("..", filepath.Base(outside), "buraco.png"),
	}
	if err := os.Symlink(filepath.Join(outside, "buraco.png"), filepath.Join(root, "link.png")); err == nil {
		escapes = append(escapes, "link.png")
	}
	for _, path := range escapes {
		if _, err := srv.handleAnalyzeImage(context.Background(), AnalyzeImageArgs{Path: path, Force: true}); err == nil {
			t.Errorf("%s escapes the root and should be refused", path)
		}
	}
	if provider.Calls() != 0 {
		t.Errorf("model called %d times for refused paths", provider.Calls())
	}
}
