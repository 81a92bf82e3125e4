package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

func sampleDocument(t *testing.T, text string) report.Document {
	t.Helper()
	var rec report.Record
	rec.SetLocation(geo.Location{
		Address: geo.Address{CEP: "40060000", Street: "Avenida Sete de Setembro", City: "Salvador", State: "BA"},
		Number:  "200",
	})
	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	res := analysis.Result{Status: analysis.StatusSuccess, Text: text}
	rec.SetAnalysis(res, severity.Extract(text), at)
	q := quality.Report{Passed: true, Width: 800, Height: 600, SizeKB: 48, Format: "png"}
	return report.NewDocument("sess-1", "result", rec, &q, at)
}

func TestValidateOutput(t *testing.T) {
	for _, f := range []string{"human", "json", "yaml"} {
		if err := validateOutput(f); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
	if err := validateOutput("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestRenderDocument_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderDocument(&buf, sampleDocument(t, criticoAnswer), "json", nil); err != nil {
		t.Fatal(err)
	}
	doc, err := report.ParseDocument(buf.Bytes())
	if err != nil {
		t.Fatalf("output is not a valid report: %v", err)
	}
	if doc.Level != "critical" {
		t.Errorf("level = %s", doc.Level)
	}
	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if raw["session_id"] != "sess-1" {
		t.Errorf("session_id = %v", raw["session_id"])
	}
}

func TestRenderDocument_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := renderDocument(&buf, sampleDocument(t, criticoAnswer), "yaml", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "level: critical") {
		t.Errorf("unexpected yaml:\n%s", buf.String())
	}
}

func TestRenderDocument_Human(t *testing.T) {
	var buf bytes.Buffer
	doc := sampleDocument(t, criticoAnswer)
	if err := renderDocument(&buf, doc, "human", []string{"coordinates unavailable"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	fb := severity.FeedbackFor(severity.LabelCritical)
	for _, want := range []string{
		doc.Title(),
		"CEP 40060-000",
		"SEVERITY: CRÍTICO",
		fb.Deadline,
		"Justificativa: cratera.",
		"⚠ coordinates unavailable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDocument_HumanFailedAnalysis(t *testing.T) {
	var rec report.Record
	rec.SetAnalysis(analysis.Result{Status: analysis.StatusError, Text: "Erro na análise: quota"}, "", time.Now())
	doc := report.NewDocument("sess-2", "form", rec, nil, time.Now())

	var buf bytes.Buffer
	displayHuman(&buf, doc, nil)
	if !strings.Contains(buf.String(), "analysis failed") || !strings.Contains(buf.String(), "quota") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
