package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		hint    string
	}{
		{"missing key", application.ErrMissingAPIKey, "no AI API key configured", "GEMINI_API_KEY"},
		{"gate", &application.QualityGateError{Report: quality.Report{Problems: []string{"Image too small"}}}, "photo rejected by the quality check", "--force"},
		{"cep", fmt.Errorf("%w: 00000000", geo.ErrAddressNotFound), "CEP not found", "8-digit"},
		{"lookup", fmt.Errorf("%w: timeout", geo.ErrLookupFailed), "address lookup unavailable", "try again"},
		{"maps key", geo.ErrMissingAPIKey, "no maps API key configured", "GOOGLE_MAPS_API_KEY"},
		{"no sinks", application.ErrNoSinks, "no dispatch target configured", "--webhook"},
		{"bad report", fmt.Errorf("%w: step", report.ErrInvalidDocument), "report file is not a valid buraco report", "-o json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cliErr *CLIError
			if !errors.As(MapError(tt.err), &cliErr) {
				t.Fatalf("expected CLIError for %v", tt.err)
			}
			if cliErr.Message != tt.message {
				t.Errorf("Message = %q, want %q", cliErr.Message, tt.message)
			}
			if !strings.Contains(cliErr.Hint, tt.hint) {
				t.Errorf("Hint = %q, want it to mention %q", cliErr.Hint, tt.hint)
			}
			if !errors.Is(cliErr, tt.err) {
				t.Error("CLIError should unwrap to the original error")
			}
			if cliErr.ExitCode != 1 {
				t.Errorf("ExitCode = %d", cliErr.ExitCode)
			}
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	if MapError(nil) != nil {
		t.Error("nil should stay nil")
	}
	plain := errors.New("boom")
	if MapError(plain) != plain {
		t.Error("unknown errors are returned as-is")
	}
	already := NewCLIError("custom", "do something", nil)
	if MapError(already) != error(already) {
		t.Error("CLIErrors are not wrapped twice")
	}
}

func TestCLIError_Error(t *testing.T) {
	e := NewCLIError("outer", "", errors.New("inner"))
	if e.Error() != "outer: inner" {
		t.Errorf("Error() = %q", e.Error())
	}
	if NewCLIError("alone", "", nil).Error() != "alone" {
		t.Error("message without cause")
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, MapError(application.ErrMissingAPIKey))
	out := buf.String()
	if !strings.Contains(out, "✗ no AI API key configured") || !strings.Contains(out, "hint: Set GEMINI_API_KEY") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	printError(&buf, errors.New("plain failure"))
	if strings.TrimSpace(buf.String()) != "✗ plain failure" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
