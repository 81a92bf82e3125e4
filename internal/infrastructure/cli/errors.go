package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var gateErr *application.QualityGateError
	if errors.As(err, &gateErr) {
		return NewCLIError(
			"photo rejected by the quality check",
			fmt.Sprintf("Fix: %s. Retake the photo or pass --force to analyze it anyway", strings.Join(gateErr.Report.Problems, "; ")),
			err,
		)
	}

	switch {
	case errors.Is(err, application.ErrMissingAPIKey):
		return NewCLIError("no AI API key configured", "Set GEMINI_API_KEY (OPENAI_API_KEY for the openai provider) or ai.api_key in buraco.yaml", err)
	case errors.Is(err, geo.ErrAddressNotFound):
		return NewCLIError("CEP not found", "Check the 8-digit CEP, e.g. 01310-100", err)
	case errors.Is(err, geo.ErrLookupFailed):
		return NewCLIError("address lookup unavailable", "ViaCEP did not answer; try again in a moment", err)
	case errors.Is(err, geo.ErrMissingAPIKey):
		return NewCLIError("no maps API key configured", "Set GOOGLE_MAPS_API_KEY to geocode addresses", err)
	case errors.Is(err, application.ErrNoSinks):
		return NewCLIError("no dispatch target configured", "Pass --webhook or --github, or set webhook.url, slack.webhook_url or github.repo in buraco.yaml", err)
	case errors.Is(err, report.ErrInvalidDocument):
		return NewCLIError("report file is not a valid buraco report", "Regenerate it with 'buraco analyze -o json'", err)
	case errors.Is(err, application.ErrEmptyImage):
		return NewCLIError("photo is empty", "Check the file path", err)
	}

	return err
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		red.Fprintf(w, "✗ %s\n", cliErr.Message)
		if cliErr.Err != nil {
			fmt.Fprintf(w, "  %v\n", cliErr.Err)
		}
		if cliErr.Hint != "" {
			fmt.Fprintf(w, "  %s\n", color.HiBlackString("hint: "+cliErr.Hint))
		}
		return
	}
	red.Fprintf(w, "✗ %v\n", err)
}
