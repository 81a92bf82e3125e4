package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

var outputFormats = []string{"human", "json", "yaml"}

func validateOutput(format string) error {
	for _, f := range outputFormats {
		if format == f {
			return nil
		}
	}
	return NewCLIError(
		fmt.Sprintf("unknown output format %q", format),
		"Use one of: "+strings.Join(outputFormats, ", "),
		nil,
	)
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func writeYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// renderDocument prints doc in format. Human output is colored by level.
func renderDocument(w io.Writer, doc report.Document, format string, notes []string) error {
	switch format {
	case "json":
		return writeJSON(w, doc)
	case "yaml":
		return writeYAML(w, doc)
	}
	displayHuman(w, doc, notes)
	return nil
}

func displayHuman(w io.Writer, doc report.Document, notes []string) {
	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(w)
	bold.Fprintln(w, doc.Title())

	if loc := doc.Location; loc != nil {
		fmt.Fprintf(w, "📍 %s (CEP %s)\n", loc.Address.Line(loc.Number), geo.FormatCEP(loc.Address.CEP))
		if loc.Coordinates != nil {
			fmt.Fprintf(w, "   %s\n", color.HiBlackString(loc.Coordinates.String()))
		}
	}

	if q := doc.Quality; q != nil {
		if q.Passed {
			fmt.Fprintf(w, "📷 %dx%d %s, %.0f KB\n", q.Width, q.Height, q.Format, q.SizeKB)
		} else {
			yellow.Fprintf(w, "📷 quality check overridden: %s\n", strings.Join(q.Problems, "; "))
		}
	}

	if a := doc.Analysis; a != nil && !a.OK() {
		color.New(color.FgRed, color.Bold).Fprintln(w, "✗ analysis failed")
		fmt.Fprintf(w, "   %s\n", a.Text)
	} else if doc.Severity != nil {
		label := *doc.Severity
		fmt.Fprintln(w)
		levelColor(label.Level()).Fprintf(w, "%s SEVERITY: %s\n", feedbackIcon(doc), label)
		if fb := doc.Feedback; fb != nil {
			fmt.Fprintf(w, "   %s\n", fb.Message)
			fmt.Fprintf(w, "   Deadline: %s\n", fb.Deadline)
		}
		if a := doc.Analysis; a != nil {
			fmt.Fprintln(w)
			fmt.Fprintln(w, indent(a.Text, "   "))
		}
	}

	for _, n := range notes {
		yellow.Fprintf(w, "⚠ %s\n", n)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}

func levelColor(level severity.Level) *color.Color {
	switch level {
	case severity.LevelCritical:
		return color.New(color.FgRed, color.Bold)
	case severity.LevelHigh:
		return color.New(color.FgRed)
	case severity.LevelMedium:
		return color.New(color.FgYellow)
	case severity.LevelLow:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func feedbackIcon(doc report.Document) string {
	if doc.Feedback != nil {
		return doc.Feedback.Icon
	}
	return "•"
}


func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
