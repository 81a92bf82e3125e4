// Package quality gates submitted photos on cheap heuristics before any
// model call is spent on them.
package quality

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Thresholds applied by Evaluate.
const (
	MinDimension = 200
	MinBytes     = 10000
	MaxAspect    = 3.0
)

// Problem reasons, in the order Evaluate reports them.
const (
	ProblemUndecodable    = "cannot process image"
	ProblemLowResolution  = "resolution too low"
	ProblemTooSmall       = "file too small"
	ProblemBadProportions = "inadequate proportions"
)

// Report is the outcome of evaluating one photo.
type Report struct {
	Passed   bool     `json:"passed" yaml:"passed"`
	Width    int      `json:"width" yaml:"width"`
	Height   int      `json:"height" yaml:"height"`
	SizeKB   float64  `json:"size_kb" yaml:"size_kb"`
	Format   string   `json:"format,omitempty" yaml:"format,omitempty"`
	Problems []string `json:"problems" yaml:"problems"`
}

// MimeType returns the mime type of the decoded format, or an empty string
// when the image could not be decoded.
func (r Report) MimeType() string {
	if r.Format == "" {
		return ""
	}
	return "image/" + r.Format
}

// HasProblem reports whether reason is among the report's problems.
func (r Report) HasProblem(reason string) bool {
	for _, p := range r.Problems {
		if p == reason {
			return true
		}
	}
	return false
}

// Evaluate reads the image header and runs every check. Checks never
// short-circuit so the caller sees all problems at once; a decode failure is
// the one case reported on its own, with dimensions and size zeroed.
// Only the header is decoded; pixel data is never allocated.
func Evaluate(data []byte) Report {
	report := Report{Problems: []string{}}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		report.Problems = append(report.Problems, ProblemUndecodable)
		return report
	}

	report.Width = cfg.Width
	report.Height = cfg.Height
	report.Format = format
	report.SizeKB = float64(len(data)) / 1024

	if report.Width < MinDimension || report.Height < MinDimension {
		report.Problems = append(report.Problems, ProblemLowResolution)
	}
	if len(data) < MinBytes {
		report.Problems = append(report.Problems, ProblemTooSmall)
	}
	if badProportions(report.Width, report.Height) {
		report.Problems = append(report.Problems, ProblemBadProportions)
	}

	report.Passed = len(report.Problems) == 0
	return report
}

func badProportions(width, height int) bool {
	if width <= 0 || height <= 0 {
		return true
	}
	w, h := float64(width), float64(height)
	return w/h > MaxAspect || h/w > MaxAspect
}
