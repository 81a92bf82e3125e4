package watch

import (
	"path/filepath"
	"strings"
)

// ImageExtensions are the formats the quality gate can decode.
var ImageExtensions = []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp", "*.bmp", "*.tif", "*.tiff"}

// PatternFilter filters file paths based on include/exclude glob patterns.
type PatternFilter struct {
	Include []string
	Exclude []string
	// FoldCase matches base names case-insensitively.
	FoldCase bool
}

// NewPatternFilter creates a new pattern filter.
func NewPatternFilter(include, exclude []string) *PatternFilter {
	return &PatternFilter{
		Include: include,
		Exclude: exclude,
	}
}

// NewImageFilter accepts image files and skips hidden, temporary and
// report files.
func NewImageFilter() *PatternFilter {
	return &PatternFilter{
		Include:  ImageExtensions,
		Exclude:  []string{".*", "*.tmp", "*.part", "*.report.json"},
		FoldCase: true,
	}
}

// Matches returns true if the path passes the filter.
// If include patterns are set, at least one must match.
// If exclude patterns are set, none must match.
func (f *PatternFilter) Matches(path string) bool {
	base := filepath.Base(path)
	if f.FoldCase {
		base = strings.ToLower(base)
	}

	for _, pattern := range f.Exclude {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return false
		}
	}

	if len(f.Include) == 0 {
		return true
	}

	for _, pattern := range f.Include {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}

	return false
}
