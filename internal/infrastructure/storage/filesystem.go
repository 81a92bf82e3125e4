package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

// ReportSuffix is appended to a photo's file name to name its report.
const ReportSuffix = ".report.json"

// ReportWriter stores report documents as JSON files under root.
type ReportWriter struct {
	root        string
	retryConfig retry.Config
}

func NewReportWriter(root string) *ReportWriter {
	return &ReportWriter{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// ReportPath returns the report file for a photo.
func ReportPath(photoPath string) string {
	return photoPath + ReportSuffix
}

// IsReportFile reports whether name was written by a ReportWriter.
func IsReportFile(name string) bool {
	return strings.HasSuffix(name, ReportSuffix)
}

// ResolvePath ensures the path stays within root.
func (w *ReportWriter) ResolvePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}
	base, err := filepath.Abs(w.root)
	if err != nil {
		return "", err
	}
	full := name
	if !filepath.IsAbs(full) {
		full = filepath.Join(base, name)
	}
	clean := filepath.Clean(full)
	if clean != base && !strings.HasPrefix(clean, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path: %s", name)
	}
	return clean, nil
}

// Write validates doc and writes it next to photoPath. The file is written
// to a temporary name and renamed so readers never see partial JSON.
func (w *ReportWriter) Write(ctx context.Context, photoPath string, doc report.Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}
	path, err := w.ResolvePath(ReportPath(photoPath))
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	retryer := retry.New[string](w.retryConfig)
	return retryer.Do(ctx, func(ctx context.Context) (string, error) {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0600); err != nil {
			return "", fmt.Errorf("failed to write report: %w", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return "", fmt.Errorf("failed to move report into place: %w", err)
		}
		return path, nil
	})
}

// Read loads and validates a report document.
func (w *ReportWriter) Read(name string) (report.Document, error) {
	path, err := w.ResolvePath(name)
	if err != nil {
		return report.Document{}, err
	}
	// #nosec G304 -- Path is resolved and validated via ResolvePath
	raw, err := os.ReadFile(path)
	if err != nil {
		return report.Document{}, fmt.Errorf("failed to read report: %w", err)
	}
	return report.ParseDocument(raw)
}
