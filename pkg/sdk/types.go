package sdk

import (
	"encoding/base64"
	"fmt"

	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

// Image names the photo to send. Path is read by the server, so it must
// be visible to the server process; servers reached over http or ws
// accept paths only inside their image root. Data travels inline.
type Image struct {
	Path string
	Data []byte
}

// ImageFile refers to a file on the server's filesystem.
func ImageFile(path string) Image { return Image{Path: path} }

// ImageBytes sends the photo inline.
func ImageBytes(data []byte) Image { return Image{Data: data} }

func (img Image) args(maxBytes int) (map[string]any, error) {
	switch {
	case img.Path != "":
		return map[string]any{"path": img.Path}, nil
	case maxBytes > 0 && len(img.Data) > maxBytes:
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(img.Data), maxBytes)
	case len(img.Data) > 0:
		return map[string]any{"image_base64": base64.StdEncoding.EncodeToString(img.Data)}, nil
	default:
		return nil, ErrNoImage
	}
}

// AnalyzeResult is returned by buraco_analyze_image. When the photo fails
// the quality gate and force was not set, Analysis is nil and Message
// explains why.
type AnalyzeResult struct {
	Quality    quality.Report     `json:"quality"`
	Overridden bool               `json:"overridden,omitempty"`
	Analysis   *analysis.Result   `json:"analysis,omitempty"`
	Severity   *severity.Label    `json:"severity,omitempty"`
	Feedback   *severity.Feedback `json:"feedback,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// Analyzed reports whether the model was called.
func (r *AnalyzeResult) Analyzed() bool {
	return r.Analysis != nil
}

// SeverityResult is returned by buraco_extract_severity.
type SeverityResult struct {
	Severity severity.Label    `json:"severity"`
	Level    string            `json:"level"`
	Feedback severity.Feedback `json:"feedback"`
}

// PromptInfo is the buraco://prompt resource.
type PromptInfo struct {
	SchemaVersion string `json:"schema_version"`
	ServerVersion string `json:"server_version"`
	PromptVersion string `json:"prompt_version"`
	Prompt        string `json:"prompt"`
}
