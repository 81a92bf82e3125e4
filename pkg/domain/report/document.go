package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

// Document is the exportable view of a finished (or partial) submission.
type Document struct {
	SessionID     string             `json:"session_id" yaml:"session_id"`
	Step          string             `json:"step" yaml:"step"`
	GeneratedAt   time.Time          `json:"generated_at" yaml:"generated_at"`
	PromptVersion string             `json:"prompt_version" yaml:"prompt_version"`
	Location      *geo.Location      `json:"location,omitempty" yaml:"location,omitempty"`
	Quality       *quality.Report    `json:"quality,omitempty" yaml:"quality,omitempty"`
	Analysis      *analysis.Result   `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Severity      *severity.Label    `json:"severity,omitempty" yaml:"severity,omitempty"`
	Level         string             `json:"level,omitempty" yaml:"level,omitempty"`
	Feedback      *severity.Feedback `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// NewDocument snapshots rec. q may be nil when the quality report of the
// last attempt is no longer known.
func NewDocument(sessionID, step string, rec Record, q *quality.Report, at time.Time) Document {
	rec = rec.Clone()
	doc := Document{
		SessionID:     sessionID,
		Step:          step,
		GeneratedAt:   at.UTC(),
		PromptVersion: analysis.PromptVersion,
		Location:      rec.Location,
		Quality:       q,
		Analysis:      rec.Analysis,
		Severity:      rec.Severity,
	}
	if rec.Severity != nil {
		fb := severity.FeedbackFor(*rec.Severity)
		doc.Feedback = &fb
		doc.Level = rec.Severity.Level().String()
	}
	return doc
}

// Title is a one-line summary used by issue trackers.
func (d Document) Title() string {
	label := severity.LabelUndefined
	if d.Severity != nil {
		label = *d.Severity
	}
	where := "unknown location"
	if d.Location != nil {
		a := d.Location.Address
		switch {
		case a.Street != "" && a.City != "":
			where = a.Street + ", " + a.City
		case a.City != "":
			where = a.City
		case a.CEP != "":
			where = "CEP " + geo.FormatCEP(a.CEP)
		}
	}
	return fmt.Sprintf("Pothole [%s] at %s", label, where)
}

const documentSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["session_id", "step", "generated_at", "prompt_version"],
  "properties": {
    "session_id": { "type": "string", "minLength": 1 },
    "step": { "enum": ["start", "form", "result"] },
    "generated_at": { "type": "string" },
    "prompt_version": { "type": "string", "minLength": 1 },
    "location": {
      "type": "object",
      "required": ["address"],
      "properties": {
        "address": {
          "type": "object",
          "required": ["cep"],
          "properties": { "cep": { "type": "string", "pattern": "^[0-9]{8}$" } }
        },
        "coordinates": {
          "type": "object",
          "required": ["lat", "lng"],
          "properties": {
            "lat": { "type": "number", "minimum": -90, "maximum": 90 },
            "lng": { "type": "number", "minimum": -180, "maximum": 180 }
          }
        }
      }
    },
    "quality": {
      "type": "object",
      "required": ["passed", "problems"],
      "properties": {
        "passed": { "type": "boolean" },
        "problems": { "type": ["array", "null"], "items": { "type": "string" } }
      }
    },
    "analysis": {
      "type": "object",
      "required": ["status", "analysis"],
      "properties": {
        "status": { "enum": ["success", "error"] },
        "analysis": { "type": "string" }
      }
    },
    "severity": { "type": "string", "minLength": 1 },
    "level": { "enum": ["unknown", "low", "medium", "high", "critical"] },
    "feedback": {
      "type": "object",
      "required": ["icon", "message", "deadline"]
    }
  },
  "dependencies": {
    "severity": ["analysis"]
  }
}`

var documentSchemaLoader = gojsonschema.NewStringLoader(documentSchemaJSON)

// ErrInvalidDocument is wrapped by Validate and ParseDocument failures.
var ErrInvalidDocument = errors.New("invalid report document")

// Validate checks the document against the report schema.
func (d Document) Validate() error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return validateJSON(raw)
}

// ParseDocument decodes and validates a JSON document.
func ParseDocument(raw []byte) (Document, error) {
	if err := validateJSON(raw); err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Severity != nil && doc.Analysis != nil && !doc.Analysis.OK() {
		return Document{}, fmt.Errorf("%w: severity present on a failed analysis", ErrInvalidDocument)
	}
	return doc, nil
}

func validateJSON(raw []byte) error {
	result, err := gojsonschema.Validate(documentSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(issues, "; "))
}

// Schema returns the JSON schema documents are validated against.
func Schema() string {
	return documentSchemaJSON
}
