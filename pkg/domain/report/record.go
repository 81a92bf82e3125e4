// Package report holds the per-session accumulator of analysis outputs and
// its exportable form.
package report

import (
	"time"

	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

// Record accumulates what is known about one pothole submission.
// Severity is set only next to a successful Analysis.
type Record struct {
	Analysis   *analysis.Result `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Severity   *severity.Label  `json:"severity,omitempty" yaml:"severity,omitempty"`
	Location   *geo.Location    `json:"location,omitempty" yaml:"location,omitempty"`
	AnalyzedAt time.Time        `json:"analyzed_at,omitempty" yaml:"analyzed_at,omitempty"`
}

// SetAnalysis stores a new analysis outcome. Both analysis fields are
// replaced together; a failed result always clears the label, and a
// successful one without a label falls back to UNDEFINED.
func (r *Record) SetAnalysis(res analysis.Result, label severity.Label, at time.Time) {
	var lbl *severity.Label
	if res.OK() {
		if label == "" {
			label = severity.LabelUndefined
		}
		lbl = &label
	}
	r.Analysis, r.Severity, r.AnalyzedAt = &res, lbl, at
}

// SetLocation attaches the address given in the form step.
func (r *Record) SetLocation(loc geo.Location) {
	r.Location = &loc
}

// Reset clears the record entirely.
func (r *Record) Reset() {
	*r = Record{}
}

func (r *Record) Empty() bool {
	return r.Analysis == nil && r.Severity == nil && r.Location == nil && r.AnalyzedAt.IsZero()
}

// Label returns the severity label, or UNDEFINED when none is set.
func (r *Record) Label() severity.Label {
	if r.Severity == nil {
		return severity.LabelUndefined
	}
	return *r.Severity
}

// Clone returns a deep copy safe to hand out of a session lock.
func (r Record) Clone() Record {
	out := Record{AnalyzedAt: r.AnalyzedAt}
	if r.Analysis != nil {
		a := *r.Analysis
		out.Analysis = &a
	}
	if r.Severity != nil {
		s := *r.Severity
		out.Severity = &s
	}
	if r.Location != nil {
		l := *r.Location
		if l.Coordinates != nil {
			c := *l.Coordinates
			l.Coordinates = &c
		}
		out.Location = &l
	}
	return out
}
