package application

import (
	"context"
	"net/http"
	"time"

	"github.com/felixgeelhaar/buraco/pkg/domain/ai"
	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

// Logger is the structured logger the application layer writes to.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}

// Analyzer is the AI analysis step. *analysis.Client implements it.
type Analyzer interface {
	Analyze(ctx context.Context, img ai.Image, apiKey string) analysis.Result
}

// Decider is asked whether to go on with a photo that failed the quality
// gate. Returning false halts the pipeline.
type Decider func(ctx context.Context, q quality.Report) bool

// Continue is a Decider that always overrides the gate.
func Continue(context.Context, quality.Report) bool { return true }

// Outcome describes one pipeline run.
type Outcome struct {
	Quality    quality.Report     `json:"quality" yaml:"quality"`
	Overridden bool               `json:"overridden,omitempty" yaml:"overridden,omitempty"`
	Analysis   *analysis.Result   `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Severity   *severity.Label    `json:"severity,omitempty" yaml:"severity,omitempty"`
	Feedback   *severity.Feedback `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// Analyzed reports whether the model was called.
func (o Outcome) Analyzed() bool {
	return o.Analysis != nil
}

// Pipeline runs quality gate → optional override → analysis → extraction →
// feedback and writes the results onto a report record. It never retries
// and never changes the wizard step.
type Pipeline struct {
	analyzer Analyzer
	log      Logger
	now      func() time.Time
}

type PipelineOption func(*Pipeline)

func WithPipelineLogger(l Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPipeline(analyzer Analyzer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{analyzer: analyzer, log: nopLogger{}, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the pipeline for one photo. A missing key returns
// ErrMissingAPIKey; a failing gate the decider declines returns
// *QualityGateError. In both cases rec is left untouched and the model is
// not called. Analysis failures are not errors: they land on rec as a
// Result with StatusError.
func (p *Pipeline) Process(ctx context.Context, rec *report.Record, data []byte, apiKey string, decide Decider) (Outcome, error) {
	if apiKey == "" {
		return Outcome{}, ErrMissingAPIKey
	}

	q := quality.Evaluate(data)
	out := Outcome{Quality: q}
	p.log.Debug("quality gate evaluated",
		"passed", q.Passed, "width", q.Width, "height", q.Height, "size_kb", q.SizeKB, "problems", q.Problems)

	if !q.Passed {
		if decide == nil || !decide(ctx, q) {
			p.log.Info("quality gate blocked image", "problems", q.Problems)
			return out, &QualityGateError{Report: q}
		}
		out.Overridden = true
		p.log.Warn("quality gate overridden by user", "problems", q.Problems)
	}

	res := p.analyzer.Analyze(ctx, ai.Image{MimeType: mimeTypeOf(q, data), Data: data}, apiKey)
	out.Analysis = &res

	if !res.OK() {
		rec.SetAnalysis(res, "", p.now())
		p.log.Warn("analysis failed", "detail", res.Text)
		return out, nil
	}

	label := severity.Extract(res.Text)
	fb := severity.FeedbackFor(label)
	rec.SetAnalysis(res, label, p.now())
	out.Severity = &label
	out.Feedback = &fb
	p.log.Info("analysis complete", "severity", string(label), "level", label.Level().String())
	return out, nil
}

// mimeTypeOf prefers the decoder's format and falls back to sniffing for
// overridden photos that could not be decoded.
func mimeTypeOf(q quality.Report, data []byte) string {
	if mt := q.MimeType(); mt != "" {
		return mt
	}
	return http.DetectContentType(data)
}
