package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/storage"
	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
	"github.com/felixgeelhaar/buraco/pkg/domain/wizard"
)

// ErrSkipped marks photos the processor deliberately left alone.
var ErrSkipped = errors.New("photo skipped")

// Logger is the subset of the application logger the processor needs.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Processor turns photos dropped into a folder into report files written
// next to them. Photos failing the quality gate are never overridden.
type Processor struct {
	pipeline *application.Pipeline
	writer   *storage.ReportWriter
	apiKey   string
	location *geo.Location
	log      Logger
	now      func() time.Time
	newID    func() string
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLocation attaches the same address to every report.
func WithLocation(loc *geo.Location) ProcessorOption {
	return func(p *Processor) { p.location = loc }
}

// WithProcessorClock overrides the timestamp source.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(pipeline *application.Pipeline, writer *storage.ReportWriter, apiKey string, log Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		pipeline: pipeline,
		writer:   writer,
		apiKey:   apiKey,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle is the FSWatcher callback. Failures are logged.
func (p *Processor) Handle(ctx context.Context, ev ChangeEvent) {
	if ev.ChangeType != "create" && ev.ChangeType != "write" {
		return
	}
	path, err := p.ProcessFile(ctx, ev.Path)
	switch {
	case errors.Is(err, ErrSkipped):
		p.log.Info("photo skipped", "path", ev.Path, "reason", err.Error())
	case err != nil:
		p.log.Warn("photo processing failed", "path", ev.Path, "error", err.Error())
	default:
		p.log.Info("report written", "photo", ev.Path, "report", path)
	}
}

// ProcessFile analyzes one photo and returns the report path.
func (p *Processor) ProcessFile(ctx context.Context, photo string) (string, error) {
	// #nosec G304 -- photo comes from the watched directory
	data, err := os.ReadFile(photo)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}

	var rec report.Record
	if p.location != nil {
		rec.SetLocation(*p.location)
	}
	out, err := p.pipeline.Process(ctx, &rec, data, p.apiKey, nil)
	if err != nil {
		var gate *application.QualityGateError
		if errors.As(err, &gate) {
			return "", fmt.Errorf("%w: %s", ErrSkipped, gate.Error())
		}
		return "", err
	}

	doc := report.NewDocument(p.newID(), string(wizard.StepResult), rec, &out.Quality, p.now())
	return p.writer.Write(ctx, photo, doc)
}

// Scan processes images under dir that have no report yet and returns how
// many reports were written.
func (p *Processor) Scan(ctx context.Context, dir string, filter *PatternFilter) (int, error) {
	if filter == nil {
		filter = NewImageFilter()
	}
	written := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !filter.Matches(path) {
			return nil
		}
		if _, err := os.Stat(storage.ReportPath(path)); err == nil {
			return nil
		}
		if _, err := p.ProcessFile(ctx, path); err != nil {
			if errors.Is(err, ErrSkipped) {
				p.log.Info("photo skipped", "path", path, "reason", err.Error())
				return nil
			}
			p.log.Warn("photo processing failed", "path", path, "error", err.Error())
			return nil
		}
		written++
		return nil
	})
	return written, err
}
