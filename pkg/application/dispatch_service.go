package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

// ErrNoSinks is returned when a dispatch has nowhere to go.
var ErrNoSinks = errors.New("no dispatch targets configured")

// Sink delivers a finished report somewhere outside the process.
type Sink interface {
	Name() string
	Send(ctx context.Context, doc report.Document) (string, error)
}

// Delivery is the outcome of one sink.
type Delivery struct {
	Sink  string `json:"sink" yaml:"sink"`
	Ref   string `json:"ref,omitempty" yaml:"ref,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (d Delivery) OK() bool { return d.Error == "" }

// DispatchService validates documents and fans them out to every sink.
type DispatchService struct {
	sinks []Sink
	log   Logger
}

func NewDispatchService(log Logger, sinks ...Sink) *DispatchService {
	if log == nil {
		log = nopLogger{}
	}
	return &DispatchService{sinks: sinks, log: log}
}

func (s *DispatchService) Sinks() int { return len(s.sinks) }

// Dispatch sends doc to each sink in order. A sink failure does not stop
// the others; the returned error joins every failure.
func (s *DispatchService) Dispatch(ctx context.Context, doc report.Document) ([]Delivery, error) {
	if len(s.sinks) == 0 {
		return nil, ErrNoSinks
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	deliveries := make([]Delivery, 0, len(s.sinks))
	var errs []error
	for _, sink := range s.sinks {
		ref, err := sink.Send(ctx, doc)
		d := Delivery{Sink: sink.Name(), Ref: ref}
		if err != nil {
			d.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			s.log.Warn("dispatch failed", "sink", sink.Name(), "session_id", doc.SessionID, "error", err.Error())
		} else {
			s.log.Info("report dispatched", "sink", sink.Name(), "session_id", doc.SessionID, "ref", ref)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, errors.Join(errs...)
}
