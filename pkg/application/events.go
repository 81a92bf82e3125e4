package application

import (
	"time"

	"github.com/felixgeelhaar/buraco/pkg/domain/session"
	"github.com/felixgeelhaar/buraco/pkg/domain/wizard"
)

// Session event types published by IntakeService.
const (
	EventSessionStarted      = "session.started"
	EventSessionEnded        = "session.ended"
	EventStepChanged         = "session.step_changed"
	EventAnalysisRestarted   = "analysis.restarted"
	EventAddressSet          = "address.set"
	EventPhotoAwaiting       = "photo.awaiting_confirmation"
	EventPhotoDiscarded      = "photo.discarded"
	EventPhotoAnalyzed       = "photo.analyzed"
	EventPhotoAnalysisFailed = "photo.analysis_failed"
)

// SessionEvent is a notification about a session change. It never
// carries image bytes or credentials.
type SessionEvent struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Step      wizard.Step `json:"step,omitempty"`
	Severity  string      `json:"severity,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventPublisher receives session events. Publish must not block.
type EventPublisher interface {
	Publish(SessionEvent)
}

// WithEventPublisher sends session events to p. It may be given more
// than once; publishers are called in order.
func WithEventPublisher(p EventPublisher) IntakeOption {
	return func(s *IntakeService) {
		if p != nil {
			s.events = append(s.events, p)
		}
	}
}

func (s *IntakeService) publish(eventType string, sess *session.Session) {
	if len(s.events) == 0 {
		return
	}
	ev := SessionEvent{Type: eventType, SessionID: sess.ID, Step: sess.Step, Timestamp: s.now().UTC()}
	if sess.Record.Severity != nil {
		ev.Severity = string(*sess.Record.Severity)
	}
	for _, p := range s.events {
		p.Publish(ev)
	}
}
