// Package session is the explicit per-user context threaded through the
// wizard and the report pipeline.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
	"github.com/felixgeelhaar/buraco/pkg/domain/wizard"
)

// PendingImage is a photo that failed the quality gate and waits for the
// user's decision to continue or discard it.
type PendingImage struct {
	Data       []byte         `json:"-" yaml:"-"`
	Quality    quality.Report `json:"quality" yaml:"quality"`
	ReceivedAt time.Time      `json:"received_at" yaml:"received_at"`
}

type Session struct {
	ID          string          `json:"id" yaml:"id"`
	Step        wizard.Step     `json:"step" yaml:"step"`
	Record      report.Record   `json:"record" yaml:"record"`
	Pending     *PendingImage   `json:"pending,omitempty" yaml:"pending,omitempty"`
	LastQuality *quality.Report `json:"last_quality,omitempty" yaml:"last_quality,omitempty"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"updated_at"`
}

func New(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Step:      wizard.StepStart,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) machine() (*wizard.Machine, error) {
	return wizard.New(s.Step)
}

// Advance moves the session one step forward.
func (s *Session) Advance(now time.Time) error {
	m, err := s.machine()
	if err != nil {
		return err
	}
	s.Step = m.Advance()
	s.UpdatedAt = now
	return nil
}

// Retreat moves the session one step back.
func (s *Session) Retreat(now time.Time) error {
	m, err := s.machine()
	if err != nil {
		return err
	}
	s.Step = m.Retreat()
	s.UpdatedAt = now
	return nil
}

// RestartAnalysis clears the record, drops any parked photo and returns
// to the form.
func (s *Session) RestartAnalysis(now time.Time) error {
	m, err := s.machine()
	if err != nil {
		return err
	}
	s.Step = m.RestartAnalysis(&s.Record)
	s.Pending = nil
	s.LastQuality = nil
	s.UpdatedAt = now
	return nil
}

// Document exports the session's current state.
func (s *Session) Document(now time.Time) report.Document {
	return report.NewDocument(s.ID, string(s.Step), s.Record, s.LastQuality, now)
}

// Clone returns a copy that shares nothing mutable with s.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Record = s.Record.Clone()
	if s.Pending != nil {
		p := *s.Pending
		p.Data = append([]byte(nil), s.Pending.Data...)
		p.Quality.Problems = append([]string(nil), s.Pending.Quality.Problems...)
		cp.Pending = &p
	}
	if s.LastQuality != nil {
		q := *s.LastQuality
		q.Problems = append([]string(nil), s.LastQuality.Problems...)
		cp.LastQuality = &q
	}
	return &cp
}
