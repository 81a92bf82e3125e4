package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
	"github.com/felixgeelhaar/buraco/pkg/domain/session"
	"github.com/felixgeelhaar/buraco/pkg/domain/wizard"
)

// SessionStore keeps sessions in memory. Update must hold the session's
// lock for the whole call of fn so one interaction completes before the
// next starts; changes are kept only when fn returns nil.
type SessionStore interface {
	Create(ctx context.Context, s *session.Session) error
	Get(ctx context.Context, id string) (*session.Session, error)
	Update(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error)
	Delete(ctx context.Context, id string) error
}

// AddressLookup resolves a CEP to a postal address.
type AddressLookup interface {
	LookupAddress(ctx context.Context, cep string) (geo.Address, error)
}

// Geocoder resolves an address line to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address, apiKey string) (geo.Coordinates, error)
}

// Credentials are the process-wide secrets, loaded once.
type Credentials struct {
	AIKey   string
	MapsKey string
}

// AddressResult is returned by SetAddress. Warnings list degraded steps
// that did not block the address from being accepted.
type AddressResult struct {
	Session  *session.Session `json:"session"`
	Warnings []string         `json:"warnings,omitempty"`
}

// PhotoResult is returned by SubmitPhoto and ConfirmPhoto.
type PhotoResult struct {
	Session *session.Session `json:"session"`
	Outcome Outcome          `json:"outcome"`
	// AwaitingConfirmation is set when the photo failed the gate and was
	// parked on the session.
	AwaitingConfirmation bool `json:"awaiting_confirmation,omitempty"`
}

// IntakeService drives wizard sessions: navigation, address capture and
// photo analysis. Every mutation runs inside the store's per-session lock.
type IntakeService struct {
	store     SessionStore
	pipeline  *Pipeline
	addresses AddressLookup
	geocoder  Geocoder
	creds     Credentials
	events    []EventPublisher
	log       Logger
	now       func() time.Time
}

type IntakeOption func(*IntakeService)

func WithIntakeLogger(l Logger) IntakeOption {
	return func(s *IntakeService) {
		if l != nil {
			s.log = l
		}
	}
}

func WithIntakeClock(now func() time.Time) IntakeOption {
	return func(s *IntakeService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithGeocoder enables coordinate lookup for addresses.
func WithGeocoder(g Geocoder) IntakeOption {
	return func(s *IntakeService) {
		s.geocoder = g
	}
}

func NewIntakeService(store SessionStore, pipeline *Pipeline, addresses AddressLookup, creds Credentials, opts ...IntakeOption) *IntakeService {
	s := &IntakeService{
		store:     store,
		pipeline:  pipeline,
		addresses: addresses,
		creds:     creds,
		log:       nopLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IntakeService) StartSession(ctx context.Context) (*session.Session, error) {
	sess := session.New(s.now())
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("session started", "session_id", sess.ID)
	s.publish(EventSessionStarted, sess)
	return sess.Clone(), nil
}

func (s *IntakeService) Session(ctx context.Context, id string) (*session.Session, error) {
	return s.store.Get(ctx, id)
}

func (s *IntakeService) EndSession(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("session ended", "session_id", id)
	s.publish(EventSessionEnded, &session.Session{ID: id})
	return nil
}

func (s *IntakeService) Advance(ctx context.Context, id string) (*session.Session, error) {
	return s.navigate(ctx, id, (*session.Session).Advance)
}

func (s *IntakeService) Retreat(ctx context.Context, id string) (*session.Session, error) {
	return s.navigate(ctx, id, (*session.Session).Retreat)
}

func (s *IntakeService) navigate(ctx context.Context, id string, move func(*session.Session, time.Time) error) (*session.Session, error) {
	var from wizard.Step
	sess, err := s.store.Update(ctx, id, func(sess *session.Session) error {
		from = sess.Step
		return move(sess, s.now())
	})
	if err != nil {
		return nil, err
	}
	if sess.Step != from {
		s.publish(EventStepChanged, sess)
	}
	return sess, nil
}

// RestartAnalysis clears everything gathered so far and returns to the form.
func (s *IntakeService) RestartAnalysis(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.store.Update(ctx, id, func(sess *session.Session) error {
		return sess.RestartAnalysis(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("analysis restarted", "session_id", id)
	s.publish(EventAnalysisRestarted, sess)
	return sess, nil
}

// SetAddress resolves cep and attaches the location to the session's
// record. Geocoding problems become warnings; an unknown CEP is an error.
func (s *IntakeService) SetAddress(ctx context.Context, id, cep, number string) (AddressResult, error) {
	var warnings []string
	sess, err := s.store.Update(ctx, id, func(sess *session.Session) error {
		if sess.Step != wizard.StepForm {
			return fmt.Errorf("%w: address is entered on the form step, session is on %s", ErrWrongStep, sess.Step)
		}
		addr, err := s.addresses.LookupAddress(ctx, cep)
		if err != nil {
			return err
		}
		loc := geo.Location{Address: addr, Number: number}
		warnings = s.locate(ctx, &loc)
		sess.Record.SetLocation(loc)
		sess.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return AddressResult{}, err
	}
	s.publish(EventAddressSet, sess)
	return AddressResult{Session: sess, Warnings: warnings}, nil
}

// Locate builds a location outside any session, with the same geocoding
// rules as SetAddress.
func (s *IntakeService) Locate(ctx context.Context, addr geo.Address, number string) (geo.Location, []string) {
	loc := geo.Location{Address: addr, Number: number}
	return loc, s.locate(ctx, &loc)
}

func (s *IntakeService) locate(ctx context.Context, loc *geo.Location) []string {
	if s.geocoder == nil {
		return nil
	}
	if s.creds.MapsKey == "" {
		s.log.Warn("geocoding skipped", "reason", "missing maps key")
		return []string{geo.ErrMissingAPIKey.Error()}
	}
	coords, err := s.geocoder.Geocode(ctx, loc.Address.Line(loc.Number), s.creds.MapsKey)
	if err != nil {
		s.log.Warn("geocoding failed", "error", err.Error())
		return []string{coordinatesWarning(err)}
	}
	loc.Coordinates = &coords
	return nil
}

// coordinatesWarning names only the upstream status. Transport errors can
// carry the request URL, and with it the maps key.
func coordinatesWarning(err error) string {
	var statusErr *geo.StatusError
	if errors.As(err, &statusErr) {
		return "coordinates unavailable: " + statusErr.Status
	}
	return "coordinates unavailable"
}

// SubmitPhoto runs the pipeline on data. Without override, a photo that
// fails the gate is parked on the session and a *QualityGateError is
// returned together with the result; ConfirmPhoto resumes it. A successful
// analysis advances the session to the result step.
func (s *IntakeService) SubmitPhoto(ctx context.Context, id string, data []byte, override bool) (PhotoResult, error) {
	if len(data) == 0 {
		return PhotoResult{}, ErrEmptyImage
	}
	decide := func(context.Context, quality.Report) bool { return override }
	return s.runPhoto(ctx, id, func(*session.Session) ([]byte, Decider, error) {
		return data, decide, nil
	})
}

// ConfirmPhoto answers the pending quality question. proceed=false
// discards the parked photo; proceed=true analyses it without re-upload.
func (s *IntakeService) ConfirmPhoto(ctx context.Context, id string, proceed bool) (PhotoResult, error) {
	if !proceed {
		sess, err := s.store.Update(ctx, id, func(sess *session.Session) error {
			if sess.Pending == nil {
				return ErrNoPendingImage
			}
			sess.Pending = nil
			sess.UpdatedAt = s.now()
			return nil
		})
		if err != nil {
			return PhotoResult{}, err
		}
		s.log.Info("pending image discarded", "session_id", id)
		s.publish(EventPhotoDiscarded, sess)
		return PhotoResult{Session: sess}, nil
	}

	return s.runPhoto(ctx, id, func(sess *session.Session) ([]byte, Decider, error) {
		if sess.Pending == nil {
			return nil, nil, ErrNoPendingImage
		}
		return sess.Pending.Data, Continue, nil
	})
}

func (s *IntakeService) runPhoto(ctx context.Context, id string, source func(*session.Session) ([]byte, Decider, error)) (PhotoResult, error) {
	var (
		out     Outcome
		gateErr *QualityGateError
	)
	sess, err := s.store.Update(ctx, id, func(sess *session.Session) error {
		if sess.Step != wizard.StepForm {
			return fmt.Errorf("%w: photos are submitted on the form step, session is on %s", ErrWrongStep, sess.Step)
		}
		data, decide, err := source(sess)
		if err != nil {
			return err
		}

		out, err = s.pipeline.Process(ctx, &sess.Record, data, s.creds.AIKey, decide)
		if errors.As(err, &gateErr) {
			sess.Pending = &session.PendingImage{Data: data, Quality: gateErr.Report, ReceivedAt: s.now()}
			sess.UpdatedAt = s.now()
			return nil
		}
		if err != nil {
			return err
		}

		q := out.Quality
		sess.LastQuality = &q
		sess.Pending = nil
		sess.UpdatedAt = s.now()
		if out.Analysis.OK() {
			return sess.Advance(s.now())
		}
		return nil
	})
	if err != nil {
		return PhotoResult{}, err
	}
	if gateErr != nil {
		s.publish(EventPhotoAwaiting, sess)
		return PhotoResult{Session: sess, Outcome: out, AwaitingConfirmation: true}, gateErr
	}
	if out.Analysis.OK() {
		s.publish(EventPhotoAnalyzed, sess)
	} else {
		s.publish(EventPhotoAnalysisFailed, sess)
	}
	return PhotoResult{Session: sess, Outcome: out}, nil
}

// Document exports the session.
func (s *IntakeService) Document(ctx context.Context, id string) (report.Document, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return report.Document{}, err
	}
	return sess.Document(s.now()), nil
}
