package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
)

var (
	// ErrMissingAPIKey is a configuration error: no model credential was
	// supplied, so nothing was attempted.
	ErrMissingAPIKey = errors.New("AI API key not provided (set GEMINI_API_KEY)")
	// ErrQualityGateFailed is wrapped by QualityGateError.
	ErrQualityGateFailed = errors.New("image failed the quality gate")
	// ErrSessionNotFound is returned for unknown or ended sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrWrongStep is returned when an action is not available on the
	// session's current wizard step.
	ErrWrongStep = errors.New("action not available on this step")
	// ErrNoPendingImage is returned when confirming without a parked photo.
	ErrNoPendingImage = errors.New("no image is awaiting confirmation")
	// ErrEmptyImage is returned for uploads with no bytes.
	ErrEmptyImage = errors.New("image is empty")
)

// QualityGateError carries the report of a photo that failed the gate and
// was not overridden.
type QualityGateError struct {
	Report quality.Report
}

func (e *QualityGateError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQualityGateFailed, strings.Join(e.Report.Problems, ", "))
}

func (e *QualityGateError) Unwrap() error {
	return ErrQualityGateFailed
}
