package geo

import (
	"errors"
	"fmt"
)

var (
	// ErrAddressNotFound covers both malformed codes and codes the lookup
	// service does not know.
	ErrAddressNotFound = errors.New("address not found")
	// ErrLookupFailed is returned when the upstream service could not be
	// reached or answered with garbage.
	ErrLookupFailed = errors.New("address lookup failed")
	// ErrMissingAPIKey is returned by the geocoder when no key is configured.
	ErrMissingAPIKey = errors.New("geocoding API key not provided (set GOOGLE_MAPS_API_KEY)")
)

// StatusError reports a geocoding answer whose status was not OK.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geocoding status %s: %s", e.Status, e.Message)
	}
	return "geocoding status " + e.Status
}

// NotFound reports whether the upstream simply had no match.
func (e *StatusError) NotFound() bool {
	return e.Status == "ZERO_RESULTS"
}
