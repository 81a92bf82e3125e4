package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
)

const defaultGeocodeBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleGeocoder turns address lines into coordinates with the Google
// Geocoding API.
type GoogleGeocoder struct {
	endpoint
}

func NewGoogleGeocoder(opts ...Option) *GoogleGeocoder {
	return &GoogleGeocoder{endpoint: newEndpoint(defaultGeocodeBaseURL, opts)}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode returns the first match for address. Any status other than OK
// is returned as *geo.StatusError.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address, apiKey string) (geo.Coordinates, error) {
	if apiKey == "" {
		return geo.Coordinates{}, geo.ErrMissingAPIKey
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return geo.Coordinates{}, &geo.StatusError{Status: "INVALID_REQUEST", Message: "empty address"}
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("region", "br")
	q.Set("key", apiKey)

	resp, err := g.get(ctx, g.baseURL+"?"+q.Encode())
	if err != nil {
		return geo.Coordinates{}, err
	}

	var body geocodeResponse
	if err := json.Unmarshal(resp.body, &body); err != nil {
		if resp.status != http.StatusOK {
			return geo.Coordinates{}, &geo.StatusError{Status: fmt.Sprintf("HTTP_%d", resp.status)}
		}
		return geo.Coordinates{}, fmt.Errorf("%w: malformed geocoding response: %v", geo.ErrLookupFailed, err)
	}
	if body.Status != "OK" {
		status := body.Status
		if status == "" {
			status = fmt.Sprintf("HTTP_%d", resp.status)
		}
		return geo.Coordinates{}, &geo.StatusError{Status: status, Message: body.ErrorMessage}
	}
	if len(body.Results) == 0 {
		return geo.Coordinates{}, &geo.StatusError{Status: "ZERO_RESULTS"}
	}

	loc := body.Results[0].Geometry.Location
	return geo.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}
