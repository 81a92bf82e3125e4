package geo

import (
	"fmt"
	"strings"
)

// Address is the postal address returned by a ZIP lookup.
type Address struct {
	CEP      string `json:"cep" yaml:"cep"`
	Street   string `json:"street" yaml:"street"`
	District string `json:"district" yaml:"district"`
	City     string `json:"city" yaml:"city"`
	State    string `json:"state" yaml:"state"`
}

// Line formats the address for a geocoding query. An empty number is
// left out.
func (a Address) Line(number string) string {
	street := a.Street
	if n := strings.TrimSpace(number); n != "" && street != "" {
		street = street + ", " + n
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{street, a.District, a.City, a.State, "Brasil"} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Location is the address attached to a report. Coordinates are nil when
// geocoding was unavailable or failed.
type Location struct {
	Address     Address      `json:"address" yaml:"address"`
	Number      string       `json:"number,omitempty" yaml:"number,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
}
