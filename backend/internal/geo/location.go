package geo

import (
	"strings"

	apperrors "bookmap/backend/pkg/errors"
)

// Location is a parsed birthplace as supplied by the birthplace parser.
// Latitude and Longitude are optional; the geocoder may leave them unset.
type Location struct {
	City      string   `json:"city" yaml:"city"`
	Region    string   `json:"region,omitempty" yaml:"region,omitempty"`
	Country   string   `json:"country" yaml:"country"`
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// Normalized returns a copy with surrounding whitespace trimmed and inner
// whitespace runs collapsed. No other folding is applied: names that differ
// after this step are different places.
func (l Location) Normalized() Location {
	l.City = NormalizeName(l.City)
	l.Region = NormalizeName(l.Region)
	l.Country = NormalizeName(l.Country)
	return l
}

// Validate checks the record shape. It does not touch storage.
func (l Location) Validate() error {
	if l.Country == "" {
		if l.Region != "" {
			return apperrors.NewValidation("country", "region supplied without country")
		}
		return apperrors.NewValidation("country", "required")
	}
	if l.City == "" {
		return apperrors.NewValidation("city", "required")
	}
	if c, ok := l.Coordinates(); ok {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HasRegion reports whether the city hangs off a region rather than the country
func (l Location) HasRegion() bool {
	return l.Region != ""
}

// Coordinates returns the coordinate pair when both halves are present.
func (l Location) Coordinates() (Coordinates, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}, true
}

// NormalizeName trims a place name and collapses inner whitespace runs
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
