package graph

import (
	"strings"

	"bookmap/backend/internal/geo"
	apperrors "bookmap/backend/pkg/errors"
)

// ============================================================================
// Graph Types
// ============================================================================

// Node is a minimal reference to a geographic node
type Node struct {
	Kind geo.Kind `json:"kind"`
	UID  string   `json:"uid"`
	Name string   `json:"name"`
}

// Country is the root of the hierarchy; its name is globally unique
type Country struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Node returns the country as a generic node reference
func (c Country) Node() Node { return Node{Kind: geo.KindCountry, UID: c.UID, Name: c.Name} }

// Region is a state, province or county inside exactly one country
type Region struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Node returns the region as a generic node reference
func (r Region) Node() Node { return Node{Kind: geo.KindRegion, UID: r.UID, Name: r.Name} }

// City hangs off either a Region or a Country, never both
type City struct {
	UID           string   `json:"uid"`
	Name          string   `json:"name"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	CoordinateKey string   `json:"coordinate_key,omitempty"`
	Geohash       string   `json:"geohash,omitempty"`
	S2Cell        string   `json:"s2_cell,omitempty"`
}

// Node returns the city as a generic node reference
func (c City) Node() Node { return Node{Kind: geo.KindCity, UID: c.UID, Name: c.Name} }

// HasCoordinates reports whether the city is identified by a coordinate key
func (c City) HasCoordinates() bool { return c.CoordinateKey != "" }

// Author is a biographical entity keyed by its Goodreads id
type Author struct {
	GoodreadsID   string `json:"goodreads_id" yaml:"goodreads_id"`
	Name          string `json:"name" yaml:"name"`
	GoodreadsLink string `json:"goodreads_link,omitempty" yaml:"goodreads_link,omitempty"`
}

// Normalized trims surrounding whitespace from every field
func (a Author) Normalized() Author {
	a.GoodreadsID = strings.TrimSpace(a.GoodreadsID)
	a.Name = strings.TrimSpace(a.Name)
	a.GoodreadsLink = strings.TrimSpace(a.GoodreadsLink)
	return a
}

// Validate checks the required author fields
func (a Author) Validate() error {
	if a.GoodreadsID == "" {
		return apperrors.NewValidation("goodreads_id", "required")
	}
	if a.Name == "" {
		return apperrors.NewValidation("name", "required")
	}
	return nil
}

// Resolution is the outcome of resolving one location record
type Resolution struct {
	Country        Country `json:"country"`
	Region         *Region `json:"region,omitempty"`
	City           City    `json:"city"`
	CityParent     Node    `json:"city_parent"`
	CountryCreated bool    `json:"country_created"`
	RegionCreated  bool    `json:"region_created"`
	CityCreated    bool    `json:"city_created"`
}
