package geo

import (
	"fmt"
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"

	apperrors "bookmap/backend/pkg/errors"
)

// coordinatePrecision is the number of decimals kept in a coordinate key
// (about 1cm at the equator, the precision geocoders return).
const coordinatePrecision = 7

// cellLevel is the S2 level stored on cities, roughly 1km² cells.
const cellLevel = 13

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects NaN and out of range values.
func (c Coordinates) Validate() error {
	if !s2.LatLngFromDegrees(c.Latitude, c.Longitude).IsValid() {
		return apperrors.NewValidation("coordinates",
			fmt.Sprintf("out of range: %v, %v", c.Latitude, c.Longitude))
	}
	return nil
}

// Key returns the canonical coordinate key. Equal coordinates always yield the
// same key no matter how the caller formatted them.
func (c Coordinates) Key() string {
	return fmt.Sprintf("lat:%.*f long:%.*f",
		coordinatePrecision, roundCoordinate(c.Latitude),
		coordinatePrecision, roundCoordinate(c.Longitude))
}

// Geohash returns the full precision geohash of the pair
func (c Coordinates) Geohash() string {
	return geohash.Encode(c.Latitude, c.Longitude)
}

// CellToken returns the token of the S2 cell containing the pair
func (c Coordinates) CellToken() string {
	ll := s2.LatLngFromDegrees(c.Latitude, c.Longitude)
	return s2.CellIDFromLatLng(ll).Parent(cellLevel).ToToken()
}

func roundCoordinate(v float64) float64 {
	scale := math.Pow10(coordinatePrecision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		// folds -0 into 0 so "-0.0000000" never appears in a key
		return 0
	}
	return r
}

// CoordinateKey validates the pair and returns its key.
func CoordinateKey(lat, lon float64) (string, error) {
	c := Coordinates{Latitude: lat, Longitude: lon}
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c.Key(), nil
}

// ParentRef names the direct parent a city is scoped to when it is identified
// by name. For a region parent, Country disambiguates same-named regions.
type ParentRef struct {
	Kind    Kind
	Name    string
	Country string
}

func (p ParentRef) String() string {
	if p.Kind == KindRegion {
		return fmt.Sprintf("%s:%s/%s", p.Kind, p.Country, p.Name)
	}
	return fmt.Sprintf("%s:%s", p.Kind, p.Name)
}

// CityIdentity is the key used to decide whether a record denotes an existing
// City. It is either ByCoordinates or ByNameAndParent.
type CityIdentity interface {
	fmt.Stringer
	cityIdentity()
}

// ByCoordinates identifies a city by its coordinate key alone.
type ByCoordinates struct {
	Key         string
	Coordinates Coordinates
}

func (ByCoordinates) cityIdentity() {}

func (b ByCoordinates) String() string { return b.Key }

// ByNameAndParent identifies a city by its name within its direct parent.
type ByNameAndParent struct {
	Name   string
	Parent ParentRef
}

func (ByNameAndParent) cityIdentity() {}

func (b ByNameAndParent) String() string {
	return fmt.Sprintf("city:%s@%s", b.Name, b.Parent)
}

// DirectParent returns the reference of the node the city attaches to:
// the region when one is given, the country otherwise.
func DirectParent(loc Location) ParentRef {
	if loc.HasRegion() {
		return ParentRef{Kind: KindRegion, Name: loc.Region, Country: loc.Country}
	}
	return ParentRef{Kind: KindCountry, Name: loc.Country, Country: loc.Country}
}

// ResolveIdentity computes the identity of the City described by loc. The
// record is normalised and validated first; the function has no side effects.
func ResolveIdentity(loc Location) (CityIdentity, error) {
	loc = loc.Normalized()
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if c, ok := loc.Coordinates(); ok {
		return ByCoordinates{Key: c.Key(), Coordinates: c}, nil
	}
	return ByNameAndParent{Name: loc.City, Parent: DirectParent(loc)}, nil
}
