package graph

import (
	"context"
	"time"

	"bookmap/backend/internal/constants"
	"bookmap/backend/internal/geo"
	apperrors "bookmap/backend/pkg/errors"
)

// Exists reports whether a node named child is directly WITHIN a node named
// parent, for the given kind pair.
func (r *Repository) Exists(ctx context.Context, pair geo.Pair, child, parent string) (bool, error) {
	if !pair.Valid() {
		return false, apperrors.NewValidation("pair", "unknown hierarchy pair")
	}
	child = geo.NormalizeName(child)
	parent = geo.NormalizeName(parent)
	if child == "" || parent == "" {
		return false, apperrors.NewValidation("name", "child and parent are required")
	}

	start := time.Now()
	out, err := r.read(ctx, constants.OpExistenceCheck, func(tx geoTx) (any, error) {
		return tx.exists(ctx, pair, child, parent)
	})
	r.metrics.RecordOperation(constants.OpExistenceCheck, err, time.Since(start))
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// CityInRegion reports whether city is directly within region
func (r *Repository) CityInRegion(ctx context.Context, city, region string) (bool, error) {
	return r.Exists(ctx, geo.CityInRegion, city, region)
}

// CityInCountry reports whether city is directly within country
func (r *Repository) CityInCountry(ctx context.Context, city, country string) (bool, error) {
	return r.Exists(ctx, geo.CityInCountry, city, country)
}

// RegionInCountry reports whether region is within country
func (r *Repository) RegionInCountry(ctx context.Context, region, country string) (bool, error) {
	return r.Exists(ctx, geo.RegionInCountry, region, country)
}

// CityAtCoordinates returns the city stored under the coordinate key of
// (lat, lon), or nil. When coordinates are in use this is the existence
// check, not the name predicates.
func (r *Repository) CityAtCoordinates(ctx context.Context, lat, lon float64) (*City, error) {
	key, err := geo.CoordinateKey(lat, lon)
	if err != nil {
		return nil, err
	}

	out, err := r.read(ctx, constants.OpExistenceCheck, func(tx geoTx) (any, error) {
		return tx.findCityByKey(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return out.(*City), nil
}
