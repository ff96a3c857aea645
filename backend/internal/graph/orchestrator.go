package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bookmap/backend/internal/constants"
	"bookmap/backend/internal/geo"
)

// ResolveOrCreate resolves a location record to its Country, optional Region
// and City, creating whatever is missing and linking the hierarchy. The whole
// sequence is one write transaction; any failure leaves no partial state.
func (r *Repository) ResolveOrCreate(ctx context.Context, loc geo.Location) (*Resolution, error) {
	start := time.Now()

	loc = loc.Normalized()
	identity, err := geo.ResolveIdentity(loc)
	if err != nil {
		r.metrics.RecordOperation(constants.OpResolveLocation, err, time.Since(start))
		return nil, err
	}

	out, err := r.write(ctx, constants.OpResolveLocation, func(tx geoTx) (any, error) {
		return r.resolveInTx(ctx, tx, loc, identity)
	})
	r.metrics.RecordOperation(constants.OpResolveLocation, err, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to resolve location",
			zap.String("city", loc.City),
			zap.String("region", loc.Region),
			zap.String("country", loc.Country),
			zap.Error(err),
		)
		return nil, err
	}

	res := out.(*Resolution)
	r.recordResolution(res)
	r.logger.Debug("Resolved location",
		zap.String("identity", identity.String()),
		zap.String("city_uid", res.City.UID),
		zap.Bool("city_created", res.CityCreated),
		zap.Bool("region_created", res.RegionCreated),
		zap.Bool("country_created", res.CountryCreated),
	)
	return res, nil
}

// resolveInTx runs Country → Region → City → link inside tx. loc must be
// normalised and identity derived from it.
func (r *Repository) resolveInTx(ctx context.Context, tx geoTx, loc geo.Location, identity geo.CityIdentity) (*Resolution, error) {
	country, countryCreated, err := r.resolveCountry(ctx, tx, loc.Country)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Country:        country,
		CountryCreated: countryCreated,
		CityParent:     country.Node(),
	}

	if loc.HasRegion() {
		region, regionCreated, err := r.resolveRegion(ctx, tx, loc.Region, country)
		if err != nil {
			return nil, err
		}
		res.Region = &region
		res.RegionCreated = regionCreated
		res.CityParent = region.Node()
	}

	city, cityCreated, err := r.resolveCity(ctx, tx, identity, loc.City, res.CityParent)
	if err != nil {
		return nil, err
	}
	res.City = city
	res.CityCreated = cityCreated

	if err := r.link(ctx, tx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// recordResolution is called after commit so re-runs are not double counted
func (r *Repository) recordResolution(res *Resolution) {
	r.metrics.RecordResolution("country", res.CountryCreated)
	if res.Region != nil {
		r.metrics.RecordResolution("region", res.RegionCreated)
	}
	r.metrics.RecordResolution("city", res.CityCreated)
}
