package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bookmap/backend/internal/geo"
)

// Lock keys serialise get-or-create for identities that have no storage
// uniqueness constraint. Both are scoped by the parent's uid, so same-named
// regions or cities under different parents never contend.
func regionLockKey(countryUID, name string) string {
	return fmt.Sprintf("region:%s:%s", countryUID, name)
}

func cityLockKey(parent Node, name string) string {
	return fmt.Sprintf("city:%s:%s:%s", parent.Kind, parent.UID, name)
}

// resolveCountry is a plain MERGE; the country_name constraint arbitrates
// concurrent creators.
func (r *Repository) resolveCountry(ctx context.Context, tx geoTx, name string) (Country, bool, error) {
	return tx.mergeCountry(ctx, name)
}

// resolveRegion fetches the region named name inside country, or creates an
// unlinked one. The caller links it.
func (r *Repository) resolveRegion(ctx context.Context, tx geoTx, name string, country Country) (Region, bool, error) {
	if err := tx.lockIdentity(ctx, regionLockKey(country.UID, name)); err != nil {
		return Region{}, false, err
	}

	existing, err := tx.findRegion(ctx, name, country.UID)
	if err != nil {
		return Region{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	region, err := tx.createRegion(ctx, name)
	if err != nil {
		return Region{}, false, err
	}
	return region, true, nil
}

// resolveCity returns the city denoted by identity under parent, creating a
// bare (unlinked) city when none matches.
//
// Reconciliation between the two identity schemes:
//   - a coordinate key that is already stored always wins, whatever the name
//   - an unknown coordinate key adopts a same-named city under the same
//     parent that has no coordinates yet
//   - a name-keyed record matches any same-named city under the parent,
//     preferring one with coordinates
func (r *Repository) resolveCity(ctx context.Context, tx geoTx, identity geo.CityIdentity, name string, parent Node) (City, bool, error) {
	switch id := identity.(type) {
	case geo.ByCoordinates:
		return r.resolveCityByCoordinates(ctx, tx, id, name, parent)
	case geo.ByNameAndParent:
		return r.resolveCityByName(ctx, tx, name, parent)
	default:
		return City{}, false, fmt.Errorf("unsupported city identity %T", identity)
	}
}

func (r *Repository) resolveCityByCoordinates(ctx context.Context, tx geoTx, id geo.ByCoordinates, name string, parent Node) (City, bool, error) {
	existing, err := tx.findCityByKey(ctx, id.Key)
	if err != nil {
		return City{}, false, err
	}
	if existing != nil {
		if existing.Name != name {
			r.logger.Debug("Coordinate key matched a differently named city",
				zap.String("key", id.Key),
				zap.String("stored_name", existing.Name),
				zap.String("record_name", name),
			)
		}
		return *existing, false, nil
	}

	// Adoption mutates a name-scoped city, so it takes the same lock as the
	// name path.
	if err := tx.lockIdentity(ctx, cityLockKey(parent, name)); err != nil {
		return City{}, false, err
	}

	candidates, err := tx.findCitiesUnder(ctx, name, parent)
	if err != nil {
		return City{}, false, err
	}
	for _, candidate := range candidates {
		if candidate.HasCoordinates() {
			continue
		}
		adopted, err := tx.setCityCoordinates(ctx, candidate.UID, id.Coordinates)
		if err != nil {
			return City{}, false, err
		}
		r.logger.Info("Adopted name-keyed city for coordinates",
			zap.String("uid", adopted.UID),
			zap.String("name", name),
			zap.String("key", id.Key),
		)
		return adopted, false, nil
	}

	city, err := tx.createCity(ctx, name, &id.Coordinates)
	if err != nil {
		return City{}, false, err
	}
	return city, true, nil
}

func (r *Repository) resolveCityByName(ctx context.Context, tx geoTx, name string, parent Node) (City, bool, error) {
	if err := tx.lockIdentity(ctx, cityLockKey(parent, name)); err != nil {
		return City{}, false, err
	}

	candidates, err := tx.findCitiesUnder(ctx, name, parent)
	if err != nil {
		return City{}, false, err
	}
	if len(candidates) > 0 {
		return candidates[0], false, nil
	}

	city, err := tx.createCity(ctx, name, nil)
	if err != nil {
		return City{}, false, err
	}
	return city, true, nil
}
