package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "bookmap/backend/pkg/errors"
)

// link ensures the hierarchy edges for a resolution. With a region the chain
// is City→Region→Country; without one it is City→Country. Only the edges of
// the branch taken are ever issued, so a city never gets two parents.
func (r *Repository) link(ctx context.Context, tx geoTx, res *Resolution) error {
	if res.Region != nil {
		if err := r.ensureRegionParent(ctx, tx, *res.Region, res.Country); err != nil {
			return err
		}
	}

	parent, err := r.ensureCityParent(ctx, tx, res.City, res.CityParent)
	if err != nil {
		return err
	}
	res.CityParent = parent
	return nil
}

// ensureRegionParent connects region to country unless it already is. A
// region is never re-parented.
func (r *Repository) ensureRegionParent(ctx context.Context, tx geoTx, region Region, country Country) error {
	parent, err := tx.parentOf(ctx, region.Node())
	if err != nil {
		return err
	}
	if parent == nil {
		return tx.createWithin(ctx, region.Node(), country.Node())
	}
	if parent.UID != country.UID {
		return apperrors.NewInconsistency(region.UID,
			fmt.Sprintf("region %q is within %s %q, not %q", region.Name, parent.Kind, parent.Name, country.Name))
	}
	return nil
}

// ensureCityParent connects city to want unless it already has a parent and
// returns the parent the city ends up with. A city that already hangs off a
// different node keeps it.
func (r *Repository) ensureCityParent(ctx context.Context, tx geoTx, city City, want Node) (Node, error) {
	parent, err := tx.parentOf(ctx, city.Node())
	if err != nil {
		return Node{}, err
	}
	if parent == nil {
		if err := tx.createWithin(ctx, city.Node(), want); err != nil {
			return Node{}, err
		}
		return want, nil
	}
	if parent.UID != want.UID {
		r.logger.Warn("City already attached to a different parent, keeping it",
			zap.String("city_uid", city.UID),
			zap.String("city", city.Name),
			zap.String("stored_parent", parent.Name),
			zap.String("stored_parent_kind", parent.Kind.String()),
			zap.String("record_parent", want.Name),
		)
	}
	return *parent, nil
}
