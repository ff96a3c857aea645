package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bookmap/backend/internal/constants"
	"bookmap/backend/internal/geo"
	apperrors "bookmap/backend/pkg/errors"
)

type attachOutcome struct {
	country       *Country
	resolution    *Resolution
	authorCreated bool
}

// Attach creates or fetches the author and, when loc is given, resolves the
// birthplace and links the author to it in the same transaction. It returns
// the birth country, or nil when no location was supplied.
//
// An author that already has a birth city keeps it; the country of the
// stored city is returned in that case.
func (r *Repository) Attach(ctx context.Context, author Author, loc *geo.Location) (*Country, error) {
	start := time.Now()

	author = author.Normalized()
	if err := author.Validate(); err != nil {
		r.metrics.RecordOperation(constants.OpAttachAuthor, err, time.Since(start))
		return nil, err
	}

	var (
		normalized geo.Location
		identity   geo.CityIdentity
	)
	if loc != nil {
		normalized = loc.Normalized()
		var err error
		if identity, err = geo.ResolveIdentity(normalized); err != nil {
			r.metrics.RecordOperation(constants.OpAttachAuthor, err, time.Since(start))
			return nil, err
		}
	}

	out, err := r.write(ctx, constants.OpAttachAuthor, func(tx geoTx) (any, error) {
		stored, created, err := tx.mergeAuthor(ctx, author)
		if err != nil {
			return nil, err
		}
		outcome := &attachOutcome{authorCreated: created}
		if loc == nil {
			return outcome, nil
		}

		res, err := r.resolveInTx(ctx, tx, normalized, identity)
		if err != nil {
			return nil, err
		}
		outcome.resolution = res

		country, err := r.bornIn(ctx, tx, stored, res)
		if err != nil {
			return nil, err
		}
		outcome.country = country
		return outcome, nil
	})
	r.metrics.RecordOperation(constants.OpAttachAuthor, err, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to attach author",
			zap.String("goodreads_id", author.GoodreadsID),
			zap.Error(err),
		)
		return nil, err
	}

	outcome := out.(*attachOutcome)
	if outcome.resolution != nil {
		r.recordResolution(outcome.resolution)
	}
	r.logger.Debug("Attached author",
		zap.String("goodreads_id", author.GoodreadsID),
		zap.Bool("author_created", outcome.authorCreated),
		zap.Bool("has_birthplace", outcome.country != nil),
	)
	return outcome.country, nil
}

// bornIn ensures the BORN_IN edge from author to the resolved city and
// returns the author's birth country.
func (r *Repository) bornIn(ctx context.Context, tx geoTx, author Author, res *Resolution) (*Country, error) {
	current, err := tx.birthCity(ctx, author.GoodreadsID)
	if err != nil {
		return nil, err
	}

	if current == nil {
		if err := tx.createBornIn(ctx, author.GoodreadsID, res.City.UID); err != nil {
			return nil, err
		}
		country := res.Country
		return &country, nil
	}

	if current.UID == res.City.UID {
		country := res.Country
		return &country, nil
	}

	r.logger.Warn("Author already has a different birth city, keeping it",
		zap.String("goodreads_id", author.GoodreadsID),
		zap.String("stored_city", current.Name),
		zap.String("record_city", res.City.Name),
	)
	node, err := tx.ancestor(ctx, author.GoodreadsID, geo.KindCountry)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, apperrors.NewInconsistency(current.UID, "birth city does not reach a country")
	}
	return &Country{UID: node.UID, Name: node.Name}, nil
}
