package graph

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"bookmap/backend/internal/constants"
	"bookmap/backend/internal/geo"
	apperrors "bookmap/backend/pkg/errors"
)

const ancestorCache = "ancestor"

// AncestorOf walks from the author's birth city up the hierarchy and returns
// the first node of kind, which must be Region or Country. A nil node with a
// nil error means the author has no birth city or the walk does not reach
// that kind.
func (r *Repository) AncestorOf(ctx context.Context, goodreadsID string, kind geo.Kind) (*Node, error) {
	start := time.Now()

	goodreadsID = strings.TrimSpace(goodreadsID)
	if goodreadsID == "" {
		return nil, apperrors.NewValidation("goodreads_id", "required")
	}
	if kind != geo.KindRegion && kind != geo.KindCountry {
		return nil, apperrors.NewValidation("kind", "must be region or country")
	}

	key := goodreadsID + "/" + kind.String()
	if r.ancestors != nil {
		if cached, ok := r.ancestors.Get(key); ok {
			r.metrics.RecordCacheLookup(ancestorCache, true)
			node := cached.(Node)
			return &node, nil
		}
		r.metrics.RecordCacheLookup(ancestorCache, false)
	}

	out, err := r.read(ctx, constants.OpAncestorQuery, func(tx geoTx) (any, error) {
		return tx.ancestor(ctx, goodreadsID, kind)
	})
	r.metrics.RecordOperation(constants.OpAncestorQuery, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	node := out.(*Node)
	// Only positives are cached: a birth edge is never replaced, but an
	// author without one may gain it later.
	if node != nil && r.ancestors != nil {
		r.ancestors.Set(key, *node, cache.DefaultExpiration)
	}
	return node, nil
}
