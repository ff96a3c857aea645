package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bookmap/backend/internal/constants"
	apperrors "bookmap/backend/pkg/errors"
)

// EnsureSchema declares the uniqueness constraints and indexes the resolver
// relies on. It is safe to run on every start.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	r.logger.Info("Ensuring graph schema", zap.Int("statements", len(schemaStatements)))

	for _, statement := range schemaStatements {
		if err := ctx.Err(); err != nil {
			return apperrors.NewContextCancelled(constants.OpEnsureSchema, err)
		}
		if err := r.runner.run(ctx, statement); err != nil {
			if isAlreadyExists(err) {
				r.logger.Debug("Schema element already exists", zap.String("statement", statement))
				continue
			}
			r.metrics.RecordOperation(constants.OpEnsureSchema, err, time.Since(start))
			return classify(constants.OpEnsureSchema, err)
		}
	}

	r.metrics.RecordOperation(constants.OpEnsureSchema, nil, time.Since(start))
	r.logger.Info("Graph schema ready", zap.Duration("duration", time.Since(start)))
	return nil
}
