package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"bookmap/backend/internal/constants"
	"bookmap/backend/internal/metrics"
	"bookmap/backend/pkg/config"
	apperrors "bookmap/backend/pkg/errors"
	"bookmap/backend/pkg/logger"
)

// Repository resolves locations and authors against the Neo4j graph
type Repository struct {
	driver          neo4j.DriverWithContext
	runner          txRunner
	logger          *zap.Logger
	metrics         *metrics.GeoMetrics
	ancestors       *cache.Cache
	ancestorTTL     time.Duration
	database        string
	conflictRetries int
}

// Option configures a Repository
type Option func(*Repository)

// WithMetrics records resolution metrics on m
func WithMetrics(m *metrics.GeoMetrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithAncestorCacheTTL sets how long ancestor results are cached. Zero disables the cache.
func WithAncestorCacheTTL(ttl time.Duration) Option {
	return func(r *Repository) { r.ancestorTTL = ttl }
}

// WithConflictRetries sets how many times a unit of work is re-run after a
// uniqueness conflict
func WithConflictRetries(n int) Option {
	return func(r *Repository) {
		if n >= 0 {
			r.conflictRetries = n
		}
	}
}

// WithDatabase selects the Neo4j database; empty uses the server default
func WithDatabase(name string) Option {
	return func(r *Repository) { r.database = name }
}

// WithLogger replaces the component logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext, opts ...Option) *Repository {
	r := newRepository(opts...)
	r.driver = driver
	r.runner = &neo4jRunner{driver: driver, database: r.database}
	return r
}

// Open connects to the Neo4j instance described by cfg, verifies
// connectivity and returns a repository configured from cfg. opts are
// applied after the config-derived options.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
		func(c *neo4jconfig.Config) {
			c.MaxTransactionRetryTime = cfg.Neo4jMaxTxTime
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	base := []Option{
		WithDatabase(cfg.Neo4jDatabase),
		WithConflictRetries(cfg.ConflictRetries),
		WithAncestorCacheTTL(cfg.AncestorCacheTTL),
	}
	return NewRepository(driver, append(base, opts...)...), nil
}

func newRepositoryWithRunner(runner txRunner, opts ...Option) *Repository {
	r := newRepository(opts...)
	r.runner = runner
	return r
}

func newRepository(opts ...Option) *Repository {
	r := &Repository{
		logger:          logger.Named("graph"),
		ancestorTTL:     constants.DefaultAncestorCacheTTL,
		conflictRetries: constants.DefaultConflictRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ancestorTTL > 0 {
		r.ancestors = cache.New(r.ancestorTTL, 2*r.ancestorTTL)
	}
	return r
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}
	return r.driver.Close(ctx)
}

// write runs work in a write transaction. A uniqueness conflict rolls the
// unit back and re-runs it so the get path observes the winner's node.
func (r *Repository) write(ctx context.Context, operation string, work txWork) (any, error) {
	attempts := r.conflictRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewContextCancelled(operation, err)
		}

		out, err := r.runner.write(ctx, work)
		if err == nil {
			return out, nil
		}
		if !isConflict(err) {
			return nil, classify(operation, err)
		}

		lastErr = err
		if attempt < attempts {
			r.metrics.RecordConflictRetry(operation)
			r.logger.Warn("Uniqueness conflict, re-running unit of work",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
	}

	r.logger.Error("Uniqueness conflict persisted after re-run",
		zap.String("operation", operation),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return nil, apperrors.NewConflict(operation, attempts, lastErr)
}

func (r *Repository) read(ctx context.Context, operation string, work txWork) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled(operation, err)
	}
	out, err := r.runner.read(ctx, work)
	if err != nil {
		return nil, classify(operation, err)
	}
	return out, nil
}
