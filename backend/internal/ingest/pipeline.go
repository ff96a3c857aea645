// Package ingest attaches batches of authors to their birthplaces.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookmap/backend/internal/constants"
	"bookmap/backend/internal/geo"
	"bookmap/backend/internal/graph"
	"bookmap/backend/internal/metrics"
	"bookmap/backend/pkg/logger"
)

// Attacher links an author to an optional birthplace
type Attacher interface {
	Attach(ctx context.Context, author graph.Author, loc *geo.Location) (*graph.Country, error)
}

// Record is one author with the parsed birthplace, if any
type Record struct {
	Author     graph.Author  `json:"author" yaml:"author"`
	Birthplace *geo.Location `json:"birthplace,omitempty" yaml:"birthplace,omitempty"`
}

// Outcome is the result of attaching one record
type Outcome struct {
	GoodreadsID string         `json:"goodreads_id"`
	Country     *graph.Country `json:"country,omitempty"`
	Err         error          `json:"-"`
}

// Report collects per-record outcomes in input order
type Report struct {
	Outcomes []Outcome
	Duration time.Duration
}

// Succeeded returns the number of records attached without error
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that carry an error
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Pipeline attaches records concurrently with a bounded number of workers
type Pipeline struct {
	attacher Attacher
	workers  int
	metrics  *metrics.GeoMetrics
	logger   *zap.Logger
}

// NewPipeline creates a pipeline. workers <= 0 uses the default.
func NewPipeline(attacher Attacher, workers int, m *metrics.GeoMetrics) *Pipeline {
	if workers <= 0 {
		workers = constants.DefaultIngestWorkers
	}
	return &Pipeline{
		attacher: attacher,
		workers:  workers,
		metrics:  m,
		logger:   logger.Named("ingest"),
	}
}

// Run attaches every record. A failing record is reported in its Outcome and
// never stops the others; only cancellation of ctx is returned as an error.
func (p *Pipeline) Run(ctx context.Context, records []Record) (*Report, error) {
	start := time.Now()
	report := &Report{Outcomes: make([]Outcome, len(records))}

	var eg errgroup.Group
	eg.SetLimit(p.workers)

	for i, rec := range records {
		eg.Go(func() error {
			report.Outcomes[i] = p.attach(ctx, rec)
			return nil
		})
	}
	_ = eg.Wait()

	report.Duration = time.Since(start)
	p.logger.Info("Ingest finished",
		zap.Int("records", len(records)),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.Duration),
	)
	return report, ctx.Err()
}

func (p *Pipeline) attach(ctx context.Context, rec Record) Outcome {
	outcome := Outcome{GoodreadsID: rec.Author.GoodreadsID}
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		p.metrics.RecordIngest(metrics.StatusError)
		return outcome
	}

	country, err := p.attacher.Attach(ctx, rec.Author, rec.Birthplace)
	if err != nil {
		p.logger.Warn("Failed to attach author",
			zap.String("goodreads_id", rec.Author.GoodreadsID),
			zap.Error(err),
		)
		outcome.Err = err
		p.metrics.RecordIngest(metrics.StatusError)
		return outcome
	}

	outcome.Country = country
	p.metrics.RecordIngest(metrics.StatusSuccess)
	return outcome
}
