package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bookmap/backend/internal/geo"
	"bookmap/backend/internal/graph"
	apperrors "bookmap/backend/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAttacher returns the record's country, or a validation error for
// authors listed in fail
type fakeAttacher struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeAttacher) Attach(ctx context.Context, author graph.Author, loc *geo.Location) (*graph.Country, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, author.GoodreadsID)
	f.mu.Unlock()

	if f.fail[author.GoodreadsID] {
		return nil, apperrors.NewValidation("name", "required")
	}
	if loc == nil {
		return nil, nil
	}
	return &graph.Country{UID: "uid-" + loc.Country, Name: loc.Country}, nil
}

func record(id, city, country string) Record {
	rec := Record{Author: graph.Author{GoodreadsID: id, Name: "Author " + id}}
	if city != "" {
		rec.Birthplace = &geo.Location{City: city, Country: country}
	}
	return rec
}

func TestPipeline_Run(t *testing.T) {
	attacher := &fakeAttacher{fail: map[string]bool{"2": true}}
	pipeline := NewPipeline(attacher, 2, nil)

	records := []Record{
		record("1", "Tel Aviv", "Israel"),
		record("2", "Paris", "France"),
		record("3", "", ""),
		record("4", "Fortaleza", "Brazil"),
	}

	report, err := pipeline.Run(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, len(records))

	assert.Equal(t, 3, report.Succeeded())
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "2", failed[0].GoodreadsID)
	assert.True(t, apperrors.IsValidation(failed[0].Err))

	// outcomes keep input order regardless of completion order
	got := make([]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		got = append(got, o.GoodreadsID)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, got); diff != "" {
		t.Errorf("outcome order mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Israel", report.Outcomes[0].Country.Name)
	assert.Nil(t, report.Outcomes[2].Country)
	assert.Len(t, attacher.calls, len(records), "a failed record must not stop the others")
}

func TestPipeline_BoundsConcurrency(t *testing.T) {
	attacher := &fakeAttacher{delay: 5 * time.Millisecond}
	pipeline := NewPipeline(attacher, 3, nil)

	records := make([]Record, 20)
	for i := range records {
		records[i] = record(string(rune('a'+i)), "Tel Aviv", "Israel")
	}

	report, err := pipeline.Run(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, len(records), report.Succeeded())
	assert.LessOrEqual(t, attacher.peak.Load(), int32(3))
}

func TestPipeline_Cancelled(t *testing.T) {
	attacher := &fakeAttacher{}
	pipeline := NewPipeline(attacher, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := pipeline.Run(ctx, []Record{record("1", "Tel Aviv", "Israel")})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, errors.Is(report.Outcomes[0].Err, context.Canceled))
	assert.Empty(t, attacher.calls)
}

func TestNewPipeline_DefaultWorkers(t *testing.T) {
	pipeline := NewPipeline(&fakeAttacher{}, 0, nil)
	assert.Equal(t, 4, pipeline.workers)
}

func TestLoadFixtures(t *testing.T) {
	records, err := LoadFixtures(filepath.Join("..", "..", "fixtures", "authors.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, records)

	first := records[0]
	assert.Equal(t, "Clarice Lispector", first.Author.Name)
	require.NotNil(t, first.Birthplace)
	assert.Equal(t, "Vinnytsia Oblast", first.Birthplace.Region)
	_, ok := first.Birthplace.Coordinates()
	assert.True(t, ok)

	last := records[len(records)-1]
	assert.Nil(t, last.Birthplace)
}

func TestParseFixtures(t *testing.T) {
	records, err := ParseFixtures([]byte(`
authors:
  - author: {goodreads_id: "1", name: A}
    birthplace: {city: Tel Aviv, country: Israel}
`))
	require.NoError(t, err)
	want := []Record{{
		Author:     graph.Author{GoodreadsID: "1", Name: "A"},
		Birthplace: &geo.Location{City: "Tel Aviv", Country: "Israel"},
	}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("fixtures mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseFixtures([]byte(`authors: [{author: {name: A}}]`))
	assert.Error(t, err)

	_, err = ParseFixtures([]byte(`authors: {`))
	assert.Error(t, err)
}
