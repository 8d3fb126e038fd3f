package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/otcheredev/report-resolver/internal/adapters"
	"github.com/otcheredev/report-resolver/internal/cache"
	"github.com/otcheredev/report-resolver/internal/models"
)

// stubSource is a canned report source for pipeline tests
type stubSource struct {
	name  models.SourceKind
	ref   *models.ReportReference
	err   error
	panic bool
	calls int
}

func (s *stubSource) Name() models.SourceKind {
	return s.name
}

func (s *stubSource) TryResolve(ctx context.Context, query models.ReportQuery) (*models.ReportReference, error) {
	s.calls++
	if s.panic {
		panic("adapter exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.ref, nil
}

func missing(name models.SourceKind) *stubSource {
	return &stubSource{name: name, err: adapters.ErrNotFound}
}

func broken(name models.SourceKind) *stubSource {
	return &stubSource{name: name, err: errors.New("credential not configured")}
}

func found(name models.SourceKind, url string) *stubSource {
	return &stubSource{name: name, ref: &models.ReportReference{
		Source:  name,
		URL:     url,
		URLKind: models.URLKindViewInline,
	}}
}

func patientQuery(id int64) models.ReportQuery {
	return models.ReportQuery{PatientID: &id}
}

func TestResolveEmptyQueryIsPendingWithoutCalls(t *testing.T) {
	local := missing(models.SourceLocal)
	cached := missing(models.SourceCached)
	vendor := missing(models.SourceVendor)
	p := NewPipeline([]adapters.ReportSource{local, cached, vendor})

	outcome := p.Resolve(context.Background(), models.ReportQuery{})
	if outcome.State != models.StatePending {
		t.Fatalf("Expected pending, got %s", outcome.State)
	}
	if local.calls+cached.calls+vendor.calls != 0 {
		t.Errorf("Expected no adapter calls, got %d/%d/%d", local.calls, cached.calls, vendor.calls)
	}
}

func TestResolveShortCircuitsOnFirstHit(t *testing.T) {
	local := found(models.SourceLocal, "https://local.example/report.pdf")
	cached := missing(models.SourceCached)
	vendor := missing(models.SourceVendor)
	p := NewPipeline([]adapters.ReportSource{local, cached, vendor})

	outcome := p.Resolve(context.Background(), patientQuery(1))
	if outcome.State != models.StateReady {
		t.Fatalf("Expected ready, got %s", outcome.State)
	}
	if outcome.Report.Source != models.SourceLocal {
		t.Errorf("Expected local source, got %s", outcome.Report.Source)
	}
	if cached.calls != 0 || vendor.calls != 0 {
		t.Errorf("Later adapters must not run after a hit, got cached=%d vendor=%d", cached.calls, vendor.calls)
	}
}

func TestResolveFallsThroughToVendor(t *testing.T) {
	local := missing(models.SourceLocal)
	cached := missing(models.SourceCached)
	vendor := found(models.SourceVendor, "https://cdn.vendor.example/r.pdf")
	p := NewPipeline([]adapters.ReportSource{local, cached, vendor})

	outcome := p.Resolve(context.Background(), patientQuery(1))
	if outcome.State != models.StateReady {
		t.Fatalf("Expected ready, got %s", outcome.State)
	}
	if outcome.Report.Source != models.SourceVendor {
		t.Errorf("Expected vendor source, got %s", outcome.Report.Source)
	}
	if local.calls != 1 || cached.calls != 1 {
		t.Errorf("Earlier adapters must each be tried once, got local=%d cached=%d", local.calls, cached.calls)
	}
}

func TestResolveAllMissesIsPending(t *testing.T) {
	p := NewPipeline([]adapters.ReportSource{
		missing(models.SourceLocal),
		missing(models.SourceCached),
		missing(models.SourceVendor),
	})

	outcome := p.Resolve(context.Background(), patientQuery(1))
	if outcome.State != models.StatePending {
		t.Fatalf("Expected pending, got %s", outcome.State)
	}
}

func TestResolveAllFailuresIsUnavailable(t *testing.T) {
	p := NewPipeline([]adapters.ReportSource{
		broken(models.SourceLocal),
		broken(models.SourceCached),
		broken(models.SourceVendor),
	})

	outcome := p.Resolve(context.Background(), patientQuery(1))
	if outcome.State != models.StateUnavailable {
		t.Fatalf("Expected unavailable, got %s", outcome.State)
	}
	if outcome.Reason == "" {
		t.Error("Unavailable outcome must carry a reason")
	}
}

func TestResolveMixedFailureAndMissIsPending(t *testing.T) {
	// One source cleanly reporting not-found means the report is genuinely
	// pending, no matter how many other sources broke
	p := NewPipeline([]adapters.ReportSource{
		broken(models.SourceLocal),
		missing(models.SourceCached),
		broken(models.SourceVendor),
	})

	outcome := p.Resolve(context.Background(), patientQuery(1))
	if outcome.State != models.StatePending {
		t.Fatalf("Expected pending, got %s", outcome.State)
	}
}

func TestResolveRecoversAdapterPanic(t *testing.T) {
	p := NewPipeline([]adapters.ReportSource{
		&stubSource{name: models.SourceLocal, panic: true},
		missing(models.SourceCached),
		missing(models.SourceVendor),
	})

	outcome := p.Resolve(context.Background(), patientQuery(1))
	if outcome.State != models.StatePending {
		t.Fatalf("A panicking adapter must degrade to a failure, got %s", outcome.State)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	p := NewPipeline([]adapters.ReportSource{
		missing(models.SourceLocal),
		missing(models.SourceCached),
		found(models.SourceVendor, "https://cdn.vendor.example/r.pdf"),
	})

	first := p.Resolve(context.Background(), patientQuery(1))
	second := p.Resolve(context.Background(), patientQuery(1))
	if first.State != second.State {
		t.Fatalf("Outcome changed between identical calls: %s vs %s", first.State, second.State)
	}
	if first.Report.URL != second.Report.URL {
		t.Errorf("Report URL changed between identical calls: %q vs %q", first.Report.URL, second.Report.URL)
	}
}

func TestResolveWritesBackToCache(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()

	p := NewPipeline([]adapters.ReportSource{
		missing(models.SourceLocal),
		missing(models.SourceCached),
		found(models.SourceVendor, "https://objectstore.example.net/second-opinion/1.pdf"),
	}, WithCache(c, time.Hour))

	outcome := p.Resolve(context.Background(), patientQuery(1))
	if outcome.State != models.StateReady {
		t.Fatalf("Expected ready, got %s", outcome.State)
	}

	data, err := c.Get(context.Background(), cache.ReportURLKey("patient:1"))
	if err != nil {
		t.Fatalf("Expected cache entry after success: %v", err)
	}
	entry, err := cache.DecodeEntry(data)
	if err != nil {
		t.Fatalf("Failed to decode entry: %v", err)
	}
	if entry.URL != "https://objectstore.example.net/second-opinion/1.pdf" {
		t.Errorf("Unexpected cached URL: %q", entry.URL)
	}
}

func TestInvalidateDropsCacheEntry(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()

	p := NewPipeline([]adapters.ReportSource{
		found(models.SourceLocal, "https://local.example/r.pdf"),
	}, WithCache(c, time.Hour))

	query := patientQuery(3)
	p.Resolve(context.Background(), query)

	if err := p.Invalidate(context.Background(), query); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := c.Get(context.Background(), cache.ReportURLKey("patient:3")); err != cache.ErrCacheMiss {
		t.Errorf("Expected cache miss after invalidation, got %v", err)
	}
}
