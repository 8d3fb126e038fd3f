package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/otcheredev/report-resolver/internal/adapters"
	"github.com/otcheredev/report-resolver/internal/cache"
	"github.com/otcheredev/report-resolver/internal/metrics"
	"github.com/otcheredev/report-resolver/internal/models"
	"github.com/otcheredev/report-resolver/pkg/logger"
)

// AuditSink persists one record per resolution pass. Optional.
type AuditSink interface {
	Create(ctx context.Context, audit *models.ResolutionAudit) error
}

// Pipeline is the report-acquisition orchestrator: it tries the configured
// sources in priority order, returns the first usable reference, and
// classifies the end result as ready, pending or unavailable. It never
// returns a Go error; failure is a value.
type Pipeline struct {
	sources  []adapters.ReportSource
	cache    cache.Cache
	cacheTTL time.Duration
	audit    AuditSink
	log      zerolog.Logger
}

// Option configures optional pipeline collaborators
type Option func(*Pipeline)

// WithCache enables write-back of successful resolutions into the cache
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithAudit enables persistence of resolution audits
func WithAudit(sink AuditSink) Option {
	return func(p *Pipeline) {
		p.audit = sink
	}
}

// NewPipeline creates a pipeline over the given sources. Order matters: the
// first source to produce a reference wins and later ones are not asked.
// The expected order is local, cached, vendor: the authoritative source
// first, the free cache lookup second, the metered external API last.
func NewPipeline(sources []adapters.ReportSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		sources: sources,
		log:     logger.For("resolver"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve runs one sequential pass over the sources. Misses advance to the
// next source; hard failures are recorded and also advance. The outcome is
// unavailable only when every source failed hard; a single clean miss
// still means the report is genuinely pending. No retries happen here;
// retry-by-polling is the Poller's job.
func (p *Pipeline) Resolve(ctx context.Context, query models.ReportQuery) models.ResolutionOutcome {
	if !query.Identified() {
		return models.Pending()
	}

	start := time.Now()
	var failures []string

	for _, source := range p.sources {
		ref, err := p.tryResolve(ctx, source, query)
		if err == nil {
			p.writeBack(ctx, query, ref)
			outcome := models.Ready(ref)
			p.finish(ctx, query, outcome, start)
			return outcome
		}
		if err == adapters.ErrNotFound {
			metrics.AdapterMisses.WithLabelValues(string(source.Name())).Inc()
			p.log.Debug().
				Str("adapter", string(source.Name())).
				Msg("No report at source")
			continue
		}
		metrics.AdapterFailures.WithLabelValues(string(source.Name())).Inc()
		p.log.Warn().
			Err(err).
			Str("adapter", string(source.Name())).
			Msg("Source failed")
		failures = append(failures, fmt.Sprintf("%s: %v", source.Name(), err))
	}

	var outcome models.ResolutionOutcome
	if len(failures) == len(p.sources) && len(p.sources) > 0 {
		outcome = models.Unavailable(strings.Join(failures, "; "))
	} else {
		outcome = models.Pending()
	}
	p.finish(ctx, query, outcome, start)
	return outcome
}

// tryResolve invokes one source with a panic boundary: nothing an adapter
// does may escape the pipeline as anything but an error value
func (p *Pipeline) tryResolve(ctx context.Context, source adapters.ReportSource, query models.ReportQuery) (ref *models.ReportReference, err error) {
	defer func() {
		if r := recover(); r != nil {
			ref = nil
			err = fmt.Errorf("adapter panicked: %v", r)
		}
	}()
	ref, err = source.TryResolve(ctx, query)
	if err == nil && ref == nil {
		err = fmt.Errorf("adapter returned no reference and no error")
	}
	return ref, err
}

// writeBack stores the winning reference under the query's namespaced cache
// key so the cached source can answer the rest of the browsing session
func (p *Pipeline) writeBack(ctx context.Context, query models.ReportQuery, ref *models.ReportReference) {
	if p.cache == nil {
		return
	}
	identity := query.CacheIdentity()
	if identity == "" {
		return
	}

	// Only the cached source's ObjectKey is a real object-store key; the
	// local adapter's is a report-id handle and must not be re-presigned
	objectKey := ""
	if ref.Source == models.SourceCached {
		objectKey = ref.ObjectKey
	}
	data, err := cache.EncodeEntry(cache.Entry{
		URL:       ref.URL,
		ObjectKey: objectKey,
		StoredAt:  time.Now().UTC(),
	})
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to encode cache entry")
		return
	}
	if err := p.cache.Set(ctx, cache.ReportURLKey(identity), data, p.cacheTTL); err != nil {
		p.log.Warn().Err(err).Str("identity", identity).Msg("Failed to cache resolved report URL")
	}
}

// Invalidate drops the cached entry for a query identity
func (p *Pipeline) Invalidate(ctx context.Context, query models.ReportQuery) error {
	if p.cache == nil {
		return nil
	}
	identity := query.CacheIdentity()
	if identity == "" {
		return nil
	}
	return p.cache.Delete(ctx, cache.ReportURLKey(identity))
}

func (p *Pipeline) finish(ctx context.Context, query models.ReportQuery, outcome models.ResolutionOutcome, start time.Time) {
	elapsed := time.Since(start)
	source := ""
	urlKind := ""
	if outcome.Report != nil {
		source = string(outcome.Report.Source)
		urlKind = string(outcome.Report.URLKind)
	}
	metricSource := source
	if metricSource == "" {
		metricSource = "none"
	}
	metrics.ResolutionsTotal.WithLabelValues(string(outcome.State), metricSource).Inc()
	metrics.ResolutionDuration.Observe(elapsed.Seconds())

	if p.audit == nil {
		return
	}
	audit := &models.ResolutionAudit{
		PatientID: query.PatientID,
		CaseID:    query.CaseID,
		StudyID:   query.StudyID,
		StudyIUID: query.StudyInstanceUID,
		Outcome:   string(outcome.State),
		Source:    source,
		URLKind:   urlKind,
		Reason:    outcome.Reason,
		Duration:  elapsed.Milliseconds(),
	}
	if err := p.audit.Create(ctx, audit); err != nil {
		p.log.Warn().Err(err).Msg("Failed to record resolution audit")
	}
}
