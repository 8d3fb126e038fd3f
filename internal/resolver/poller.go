package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/otcheredev/report-resolver/internal/metrics"
	"github.com/otcheredev/report-resolver/internal/models"
	"github.com/otcheredev/report-resolver/pkg/logger"
)

// DefaultPollInterval is how often the poller rechecks report status
const DefaultPollInterval = 30 * time.Second

// StatusProber is the lightweight "is it done yet" check run on every tick
// so the full pipeline (and with it the metered vendor API) is only invoked
// once the report is actually finished
type StatusProber interface {
	ProbeStatus(ctx context.Context, query models.ReportQuery) (models.FileStatus, error)
}

// Update is delivered to the poller's callback on a state transition
type Update struct {
	State  models.ResolutionState
	Report *models.ReportReference
	Status models.FileStatus
}

// Poller periodically rechecks whether a report has become available.
// Checks run sequentially on a single goroutine, so two can never be in
// flight at once; ticks that land during a slow check are simply dropped.
type Poller struct {
	pipeline *Pipeline
	prober   StatusProber
	interval time.Duration
	log      zerolog.Logger

	// newTicker is a seam for tests; production uses time.NewTicker
	newTicker func(d time.Duration) (<-chan time.Time, func())
}

// NewPoller creates a poller over the pipeline. prober may be nil, in which
// case every tick runs a full resolution.
func NewPoller(pipeline *Pipeline, prober StatusProber, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		pipeline: pipeline,
		prober:   prober,
		interval: interval,
		log:      logger.For("poller"),
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Start begins polling for the query and returns a stop function. The stop
// function only halts scheduling: an in-flight check is not aborted, its
// result is discarded. Callers own the handle and must invoke it when the
// consuming context is torn down; stopping twice is safe.
func (p *Poller) Start(ctx context.Context, query models.ReportQuery, onUpdate func(Update)) (stop func()) {
	runCtx, cancel := context.WithCancel(ctx)

	go p.run(runCtx, query, onUpdate)

	var once sync.Once
	return func() {
		once.Do(cancel)
	}
}

func (p *Poller) run(ctx context.Context, query models.ReportQuery, onUpdate func(Update)) {
	ticks, stopTicker := p.newTicker(p.interval)
	defer stopTicker()

	lastState := models.StatePending
	lastStatus := models.FileStatusProcessing

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}

		metrics.PollerTicks.Inc()

		// The check itself must survive cancellation mid-flight; only the
		// delivery of its result is gated on the poller still running.
		checkCtx := context.WithoutCancel(ctx)

		status := models.FileStatusCompleted
		if p.prober != nil {
			st, err := p.prober.ProbeStatus(checkCtx, query)
			if err != nil {
				// Transient: swallow, log, try again next tick
				p.log.Debug().Err(err).Msg("Status probe failed")
				continue
			}
			status = st
		}

		if status == models.FileStatusFailed {
			if lastStatus != models.FileStatusFailed {
				lastStatus = models.FileStatusFailed
				if !p.deliver(ctx, onUpdate, Update{State: models.StateUnavailable, Status: status}) {
					return
				}
			}
			continue
		}
		lastStatus = status

		if status != models.FileStatusCompleted {
			continue
		}

		outcome := p.pipeline.Resolve(checkCtx, query)
		if outcome.State == models.StateReady && lastState != models.StateReady {
			p.deliver(ctx, onUpdate, Update{State: outcome.State, Report: outcome.Report, Status: status})
			// Terminal: the report is resolved, nothing left to poll for
			return
		}
		lastState = outcome.State
	}
}

// deliver fires the callback unless the poller was stopped while the check
// was in flight; reports whether polling should continue
func (p *Poller) deliver(ctx context.Context, onUpdate func(Update), u Update) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	if onUpdate != nil {
		onUpdate(u)
	}
	return true
}
