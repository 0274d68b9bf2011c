// Package bench drives the benchmark pipeline: it fans probe sequences
// out over a bounded worker pool, aggregates the raw samples, scores
// every reachable server and produces a ranked report with a
// primary/secondary recommendation.
//
// A run is stateless: the same catalogue, settings and probe outcomes
// always produce the same report.
package bench

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gamedns/gamedns/internal/catalog"
	"github.com/gamedns/gamedns/internal/pinger"
	"github.com/gamedns/gamedns/internal/rank"
	"github.com/gamedns/gamedns/internal/stats"
	"github.com/gamedns/gamedns/internal/util"
)

// ErrEmptyCatalogue is returned when a run is requested with no servers.
var ErrEmptyCatalogue = errors.New("server catalogue is empty")

// Settings are the validated knobs of a run. The config boundary
// guarantees all values are positive before they reach this package.
type Settings struct {
	PingCount  int
	Timeout    time.Duration
	MaxWorkers int
}

// SampleSet is one server's raw probe data. Results always has exactly
// PingCount entries in attempt order; failed attempts are recorded, not
// dropped. Err annotates an incomplete sequence: a per-server fatal
// condition (bad address, no usable socket) or cancellation before the
// last attempt. Annotated servers are excluded from ranking but never
// abort the run.
type SampleSet struct {
	Server  catalog.Server
	Index   int
	Results []pinger.Result
	Err     error
}

// Report is the outcome of one benchmark run.
type Report struct {
	// Ranked lists scorable servers best-first.
	Ranked []rank.Result
	// Recommendation is the suggested primary/secondary pair. Both
	// fields are nil when no server was scorable.
	Recommendation rank.Recommendation
	// Unscorable lists servers excluded from ranking: per-server faults,
	// interrupted sequences and servers that never answered.
	Unscorable []SampleSet
	// Samples holds every server's raw data in catalogue order.
	Samples []SampleSet
}

// Scorable reports whether the run produced at least one rankable server.
func (r Report) Scorable() bool {
	return len(r.Ranked) > 0
}

// ProgressFunc is invoked once per completed server, from the worker
// goroutine that finished it. The runner serializes invocations and
// delivers done counts in order, so callbacks need no locking of their
// own; they should return quickly since they hold up the pool.
type ProgressFunc func(done, total int, server catalog.Server)

// Runner executes benchmark runs. The zero value is not usable; see
// NewRunner.
type Runner struct {
	settings   Settings
	newSampler pinger.Factory
	progress   ProgressFunc
	logger     util.Logger
}

type Option func(*Runner)

// WithProgress registers a per-server completion callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithSamplerFactory overrides how probe samplers are created. Used by
// tests and callers that need a different transport.
func WithSamplerFactory(factory pinger.Factory) Option {
	return func(r *Runner) { r.newSampler = factory }
}

func WithLogger(logger util.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

func NewRunner(settings Settings, opts ...Option) *Runner {
	r := &Runner{
		settings:   settings,
		newSampler: pinger.New,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run probes every server in the catalogue and returns the ranked
// report. Only run-level conditions (empty catalogue) are errors;
// per-server failures are folded into the report as loss.
func (r *Runner) Run(ctx context.Context, servers []catalog.Server) (Report, error) {
	samples, err := r.ProbeAll(ctx, servers)
	if err != nil {
		return Report{}, err
	}

	report := Report{Samples: samples}
	scored := make([]rank.Result, 0, len(samples))
	for _, set := range samples {
		summary := stats.Aggregate(set.Results)
		// An annotated set is incomplete; ranking it would count the
		// unattempted probes as loss.
		if set.Err != nil || !rank.Scorable(summary) {
			report.Unscorable = append(report.Unscorable, set)
			continue
		}
		scored = append(scored, rank.Result{
			Server: set.Server,
			Index:  set.Index,
			Stats:  summary,
			Score:  rank.Score(summary),
		})
	}
	report.Ranked = rank.Rank(scored)
	report.Recommendation = rank.Recommend(report.Ranked)
	return report, nil
}

// ProbeAll dispatches one probe sequence per server under the worker
// limit and collects every server's SampleSet in catalogue order. Each
// worker writes only its own slot, so the slice needs no lock; the
// mutex serializes the progress counter and callback only.
//
// On cancellation no new servers are started and in-flight sequences
// stop between attempts; every server still gets a SampleSet, with
// interrupted and never-started servers marked with the cancellation
// cause.
func (r *Runner) ProbeAll(ctx context.Context, servers []catalog.Server) ([]SampleSet, error) {
	if len(servers) == 0 {
		return nil, ErrEmptyCatalogue
	}

	out := make([]SampleSet, len(servers))
	sem := make(chan struct{}, r.settings.MaxWorkers)
	var wg sync.WaitGroup

	var mu sync.Mutex
	done := 0

	for i, srv := range servers {
		if err := ctx.Err(); err != nil {
			out[i] = r.abandonedSet(srv, i, err)
			continue
		}
		wg.Add(1)
		go func(idx int, server catalog.Server) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				out[idx] = r.abandonedSet(server, idx, context.Cause(ctx))
				return
			}
			out[idx] = r.probeServer(ctx, server, idx)

			mu.Lock()
			done++
			if r.progress != nil {
				r.progress(done, len(servers), server)
			}
			mu.Unlock()
		}(i, srv)
	}
	wg.Wait()
	return out, nil
}

// probeServer runs one server's full probe sequence: PingCount
// attempts, each bounded by the per-probe timeout, no retries.
func (r *Runner) probeServer(ctx context.Context, server catalog.Server, index int) SampleSet {
	set := SampleSet{
		Server:  server,
		Index:   index,
		Results: make([]pinger.Result, r.settings.PingCount),
	}

	sampler, err := r.newSampler(server.Address)
	if err != nil {
		set.Err = err
		if r.logger != nil {
			r.logger.Warn("could not test server", "server", server.Name, "address", server.Address, "error", err)
		}
		return set
	}
	defer sampler.Close()

	for i := range set.Results {
		if ctx.Err() != nil {
			set.Err = context.Cause(ctx)
			break
		}
		set.Results[i] = sampler.Probe(ctx, r.settings.Timeout)
	}
	return set
}

func (r *Runner) abandonedSet(server catalog.Server, index int, cause error) SampleSet {
	return SampleSet{
		Server:  server,
		Index:   index,
		Results: make([]pinger.Result, r.settings.PingCount),
		Err:     cause,
	}
}
