// Package job schedules batches of corpus-query API calls: parameters are
// propagated across the batch, every call gets a content-addressed
// fingerprint, cached calls are served locally, and the rest are dispatched
// sequentially with the server's required wait or through a bounded worker
// pool when the server allows concurrency.
package job

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/engisalor/sketch-grammar-explorer/pkg/cache"
	"github.com/engisalor/sketch-grammar-explorer/pkg/call"
	"github.com/engisalor/sketch-grammar-explorer/pkg/config"
	"github.com/engisalor/sketch-grammar-explorer/pkg/fingerprint"
	"github.com/engisalor/sketch-grammar-explorer/pkg/sink"
)

// Config holds the batch scheduler configuration.
type Config struct {
	// Server is the target endpoint configuration.
	Server config.Server

	// ServerName labels log entries; informational only.
	ServerName string

	// Cache is the content-addressed skip gate. Required.
	Cache cache.Store

	// Sink receives persisted records in addition to the cache. Optional.
	Sink sink.Sink

	// Creds supplies credentials at dispatch time. Defaults to Anonymous.
	Creds config.CredentialProvider

	// SourceID groups this run's sink records. Optional.
	SourceID string

	// SkipCache serves calls from cache when their fingerprint is present.
	SkipCache bool

	// ClearCache empties the store before running, forcing re-dispatch.
	ClearCache bool

	// Halt aborts the remaining batch on the first failure. Sequential
	// mode only; concurrent runs always gather every result.
	Halt bool

	// Concurrent dispatches through a worker pool. Requires a server that
	// declares concurrency support; otherwise the job downgrades to
	// sequential with a warning.
	Concurrent bool

	// DryRun assembles, validates and partitions the batch, then reports
	// the plan without sending anything.
	DryRun bool

	// MaxWorkers bounds the concurrent pool. Capped at min(32, NumCPU+4).
	MaxWorkers int

	// RequestTimeout applies independently to each dispatched call.
	RequestTimeout time.Duration

	// HTTPClient overrides the transport (tests). Per-call timeouts come
	// from RequestTimeout contexts, not the client.
	HTTPClient *http.Client

	Logger zerolog.Logger
}

// DefaultConfig returns a scheduler configuration with caching enabled and
// a 30 second per-call timeout.
func DefaultConfig(server config.Server, store cache.Store) Config {
	return Config{
		Server:         server,
		Cache:          store,
		Creds:          config.Anonymous,
		SkipCache:      true,
		RequestTimeout: 30 * time.Second,
	}
}

// maxWorkersCap bounds the pool regardless of configuration.
func maxWorkersCap() int {
	cap := runtime.NumCPU() + 4
	if cap > 32 {
		cap = 32
	}
	return cap
}

// Job executes batches against one configured server.
type Job struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// New validates the configuration and returns a Job. Requesting concurrency
// against a sequential-only server downgrades to sequential.
func New(cfg Config) (*Job, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.Server.Host == "" {
		return nil, fmt.Errorf("server host is required")
	}
	if cfg.Creds == nil {
		cfg.Creds = config.Anonymous
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxWorkers <= 0 || cfg.MaxWorkers > maxWorkersCap() {
		cfg.MaxWorkers = maxWorkersCap()
	}

	logger := cfg.Logger
	if cfg.Concurrent && !cfg.Server.Asynchronous {
		logger.Warn().
			Str("server", cfg.ServerName).
			Msg("Server does not allow concurrent calls, running sequentially")
		cfg.Concurrent = false
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Job{cfg: cfg, client: client, logger: logger}, nil
}

// Run executes a batch: propagate, validate, fingerprint, partition into
// cache hits and misses, resolve the wait policy, dispatch the misses and
// persist the outcomes. Validation and configuration errors surface
// immediately, before any network activity. With Halt set, the returned
// error wraps ErrHalted once a sequential batch aborts early; the report
// still accounts for every call.
func (j *Job) Run(ctx context.Context, batch []*call.Spec) (*Report, error) {
	start := time.Now()

	if j.cfg.ClearCache && !j.cfg.DryRun {
		if err := j.cfg.Cache.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear cache: %w", err)
		}
	}

	call.Propagate(batch)
	for _, spec := range batch {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	results := make([]Result, len(batch))
	pending := 0
	// a clear just emptied the store, so the skip gate is off for this run
	skip := j.cfg.SkipCache && !j.cfg.ClearCache

	for i, spec := range batch {
		fp, err := fingerprint.Sum(spec.Params, j.cfg.Server.Credentials())
		if err != nil {
			return nil, fmt.Errorf("fingerprint call %d: %w", i, err)
		}
		results[i] = Result{Index: i, Spec: spec, Fingerprint: fp, Status: StatusPending}

		if skip {
			// Get rather than Has: a corrupt artifact reads as a miss
			// and the call is re-dispatched
			if entry, err := j.cfg.Cache.Get(ctx, fp); err == nil {
				results[i].Status = StatusCached
				results[i].Entry = entry
				callsTotal.WithLabelValues(string(spec.Type), string(StatusCached)).Inc()
				continue
			}
		}
		pending++
	}

	// cache hits generate no traffic, so they do not count toward the
	// throttle batch size
	wait := j.cfg.Server.Wait.Resolve(pending)
	batchWaitSeconds.Observe(wait.Seconds())

	j.logger.Info().
		Str("server", j.cfg.ServerName).
		Int("calls", len(batch)).
		Int("cached", len(batch)-pending).
		Int("pending", pending).
		Dur("wait", wait).
		Bool("concurrent", j.cfg.Concurrent).
		Msg("Batch assembled")

	var runErr error
	if j.cfg.DryRun {
		j.logDryRun(results)
	} else if pending > 0 {
		if j.cfg.Concurrent {
			j.runConcurrent(ctx, results)
		} else {
			runErr = j.runSequential(ctx, results, wait)
		}
	}

	report := &Report{Results: results}
	for _, res := range results {
		report.count(res)
	}

	j.logger.Info().
		Int("cache_hits", report.CacheHits).
		Int("dispatched", report.Dispatched).
		Int("transport_errors", report.TransportErrors).
		Int("application_errors", report.AppErrors).
		Dur("elapsed", time.Since(start)).
		Msg("Batch complete")

	return report, runErr
}

// runSequential processes calls in strict batch order, sleeping the
// resolved wait before every dispatch after the first. With Halt set the
// first failure aborts the remainder.
func (j *Job) runSequential(ctx context.Context, results []Result, wait time.Duration) error {
	dispatched := 0
	for i := range results {
		if results[i].Status != StatusPending {
			continue
		}
		if dispatched > 0 && wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		dispatched++

		j.execute(ctx, &results[i])

		if results[i].Failed() && j.cfg.Halt {
			j.logger.Error().
				Int("index", i).
				Str("status", string(results[i].Status)).
				Err(results[i].Err).
				Msg("Halting batch on first error")
			return fmt.Errorf("%w: call %d: %v", ErrHalted, i, results[i].Err)
		}
	}
	return nil
}

// runConcurrent dispatches pending calls through a bounded worker pool. No
// wait is injected between dispatches; the pool bound is the throttle. Every
// worker is awaited and a failure or timeout in one call never cancels its
// siblings.
func (j *Job) runConcurrent(ctx context.Context, results []Result) {
	queue := make(chan int)
	done := make(chan int)

	workers := j.cfg.MaxWorkers
	for w := 0; w < workers; w++ {
		go func() {
			for i := range queue {
				j.execute(ctx, &results[i])
				done <- i
			}
		}()
	}

	// every pending index is enqueued even under cancellation: execute
	// fails fast on a dead context, so the collector always drains
	go func() {
		defer close(queue)
		for i := range results {
			if results[i].Status == StatusPending {
				queue <- i
			}
		}
	}()

	remaining := 0
	for i := range results {
		if results[i].Status == StatusPending {
			remaining++
		}
	}
	for ; remaining > 0; remaining-- {
		i := <-done
		j.logger.Debug().
			Int("index", i).
			Str("status", string(results[i].Status)).
			Msg("Call completed")
	}
	close(done)
}

// execute dispatches one call and records its outcome in place. Each call
// carries its own timeout; expiry is a transport failure for that call only.
func (j *Job) execute(ctx context.Context, res *Result) {
	spec := res.Spec
	start := time.Now()
	inflightCalls.Inc()
	defer func() {
		inflightCalls.Dec()
		callDuration.WithLabelValues(string(spec.Type)).Observe(time.Since(start).Seconds())
		callsTotal.WithLabelValues(string(spec.Type), string(res.Status)).Inc()
	}()

	creds, err := j.cfg.Creds.Credentials(ctx)
	if err != nil {
		res.Status = StatusTransportFailed
		res.Err = fmt.Errorf("obtain credentials: %w", err)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, j.cfg.RequestTimeout)
	defer cancel()

	req, err := buildRequest(callCtx, j.cfg.Server.Host, spec, creds)
	if err != nil {
		res.Status = StatusTransportFailed
		res.Err = err
		return
	}

	resp, err := j.client.Do(req)
	if err != nil {
		res.Status = StatusTransportFailed
		res.Err = &RequestError{Class: StatusTransportFailed, Message: "request failed", Err: err}
		j.logger.Error().Err(err).Int("index", res.Index).Str("call_type", string(spec.Type)).Msg("Transport failure")
		return
	}
	if resp.StatusCode >= 500 {
		resp.Body.Close()
		res.Status = StatusTransportFailed
		res.Err = &RequestError{Class: StatusTransportFailed, StatusCode: resp.StatusCode, Message: resp.Status}
		j.logger.Error().Int("index", res.Index).Int("status", resp.StatusCode).Msg("Server failure")
		return
	}

	entry, reqErr := processResponse(resp, spec, j.cfg.Server.Credentials())
	if reqErr != nil && entry == nil {
		res.Status = reqErr.Class
		res.Err = reqErr
		return
	}

	res.Entry = entry
	if reqErr != nil {
		res.Status = reqErr.Class
		res.Err = reqErr
		j.logger.Warn().
			Int("index", res.Index).
			Str("call_type", string(spec.Type)).
			Str("error", entry.AppError).
			Msg("Service reported an error")
	} else {
		res.Status = StatusSucceeded
	}

	j.persist(ctx, res)
}

// persist writes a transport-complete result through the cache store and,
// when configured, the external sink. Persistence failures are warnings:
// the call's result stands.
func (j *Job) persist(ctx context.Context, res *Result) {
	if err := j.cfg.Cache.Put(ctx, res.Fingerprint, res.Entry); err != nil {
		j.logger.Warn().Err(err).Str("fingerprint", res.Fingerprint).Msg("Cache write failed")
	}

	if j.cfg.Sink == nil {
		return
	}
	record, err := j.buildRecord(res)
	if err != nil {
		j.logger.Warn().Err(err).Str("fingerprint", res.Fingerprint).Msg("Record assembly failed")
		return
	}
	if err := j.cfg.Sink.Put(ctx, res.Fingerprint, record); err != nil {
		j.logger.Warn().Err(err).Str("fingerprint", res.Fingerprint).Msg("Sink write failed")
	}
}

func (j *Job) buildRecord(res *Result) (*sink.Record, error) {
	params, err := fingerprint.CanonicalJSON(res.Spec.Params, j.cfg.Server.Credentials())
	if err != nil {
		return nil, err
	}

	var meta []byte
	label := ""
	if res.Spec.Meta != nil {
		meta, err = json.Marshal(res.Spec.Meta)
		if err != nil {
			return nil, fmt.Errorf("marshal call metadata: %w", err)
		}
		if m, ok := res.Spec.Meta.(map[string]any); ok {
			if l, ok := m["label"].(string); ok {
				label = l
			}
		}
	}

	return &sink.Record{
		Fingerprint: res.Fingerprint,
		SourceID:    j.cfg.SourceID,
		CallType:    string(res.Spec.Type),
		Label:       label,
		CreatedAt:   res.Entry.CachedAt,
		Params:      params,
		Meta:        meta,
		Error:       res.Entry.AppError,
		Body:        projectBody(res.Entry, res.Spec),
	}, nil
}

func (j *Job) logDryRun(results []Result) {
	for _, res := range results {
		j.logger.Info().
			Int("index", res.Index).
			Str("call", res.Spec.String()).
			Str("fingerprint", res.Fingerprint).
			Str("status", string(res.Status)).
			Msg("Dry run")
	}
}
