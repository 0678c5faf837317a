package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/ingest")

// SourceReport summarizes one source's outcome within a run.
type SourceReport struct {
	Name        string
	Success     bool
	EventsCount int
	Duration    time.Duration
	Error       string
}

// RunError references one rejected event by title and rejection
// reason.
type RunError struct {
	Source string
	Title  string
	Reason string
}

// RunReport is the structured summary of one orchestration pass. A run
// with failed sources is still a successful run, partial ingestion is
// normal operation.
type RunReport struct {
	Sources []SourceReport

	// raw events fetched across all sources
	TotalEvents int
	// events actually persisted
	TotalProcessed   int
	TotalDuplicates  int
	TotalBlacklisted int
	// source failures plus per-event rejections
	TotalErrors int

	Errors    []RunError
	Duration  time.Duration
	Timestamp time.Time
}

func (r RunReport) AllSourcesFailed() bool {
	if len(r.Sources) == 0 {
		return false
	}
	for _, s := range r.Sources {
		if s.Success {
			return false
		}
	}
	return true
}

type Options struct {
	// maximum number of sources fetched in parallel; pages within a
	// source stay sequential to respect that source's rate limit
	MaxConcurrentSources int
	// run-level deadline for FetchAll; in-flight source fetches are
	// aborted and the report covers whatever completed
	RunTimeout time.Duration
	Dedup      DedupConfig
}

type Orchestrator struct {
	repo      Repository
	blacklist Blacklist
	prefs     PreferencesProvider
	deduper   Deduper
	opts      Options

	mu      sync.Mutex
	sources []Source
}

func NewOrchestrator(repo Repository, blacklist Blacklist, prefs PreferencesProvider, opts Options) *Orchestrator {
	if opts.MaxConcurrentSources <= 0 {
		opts.MaxConcurrentSources = 2
	}
	if opts.Dedup == (DedupConfig{}) {
		opts.Dedup = DefaultDedupConfig()
	}
	return &Orchestrator{
		repo:      repo,
		blacklist: blacklist,
		prefs:     prefs,
		deduper:   NewDeduper(opts.Dedup),
		opts:      opts,
	}
}

// RegisterSource adds a source to the roster. Config validation has
// already happened in the source constructor, so a source that made it
// here can only fail at fetch time.
func (o *Orchestrator) RegisterSource(src Source) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = append(o.sources, src)
}

type fetchResult struct {
	name     string
	events   []RawEvent
	duration time.Duration
	err      error
}

// FetchAll runs every registered source with bounded fan-out, then
// normalizes, filters, dedups and persists the merged results. Source
// and event failures are isolated and recorded, they never abort the
// run.
func (o *Orchestrator) FetchAll(ctx context.Context) RunReport {
	ctx, span := tracer.Start(ctx, "Orchestrator.FetchAll")
	defer span.End()

	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	started := time.Now()
	report := RunReport{Timestamp: started}

	o.mu.Lock()
	sources := make([]Source, len(o.sources))
	copy(sources, o.sources)
	o.mu.Unlock()

	results := o.fetchSources(ctx, sources)

	prefs, err := o.prefs.Snapshot(ctx)
	if err != nil {
		// without a policy nothing can be accepted; report the fetch
		// outcomes and bail
		span.RecordError(err)
		span.SetStatus(codes.Error, "load preferences")
		slog.ErrorContext(ctx, "failed to load preferences", "err", err)
		for _, res := range results {
			report.Sources = append(report.Sources, sourceReport(res))
			report.TotalEvents += len(res.events)
			if res.err != nil {
				report.TotalErrors++
			}
		}
		report.TotalErrors++
		report.Errors = append(report.Errors, RunError{Reason: fmt.Sprintf("load preferences: %v", err)})
		report.Duration = time.Since(started)
		return report
	}

	existing, err := o.repo.FindExisting(ctx, "")
	if err != nil {
		slog.WarnContext(ctx, "failed to load existing events, dedup will only see this run", "err", err)
		existing = nil
	}

	for _, res := range results {
		report.Sources = append(report.Sources, sourceReport(res))
		report.TotalEvents += len(res.events)

		if res.err != nil {
			report.TotalErrors++
			report.Errors = append(report.Errors, RunError{
				Source: res.name,
				Reason: res.err.Error(),
			})
			continue
		}

		existing = o.persistBatch(ctx, res, prefs, existing, &report)
	}

	report.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("total_events", report.TotalEvents),
		attribute.Int("total_processed", report.TotalProcessed),
		attribute.Int("total_errors", report.TotalErrors),
	)

	slog.InfoContext(ctx, "ingestion run finished",
		"sources", len(report.Sources),
		"events", report.TotalEvents,
		"processed", report.TotalProcessed,
		"duplicates", report.TotalDuplicates,
		"blacklisted", report.TotalBlacklisted,
		"errors", report.TotalErrors,
		"duration", report.Duration,
	)
	return report
}

// fetchSources runs the fetch phase: bounded parallel fan-out across
// sources. Results come back in registration order.
func (o *Orchestrator) fetchSources(ctx context.Context, sources []Source) []fetchResult {
	sem := make(chan struct{}, o.opts.MaxConcurrentSources)
	results := make([]fetchResult, len(sources))
	wg := sync.WaitGroup{}

	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			slog.DebugContext(ctx, "fetching source", "source", src.Name())
			fetchStart := time.Now()
			events, err := src.Fetch(ctx)
			results[i] = fetchResult{
				name:     src.Name(),
				events:   events,
				duration: time.Since(fetchStart),
				err:      err,
			}
			if err != nil {
				slog.WarnContext(ctx, "source fetch failed", "source", src.Name(), "err", err)
			}
		}(i, src)
	}
	wg.Wait()

	return results
}

// persistBatch drives one source's raw events through normalize →
// blacklist → rules → dedup → upsert. Upserted events join the
// existing set so later sources in the same run dedup against them.
func (o *Orchestrator) persistBatch(ctx context.Context, res fetchResult, prefs PreferencesSnapshot, existing []Event, report *RunReport) []Event {
	now := time.Now()

	for _, raw := range res.events {
		event, err := Normalize(raw)
		if err != nil {
			report.TotalErrors++
			report.Errors = append(report.Errors, RunError{
				Source: res.name,
				Title:  raw.Title,
				Reason: fmt.Sprintf("normalize: %v", err),
			})
			continue
		}

		blacklisted, err := o.blacklist.IsBlacklisted(ctx, event.Source, event.ExternalID)
		if err != nil {
			report.TotalErrors++
			report.Errors = append(report.Errors, RunError{
				Source: res.name,
				Title:  event.Title,
				Reason: fmt.Sprintf("blacklist lookup: %v", err),
			})
			continue
		}
		if blacklisted {
			report.TotalBlacklisted++
			slog.DebugContext(ctx, "skipping blacklisted event", "source", res.name, "title", event.Title)
			continue
		}

		verdict := IsAcceptable(event, prefs, now)
		if !verdict.Valid {
			report.TotalErrors++
			report.Errors = append(report.Errors, RunError{
				Source: res.name,
				Title:  event.Title,
				Reason: fmt.Sprintf("%s: %s", verdict.Field, verdict.Reason),
			})
			continue
		}

		if dup := o.deduper.FindDuplicate(event, existing); dup != nil {
			report.TotalDuplicates++
			slog.DebugContext(ctx, "skipping duplicate event",
				"source", res.name, "title", event.Title,
				"duplicate_of", dup.Source, "duplicate_id", dup.ExternalID)
			continue
		}

		stored, err := o.repo.Upsert(ctx, event)
		if err != nil {
			report.TotalErrors++
			report.Errors = append(report.Errors, RunError{
				Source: res.name,
				Title:  event.Title,
				Reason: fmt.Sprintf("persist: %v", err),
			})
			continue
		}

		report.TotalProcessed++
		existing = append(existing, stored)
	}

	return existing
}

func sourceReport(res fetchResult) SourceReport {
	r := SourceReport{
		Name:        res.name,
		Success:     res.err == nil,
		EventsCount: len(res.events),
		Duration:    res.duration,
	}
	if res.err != nil {
		r.Error = res.err.Error()
	}
	return r
}
