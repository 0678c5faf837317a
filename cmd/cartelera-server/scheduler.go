package main

import (
	"context"
	"log/slog"
	"sync"

	"cartelera-backend/lib/timezone"
	"cartelera-backend/services/catalog"
	"cartelera-backend/services/ingest"

	"github.com/robfig/cron/v3"
)

// runner serializes ingestion: the cron schedule, the re-scrape flag
// poll and the admin endpoint all funnel through it, and overlapping
// triggers collapse into the run already in flight.
type runner struct {
	orchestrator *ingest.Orchestrator

	mu      sync.Mutex
	running bool
}

// Run executes one ingestion pass, or reports skipped=true when a pass
// is already in flight.
func (r *runner) Run(ctx context.Context) (report ingest.RunReport, skipped bool) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ingest.RunReport{}, true
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	return r.orchestrator.FetchAll(ctx), false
}

func startScheduler(ctx context.Context, config Config, r *runner, service catalog.Service) (*cron.Cron, error) {
	// schedules are written in local showtime terms, so the cron runs
	// in the same pinned timezone as the rest of the pipeline
	scheduler := cron.New(cron.WithLocation(timezone.Location))

	_, err := scheduler.AddFunc(config.ScrapeSchedule, func() {
		if _, skipped := r.Run(ctx); skipped {
			slog.InfoContext(ctx, "scheduled scrape skipped, a run is already in flight")
		}
	})
	if err != nil {
		return nil, err
	}

	// preference edits flag the catalog for re-scraping; poll the flag
	// so the new policy applies without waiting for the next scheduled
	// pass
	_, err = scheduler.AddFunc(config.RescrapePollSchedule, func() {
		prefs, err := service.Snapshot(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to poll preferences", "err", err)
			return
		}
		if !prefs.NeedsRescraping {
			return
		}
		slog.InfoContext(ctx, "preferences changed, re-scraping")
		if _, skipped := r.Run(ctx); skipped {
			return
		}
		if err := service.ClearNeedsRescraping(ctx); err != nil {
			slog.WarnContext(ctx, "failed to clear re-scrape flag", "err", err)
		}
	})
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}
