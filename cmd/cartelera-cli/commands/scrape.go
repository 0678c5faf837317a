package commands

import (
	"fmt"
	"log/slog"
	"time"

	"cartelera-backend/lib/serviceutil"
	"cartelera-backend/lib/sqliteutil"
	"cartelera-backend/services/catalog"
	"cartelera-backend/services/catalog/db"
	"cartelera-backend/services/ingest"
	"cartelera-backend/services/ingest/sources"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var scrapeDb *string
var scrapeOnly *string

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "cartelera.db", "The database to write scrape results to.")
	scrapeOnly = scrapeCmd.Flags().String("source", "", "Only scrape the named source.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--db <path/to/output.db>] [--source <name>]",
	Short: "Runs one ingestion pass over the configured sources.",
	Run: func(cmd *cobra.Command, args []string) {
		database, err := sqliteutil.OpenDB(db.Schema, *scrapeDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		service := catalog.NewService(database)

		orchestrator := ingest.NewOrchestrator(service, service, service, ingest.Options{})
		registered := 0
		for _, cfg := range sources.SiteConfigs() {
			if *scrapeOnly != "" && cfg.Name != *scrapeOnly {
				continue
			}
			src, err := ingest.NewScraperSource(cfg)
			if err != nil {
				serviceutil.Fatal("failed to register source", err)
			}
			orchestrator.RegisterSource(src)
			registered++
		}
		if registered == 0 {
			serviceutil.Fatal("no sources to scrape", fmt.Errorf("unknown source %q", *scrapeOnly))
		}

		t1 := time.Now()
		report := orchestrator.FetchAll(cmd.Context())
		t2 := time.Now()

		for _, source := range report.Sources {
			slog.Info("source finished",
				"source", source.Name,
				"success", source.Success,
				"events", source.EventsCount,
				"duration", source.Duration,
				"error", source.Error)
		}
		for _, runErr := range report.Errors {
			slog.Warn("run error", "source", runErr.Source, "title", runErr.Title, "reason", runErr.Reason)
		}
		slog.Info("scraping finished",
			"events", report.TotalEvents,
			"processed", report.TotalProcessed,
			"duplicates", report.TotalDuplicates,
			"blacklisted", report.TotalBlacklisted,
			"errors", report.TotalErrors,
			"seconds", t2.Sub(t1).Seconds())
	},
}
