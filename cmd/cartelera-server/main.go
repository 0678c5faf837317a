package main

import (
	"context"
	"net/http"
	"time"

	"cartelera-backend/lib/configutil"
	"cartelera-backend/lib/serviceutil"
	"cartelera-backend/lib/sqliteutil"
	"cartelera-backend/lib/telemetry"
	"cartelera-backend/services/catalog"
	catalogdb "cartelera-backend/services/catalog/db"
	"cartelera-backend/services/ingest"
	"cartelera-backend/services/ingest/sources"
)

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	config = config.withDefaults()

	err = telemetry.SetupFromEnv(ctx, "cartelera-server")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())
	telemetry.InitSlog(false)
	telemetry.InstrumentPerfStats(ctx)

	db, err := sqliteutil.OpenDB(catalogdb.Schema, config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	defer db.Close()

	service := catalog.NewService(db)

	orchestrator := ingest.NewOrchestrator(service, service, service, ingest.Options{
		MaxConcurrentSources: config.MaxConcurrentSources,
		RunTimeout:           time.Duration(config.RunTimeoutSeconds) * time.Second,
	})
	for _, cfg := range sources.SiteConfigs() {
		src, err := ingest.NewScraperSource(cfg)
		if err != nil {
			serviceutil.Fatal("failed to register source", err)
		}
		orchestrator.RegisterSource(src)
	}
	if config.Ticketmaster.ApiKey != "" {
		src, err := sources.NewTicketmaster(config.Ticketmaster)
		if err != nil {
			serviceutil.Fatal("failed to register ticketmaster", err)
		}
		orchestrator.RegisterSource(src)
	}

	runner := &runner{orchestrator: orchestrator}
	scheduler, err := startScheduler(ctx, config, runner, service)
	if err != nil {
		serviceutil.Fatal("failed to start scheduler", err)
	}
	defer scheduler.Stop()

	mux := http.NewServeMux()
	mux.Handle("/admin/", http.StripPrefix("/admin",
		serviceutil.VerifyBearerToken(config.AccessToken, adminMux(runner, service))))
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
}
