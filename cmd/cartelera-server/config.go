package main

import (
	"cartelera-backend/services/ingest/sources"
)

type Config struct {
	Port        int    `json:"port"`
	Database    string `json:"database"`
	AccessToken string `json:"access_token"`

	// cron expression for the periodic full scrape
	ScrapeSchedule string `json:"scrape_schedule"`
	// cron expression for polling the preferences re-scrape flag
	RescrapePollSchedule string `json:"rescrape_poll_schedule"`

	MaxConcurrentSources int `json:"max_concurrent_sources"`
	RunTimeoutSeconds    int `json:"run_timeout_seconds"`

	Ticketmaster sources.TicketmasterConfig `json:"ticketmaster"`
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 8470
	}
	if c.Database == "" {
		c.Database = "cartelera.db"
	}
	if c.ScrapeSchedule == "" {
		c.ScrapeSchedule = "0 */6 * * *"
	}
	if c.RescrapePollSchedule == "" {
		c.RescrapePollSchedule = "*/5 * * * *"
	}
	if c.RunTimeoutSeconds == 0 {
		c.RunTimeoutSeconds = 1800
	}
	return c
}
