package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cartelera-backend/services/catalog/db"
	"cartelera-backend/services/ingest"
)

// Snapshot reads the singleton preferences row into the policy shape
// the orchestrator consumes. The orchestrator calls this once per run,
// edits made mid-run take effect on the next one.
func (s Service) Snapshot(ctx context.Context) (ingest.PreferencesSnapshot, error) {
	row, err := s.qry.GetPreferences(ctx)
	if err != nil {
		return ingest.PreferencesSnapshot{}, err
	}

	snapshot := ingest.PreferencesSnapshot{
		SmallVenueMax:   row.SmallVenueMax,
		LargeVenueMin:   row.LargeVenueMin,
		MaxPastDays:     int(row.MaxPastDays),
		NeedsRescraping: row.NeedsRescraping != 0,
	}

	fields := []struct {
		column string
		raw    string
		dest   any
	}{
		{"allowed_countries", row.AllowedCountries, &snapshot.AllowedCountries},
		{"allowed_cities", row.AllowedCities, &snapshot.AllowedCities},
		{"allowed_categories", row.AllowedCategories, &snapshot.AllowedCategories},
		{"allowed_genres", row.AllowedGenres, &snapshot.AllowedGenres},
		{"blocked_genres", row.BlockedGenres, &snapshot.BlockedGenres},
		{"allowed_venue_sizes", row.AllowedVenueSizes, &snapshot.AllowedVenueSizes},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return ingest.PreferencesSnapshot{}, fmt.Errorf("corrupt %s column: %w", f.column, err)
		}
	}

	return snapshot, nil
}

// UpdatePreferences overwrites the policy and marks the catalog as
// needing a re-scrape so the next scheduled run re-evaluates every
// source under the new rules.
func (s Service) UpdatePreferences(ctx context.Context, prefs ingest.PreferencesSnapshot) error {
	encode := func(v any) string {
		out, _ := json.Marshal(v)
		return string(out)
	}
	if prefs.AllowedCountries == nil {
		prefs.AllowedCountries = []string{}
	}
	if prefs.AllowedCities == nil {
		prefs.AllowedCities = []string{}
	}
	if prefs.AllowedCategories == nil {
		prefs.AllowedCategories = []ingest.Category{}
	}
	if prefs.AllowedGenres == nil {
		prefs.AllowedGenres = []string{}
	}
	if prefs.BlockedGenres == nil {
		prefs.BlockedGenres = []string{}
	}
	if prefs.AllowedVenueSizes == nil {
		prefs.AllowedVenueSizes = []ingest.VenueSize{}
	}

	return s.qry.UpdatePreferences(ctx, db.UpdatePreferencesParams{
		AllowedCountries:  encode(prefs.AllowedCountries),
		AllowedCities:     encode(prefs.AllowedCities),
		AllowedCategories: encode(prefs.AllowedCategories),
		AllowedGenres:     encode(prefs.AllowedGenres),
		BlockedGenres:     encode(prefs.BlockedGenres),
		AllowedVenueSizes: encode(prefs.AllowedVenueSizes),
		SmallVenueMax:     prefs.SmallVenueMax,
		LargeVenueMin:     prefs.LargeVenueMin,
		MaxPastDays:       int64(prefs.MaxPastDays),
		NeedsRescraping:   1,
		UpdatedAt:         time.Now().Unix(),
	})
}

// ClearNeedsRescraping is called by the scheduler after it reacted to
// the flag.
func (s Service) ClearNeedsRescraping(ctx context.Context) error {
	return s.qry.SetNeedsRescraping(ctx, db.SetNeedsRescrapingParams{
		NeedsRescraping: 0,
		UpdatedAt:       time.Now().Unix(),
	})
}
