package ingest

import (
	"context"
	"strings"

	"cartelera-backend/lib/scrape"
	"cartelera-backend/lib/timezone"
)

// Source is one external origin of listings. Fetch returns every raw
// listing the origin currently shows; failures are typed
// (*scrape.FetchError) and always scoped to this one source.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]RawEvent, error)
}

// Repository is the persistence surface the orchestrator drives. The
// orchestrator never issues storage queries of its own.
type Repository interface {
	FindExisting(ctx context.Context, source string) ([]Event, error)
	Upsert(ctx context.Context, event Event) (Event, error)
	Delete(ctx context.Context, id int64) error
}

// Blacklist is the persistent suppression set consulted during
// ingestion. Add must be idempotent.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, source, externalID string) (bool, error)
	Add(ctx context.Context, source, externalID, reason string) error
}

// PreferencesProvider yields the acceptance policy. The orchestrator
// snapshots it once at the start of each run.
type PreferencesProvider interface {
	Snapshot(ctx context.Context) (PreferencesSnapshot, error)
}

type recordFetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]scrape.Record, error)
}

type scraperSource struct {
	inner recordFetcher
}

// NewScraperSource builds a Source out of a declarative site config,
// picking the static or browser-rendered engine per the config. The
// config is validated here, at registration, not at fetch time.
func NewScraperSource(cfg scrape.Config) (Source, error) {
	var inner recordFetcher
	var err error
	if cfg.RequiresJavaScript {
		inner, err = scrape.NewBrowserScraper(cfg, timezone.Location)
	} else {
		inner, err = scrape.NewStaticScraper(cfg, timezone.Location)
	}
	if err != nil {
		return nil, err
	}
	return &scraperSource{inner: inner}, nil
}

func (s *scraperSource) Name() string {
	return s.inner.Name()
}

func (s *scraperSource) Fetch(ctx context.Context) ([]RawEvent, error) {
	records, err := s.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]RawEvent, 0, len(records))
	for _, rec := range records {
		events = append(events, recordToRawEvent(s.Name(), rec))
	}
	return events, nil
}

// recordToRawEvent maps the engine's generic field names onto the
// RawEvent shape. Unknown fields are dropped.
func recordToRawEvent(source string, rec scrape.Record) RawEvent {
	raw := RawEvent{Source: source}

	raw.ExternalID = stringField(rec, "externalId")
	raw.Title = stringField(rec, "title")
	raw.Description = stringField(rec, "description")
	raw.Category = stringField(rec, "category")
	raw.Genre = stringField(rec, "genre")
	raw.VenueName = stringField(rec, "venue")
	raw.City = stringField(rec, "city")
	raw.Country = stringField(rec, "country")
	raw.Currency = stringField(rec, "currency")
	raw.ImageUrl = stringField(rec, "imageUrl")
	raw.TicketUrl = stringField(rec, "ticketUrl")

	raw.Date = rec["date"]
	raw.EndDate = rec["endDate"]
	raw.Price = rec["price"]
	raw.PriceMax = rec["priceMax"]
	raw.VenueCapacity = rec["venueCapacity"]

	if artists := stringField(rec, "artists"); artists != "" {
		raw.Artists = splitArtists(artists)
	}

	return raw
}

func stringField(rec scrape.Record, name string) string {
	s, _ := rec[name].(string)
	return s
}

func splitArtists(joined string) []string {
	var artists []string
	for _, part := range strings.FieldsFunc(joined, func(r rune) bool {
		return r == ',' || r == '+'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			artists = append(artists, part)
		}
	}
	return artists
}
