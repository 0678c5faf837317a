package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cartelera-backend/lib/scrape"
	"cartelera-backend/lib/telemetry"
	"cartelera-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cleanup := telemetry.SetupForTesting("sources")
	defer cleanup()
	m.Run()
}

const discoveryFixture = `{
	"_embedded": {
		"events": [
			{
				"id": "tm-001",
				"name": "Noche de Rock",
				"url": "https://tickets.example.com/tm-001",
				"images": [
					{"url": "https://img.example.com/small.jpg", "width": 100},
					{"url": "https://img.example.com/large.jpg", "width": 1024}
				],
				"dates": {"start": {"dateTime": "2026-09-12T23:00:00Z"}},
				"priceRanges": [{"min": 15000, "max": 42000, "currency": "ARS"}],
				"classifications": [{"segment": {"name": "Music"}, "genre": {"name": "Rock"}}],
				"_embedded": {
					"venues": [{
						"name": "Estadio Obras",
						"city": {"name": "Buenos Aires"},
						"country": {"name": "Argentina"},
						"capacity": 4700
					}]
				}
			},
			{
				"id": "tm-002",
				"name": "Obra de Teatro",
				"url": "https://tickets.example.com/tm-002",
				"dates": {"start": {"localDate": "2026-10-01"}},
				"classifications": [{"segment": {"name": "Arts & Theatre"}, "genre": {"name": "Drama"}}]
			}
		]
	}
}`

func discoveryServer(t *testing.T, handler http.HandlerFunc) TicketmasterConfig {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return TicketmasterConfig{
		ApiKey:      "test-key",
		BaseUrl:     server.URL,
		CountryCode: "AR",
	}
}

func TestTicketmasterMapsDiscoveryPayload(t *testing.T) {
	cfg := discoveryServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/events.json", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		require.Equal(t, "AR", r.URL.Query().Get("countryCode"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(discoveryFixture))
	})

	source, err := NewTicketmaster(cfg)
	require.NoError(t, err)
	require.Equal(t, "ticketmaster", source.Name())

	events, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	require.Equal(t, "tm-001", first.ExternalID)
	require.Equal(t, "Noche de Rock", first.Title)
	require.Equal(t, "Concierto", first.Category)
	require.Equal(t, "Rock", first.Genre)
	require.Equal(t, "Estadio Obras", first.VenueName)
	require.Equal(t, "Buenos Aires", first.City)
	require.Equal(t, 4700, first.VenueCapacity)
	require.Equal(t, float64(15000), first.Price)
	require.Equal(t, float64(42000), first.PriceMax)
	require.Equal(t, "ARS", first.Currency)
	require.Equal(t, "https://img.example.com/large.jpg", first.ImageUrl)

	date, ok := first.Date.(time.Time)
	require.True(t, ok)
	require.Equal(t, time.Date(2026, time.September, 12, 23, 0, 0, 0, time.UTC), date.UTC())

	second := events[1]
	require.Equal(t, "Teatro", second.Category)
	localDate, ok := second.Date.(time.Time)
	require.True(t, ok)
	require.Equal(t,
		time.Date(2026, time.October, 1, 0, 0, 0, 0, timezone.Location),
		localDate)
}

func TestTicketmasterStatusTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		kind   scrape.FetchErrorKind
	}{
		{http.StatusUnauthorized, scrape.KindAuth},
		{http.StatusForbidden, scrape.KindAuth},
		{http.StatusTooManyRequests, scrape.KindRateLimit},
		{http.StatusInternalServerError, scrape.KindNetwork},
	}

	for _, c := range cases {
		cfg := discoveryServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		})
		source, err := NewTicketmaster(cfg)
		require.NoError(t, err)

		_, err = source.Fetch(context.Background())
		var fetchErr *scrape.FetchError
		require.ErrorAs(t, err, &fetchErr)
		require.Equal(t, c.kind, fetchErr.Kind, "status %d", c.status)
		require.Equal(t, "ticketmaster", fetchErr.Source)
	}
}

func TestTicketmasterRequiresApiKey(t *testing.T) {
	_, err := NewTicketmaster(TicketmasterConfig{})
	var cfgErr *scrape.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestSiteConfigsAreValid(t *testing.T) {
	for _, cfg := range SiteConfigs() {
		require.NoError(t, cfg.Validate(), cfg.Name)
	}
}
