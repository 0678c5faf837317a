// Package sources holds the per-site source definitions: the REST API
// client plus the declarative scraper configs for the sites without an
// API.
package sources

import (
	"context"
	"fmt"
	"time"

	"cartelera-backend/lib/scrape"
	"cartelera-backend/lib/telemetry"
	"cartelera-backend/lib/timezone"
	"cartelera-backend/services/ingest"

	"github.com/go-resty/resty/v2"
)

const ticketmasterBaseUrl = "https://app.ticketmaster.com/discovery/v2"

type TicketmasterConfig struct {
	ApiKey string `json:"api_key"`
	// defaults to the public discovery endpoint, overridable for tests
	BaseUrl            string `json:"base_url"`
	CountryCode        string `json:"country_code"`
	City               string `json:"city"`
	ClassificationName string `json:"classification_name"`
	PageSize           int    `json:"page_size"`
}

// Ticketmaster queries the Discovery API and maps its JSON schema onto
// RawEvents.
type Ticketmaster struct {
	cfg  TicketmasterConfig
	http *resty.Client
}

func NewTicketmaster(cfg TicketmasterConfig) (*Ticketmaster, error) {
	if cfg.ApiKey == "" {
		return nil, &scrape.ConfigError{Source: "ticketmaster", Detail: "missing api key"}
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = ticketmasterBaseUrl
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "AR"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(cfg.BaseUrl)
	httpClient.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(httpClient, "sources/ticketmaster")

	return &Ticketmaster{cfg: cfg, http: httpClient}, nil
}

func (t *Ticketmaster) Name() string {
	return "ticketmaster"
}

type discoveryResponse struct {
	Embedded struct {
		Events []discoveryEvent `json:"events"`
	} `json:"_embedded"`
}

type discoveryEvent struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Url    string `json:"url"`
	Images []struct {
		Url   string `json:"url"`
		Width int    `json:"width"`
	} `json:"images"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
	} `json:"dates"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
		Genre struct {
			Name string `json:"name"`
		} `json:"genre"`
	} `json:"classifications"`
	Info     string `json:"info"`
	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
			Country struct {
				Name string `json:"name"`
			} `json:"country"`
			Capacity int `json:"capacity"`
		} `json:"venues"`
	} `json:"_embedded"`
}

func (t *Ticketmaster) Fetch(ctx context.Context) ([]ingest.RawEvent, error) {
	var payload discoveryResponse

	res, err := t.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":             t.cfg.ApiKey,
			"countryCode":        t.cfg.CountryCode,
			"city":               t.cfg.City,
			"classificationName": t.cfg.ClassificationName,
			"size":               fmt.Sprint(t.cfg.PageSize),
		}).
		SetResult(&payload).
		Get("/events.json")
	if err != nil {
		return nil, scrape.ClassifyTransport(t.Name(), err)
	}

	switch res.StatusCode() {
	case 200:
	case 401, 403:
		return nil, scrape.NewFetchError(t.Name(), scrape.KindAuth, fmt.Errorf("invalid credentials (status %d)", res.StatusCode()))
	case 429:
		return nil, scrape.NewFetchError(t.Name(), scrape.KindRateLimit, fmt.Errorf("rate limited (status %d)", res.StatusCode()))
	default:
		return nil, scrape.NewFetchError(t.Name(), scrape.KindNetwork, fmt.Errorf("status %d", res.StatusCode()))
	}

	events := make([]ingest.RawEvent, 0, len(payload.Embedded.Events))
	for _, ev := range payload.Embedded.Events {
		raw, err := t.mapEvent(ev)
		if err != nil {
			return nil, scrape.NewFetchError(t.Name(), scrape.KindParse, err)
		}
		events = append(events, raw)
	}
	return events, nil
}

func (t *Ticketmaster) mapEvent(ev discoveryEvent) (ingest.RawEvent, error) {
	raw := ingest.RawEvent{
		Source:      t.Name(),
		ExternalID:  ev.Id,
		Title:       ev.Name,
		Description: ev.Info,
		TicketUrl:   ev.Url,
	}

	date, err := parseDiscoveryDate(ev.Dates.Start.DateTime, ev.Dates.Start.LocalDate)
	if err != nil {
		return raw, fmt.Errorf("event %s: %w", ev.Id, err)
	}
	raw.Date = date
	if ev.Dates.End.DateTime != "" {
		if endDate, err := time.Parse(time.RFC3339, ev.Dates.End.DateTime); err == nil {
			raw.EndDate = endDate
		}
	}

	if len(ev.Classifications) > 0 {
		raw.Category = segmentToCategory(ev.Classifications[0].Segment.Name)
		raw.Genre = ev.Classifications[0].Genre.Name
	}

	if len(ev.PriceRanges) > 0 {
		raw.Price = ev.PriceRanges[0].Min
		raw.PriceMax = ev.PriceRanges[0].Max
		raw.Currency = ev.PriceRanges[0].Currency
	}

	if len(ev.Embedded.Venues) > 0 {
		venue := ev.Embedded.Venues[0]
		raw.VenueName = venue.Name
		raw.City = venue.City.Name
		raw.Country = venue.Country.Name
		if venue.Capacity > 0 {
			raw.VenueCapacity = venue.Capacity
		}
	}

	// widest image wins, listings tend to bury the hi-res one
	bestWidth := 0
	for _, img := range ev.Images {
		if img.Width > bestWidth {
			bestWidth = img.Width
			raw.ImageUrl = img.Url
		}
	}

	return raw, nil
}

func parseDiscoveryDate(dateTime, localDate string) (time.Time, error) {
	if dateTime != "" {
		return time.Parse(time.RFC3339, dateTime)
	}
	if localDate != "" {
		return time.ParseInLocation("2006-01-02", localDate, timezone.Location)
	}
	return time.Time{}, fmt.Errorf("no start date")
}

func segmentToCategory(segment string) string {
	switch segment {
	case "Music":
		return string(ingest.CategoryConcierto)
	case "Arts & Theatre":
		return string(ingest.CategoryTeatro)
	default:
		return string(ingest.CategoryOtro)
	}
}
