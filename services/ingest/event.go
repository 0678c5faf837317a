package ingest

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"cartelera-backend/lib/htmlutil"
	"cartelera-backend/lib/scrape"
	"cartelera-backend/lib/timezone"
)

type Category string

const (
	CategoryConcierto Category = "Concierto"
	CategoryFestival  Category = "Festival"
	CategoryTeatro    Category = "Teatro"
	CategoryStandUp   Category = "Stand Up"
	CategoryFiesta    Category = "Fiesta"
	CategoryOtro      Category = "Otro"
)

var knownCategories = map[Category]bool{
	CategoryConcierto: true,
	CategoryFestival:  true,
	CategoryTeatro:    true,
	CategoryStandUp:   true,
	CategoryFiesta:    true,
	CategoryOtro:      true,
}

// RawEvent is the loosely typed record a source hands over before
// normalization. Title and some date-like value are the only things a
// source must produce, everything else is best effort.
type RawEvent struct {
	Source     string
	ExternalID string

	Title       string
	Description string
	Category    string
	Genre       string
	Artists     []string

	// string in a site's local format or an already-parsed time.Time
	Date    any
	EndDate any

	VenueName     string
	VenueCapacity any
	City          string
	Country       string

	// string amount in site formatting or a number
	Price    any
	PriceMax any
	Currency string

	ImageUrl  string
	TicketUrl string
}

// Event is the canonical, persisted representation of one listing.
// (Source, ExternalID) uniquely identifies its external origin. City
// and Country use the empty string, never null, as the placeholder for
// sources that do not carry the field.
type Event struct {
	ID         int64
	Source     string
	ExternalID string

	Title       string
	Description string
	Category    Category
	Genre       string
	Artists     []string

	Date    time.Time
	EndDate *time.Time

	VenueName     string
	VenueCapacity *int64
	City          string
	Country       string

	Price    *float64
	PriceMax *float64
	Currency string

	ImageUrl  string
	TicketUrl string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Normalize maps a RawEvent into the canonical model. It fails when
// the invariants cannot be met: a cleaned non-empty title and a
// parseable date.
func Normalize(raw RawEvent) (Event, error) {
	title := htmlutil.CleanText(raw.Title)
	if title == "" {
		return Event{}, fmt.Errorf("missing title")
	}

	date, err := coerceTime(raw.Date)
	if err != nil {
		return Event{}, fmt.Errorf("date: %w", err)
	}

	event := Event{
		Source:      raw.Source,
		ExternalID:  raw.ExternalID,
		Title:       title,
		Description: raw.Description,
		Category:    normalizeCategory(raw.Category),
		Genre:       strings.TrimSpace(raw.Genre),
		Artists:     raw.Artists,
		Date:        date,
		VenueName:   htmlutil.CleanText(raw.VenueName),
		City:        strings.TrimSpace(raw.City),
		Country:     strings.TrimSpace(raw.Country),
		Currency:    raw.Currency,
		ImageUrl:    raw.ImageUrl,
		TicketUrl:   raw.TicketUrl,
	}

	if raw.EndDate != nil {
		endDate, err := coerceTime(raw.EndDate)
		if err == nil {
			event.EndDate = &endDate
		}
	}
	if raw.Price != nil {
		if price, err := coerceFloat(raw.Price); err == nil {
			event.Price = &price
		}
	}
	if raw.PriceMax != nil {
		if priceMax, err := coerceFloat(raw.PriceMax); err == nil {
			event.PriceMax = &priceMax
		}
	}
	if raw.VenueCapacity != nil {
		if capacity, err := coerceFloat(raw.VenueCapacity); err == nil && capacity > 0 {
			c := int64(capacity)
			event.VenueCapacity = &c
		}
	}

	if event.Currency == "" {
		event.Currency = "ARS"
	}
	if event.ExternalID == "" {
		event.ExternalID = deriveExternalID(event)
	}

	return event, nil
}

func normalizeCategory(category string) Category {
	c := Category(strings.TrimSpace(category))
	if knownCategories[c] {
		return c
	}
	return CategoryOtro
}

func coerceTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, fmt.Errorf("zero timestamp")
		}
		return v, nil
	case string:
		parsed, err := scrape.ParseSpanishDate(v, timezone.Location, timezone.Now())
		if err != nil {
			return time.Time{}, err
		}
		return parsed, nil
	case nil:
		return time.Time{}, fmt.Errorf("missing value")
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", value)
	}
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return scrape.ParsePrice(v)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}

// sources without a stable id get a synthetic one so blacklisting and
// upserts still have a key that survives re-scraping
func deriveExternalID(event Event) string {
	if event.TicketUrl != "" {
		return event.TicketUrl
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d", strings.ToLower(event.Title), event.Date.Unix())
	return fmt.Sprintf("synthetic-%x", h.Sum64())
}
