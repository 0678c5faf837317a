package sources

import (
	"time"

	"cartelera-backend/lib/scrape"
)

// SiteConfigs returns the declarative configs for the scraped sites.
// Selectors live here as data so a markup change on one site is a
// one-line fix, never a code change.
func SiteConfigs() []scrape.Config {
	return []scrape.Config{
		alternativaTeatral(),
		livepass(),
		ventiShows(),
	}
}

// server-rendered listing, paginated, with a detail hop for the
// description and ticket prices
func alternativaTeatral() scrape.Config {
	return scrape.Config{
		Name:    "alternativa-teatral",
		BaseUrl: "https://www.alternativateatral.com",
		Listing: scrape.Listing{
			UrlPattern:   "https://www.alternativateatral.com/cartelera?pagina={page}",
			MaxPages:     5,
			PageDelay:    time.Second,
			ItemSelector: "div.espectaculo",
			Fields: map[string]scrape.Field{
				"title":     {Selector: "h3.titulo a"},
				"venue":     {Selector: "span.sala"},
				"city":      {Selector: "span.localidad"},
				"date":      {Selector: "span.funciones", Transform: "parse_spanish_date"},
				"imageUrl":  {Selector: "div.afiche@style", Transform: "background_image_url"},
				"ticketUrl": {Selector: "h3.titulo a@href", Transform: "resolve_url"},
			},
		},
		Detail: &scrape.Detail{
			UrlField: "ticketUrl",
			Delay:    500 * time.Millisecond,
			Fields: map[string]scrape.Field{
				"description": {Selector: "div.sinopsis", Transform: "sanitize_html"},
				"price":       {Selector: "span.precio", Transform: "extract_price"},
				"artists":     {Selector: "div.elenco span.interprete"},
			},
		},
		Defaults: map[string]string{
			"category": "Teatro",
			"country":  "Argentina",
		},
		RequestsPerSecond: 1,
		Retry: scrape.Retry{
			MaxRetries:        2,
			InitialDelay:      2 * time.Second,
			BackoffMultiplier: 2,
			SkipFailedPages:   true,
			SkipFailedItems:   true,
		},
	}
}

// client-rendered card grid, needs the browser
func livepass() scrape.Config {
	return scrape.Config{
		Name:               "livepass",
		BaseUrl:            "https://livepass.com.ar",
		RequiresJavaScript: true,
		WaitSelector:       "div.event-card",
		RenderTimeout:      15 * time.Second,
		Listing: scrape.Listing{
			UrlPattern:   "https://livepass.com.ar/events",
			ItemSelector: "div.event-card",
			Fields: map[string]scrape.Field{
				"title":     {Selector: "h4.event-title"},
				"venue":     {Selector: "p.event-venue"},
				"date":      {Selector: "p.event-date", Transform: "parse_spanish_date"},
				"price":     {Selector: "span.event-price", Transform: "extract_price"},
				"imageUrl":  {Selector: "div.event-image@style", Transform: "background_image_url"},
				"ticketUrl": {Selector: "a.event-link@href", Transform: "resolve_url"},
			},
		},
		Defaults: map[string]string{
			"category": "Concierto",
			"country":  "Argentina",
			"city":     "Buenos Aires",
		},
		RequestsPerSecond: 0.5,
		Retry: scrape.Retry{
			MaxRetries:        3,
			InitialDelay:      5 * time.Second,
			BackoffMultiplier: 2,
			SkipFailedPages:   true,
			SkipFailedItems:   true,
		},
	}
}

func ventiShows() scrape.Config {
	return scrape.Config{
		Name:               "venti",
		BaseUrl:            "https://venti.com.ar",
		RequiresJavaScript: true,
		WaitSelector:       "article[data-event-id]",
		RenderTimeout:      15 * time.Second,
		Listing: scrape.Listing{
			UrlPattern:   "https://venti.com.ar/shows?page={page}",
			MaxPages:     3,
			PageDelay:    2 * time.Second,
			ItemSelector: "article[data-event-id]",
			Fields: map[string]scrape.Field{
				"externalId": {Selector: "@data-event-id"},
				"title":      {Selector: "h2"},
				"venue":      {Selector: "span.venue-name"},
				"city":       {Selector: "span.venue-city"},
				"date":       {Selector: "time", Transform: "parse_spanish_date"},
				"price":      {Selector: "div.price-from", Transform: "extract_price"},
				"imageUrl":   {Selector: "img@src", Transform: "resolve_url"},
				"ticketUrl":  {Selector: "a.buy@href", Transform: "resolve_url"},
			},
		},
		Defaults: map[string]string{
			"country": "Argentina",
		},
		RequestsPerSecond: 0.5,
		Retry: scrape.Retry{
			MaxRetries:        2,
			InitialDelay:      3 * time.Second,
			BackoffMultiplier: 2,
			SkipFailedPages:   false,
			SkipFailedItems:   true,
		},
	}
}
