package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cartelera-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func listingPage(items int, page int) string {
	var b strings.Builder
	b.WriteString("<html><body><div id='list'>")
	for i := 0; i < items; i++ {
		fmt.Fprintf(&b, `
			<div class="event-card">
				<h3 class="title">Show %d de la página %d</h3>
				<span class="date">15 de marzo 2025</span>
				<a class="more" href="/evento/%d-%d">ver más</a>
			</div>`, i, page, page, i)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func serverConfig(serverUrl string) Config {
	return Config{
		Name:    "testsource",
		BaseUrl: serverUrl,
		Listing: Listing{
			UrlPattern:   serverUrl + "/eventos?page={page}",
			MaxPages:     3,
			ItemSelector: "div.event-card",
			Fields: map[string]Field{
				"title":     {Selector: "h3.title"},
				"date":      {Selector: "span.date", Transform: "parse_spanish_date"},
				"ticketUrl": {Selector: "a.more@href", Transform: "resolve_url"},
			},
		},
		RequestsPerSecond: 1000,
		Retry: Retry{
			MaxRetries:        0,
			InitialDelay:      time.Millisecond,
			BackoffMultiplier: 2,
		},
	}
}

func TestPaginationCap(t *testing.T) {
	var lastPage atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		var p int
		fmt.Sscanf(page, "%d", &p)
		lastPage.Store(int32(p))
		// every page matches the item selector, even a hypothetical 4th
		fmt.Fprint(w, listingPage(10, p))
	}))
	defer server.Close()

	scraper, err := NewStaticScraper(serverConfig(server.URL), timezone.Location)
	require.NoError(t, err)

	records, err := scraper.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 30)
	require.EqualValues(t, 3, lastPage.Load())

	first := records[0]
	require.Equal(t, "Show 0 de la página 1", first["title"])
	require.IsType(t, time.Time{}, first["date"])
	require.Equal(t, server.URL+"/evento/1-0", first["ticketUrl"])
}

func TestPaginationStopsOnEmptyPage(t *testing.T) {
	var requested atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested.Add(1)
		page := r.URL.Query().Get("page")
		if page == "1" {
			fmt.Fprint(w, listingPage(4, 1))
			return
		}
		fmt.Fprint(w, "<html><body><p>no hay más eventos</p></body></html>")
	}))
	defer server.Close()

	scraper, err := NewStaticScraper(serverConfig(server.URL), timezone.Location)
	require.NoError(t, err)

	records, err := scraper.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)
	// page 3 is never requested once page 2 comes back empty
	require.EqualValues(t, 2, requested.Load())
}

func TestRetryPolicyAttemptCount(t *testing.T) {
	var calls atomic.Int32
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		stamps = append(stamps, time.Now())
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := serverConfig(server.URL)
	cfg.Listing.MaxPages = 1
	cfg.Retry = Retry{
		MaxRetries:        3,
		InitialDelay:      time.Millisecond * 20,
		BackoffMultiplier: 2,
	}

	scraper, err := NewStaticScraper(cfg, timezone.Location)
	require.NoError(t, err)

	_, err = scraper.Fetch(context.Background())
	require.Error(t, err)

	// 1 initial call + 3 retries, then the source gives up
	require.EqualValues(t, 4, calls.Load())

	// backoff doubles between attempts: ~20ms, ~40ms, ~80ms
	require.Len(t, stamps, 4)
	gap1 := stamps[1].Sub(stamps[0])
	gap2 := stamps[2].Sub(stamps[1])
	gap3 := stamps[3].Sub(stamps[2])
	require.GreaterOrEqual(t, gap1, time.Millisecond*20)
	require.GreaterOrEqual(t, gap2, time.Millisecond*40)
	require.GreaterOrEqual(t, gap3, time.Millisecond*80)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, KindNetwork, fetchErr.Kind)
}

func TestStatusCodeTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		kind   FetchErrorKind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusBadGateway, KindNetwork},
	}

	for _, test := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(test.status)
		}))

		cfg := serverConfig(server.URL)
		cfg.Listing.MaxPages = 1
		scraper, err := NewStaticScraper(cfg, timezone.Location)
		require.NoError(t, err)

		_, err = scraper.Fetch(context.Background())
		require.Error(t, err)

		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		require.Equal(t, test.kind, fetchErr.Kind, "status %d", test.status)

		server.Close()
	}
}

func TestAuthFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := serverConfig(server.URL)
	cfg.Listing.MaxPages = 1
	cfg.Retry = Retry{
		MaxRetries:        3,
		InitialDelay:      time.Millisecond,
		BackoffMultiplier: 2,
	}

	scraper, err := NewStaticScraper(cfg, timezone.Location)
	require.NoError(t, err)

	_, err = scraper.Fetch(context.Background())
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, KindAuth, fetchErr.Kind)
	// a 401 will not get better on the second attempt
	require.EqualValues(t, 1, calls.Load())
}

func TestSkipFailedPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var p int
		fmt.Sscanf(page, "%d", &p)
		fmt.Fprint(w, listingPage(2, p))
	}))
	defer server.Close()

	cfg := serverConfig(server.URL)
	cfg.Retry.SkipFailedPages = true

	scraper, err := NewStaticScraper(cfg, timezone.Location)
	require.NoError(t, err)

	records, err := scraper.Fetch(context.Background())
	require.NoError(t, err)
	// pages 1 and 3 survive, page 2 is skipped
	require.Len(t, records, 4)
}

func brokenItemPage() string {
	return `<html><body>
		<div class="event-card">
			<h3 class="title">Fecha rota</h3>
			<span class="date">próximamente</span>
		</div>
		<div class="event-card">
			<h3 class="title">Fecha sana</h3>
			<span class="date">20 de abril 2025</span>
		</div>
	</body></html>`
}

func TestItemPolicySkip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, brokenItemPage())
	}))
	defer server.Close()

	cfg := serverConfig(server.URL)
	cfg.Listing.MaxPages = 1
	cfg.Retry.SkipFailedItems = true

	scraper, err := NewStaticScraper(cfg, timezone.Location)
	require.NoError(t, err)

	records, err := scraper.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Fecha sana", records[0]["title"])
}

func TestItemPolicyAbort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, brokenItemPage())
	}))
	defer server.Close()

	cfg := serverConfig(server.URL)
	cfg.Listing.MaxPages = 1
	cfg.Retry.SkipFailedItems = false

	scraper, err := NewStaticScraper(cfg, timezone.Location)
	require.NoError(t, err)

	_, err = scraper.Fetch(context.Background())
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, KindParse, fetchErr.Kind)
}

func TestDetailPageEnrichment(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/eventos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="event-card">
				<h3 class="title">Con detalle</h3>
				<span class="date">15 de marzo 2025</span>
				<a class="more" href="/evento/1">ver más</a>
			</div>
		</body></html>`)
	})
	mux.HandleFunc("/evento/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="descripcion"><p>Banda <b>en vivo</b><script>x()</script></p></div>
			<span class="precio">$ 12.500</span>
		</body></html>`)
	})
	server := httptest.NewServer(&mux)
	defer server.Close()

	cfg := serverConfig(server.URL)
	cfg.Listing.MaxPages = 1
	cfg.Detail = &Detail{
		UrlField: "ticketUrl",
		Fields: map[string]Field{
			"description": {Selector: "div.descripcion", Transform: "sanitize_html"},
			"price":       {Selector: "span.precio", Transform: "extract_price"},
		},
	}

	scraper, err := NewStaticScraper(cfg, timezone.Location)
	require.NoError(t, err)

	records, err := scraper.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, "<p>Banda <b>en vivo</b></p>", rec["description"])
	require.InDelta(t, 12500.0, rec["price"], 0.001)
	// listing fields survive enrichment
	require.Equal(t, "Con detalle", rec["title"])
}

// the enrichment loop is shared between both engines, so the headless
// variant gets the same detail hop as the http one
func TestDetailEnrichmentIsEngineAgnostic(t *testing.T) {
	cfg := Config{
		Name:    "testsource",
		BaseUrl: "https://tickets.example.com",
		Listing: Listing{
			UrlPattern:   "https://tickets.example.com/eventos",
			ItemSelector: "div.event-card",
			Fields: map[string]Field{
				"title":     {Selector: "h3.title"},
				"ticketUrl": {Selector: "a.more@href", Transform: "resolve_url"},
			},
		},
		Detail: &Detail{
			UrlField: "ticketUrl",
			Fields: map[string]Field{
				"price": {Selector: "span.precio", Transform: "extract_price"},
			},
		},
	}

	ext, err := newExtractor(cfg, timezone.Location)
	require.NoError(t, err)

	records := []Record{
		{"title": "Con detalle", "ticketUrl": "https://tickets.example.com/evento/1"},
		{"title": "Sin detalle"},
	}

	var visited []string
	fetch := func(_ context.Context, pageUrl string) (*goquery.Document, error) {
		visited = append(visited, pageUrl)
		return goquery.NewDocumentFromReader(strings.NewReader(
			`<html><body><span class="precio">$ 8.000</span></body></html>`))
	}

	enriched, err := enrichFromDetailPages(context.Background(), ext, records, fetch)
	require.NoError(t, err)
	require.Equal(t, []string{"https://tickets.example.com/evento/1"}, visited)
	require.Len(t, enriched, 2)
	require.InDelta(t, 8000.0, enriched[0]["price"], 0.001)
	// records without a detail url pass through untouched
	require.NotContains(t, enriched[1], "price")
}

func TestRunCancellationAbortsFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		fmt.Fprint(w, listingPage(1, 1))
	}))
	defer server.Close()

	cfg := serverConfig(server.URL)
	scraper, err := NewStaticScraper(cfg, timezone.Location)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()

	_, err = scraper.Fetch(ctx)
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, KindTimeout, fetchErr.Kind)
}
