package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"time"

	"cartelera-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("lib/scrape")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// StaticScraper fetches and extracts listings from sites that render
// server side. Pages within one source are fetched strictly in
// sequence, politeness is the whole point of the per-source rate
// limit.
type StaticScraper struct {
	ext  *extractor
	http *resty.Client
}

func NewStaticScraper(cfg Config, loc *time.Location) (*StaticScraper, error) {
	ext, err := newExtractor(cfg, loc)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(cfg.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(ext.base.Hostname()))
	httpClient.SetTimeout(time.Second * 30)

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(rps), 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, fmt.Sprintf("scrape/%s", cfg.Name))

	return &StaticScraper{
		ext:  ext,
		http: httpClient,
	}, nil
}

func (s *StaticScraper) Name() string {
	return s.ext.cfg.Name
}

func (s *StaticScraper) Fetch(ctx context.Context) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "StaticScraper.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("source", s.Name()))

	cfg := s.ext.cfg
	var records []Record

	for page := 1; page <= cfg.maxPages(); page++ {
		if page > 1 {
			if err := sleepCtx(ctx, cfg.Listing.PageDelay); err != nil {
				return records, ClassifyTransport(s.Name(), err)
			}
		}

		pageUrl := cfg.pageUrl(page)
		doc, err := s.fetchDocument(ctx, pageUrl)
		if err != nil {
			if cfg.Retry.SkipFailedPages {
				slog.WarnContext(ctx, "skipping failed page", "source", s.Name(), "page", page, "err", err)
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "page fetch failed")
			return nil, err
		}

		pageRecords, itemErrors := s.ext.extractListing(doc)
		if len(itemErrors) > 0 && !cfg.Retry.SkipFailedItems {
			err := NewFetchError(s.Name(), KindParse, itemErrors[0])
			span.RecordError(err)
			span.SetStatus(codes.Error, "item extraction failed")
			return nil, err
		}
		for _, itemErr := range itemErrors {
			slog.WarnContext(ctx, "skipping failed item", "source", s.Name(), "page", page, "err", itemErr)
		}

		if len(pageRecords) == 0 && len(itemErrors) == 0 {
			// ran out of listings before maxPages, stop paginating
			break
		}

		if cfg.Detail != nil {
			pageRecords, err = enrichFromDetailPages(ctx, s.ext, pageRecords, s.fetchDocument)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "detail fetch failed")
				return nil, err
			}
		}

		records = append(records, pageRecords...)
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

// enrichFromDetailPages visits each record's detail page and merges in
// the detail fields. The fetch func abstracts over the engine: the
// static scraper passes its http fetch, the browser scraper its
// headless render.
func enrichFromDetailPages(
	ctx context.Context,
	ext *extractor,
	records []Record,
	fetch func(ctx context.Context, pageUrl string) (*goquery.Document, error),
) ([]Record, error) {
	cfg := ext.cfg
	source := cfg.Name
	kept := records[:0]

	for i, rec := range records {
		detailUrl, ok := rec[cfg.Detail.UrlField].(string)
		if !ok || detailUrl == "" {
			kept = append(kept, rec)
			continue
		}

		if i > 0 {
			if err := sleepCtx(ctx, cfg.Detail.Delay); err != nil {
				return nil, ClassifyTransport(source, err)
			}
		}

		doc, err := fetch(ctx, detailUrl)
		if err == nil {
			err = ext.extractDetail(rec, doc)
			if err != nil {
				err = NewFetchError(source, KindParse, err)
			}
		}
		if err != nil {
			if cfg.Retry.SkipFailedItems {
				slog.WarnContext(ctx, "skipping item with failed detail page", "source", source, "url", detailUrl, "err", err)
				continue
			}
			return nil, err
		}

		kept = append(kept, rec)
	}

	return kept, nil
}

// fetchDocument gets and parses one page, retrying recoverable
// failures with exponential backoff per the source's retry policy.
func (s *StaticScraper) fetchDocument(ctx context.Context, pageUrl string) (*goquery.Document, error) {
	var doc *goquery.Document

	err := withRetry(ctx, s.ext.cfg.Retry, func() error {
		res, err := s.http.R().
			SetContext(ctx).
			Get(pageUrl)
		if err != nil {
			return ClassifyTransport(s.Name(), err)
		}
		if res.StatusCode() == 401 || res.StatusCode() == 403 {
			return NewFetchError(s.Name(), KindAuth, fmt.Errorf("status %d for %s", res.StatusCode(), pageUrl))
		}
		if res.StatusCode() == 429 {
			return NewFetchError(s.Name(), KindRateLimit, fmt.Errorf("status %d for %s", res.StatusCode(), pageUrl))
		}
		if res.IsError() {
			return NewFetchError(s.Name(), KindNetwork, fmt.Errorf("status %d for %s", res.StatusCode(), pageUrl))
		}

		doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
		if err != nil {
			return NewFetchError(s.Name(), KindParse, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// withRetry runs fn up to 1+MaxRetries times. The delay before retry
// n (0-based) is InitialDelay * BackoffMultiplier^n. Auth and parse
// failures are terminal, a 401 or mangled markup will not get better
// on the next attempt.
func withRetry(ctx context.Context, policy Retry, fn func() error) error {
	delay := policy.InitialDelay

	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !recoverable(err) {
			return err
		}
		if attempt >= policy.MaxRetries {
			return err
		}
		if sleepErr := sleepCtx(ctx, delay); sleepErr != nil {
			return err
		}
		delay = time.Duration(float64(delay) * policy.BackoffMultiplier)
	}
}

func recoverable(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.Kind {
		case KindAuth, KindParse:
			return false
		}
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
