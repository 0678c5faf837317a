package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BrowserScraper handles the sites that only materialize their
// listings client side. It shares the selector/transform contract with
// StaticScraper, the only difference is that the DOM is snapshotted
// from a headless browser after the page settles.
type BrowserScraper struct {
	ext *extractor
}

func NewBrowserScraper(cfg Config, loc *time.Location) (*BrowserScraper, error) {
	ext, err := newExtractor(cfg, loc)
	if err != nil {
		return nil, err
	}
	return &BrowserScraper{ext: ext}, nil
}

func (b *BrowserScraper) Name() string {
	return b.ext.cfg.Name
}

func (b *BrowserScraper) Fetch(ctx context.Context) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "BrowserScraper.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("source", b.Name()))

	cfg := b.ext.cfg

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	var records []Record

	for page := 1; page <= cfg.maxPages(); page++ {
		if page > 1 {
			if err := sleepCtx(ctx, cfg.Listing.PageDelay); err != nil {
				return records, ClassifyTransport(b.Name(), err)
			}
		}

		pageUrl := cfg.pageUrl(page)
		doc, err := b.renderDocument(allocCtx, pageUrl, cfg.WaitSelector)
		if err != nil {
			if cfg.Retry.SkipFailedPages {
				slog.WarnContext(ctx, "skipping failed page", "source", b.Name(), "page", page, "err", err)
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "page render failed")
			return nil, err
		}

		pageRecords, itemErrors := b.ext.extractListing(doc)
		if len(itemErrors) > 0 && !cfg.Retry.SkipFailedItems {
			err := NewFetchError(b.Name(), KindParse, itemErrors[0])
			span.RecordError(err)
			span.SetStatus(codes.Error, "item extraction failed")
			return nil, err
		}
		for _, itemErr := range itemErrors {
			slog.WarnContext(ctx, "skipping failed item", "source", b.Name(), "page", page, "err", itemErr)
		}

		if len(pageRecords) == 0 && len(itemErrors) == 0 {
			break
		}

		if cfg.Detail != nil {
			pageRecords, err = enrichFromDetailPages(ctx, b.ext, pageRecords,
				func(_ context.Context, pageUrl string) (*goquery.Document, error) {
					return b.renderDocument(allocCtx, pageUrl, cfg.Detail.WaitSelector)
				})
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "detail render failed")
				return nil, err
			}
		}

		records = append(records, pageRecords...)
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

// renderDocument loads a page in a fresh headless tab, waits for the
// given selector (or the render timeout) and snapshots the DOM.
// Retries follow the same policy as static page fetches.
func (b *BrowserScraper) renderDocument(allocCtx context.Context, pageUrl string, waitSelector string) (*goquery.Document, error) {
	cfg := b.ext.cfg

	var doc *goquery.Document
	err := withRetry(allocCtx, cfg.Retry, func() error {
		tabCtx, cancelTab := chromedp.NewContext(allocCtx)
		defer cancelTab()

		timeout := cfg.RenderTimeout
		if timeout <= 0 {
			timeout = time.Second * 30
		}
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
		defer cancelTimeout()

		actions := []chromedp.Action{chromedp.Navigate(pageUrl)}
		if waitSelector != "" {
			actions = append(actions, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
		} else {
			actions = append(actions, chromedp.Sleep(timeout/2))
		}

		var rendered string
		actions = append(actions, chromedp.OuterHTML("html", &rendered, chromedp.ByQuery))

		if err := chromedp.Run(tabCtx, actions...); err != nil {
			return ClassifyTransport(b.Name(), fmt.Errorf("render %s: %w", pageUrl, err))
		}

		var err error
		doc, err = goquery.NewDocumentFromReader(strings.NewReader(rendered))
		if err != nil {
			return NewFetchError(b.Name(), KindParse, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}
