package scrape

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the declarative description of one scraped site. It is
// loaded once at source registration and never mutated afterwards.
type Config struct {
	Name    string
	BaseUrl string

	// when set, pages are rendered in a headless browser before
	// extraction. WaitSelector (or RenderTimeout as a fallback) decides
	// when the DOM is considered settled.
	RequiresJavaScript bool
	WaitSelector       string
	RenderTimeout      time.Duration

	Listing Listing
	// optional second hop per item to enrich fields the listing page
	// does not carry
	Detail *Detail

	// values filled into every record for fields the site never shows
	Defaults map[string]string

	RequestsPerSecond float64
	Retry             Retry
}

type Listing struct {
	// UrlPattern may contain {page}, replaced with the 1-based page
	// number. Without the placeholder only a single page is fetched.
	UrlPattern   string
	MaxPages     int
	PageDelay    time.Duration
	ItemSelector string
	Fields       map[string]Field
}

type Detail struct {
	// name of the listing field holding the detail page url
	UrlField string
	Delay    time.Duration
	// browser-rendered sources wait for this selector on detail pages,
	// falling back to the render timeout when empty
	WaitSelector string
	Fields       map[string]Field
}

// Field binds a CSS selector to an optional named transform. A
// `@attr` suffix on the selector reads an attribute instead of the
// element text, e.g. `a.cover@href`. An empty selector targets the
// item element itself.
type Field struct {
	Selector  string
	Transform string
}

type Retry struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64

	// page- and item-level failure policies are independent: a page
	// that exhausts its retries can be skipped while a single broken
	// item still aborts the source, and vice versa.
	SkipFailedPages bool
	SkipFailedItems bool
}

const defaultMaxPages = 1

// Validate catches config typos eagerly, at source registration, so a
// bad selector or an unknown transform name never survives to fetch
// time.
func (c Config) Validate() error {
	fail := func(format string, args ...any) error {
		return &ConfigError{Source: c.Name, Detail: fmt.Sprintf(format, args...)}
	}

	if c.Name == "" {
		return &ConfigError{Source: "(unnamed)", Detail: "missing name"}
	}
	if c.BaseUrl == "" {
		return fail("missing base url")
	}
	if _, err := url.Parse(c.BaseUrl); err != nil {
		return fail("invalid base url: %v", err)
	}
	if c.Listing.UrlPattern == "" {
		return fail("missing listing url pattern")
	}
	if c.Listing.ItemSelector == "" {
		return fail("missing listing item selector")
	}
	if len(c.Listing.Fields) == 0 {
		return fail("listing declares no fields")
	}
	if _, ok := c.Listing.Fields["title"]; !ok {
		return fail("listing must bind a %q field", "title")
	}
	if err := validateFields(c.Name, c.Listing.Fields); err != nil {
		return err
	}

	if c.Detail != nil {
		if c.Detail.UrlField == "" {
			return fail("detail section is missing its url field")
		}
		if _, ok := c.Listing.Fields[c.Detail.UrlField]; !ok {
			return fail("detail url field %q is not extracted by the listing", c.Detail.UrlField)
		}
		if len(c.Detail.Fields) == 0 {
			return fail("detail section declares no fields")
		}
		if err := validateFields(c.Name, c.Detail.Fields); err != nil {
			return err
		}
	}

	if c.Retry.MaxRetries < 0 {
		return fail("negative max retries")
	}
	if c.Retry.MaxRetries > 0 && c.Retry.BackoffMultiplier < 1 {
		return fail("backoff multiplier must be >= 1")
	}
	if c.RequiresJavaScript && c.WaitSelector == "" && c.RenderTimeout <= 0 {
		return fail("javascript rendering needs a wait selector or a render timeout")
	}

	return nil
}

func validateFields(source string, fields map[string]Field) error {
	for name, f := range fields {
		if f.Transform != "" {
			if _, ok := transforms[f.Transform]; !ok {
				return &ConfigError{
					Source: source,
					Detail: fmt.Sprintf("field %q references unknown transform %q", name, f.Transform),
				}
			}
		}
		if strings.Count(f.Selector, "@") > 1 {
			return &ConfigError{
				Source: source,
				Detail: fmt.Sprintf("field %q has a malformed selector %q", name, f.Selector),
			}
		}
	}
	return nil
}

func (c Config) maxPages() int {
	if c.Listing.MaxPages <= 0 {
		return defaultMaxPages
	}
	return c.Listing.MaxPages
}

func (c Config) pageUrl(page int) string {
	return strings.ReplaceAll(c.Listing.UrlPattern, "{page}", fmt.Sprint(page))
}

func splitSelector(selector string) (css, attr string) {
	idx := strings.LastIndex(selector, "@")
	if idx < 0 {
		return selector, ""
	}
	return selector[:idx], selector[idx+1:]
}
