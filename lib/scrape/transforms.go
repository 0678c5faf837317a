package scrape

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cartelera-backend/lib/htmlutil"
)

// TransformContext carries the per-source environment a transform may
// need, transforms themselves stay pure functions of (raw, ctx).
type TransformContext struct {
	BaseUrl  *url.URL
	Location *time.Location
	Now      time.Time
}

type TransformFunc func(raw string, tctx TransformContext) (any, error)

type Transform struct {
	Fn TransformFunc
	// RawHtml transforms receive the element's inner HTML rather than
	// its text content
	RawHtml bool
}

var transforms = map[string]Transform{
	"trim":                 {Fn: transformTrim},
	"parse_spanish_date":   {Fn: transformSpanishDate},
	"extract_price":        {Fn: transformPrice},
	"resolve_url":          {Fn: transformResolveUrl},
	"background_image_url": {Fn: transformBackgroundImage},
	"sanitize_html":        {Fn: transformSanitizeHtml, RawHtml: true},
}

func transformTrim(raw string, _ TransformContext) (any, error) {
	return htmlutil.CleanText(raw), nil
}

// ParseSpanishDate exposes the parse_spanish_date transform to callers
// that get date strings from places other than a selector, e.g. API
// payload mappers.
func ParseSpanishDate(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	value, err := transformSpanishDate(raw, TransformContext{Location: loc, Now: now})
	if err != nil {
		return time.Time{}, err
	}
	return value.(time.Time), nil
}

// ParsePrice exposes the extract_price transform.
func ParsePrice(raw string) (float64, error) {
	value, err := transformPrice(raw, TransformContext{})
	if err != nil {
		return 0, err
	}
	return value.(float64), nil
}

var spanishMonths = map[string]time.Month{
	"enero": time.January, "ene": time.January,
	"febrero": time.February, "feb": time.February,
	"marzo": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"mayo": time.May, "may": time.May,
	"junio": time.June, "jun": time.June,
	"julio": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"septiembre": time.September, "setiembre": time.September, "sep": time.September, "set": time.September,
	"octubre": time.October, "oct": time.October,
	"noviembre": time.November, "nov": time.November,
	"diciembre": time.December, "dic": time.December,
}

// "y 3 fechas más", "+2 fechas" and similar multi-date suffixes, the
// first date is the one we keep
var moreDatesRegex = regexp.MustCompile(`(?i)\s*(?:y|\+)\s*\d+\s*fechas?(?:\s+m[áa]s)?.*$`)

var longDateRegex = regexp.MustCompile(`(?i)(\d{1,2})\s+de\s+([\p{L}]+)(?:\s+(?:de\s+)?(\d{4}))?`)
var shortDateRegex = regexp.MustCompile(`(?i)(\d{1,2})\s+([\p{L}]{3,})\.?\s*(\d{4})?`)
var numericDateRegex = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
var isoDateRegex = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

// transformSpanishDate parses the date formats the Argentine ticketing
// sites actually publish: "15 de marzo 2025", "15 de marzo",
// "Sáb 15 Mar", "15/03/2025" and ISO timestamps. A listing that
// announces several dates ("... y 3 fechas más") resolves to its first
// date. Dates without a year resolve to the next occurrence.
func transformSpanishDate(raw string, tctx TransformContext) (any, error) {
	loc := tctx.Location
	if loc == nil {
		loc = time.UTC
	}

	s := htmlutil.CleanText(raw)
	s = moreDatesRegex.ReplaceAllString(s, "")
	if s == "" {
		return nil, fmt.Errorf("empty date string")
	}

	if groups := isoDateRegex.FindStringSubmatch(s); groups != nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		year, _ := strconv.Atoi(groups[1])
		month, _ := strconv.Atoi(groups[2])
		day, _ := strconv.Atoi(groups[3])
		return makeDate(year, time.Month(month), day, loc)
	}

	if groups := numericDateRegex.FindStringSubmatch(s); groups != nil {
		day, _ := strconv.Atoi(groups[1])
		month, _ := strconv.Atoi(groups[2])
		year, _ := strconv.Atoi(groups[3])
		return makeDate(year, time.Month(month), day, loc)
	}

	groups := longDateRegex.FindStringSubmatch(s)
	if groups == nil {
		groups = shortDateRegex.FindStringSubmatch(s)
	}
	if groups == nil {
		return nil, fmt.Errorf("unrecognized date format: %q", raw)
	}

	day, _ := strconv.Atoi(groups[1])
	month, ok := spanishMonths[strings.ToLower(groups[2])]
	if !ok {
		return nil, fmt.Errorf("unknown month name %q in %q", groups[2], raw)
	}

	if groups[3] != "" {
		year, _ := strconv.Atoi(groups[3])
		return makeDate(year, month, day, loc)
	}

	// no year on the listing: the show is upcoming, so pick the next
	// occurrence of that calendar date
	now := tctx.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)
	candidate := time.Date(now.Year(), month, day, 0, 0, 0, 0, loc)
	if candidate.Before(now.AddDate(0, 0, -1)) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate, nil
}

func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, error) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date out of range: %04d-%02d-%02d", year, month, day)
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc), nil
}

var priceNumberRegex = regexp.MustCompile(`\d[\d.,]*`)
var freeRegex = regexp.MustCompile(`(?i)\b(gratis|gratuito|free|entrada libre)\b`)

// transformPrice pulls the first numeric amount out of a
// currency-formatted string, honoring the Argentine convention of dots
// for thousands and a comma for decimals ("$ 15.000,50" -> 15000.50).
func transformPrice(raw string, _ TransformContext) (any, error) {
	s := htmlutil.CleanText(raw)
	if freeRegex.MatchString(s) {
		return 0.0, nil
	}

	num := priceNumberRegex.FindString(s)
	if num == "" {
		return nil, fmt.Errorf("no numeric amount in %q", raw)
	}
	// "$ 5.000.-" style suffixes leave a dangling separator
	num = strings.TrimRight(num, ".,")

	if strings.Contains(num, ",") {
		num = strings.ReplaceAll(num, ".", "")
		num = strings.Replace(num, ",", ".", 1)
	} else if dotGroupsRegex.MatchString(num) {
		num = strings.ReplaceAll(num, ".", "")
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return value, nil
}

// dots followed by exactly three digits are thousand separators
var dotGroupsRegex = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

func transformResolveUrl(raw string, tctx TransformContext) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("empty url")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", raw, err)
	}
	if tctx.BaseUrl != nil {
		parsed = tctx.BaseUrl.ResolveReference(parsed)
	}
	return parsed.String(), nil
}

func transformBackgroundImage(raw string, tctx TransformContext) (any, error) {
	imageUrl := htmlutil.BackgroundImageUrl(raw)
	if imageUrl == "" {
		return nil, fmt.Errorf("no background-image in style %q", raw)
	}
	return transformResolveUrl(imageUrl, tctx)
}

func transformSanitizeHtml(raw string, _ TransformContext) (any, error) {
	return htmlutil.Sanitize(raw), nil
}
