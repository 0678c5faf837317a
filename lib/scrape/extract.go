package scrape

import (
	"fmt"
	"net/url"
	"time"

	"cartelera-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Record is one extracted listing item, keyed by field name. Values
// are whatever the bound transform produced (string, float64,
// time.Time).
type Record map[string]any

type extractor struct {
	cfg  Config
	base *url.URL
	loc  *time.Location
	now  func() time.Time
}

func newExtractor(cfg Config, loc *time.Location) (*extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseUrl)
	if err != nil {
		return nil, &ConfigError{Source: cfg.Name, Detail: fmt.Sprintf("invalid base url: %v", err)}
	}
	return &extractor{
		cfg:  cfg,
		base: base,
		loc:  loc,
		now:  time.Now,
	}, nil
}

func (e *extractor) transformContext() TransformContext {
	return TransformContext{
		BaseUrl:  e.base,
		Location: e.loc,
		Now:      e.now(),
	}
}

// extractListing pulls one Record per item-selector match out of a
// parsed listing page. itemErr is called for every item that fails
// extraction and decides (per the item-level policy) whether the page
// survives.
func (e *extractor) extractListing(doc *goquery.Document) ([]Record, []error) {
	var records []Record
	var itemErrors []error

	doc.Find(e.cfg.Listing.ItemSelector).Each(func(i int, item *goquery.Selection) {
		rec, err := e.extractFields(item, e.cfg.Listing.Fields)
		if err != nil {
			itemErrors = append(itemErrors, fmt.Errorf("item %d: %w", i, err))
			return
		}
		for field, value := range e.cfg.Defaults {
			if _, ok := rec[field]; !ok {
				rec[field] = value
			}
		}
		records = append(records, rec)
	})

	return records, itemErrors
}

// extractDetail enriches a listing record in place with the fields of
// a fetched detail page. Listing values win over detail values when
// both exist.
func (e *extractor) extractDetail(rec Record, doc *goquery.Document) error {
	detail, err := e.extractFields(doc.Selection, e.cfg.Detail.Fields)
	if err != nil {
		return err
	}
	for field, value := range detail {
		if _, ok := rec[field]; !ok {
			rec[field] = value
		}
	}
	return nil
}

func (e *extractor) extractFields(root *goquery.Selection, fields map[string]Field) (Record, error) {
	rec := Record{}
	tctx := e.transformContext()

	for name, field := range fields {
		css, attr := splitSelector(field.Selector)
		target := root
		if css != "" {
			target = root.Find(css).First()
		}
		if target.Length() == 0 {
			// unmatched selectors are not an error, sites omit
			// optional blocks per item all the time
			continue
		}

		transform, hasTransform := transforms[field.Transform]

		var raw string
		switch {
		case attr != "":
			raw, _ = target.Attr(attr)
		case hasTransform && transform.RawHtml:
			var err error
			raw, err = target.Html()
			if err != nil {
				return nil, fmt.Errorf("field %q: serialize html: %w", name, err)
			}
		default:
			raw = htmlutil.GetText(target.Nodes[0])
		}

		if !hasTransform {
			value := htmlutil.CleanText(raw)
			if value != "" {
				rec[name] = value
			}
			continue
		}

		value, err := transform.Fn(raw, tctx)
		if err != nil {
			return nil, fmt.Errorf("field %q (%s): %w", name, field.Transform, err)
		}
		rec[name] = value
	}

	return rec, nil
}
