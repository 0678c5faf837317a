package ingest

import (
	"fmt"
	"time"

	"cartelera-backend/lib/textutil"
)

type VenueSize string

const (
	VenueSmall  VenueSize = "small"
	VenueMedium VenueSize = "medium"
	VenueLarge  VenueSize = "large"
)

// PreferencesSnapshot is the acceptance policy frozen at the start of
// one orchestrator run. Empty slices mean "no restriction" for the
// allow-lists.
type PreferencesSnapshot struct {
	AllowedCountries  []string
	AllowedCities     []string
	AllowedCategories []Category
	AllowedGenres     []string
	BlockedGenres     []string
	AllowedVenueSizes []VenueSize

	// capacity < SmallVenueMax is small, >= LargeVenueMin is large,
	// anything between is medium
	SmallVenueMax int64
	LargeVenueMin int64

	// events older than this many days are rejected
	MaxPastDays int

	NeedsRescraping bool
}

// Verdict is the outcome of one acceptance check. A rejection carries
// the reason and the offending field; it is a normal value, never an
// error.
type Verdict struct {
	Valid  bool
	Reason string
	Field  string
}

func accept() Verdict {
	return Verdict{Valid: true}
}

func reject(field, format string, args ...any) Verdict {
	return Verdict{Valid: false, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsAcceptable evaluates the policy checks in order and reports the
// first failure. The checks are a predicate over the event, they never
// halt the pipeline.
func IsAcceptable(event Event, prefs PreferencesSnapshot, now time.Time) Verdict {
	if event.Date.IsZero() {
		return reject("date", "missing date")
	}
	maxPast := prefs.MaxPastDays
	if maxPast <= 0 {
		maxPast = 1
	}
	if event.Date.Before(now.AddDate(0, 0, -maxPast)) {
		return reject("date", "event is %s, too far in the past", event.Date.Format("2006-01-02"))
	}

	if event.City == "" {
		return reject("city", "missing city")
	}
	if event.Country == "" {
		return reject("country", "missing country")
	}
	if len(prefs.AllowedCountries) > 0 && !textutil.MatchName(event.Country, prefs.AllowedCountries) {
		return reject("country", "country %q is not allowed", event.Country)
	}
	if len(prefs.AllowedCities) > 0 && !textutil.MatchName(event.City, prefs.AllowedCities) {
		return reject("city", "city %q is not allowed", event.City)
	}

	if len(prefs.AllowedCategories) > 0 && !containsCategory(prefs.AllowedCategories, event.Category) {
		return reject("category", "category %q is not allowed", event.Category)
	}

	if event.Genre != "" {
		if textutil.MatchName(event.Genre, prefs.BlockedGenres) {
			return reject("genre", "genre %q is blocked", event.Genre)
		}
		if len(prefs.AllowedGenres) > 0 && !textutil.MatchName(event.Genre, prefs.AllowedGenres) {
			return reject("genre", "genre %q is not allowed", event.Genre)
		}
	}

	// bucket check only applies when capacity is known
	if event.VenueCapacity != nil && len(prefs.AllowedVenueSizes) > 0 {
		bucket := venueBucket(*event.VenueCapacity, prefs)
		if !containsVenueSize(prefs.AllowedVenueSizes, bucket) {
			return reject("venueCapacity", "venue size %q (capacity %d) is not allowed", bucket, *event.VenueCapacity)
		}
	}

	return accept()
}

func venueBucket(capacity int64, prefs PreferencesSnapshot) VenueSize {
	smallMax := prefs.SmallVenueMax
	if smallMax <= 0 {
		smallMax = 500
	}
	largeMin := prefs.LargeVenueMin
	if largeMin <= 0 {
		largeMin = 5000
	}

	switch {
	case capacity < smallMax:
		return VenueSmall
	case capacity >= largeMin:
		return VenueLarge
	default:
		return VenueMedium
	}
}

func containsCategory(list []Category, c Category) bool {
	for _, candidate := range list {
		if candidate == c {
			return true
		}
	}
	return false
}

func containsVenueSize(list []VenueSize, s VenueSize) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
