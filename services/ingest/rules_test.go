package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var ruleNow = time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

func acceptableEvent() Event {
	return Event{
		Source:     "livepass",
		ExternalID: "ext-1",
		Title:      "Banda en Vivo",
		Category:   CategoryConcierto,
		Genre:      "Rock",
		Date:       ruleNow.AddDate(0, 0, 7),
		VenueName:  "Teatro Vorterix",
		City:       "Buenos Aires",
		Country:    "Argentina",
	}
}

func TestAcceptsWithEmptyPolicy(t *testing.T) {
	verdict := IsAcceptable(acceptableEvent(), PreferencesSnapshot{}, ruleNow)
	require.True(t, verdict.Valid)
	require.Empty(t, verdict.Reason)
}

func TestRejectionsCarryFieldAndReason(t *testing.T) {
	capacity := int64(10000)

	cases := []struct {
		name  string
		event func(e *Event)
		prefs PreferencesSnapshot
		field string
	}{
		{
			name:  "past event",
			event: func(e *Event) { e.Date = ruleNow.AddDate(0, 0, -3) },
			field: "date",
		},
		{
			name:  "yesterday is still fine",
			event: func(e *Event) { e.Date = ruleNow.Add(-time.Hour * 20) },
			field: "",
		},
		{
			name:  "missing city",
			event: func(e *Event) { e.City = "" },
			field: "city",
		},
		{
			name:  "missing country",
			event: func(e *Event) { e.Country = "" },
			field: "country",
		},
		{
			name:  "country not in allow-list",
			prefs: PreferencesSnapshot{AllowedCountries: []string{"Uruguay"}},
			field: "country",
		},
		{
			name:  "city allow-list is case insensitive",
			prefs: PreferencesSnapshot{AllowedCities: []string{"buenos aires"}},
			field: "",
		},
		{
			name:  "category not allowed",
			event: func(e *Event) { e.Category = CategoryOtro },
			prefs: PreferencesSnapshot{AllowedCategories: []Category{CategoryConcierto}},
			field: "category",
		},
		{
			name:  "blocked genre",
			prefs: PreferencesSnapshot{BlockedGenres: []string{"Rock"}},
			field: "genre",
		},
		{
			name:  "genre not in allow-list",
			prefs: PreferencesSnapshot{AllowedGenres: []string{"Jazz"}},
			field: "genre",
		},
		{
			name:  "empty genre skips genre checks",
			event: func(e *Event) { e.Genre = "" },
			prefs: PreferencesSnapshot{AllowedGenres: []string{"Jazz"}},
			field: "",
		},
		{
			name:  "large venue not allowed",
			event: func(e *Event) { e.VenueCapacity = &capacity },
			prefs: PreferencesSnapshot{AllowedVenueSizes: []VenueSize{VenueSmall, VenueMedium}},
			field: "venueCapacity",
		},
		{
			name:  "unknown capacity skips the venue check",
			prefs: PreferencesSnapshot{AllowedVenueSizes: []VenueSize{VenueSmall}},
			field: "",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			event := acceptableEvent()
			if c.event != nil {
				c.event(&event)
			}
			verdict := IsAcceptable(event, c.prefs, ruleNow)
			if c.field == "" {
				require.True(t, verdict.Valid, verdict.Reason)
				return
			}
			require.False(t, verdict.Valid)
			require.Equal(t, c.field, verdict.Field)
			require.NotEmpty(t, verdict.Reason)
		})
	}
}

func TestVenueBuckets(t *testing.T) {
	prefs := PreferencesSnapshot{SmallVenueMax: 500, LargeVenueMin: 5000}

	require.Equal(t, VenueSmall, venueBucket(499, prefs))
	require.Equal(t, VenueMedium, venueBucket(500, prefs))
	require.Equal(t, VenueMedium, venueBucket(4999, prefs))
	require.Equal(t, VenueLarge, venueBucket(5000, prefs))

	// zero config falls back to the defaults
	require.Equal(t, VenueMedium, venueBucket(1000, PreferencesSnapshot{}))
}
