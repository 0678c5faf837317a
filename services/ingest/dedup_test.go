package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var dedupDate = time.Date(2026, time.September, 20, 21, 0, 0, 0, time.UTC)

func storedEvent(source, externalID, title, venue string, date time.Time) Event {
	return Event{
		Source:     source,
		ExternalID: externalID,
		Title:      title,
		VenueName:  venue,
		Date:       date,
	}
}

func TestExactMatchIgnoresEveryOtherField(t *testing.T) {
	deduper := NewDeduper(DefaultDedupConfig())

	existing := []Event{
		storedEvent("livepass", "ext-1", "Completely Different Title", "Otro Lugar", dedupDate.AddDate(0, 1, 0)),
	}
	candidate := storedEvent("livepass", "ext-1", "Banda en Vivo", "Teatro Vorterix", dedupDate)

	dup := deduper.FindDuplicate(candidate, existing)
	require.NotNil(t, dup)
	require.Equal(t, "ext-1", dup.ExternalID)
}

func TestFuzzyMatchNeedsAllThreeSignals(t *testing.T) {
	deduper := NewDeduper(DefaultDedupConfig())

	base := storedEvent("livepass", "ext-1", "Banda en Vivo en el Teatro", "Teatro Vorterix", dedupDate)

	t.Run("same show on another source", func(t *testing.T) {
		candidate := storedEvent("venti", "v-99", "Banda en Vivo en el Teatro", "Teatro Vorterix", dedupDate.Add(time.Hour*2))
		require.NotNil(t, deduper.FindDuplicate(candidate, []Event{base}))
	})

	t.Run("title matches but date is a week off", func(t *testing.T) {
		candidate := storedEvent("venti", "v-99", "Banda en Vivo en el Teatro", "Teatro Vorterix", dedupDate.AddDate(0, 0, 7))
		require.Nil(t, deduper.FindDuplicate(candidate, []Event{base}))
	})

	t.Run("title and date match but venue differs", func(t *testing.T) {
		candidate := storedEvent("venti", "v-99", "Banda en Vivo en el Teatro", "Estadio Obras Sanitarias", dedupDate)
		require.Nil(t, deduper.FindDuplicate(candidate, []Event{base}))
	})

	t.Run("unrelated titles at the same venue and date", func(t *testing.T) {
		candidate := storedEvent("venti", "v-99", "Noche de Tango Inolvidable", "Teatro Vorterix", dedupDate)
		require.Nil(t, deduper.FindDuplicate(candidate, []Event{base}))
	})

	t.Run("venue comparison tolerates casing and punctuation", func(t *testing.T) {
		candidate := storedEvent("venti", "v-99", "Banda en Vivo en el Teatro", "teatro vorterix.", dedupDate)
		require.NotNil(t, deduper.FindDuplicate(candidate, []Event{base}))
	})
}

func TestFirstFuzzyMatchWins(t *testing.T) {
	deduper := NewDeduper(DefaultDedupConfig())

	existing := []Event{
		storedEvent("livepass", "a", "Banda en Vivo", "Teatro Vorterix", dedupDate),
		storedEvent("venti", "b", "Banda en Vivo", "Teatro Vorterix", dedupDate),
	}
	candidate := storedEvent("alternativa-teatral", "c", "Banda en Vivo", "Teatro Vorterix", dedupDate)

	dup := deduper.FindDuplicate(candidate, existing)
	require.NotNil(t, dup)
	require.Equal(t, "a", dup.ExternalID)
}

func TestEmptyTitleNeverFuzzyMatches(t *testing.T) {
	deduper := NewDeduper(DefaultDedupConfig())

	existing := []Event{storedEvent("livepass", "a", "", "", dedupDate)}
	candidate := storedEvent("venti", "b", "", "", dedupDate)

	require.Nil(t, deduper.FindDuplicate(candidate, existing))
}
