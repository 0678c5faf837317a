package ingest

import (
	"testing"
	"time"

	"cartelera-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestNormalizeInvariants(t *testing.T) {
	date := time.Date(2026, time.September, 20, 21, 0, 0, 0, time.UTC)

	t.Run("title is required", func(t *testing.T) {
		_, err := Normalize(RawEvent{Source: "venti", Title: "  \n ", Date: date})
		require.Error(t, err)
	})

	t.Run("date is required", func(t *testing.T) {
		_, err := Normalize(RawEvent{Source: "venti", Title: "Banda"})
		require.Error(t, err)
	})

	t.Run("unparseable date is rejected", func(t *testing.T) {
		_, err := Normalize(RawEvent{Source: "venti", Title: "Banda", Date: "entradas agotadas"})
		require.Error(t, err)
	})
}

func TestNormalizeCoercions(t *testing.T) {
	event, err := Normalize(RawEvent{
		Source:        "venti",
		ExternalID:    "e1",
		Title:         "  Banda   en Vivo ",
		Category:      "concierto electrónico",
		Date:          "20 de septiembre de 2026",
		Price:         "$ 15.000,50",
		VenueCapacity: 1200,
	})
	require.NoError(t, err)

	require.Equal(t, "Banda en Vivo", event.Title)
	// unknown category labels collapse into Otro
	require.Equal(t, CategoryOtro, event.Category)
	require.Equal(t,
		time.Date(2026, time.September, 20, 0, 0, 0, 0, timezone.Location),
		event.Date)
	require.NotNil(t, event.Price)
	require.Equal(t, 15000.50, *event.Price)
	require.NotNil(t, event.VenueCapacity)
	require.Equal(t, int64(1200), *event.VenueCapacity)
	require.Equal(t, "ARS", event.Currency)
}

func TestSyntheticExternalId(t *testing.T) {
	date := time.Date(2026, time.September, 20, 21, 0, 0, 0, time.UTC)

	withUrl, err := Normalize(RawEvent{Source: "venti", Title: "Banda", Date: date, TicketUrl: "https://venti.com.ar/e/1"})
	require.NoError(t, err)
	require.Equal(t, "https://venti.com.ar/e/1", withUrl.ExternalID)

	first, err := Normalize(RawEvent{Source: "venti", Title: "Banda", Date: date})
	require.NoError(t, err)
	require.Contains(t, first.ExternalID, "synthetic-")

	// stable across re-scrapes of the same listing
	second, err := Normalize(RawEvent{Source: "venti", Title: "banda", Date: date})
	require.NoError(t, err)
	require.Equal(t, first.ExternalID, second.ExternalID)

	other, err := Normalize(RawEvent{Source: "venti", Title: "Otra Banda", Date: date})
	require.NoError(t, err)
	require.NotEqual(t, first.ExternalID, other.ExternalID)
}
