package ingest

import (
	"time"

	"cartelera-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

// DedupConfig tunes the fuzzy matching thresholds. All three signals
// (title, date proximity, venue) must hold for a fuzzy match; a single
// strong signal is never enough, common title words across unrelated
// shows would otherwise collapse into one event.
type DedupConfig struct {
	TitleThreshold float64
	VenueThreshold float64
	DateWindow     time.Duration
}

func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		TitleThreshold: 0.90,
		VenueThreshold: 0.85,
		DateWindow:     time.Hour * 24,
	}
}

type Deduper struct {
	cfg DedupConfig
}

func NewDeduper(cfg DedupConfig) Deduper {
	return Deduper{cfg: cfg}
}

// FindDuplicate returns the stored event the candidate duplicates, or
// nil. The exact path matches on (source, externalId) regardless of
// any other field. The fuzzy path cross-checks sources covering the
// same physical show. When several stored events satisfy the fuzzy
// rule the first one in iteration order wins; that tie-break is
// deliberate and relied upon by callers.
func (d Deduper) FindDuplicate(candidate Event, existing []Event) *Event {
	for i := range existing {
		if existing[i].Source == candidate.Source &&
			existing[i].ExternalID == candidate.ExternalID {
			return &existing[i]
		}
	}

	candidateTitle := textutil.NormalizeName(candidate.Title)
	candidateVenue := textutil.NormalizeName(candidate.VenueName)

	for i := range existing {
		other := &existing[i]

		if !d.withinDateWindow(candidate.Date, other.Date) {
			continue
		}
		if similarity(candidateTitle, textutil.NormalizeName(other.Title)) < d.cfg.TitleThreshold {
			continue
		}
		if similarity(candidateVenue, textutil.NormalizeName(other.VenueName)) < d.cfg.VenueThreshold {
			continue
		}
		return other
	}

	return nil
}

func (d Deduper) withinDateWindow(a, b time.Time) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= d.cfg.DateWindow
}

func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return matchr.JaroWinkler(a, b, false)
}
