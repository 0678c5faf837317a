package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cartelera-backend/lib/scrape"
	"cartelera-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cleanup := telemetry.SetupForTesting("ingest")
	defer cleanup()
	m.Run()
}

type fakeSource struct {
	name   string
	events []RawEvent
	err    error
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Fetch(ctx context.Context) ([]RawEvent, error) {
	return f.events, f.err
}

type fakeRepo struct {
	mu     sync.Mutex
	events []Event
	nextID int64

	upsertErr error
}

func (f *fakeRepo) FindExisting(ctx context.Context, source string) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, 0, len(f.events))
	for _, e := range f.events {
		if source == "" || e.Source == source {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, event Event) (Event, error) {
	if f.upsertErr != nil {
		return Event{}, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	event.ID = f.nextID
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

type fakeBlacklist struct {
	entries map[string]string
}

func blacklistKey(source, externalID string) string {
	return source + "\x00" + externalID
}

func (f *fakeBlacklist) IsBlacklisted(ctx context.Context, source, externalID string) (bool, error) {
	_, ok := f.entries[blacklistKey(source, externalID)]
	return ok, nil
}

func (f *fakeBlacklist) Add(ctx context.Context, source, externalID, reason string) error {
	f.entries[blacklistKey(source, externalID)] = reason
	return nil
}

type fakePrefs struct {
	snapshot PreferencesSnapshot
	err      error
	calls    int
}

func (f *fakePrefs) Snapshot(ctx context.Context) (PreferencesSnapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

func rawConcert(externalID, title string, date time.Time) RawEvent {
	return RawEvent{
		Source:     "venti",
		ExternalID: externalID,
		Title:      title,
		Category:   "Concierto",
		Date:       date,
		VenueName:  "Teatro Vorterix",
		City:       "Buenos Aires",
		Country:    "Argentina",
	}
}

func newTestOrchestrator(repo Repository, blacklist Blacklist, prefs PreferencesProvider) *Orchestrator {
	return NewOrchestrator(repo, blacklist, prefs, Options{MaxConcurrentSources: 2})
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	date := time.Now().AddDate(0, 0, 7)
	repo := &fakeRepo{}
	blacklist := &fakeBlacklist{entries: map[string]string{}}
	prefs := &fakePrefs{}

	blacklist.entries[blacklistKey("venti", "e2")] = "spam"
	blacklist.entries[blacklistKey("venti", "e3")] = "spam"

	o := newTestOrchestrator(repo, blacklist, prefs)
	o.RegisterSource(fakeSource{
		name: "livepass",
		err:  scrape.NewFetchError("livepass", scrape.KindTimeout, context.DeadlineExceeded),
	})
	o.RegisterSource(fakeSource{
		name: "venti",
		events: []RawEvent{
			rawConcert("e1", "Banda en Vivo", date),
			rawConcert("e2", "Otra Banda", date),
			rawConcert("e3", "Tercera Banda", date),
		},
	})

	report := o.FetchAll(context.Background())

	require.Len(t, report.Sources, 2)
	require.False(t, report.Sources[0].Success)
	require.Contains(t, report.Sources[0].Error, "timeout")
	require.True(t, report.Sources[1].Success)

	require.Equal(t, 3, report.TotalEvents)
	require.Equal(t, 1, report.TotalProcessed)
	require.Equal(t, 2, report.TotalBlacklisted)
	require.Equal(t, 0, report.TotalDuplicates)
	require.Equal(t, 1, report.TotalErrors)
	require.Len(t, report.Errors, 1)
	require.Equal(t, "livepass", report.Errors[0].Source)

	require.False(t, report.AllSourcesFailed())
	require.Len(t, repo.events, 1)
	require.Equal(t, "Banda en Vivo", repo.events[0].Title)
}

func TestAllSourcesFailed(t *testing.T) {
	repo := &fakeRepo{}
	prefs := &fakePrefs{}
	o := newTestOrchestrator(repo, &fakeBlacklist{entries: map[string]string{}}, prefs)
	o.RegisterSource(fakeSource{name: "a", err: fmt.Errorf("down")})
	o.RegisterSource(fakeSource{name: "b", err: fmt.Errorf("down")})

	report := o.FetchAll(context.Background())
	require.True(t, report.AllSourcesFailed())
	require.Equal(t, 2, report.TotalErrors)
}

func TestPreferencesSnapshotTakenOncePerRun(t *testing.T) {
	date := time.Now().AddDate(0, 0, 7)
	repo := &fakeRepo{}
	prefs := &fakePrefs{}
	o := newTestOrchestrator(repo, &fakeBlacklist{entries: map[string]string{}}, prefs)
	o.RegisterSource(fakeSource{name: "a", events: []RawEvent{rawConcert("e1", "Uno", date)}})
	o.RegisterSource(fakeSource{name: "b", events: []RawEvent{rawConcert("e2", "Dos", date)}})

	o.FetchAll(context.Background())
	require.Equal(t, 1, prefs.calls)
}

func TestPreferencesFailureAbortsPersistence(t *testing.T) {
	date := time.Now().AddDate(0, 0, 7)
	repo := &fakeRepo{}
	prefs := &fakePrefs{err: fmt.Errorf("db locked")}
	o := newTestOrchestrator(repo, &fakeBlacklist{entries: map[string]string{}}, prefs)
	o.RegisterSource(fakeSource{name: "a", events: []RawEvent{rawConcert("e1", "Uno", date)}})

	report := o.FetchAll(context.Background())
	require.Equal(t, 1, report.TotalEvents)
	require.Equal(t, 0, report.TotalProcessed)
	require.Empty(t, repo.events)
	require.NotEmpty(t, report.Errors)
}

func TestIntraRunCrossSourceDedup(t *testing.T) {
	date := time.Now().AddDate(0, 0, 7)
	repo := &fakeRepo{}
	prefs := &fakePrefs{}
	o := newTestOrchestrator(repo, &fakeBlacklist{entries: map[string]string{}}, prefs)

	// same physical show listed by two sources under different ids
	first := rawConcert("e1", "Banda en Vivo", date)
	second := rawConcert("v9", "Banda en Vivo", date.Add(time.Hour))
	second.Source = "livepass"

	o.RegisterSource(fakeSource{name: "venti", events: []RawEvent{first}})
	o.RegisterSource(fakeSource{name: "livepass", events: []RawEvent{second}})

	report := o.FetchAll(context.Background())
	require.Equal(t, 2, report.TotalEvents)
	require.Equal(t, 1, report.TotalProcessed)
	require.Equal(t, 1, report.TotalDuplicates)
	require.Len(t, repo.events, 1)
}

func TestRescrapeNeverGrowsTheCatalog(t *testing.T) {
	date := time.Now().AddDate(0, 0, 7)
	repo := &fakeRepo{}
	prefs := &fakePrefs{}
	o := newTestOrchestrator(repo, &fakeBlacklist{entries: map[string]string{}}, prefs)
	o.RegisterSource(fakeSource{name: "venti", events: []RawEvent{rawConcert("e1", "Banda en Vivo", date)}})

	first := o.FetchAll(context.Background())
	require.Equal(t, 1, first.TotalProcessed)

	// second run sees the stored row as an exact duplicate
	second := o.FetchAll(context.Background())
	require.Equal(t, 0, second.TotalProcessed)
	require.Equal(t, 1, second.TotalDuplicates)
	require.Len(t, repo.events, 1)
}

func TestRejectionsAreRecordedPerEvent(t *testing.T) {
	date := time.Now().AddDate(0, 0, 7)
	repo := &fakeRepo{}
	prefs := &fakePrefs{snapshot: PreferencesSnapshot{
		AllowedCategories: []Category{CategoryConcierto},
	}}
	o := newTestOrchestrator(repo, &fakeBlacklist{entries: map[string]string{}}, prefs)

	missingDate := RawEvent{Source: "venti", ExternalID: "bad", Title: "Sin Fecha"}
	theatre := rawConcert("e2", "Obra", date)
	theatre.Category = "Teatro"
	ok := rawConcert("e3", "Banda en Vivo", date)

	o.RegisterSource(fakeSource{name: "venti", events: []RawEvent{missingDate, theatre, ok}})

	report := o.FetchAll(context.Background())
	require.Equal(t, 3, report.TotalEvents)
	require.Equal(t, 1, report.TotalProcessed)
	require.Equal(t, 2, report.TotalErrors)
	require.Len(t, report.Errors, 2)
	require.Contains(t, report.Errors[0].Reason, "normalize")
	require.Contains(t, report.Errors[1].Reason, "category")
}
