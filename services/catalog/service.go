// Package catalog persists the canonical event listings, the blacklist
// and the acceptance preferences on sqlite.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cartelera-backend/services/catalog/db"
	"cartelera-backend/services/ingest"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("services/catalog")

// Service implements the ingest.Repository, ingest.Blacklist and
// ingest.PreferencesProvider surfaces on one sqlite database.
type Service struct {
	qry    *db.Queries
	makeTx db.MakeTx
}

func NewService(data *sql.DB) Service {
	return Service{
		qry:    db.New(data),
		makeTx: db.NewMakeTx(data),
	}
}

// FindExisting returns the stored events for one source, or for every
// source when source is empty.
func (s Service) FindExisting(ctx context.Context, source string) ([]ingest.Event, error) {
	var rows []db.Event
	var err error
	if source == "" {
		rows, err = s.qry.ListEvents(ctx)
	} else {
		rows, err = s.qry.ListEventsBySource(ctx, source)
	}
	if err != nil {
		return nil, err
	}
	events := make([]ingest.Event, 0, len(rows))
	for _, row := range rows {
		event, err := rowToEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (s Service) ListEvents(ctx context.Context) ([]ingest.Event, error) {
	rows, err := s.qry.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]ingest.Event, 0, len(rows))
	for _, row := range rows {
		event, err := rowToEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (s Service) Upsert(ctx context.Context, event ingest.Event) (ingest.Event, error) {
	ctx, span := tracer.Start(ctx, "Upsert", trace.WithAttributes(
		attribute.String("source", event.Source),
		attribute.String("external_id", event.ExternalID),
	))
	defer span.End()

	params, err := eventToParams(event, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "serialize event")
		return ingest.Event{}, err
	}
	row, err := s.qry.UpsertEvent(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert event")
		return ingest.Event{}, err
	}
	return rowToEvent(row)
}

func (s Service) Delete(ctx context.Context, id int64) error {
	return s.qry.DeleteEvent(ctx, id)
}

func eventToParams(event ingest.Event, now time.Time) (db.UpsertEventParams, error) {
	artists := event.Artists
	if artists == nil {
		artists = []string{}
	}
	artistsJson, err := json.Marshal(artists)
	if err != nil {
		return db.UpsertEventParams{}, fmt.Errorf("marshal artists: %w", err)
	}

	params := db.UpsertEventParams{
		Source:      event.Source,
		ExternalID:  event.ExternalID,
		Title:       event.Title,
		Description: event.Description,
		Category:    string(event.Category),
		Genre:       event.Genre,
		Artists:     string(artistsJson),
		Date:        event.Date.Unix(),
		VenueName:   event.VenueName,
		City:        event.City,
		Country:     event.Country,
		Currency:    event.Currency,
		ImageUrl:    event.ImageUrl,
		TicketUrl:   event.TicketUrl,
		CreatedAt:   now.Unix(),
		UpdatedAt:   now.Unix(),
	}
	if event.EndDate != nil {
		params.EndDate = sql.NullInt64{Int64: event.EndDate.Unix(), Valid: true}
	}
	if event.VenueCapacity != nil {
		params.VenueCapacity = sql.NullInt64{Int64: *event.VenueCapacity, Valid: true}
	}
	if event.Price != nil {
		params.Price = sql.NullFloat64{Float64: *event.Price, Valid: true}
	}
	if event.PriceMax != nil {
		params.PriceMax = sql.NullFloat64{Float64: *event.PriceMax, Valid: true}
	}
	return params, nil
}

func rowToEvent(row db.Event) (ingest.Event, error) {
	var artists []string
	if err := json.Unmarshal([]byte(row.Artists), &artists); err != nil {
		return ingest.Event{}, fmt.Errorf("event %d: corrupt artists column: %w", row.ID, err)
	}

	event := ingest.Event{
		ID:          row.ID,
		Source:      row.Source,
		ExternalID:  row.ExternalID,
		Title:       row.Title,
		Description: row.Description,
		Category:    ingest.Category(row.Category),
		Genre:       row.Genre,
		Artists:     artists,
		Date:        time.Unix(row.Date, 0),
		VenueName:   row.VenueName,
		City:        row.City,
		Country:     row.Country,
		Currency:    row.Currency,
		ImageUrl:    row.ImageUrl,
		TicketUrl:   row.TicketUrl,
		CreatedAt:   time.Unix(row.CreatedAt, 0),
		UpdatedAt:   time.Unix(row.UpdatedAt, 0),
	}
	if row.EndDate.Valid {
		endDate := time.Unix(row.EndDate.Int64, 0)
		event.EndDate = &endDate
	}
	if row.VenueCapacity.Valid {
		capacity := row.VenueCapacity.Int64
		event.VenueCapacity = &capacity
	}
	if row.Price.Valid {
		price := row.Price.Float64
		event.Price = &price
	}
	if row.PriceMax.Valid {
		priceMax := row.PriceMax.Float64
		event.PriceMax = &priceMax
	}
	return event, nil
}
