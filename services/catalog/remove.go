package catalog

import (
	"context"
	"time"

	"cartelera-backend/services/catalog/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Remove deletes an event and blacklists its (source, external id)
// pair in one transaction, so a curator's removal survives the next
// scrape of the same site. Removing an already-removed event is a
// no-op thanks to the blacklist upsert semantics.
func (s Service) Remove(ctx context.Context, id int64, reason string) error {
	ctx, span := tracer.Start(ctx, "Remove", trace.WithAttributes(
		attribute.Int64("event_id", id),
	))
	defer span.End()

	tx, discard, commit, err := s.makeTx()
	if err != nil {
		return err
	}
	defer discard()

	event, err := tx.GetEvent(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get event")
		return err
	}
	if err := tx.DeleteEvent(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete event")
		return err
	}
	err = tx.AddBlacklistEntry(ctx, db.AddBlacklistEntryParams{
		Source:     event.Source,
		ExternalID: event.ExternalID,
		Reason:     reason,
		CreatedAt:  time.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "blacklist event")
		return err
	}

	return commit()
}
