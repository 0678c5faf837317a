package catalog

import (
	"context"
	"time"

	"cartelera-backend/services/catalog/db"
)

// Blacklist entries are created when a curator removes an event and
// consulted read-only during ingestion. They never expire.

func (s Service) IsBlacklisted(ctx context.Context, source, externalID string) (bool, error) {
	count, err := s.qry.IsBlacklisted(ctx, db.IsBlacklistedParams{
		Source:     source,
		ExternalID: externalID,
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Add is idempotent: re-blacklisting an already blacklisted listing
// leaves exactly one entry and keeps the original reason.
func (s Service) Add(ctx context.Context, source, externalID, reason string) error {
	return s.qry.AddBlacklistEntry(ctx, db.AddBlacklistEntryParams{
		Source:     source,
		ExternalID: externalID,
		Reason:     reason,
		CreatedAt:  time.Now().Unix(),
	})
}
