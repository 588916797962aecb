package catalog

import (
	"context"
	"strings"
	"time"
)

// Claim acquires or refreshes owner's lease on identity. Expired leases held
// by other owners are taken over.
func (s *SQLiteStore) Claim(ctx context.Context, identity, owner string, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(identity) == "" || strings.TrimSpace(owner) == "" {
		return false, catalogErr("claim", "identity and owner are required", nil)
	}
	now := s.now()
	expires := now.Add(ttl).UnixMilli()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO identity_claims (identity, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE identity_claims.owner = excluded.owner OR identity_claims.expires_at <= ?`,
		identity, owner, expires, now.UnixMilli(),
	)
	if err != nil {
		return false, catalogErr("claim", "upsert claim", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, catalogErr("claim", "read claim result", err)
	}
	return n > 0, nil
}

// Release removes owner's claim on identity. Claims held by others are kept.
func (s *SQLiteStore) Release(ctx context.Context, identity, owner string) error {
	if _, err := s.execWithRetry(ctx,
		`DELETE FROM identity_claims WHERE identity = ? AND owner = ?`,
		identity, owner,
	); err != nil {
		return catalogErr("release", "delete claim", err)
	}
	return nil
}
