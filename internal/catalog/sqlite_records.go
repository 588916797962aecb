package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Lookup returns the record stored for identity, or nil.
func (s *SQLiteStore) Lookup(ctx context.Context, identity string) (*Record, error) {
	var rec *Record
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE identity = ?`, identity)
		var scanErr error
		rec, scanErr = scanRecord(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, catalogErr("lookup", "read record", err)
	}
	return rec, nil
}

// RecordCompletion inserts rec unless its identity already exists, and marks
// the source item processed in the same transaction.
func (s *SQLiteStore) RecordCompletion(ctx context.Context, rec Record) (bool, error) {
	if strings.TrimSpace(rec.Identity) == "" || strings.TrimSpace(rec.SourceURL) == "" {
		return false, catalogErr("record completion", "identity and source url are required", nil)
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = s.now()
	}
	tags, err := encodeStrings(rec.Tags)
	if err != nil {
		return false, catalogErr("record completion", "encode tags", err)
	}
	keys, err := encodeStrings(rec.ObjectKeys)
	if err != nil {
		return false, catalogErr("record completion", "encode object keys", err)
	}

	inserted := false
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO records (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(identity) DO NOTHING`,
			rec.Identity,
			rec.SourceURL,
			nullString(rec.OriginID),
			nullString(rec.RawURL),
			nullString(rec.ImageURL),
			nullString(rec.Username),
			tags,
			nullString(rec.Description),
			rec.Views,
			rec.PlaylistKey,
			rec.PublicPlaylistURL,
			keys,
			formatTime(rec.ProcessedAt),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		if !inserted {
			var owner string
			if err := tx.QueryRowContext(ctx, `SELECT source_url FROM records WHERE identity = ?`, rec.Identity).Scan(&owner); err != nil {
				return err
			}
			if owner != rec.SourceURL {
				return &takenError{identity: rec.Identity, owner: owner}
			}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE source_items SET processed = 1, updated_at = ? WHERE source_url = ?`,
			s.timestamp(), rec.SourceURL,
		)
		return err
	})
	var taken *takenError
	if errors.As(err, &taken) {
		return false, catalogErr("record completion", taken.detail(), ErrIdentityTaken)
	}
	if err != nil {
		return false, catalogErr("record completion", "write record", err)
	}
	return inserted, nil
}

type takenError struct {
	identity string
	owner    string
}

func (e *takenError) Error() string { return e.detail() }

func (e *takenError) detail() string {
	return "identity " + e.identity + " already recorded for " + e.owner
}

// RecentRecords returns the newest records first.
func (s *SQLiteStore) RecentRecords(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []Record
	err := retryOnBusy(ctx, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+recordColumns+` FROM records ORDER BY processed_at DESC, identity LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, *rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, catalogErr("recent records", "list records", err)
	}
	return out, nil
}
