package catalog

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"strings"
)

// unprocessedPageSize bounds how many rows Unprocessed holds in memory.
const unprocessedPageSize = 100

// Enqueue inserts backlog items, skipping source URLs already present.
func (s *SQLiteStore) Enqueue(ctx context.Context, items []WorkItem) (int, error) {
	inserted := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		now := s.timestamp()
		for _, item := range items {
			url := strings.TrimSpace(item.SourceURL)
			if url == "" {
				continue
			}
			tags, err := encodeStrings(item.Tags)
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO source_items (
					source_url, origin_id, raw_url, image_url, username, tags_json,
					description, views, processed, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(source_url) DO NOTHING`,
				url,
				nullString(item.OriginID),
				nullString(item.RawURL),
				nullString(item.ImageURL),
				nullString(item.Username),
				tags,
				nullString(item.Description),
				item.Views,
				boolToInt(item.Processed),
				now,
				now,
			)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, catalogErr("enqueue", "insert source items", err)
	}
	return inserted, nil
}

// Unprocessed yields unprocessed items in insertion order. Pages are fetched
// by id so rows marked processed mid-iteration never shift the cursor.
func (s *SQLiteStore) Unprocessed(ctx context.Context) iter.Seq2[WorkItem, error] {
	return func(yield func(WorkItem, error) bool) {
		var lastID int64
		for {
			page, err := s.unprocessedPage(ctx, lastID)
			if err != nil {
				yield(WorkItem{}, err)
				return
			}
			for _, row := range page {
				lastID = row.id
				if !yield(row.item, nil) {
					return
				}
			}
			if len(page) < unprocessedPageSize {
				return
			}
		}
	}
}

type itemRow struct {
	id   int64
	item WorkItem
}

func (s *SQLiteStore) unprocessedPage(ctx context.Context, afterID int64) ([]itemRow, error) {
	var page []itemRow
	err := retryOnBusy(ctx, func() error {
		page = page[:0]
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM source_items
			WHERE processed = 0 AND id > ?
			ORDER BY id LIMIT ?`,
			afterID, unprocessedPageSize,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			id, item, err := scanItem(rows)
			if err != nil {
				return err
			}
			page = append(page, itemRow{id: id, item: item})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, catalogErr("unprocessed", "list source items", err)
	}
	return page, nil
}

// Item returns the backlog entry for sourceURL, or nil when none exists.
func (s *SQLiteStore) Item(ctx context.Context, sourceURL string) (*WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM source_items WHERE source_url = ?`, sourceURL)
	_, item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, catalogErr("item", "read source item", err)
	}
	return &item, nil
}

// MarkProcessed flips the processed flag for sourceURL.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, sourceURL string) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE source_items SET processed = 1, updated_at = ? WHERE source_url = ?`,
		s.timestamp(), sourceURL,
	); err != nil {
		return catalogErr("mark processed", "update source item", err)
	}
	return nil
}

// RecordFailure stores the latest failure for sourceURL and bumps attempts.
func (s *SQLiteStore) RecordFailure(ctx context.Context, sourceURL, stage, message string) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE source_items
		SET attempts = attempts + 1, last_stage = ?, last_error = ?, updated_at = ?
		WHERE source_url = ? AND processed = 0`,
		stage, message, s.timestamp(), sourceURL,
	); err != nil {
		return catalogErr("record failure", "update source item", err)
	}
	return nil
}

// Stats counts items, records and live claims.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT
				(SELECT COUNT(*) FROM source_items),
				(SELECT COUNT(*) FROM source_items WHERE processed = 1),
				(SELECT COUNT(*) FROM source_items WHERE processed = 0),
				(SELECT COUNT(*) FROM source_items WHERE processed = 0 AND attempts > 0),
				(SELECT COUNT(*) FROM records),
				(SELECT COUNT(*) FROM identity_claims WHERE expires_at > ?)`,
			s.now().UnixMilli(),
		).Scan(&st.Items, &st.Processed, &st.Pending, &st.Failing, &st.Records, &st.ActiveClaims)
	})
	if err != nil {
		return Stats{}, catalogErr("stats", "count catalog rows", err)
	}
	return st, nil
}
