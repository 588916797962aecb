package mongostore

import (
	"context"
	"iter"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hlsingest/internal/catalog"
)

// Enqueue upserts items by videoUrl with $setOnInsert, so existing
// documents stay untouched.
func (s *Store) Enqueue(ctx context.Context, items []catalog.WorkItem) (int, error) {
	now := s.now().UTC()
	inserted := 0
	for _, item := range items {
		item.SourceURL = strings.TrimSpace(item.SourceURL)
		if item.SourceURL == "" {
			continue
		}
		res, err := s.sources.UpdateOne(ctx,
			bson.M{"videoUrl": item.SourceURL},
			bson.M{"$setOnInsert": newSourceDoc(item, now)},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return inserted, catalogErr("enqueue", "upsert source item", err)
		}
		if res.UpsertedCount > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// Unprocessed pages through documents whose processed flag is not true,
// ordered by _id.
func (s *Store) Unprocessed(ctx context.Context) iter.Seq2[catalog.WorkItem, error] {
	return func(yield func(catalog.WorkItem, error) bool) {
		var lastID any
		for {
			page, err := s.unprocessedPage(ctx, lastID)
			if err != nil {
				yield(catalog.WorkItem{}, err)
				return
			}
			for _, doc := range page {
				lastID = doc.ID
				if !yield(doc.item(), nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
		}
	}
}

func (s *Store) unprocessedPage(ctx context.Context, afterID any) ([]sourceDoc, error) {
	filter := bson.M{"processed": bson.M{"$ne": true}}
	if afterID != nil {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	cur, err := s.sources.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(pageSize))
	if err != nil {
		return nil, catalogErr("unprocessed", "find source items", err)
	}
	var page []sourceDoc
	if err := cur.All(ctx, &page); err != nil {
		return nil, catalogErr("unprocessed", "decode source items", err)
	}
	return page, nil
}

// MarkProcessed sets processed on every document with sourceURL.
func (s *Store) MarkProcessed(ctx context.Context, sourceURL string) error {
	if _, err := s.sources.UpdateMany(ctx,
		bson.M{"videoUrl": sourceURL},
		bson.M{"$set": bson.M{"processed": true, "updatedAt": s.now().UTC()}},
	); err != nil {
		return catalogErr("mark processed", "update source item", err)
	}
	return nil
}

// RecordFailure bumps attempts and stores the last failure.
func (s *Store) RecordFailure(ctx context.Context, sourceURL, stage, message string) error {
	if _, err := s.sources.UpdateMany(ctx,
		bson.M{"videoUrl": sourceURL, "processed": bson.M{"$ne": true}},
		bson.M{
			"$inc": bson.M{"attempts": 1},
			"$set": bson.M{"lastStage": stage, "lastError": message, "updatedAt": s.now().UTC()},
		},
	); err != nil {
		return catalogErr("record failure", "update source item", err)
	}
	return nil
}

// Stats counts documents across the three collections.
func (s *Store) Stats(ctx context.Context) (catalog.Stats, error) {
	var (
		st  catalog.Stats
		err error
		n   int64
	)
	counts := []struct {
		dst    *int
		count  func() (int64, error)
		target string
	}{
		{&st.Items, func() (int64, error) { return s.sources.CountDocuments(ctx, bson.M{}) }, "items"},
		{&st.Processed, func() (int64, error) { return s.sources.CountDocuments(ctx, bson.M{"processed": true}) }, "processed"},
		{&st.Pending, func() (int64, error) {
			return s.sources.CountDocuments(ctx, bson.M{"processed": bson.M{"$ne": true}})
		}, "pending"},
		{&st.Failing, func() (int64, error) {
			return s.sources.CountDocuments(ctx, bson.M{"processed": bson.M{"$ne": true}, "attempts": bson.M{"$gt": 0}})
		}, "failing"},
		{&st.Records, func() (int64, error) { return s.records.CountDocuments(ctx, bson.M{}) }, "records"},
		{&st.ActiveClaims, func() (int64, error) {
			return s.claims.CountDocuments(ctx, bson.M{"expiresAt": bson.M{"$gt": s.now().UTC()}})
		}, "claims"},
	}
	for _, c := range counts {
		if n, err = c.count(); err != nil {
			return catalog.Stats{}, catalogErr("stats", "count "+c.target, err)
		}
		*c.dst = int(n)
	}
	return st, nil
}
