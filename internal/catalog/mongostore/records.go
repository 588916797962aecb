package mongostore

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hlsingest/internal/catalog"
)

// Lookup returns the record with _id identity, or nil.
func (s *Store) Lookup(ctx context.Context, identity string) (*catalog.Record, error) {
	var doc recordDoc
	err := s.records.FindOne(ctx, bson.M{"_id": identity}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, catalogErr("lookup", "find record", err)
	}
	rec := doc.record()
	return &rec, nil
}

// RecordCompletion inserts the record if absent and flips the source flag.
// On replica sets both writes share a transaction. Standalone servers get
// the record first, then the flag; a crash between them is healed by the
// pipeline's MarkProcessed on the next run.
func (s *Store) RecordCompletion(ctx context.Context, rec catalog.Record) (bool, error) {
	if strings.TrimSpace(rec.Identity) == "" || strings.TrimSpace(rec.SourceURL) == "" {
		return false, catalogErr("record completion", "identity and source url are required", nil)
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = s.now()
	}
	write := func(ctx context.Context) (bool, error) {
		res, err := s.records.UpdateOne(ctx,
			bson.M{"_id": rec.Identity},
			bson.M{"$setOnInsert": newRecordDoc(rec)},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return false, err
		}
		if res.UpsertedCount == 0 {
			var existing recordDoc
			if err := s.records.FindOne(ctx, bson.M{"_id": rec.Identity}).Decode(&existing); err != nil {
				return false, err
			}
			if existing.SourceURL != rec.SourceURL {
				return false, &takenError{identity: rec.Identity, owner: existing.SourceURL}
			}
		}
		if _, err := s.sources.UpdateMany(ctx,
			bson.M{"videoUrl": rec.SourceURL},
			bson.M{"$set": bson.M{"processed": true, "updatedAt": s.now().UTC()}},
		); err != nil {
			return false, err
		}
		return res.UpsertedCount > 0, nil
	}

	if !s.transactional {
		inserted, err := write(ctx)
		var taken *takenError
		if errors.As(err, &taken) {
			return false, catalogErr("record completion", taken.Error(), catalog.ErrIdentityTaken)
		}
		if err != nil {
			return false, catalogErr("record completion", "write record", err)
		}
		return inserted, nil
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return false, catalogErr("record completion", "start session", err)
	}
	defer sess.EndSession(ctx)
	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return write(sc)
	})
	var taken *takenError
	if errors.As(err, &taken) {
		return false, catalogErr("record completion", taken.Error(), catalog.ErrIdentityTaken)
	}
	if err != nil {
		return false, catalogErr("record completion", "write record", err)
	}
	inserted, _ := out.(bool)
	return inserted, nil
}

// RecentRecords returns up to limit records ordered by processedAt descending.
func (s *Store) RecentRecords(ctx context.Context, limit int) ([]catalog.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := s.records.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "processedAt", Value: -1}, {Key: "_id", Value: 1}}).
			SetLimit(int64(limit)))
	if err != nil {
		return nil, catalogErr("recent records", "find records", err)
	}
	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, catalogErr("recent records", "decode records", err)
	}
	out := make([]catalog.Record, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.record())
	}
	return out, nil
}

type takenError struct {
	identity string
	owner    string
}

func (e *takenError) Error() string {
	return "identity " + e.identity + " already recorded for " + e.owner
}
