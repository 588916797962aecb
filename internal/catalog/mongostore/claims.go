package mongostore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Claim upserts the claim document only when it is free, expired, or already
// held by owner. A duplicate-key error means another owner holds it.
func (s *Store) Claim(ctx context.Context, identity, owner string, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(identity) == "" || strings.TrimSpace(owner) == "" {
		return false, catalogErr("claim", "identity and owner are required", nil)
	}
	now := s.now().UTC()
	filter := bson.M{
		"_id": identity,
		"$or": bson.A{
			bson.M{"owner": owner},
			bson.M{"expiresAt": bson.M{"$lte": now}},
		},
	}
	update := bson.M{"$set": bson.M{"owner": owner, "expiresAt": now.Add(ttl)}}
	_, err := s.claims.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, catalogErr("claim", "upsert claim", err)
	}
	return true, nil
}

// Release deletes owner's claim on identity.
func (s *Store) Release(ctx context.Context, identity, owner string) error {
	if _, err := s.claims.DeleteOne(ctx, claimDoc{Identity: identity, Owner: owner}.filter()); err != nil {
		return catalogErr("release", "delete claim", err)
	}
	return nil
}

func (c claimDoc) filter() bson.M {
	return bson.M{"_id": c.Identity, "owner": c.Owner}
}
