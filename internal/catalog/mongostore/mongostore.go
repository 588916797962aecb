// Package mongostore implements catalog.Store on MongoDB.
//
// The source collection keeps the document shape of the existing feed
// (videoUrl, rawUrl, imageUrl, username, tags, description, views, processed).
// Records are keyed by identity in _id, so a second insert for the same
// identity is a no-op. Claims live in their own collection with an expiry.
package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"hlsingest/internal/catalog"
	"hlsingest/internal/services"
)

var _ catalog.Store = (*Store)(nil)

const pageSize = 100

// Options configures the MongoDB connection.
type Options struct {
	URI               string
	Database          string
	SourceCollection  string
	RecordsCollection string
	ClaimsCollection  string
	ConnectTimeout    time.Duration
}

// Store is a MongoDB-backed catalog.
type Store struct {
	client        *mongo.Client
	sources       *mongo.Collection
	records       *mongo.Collection
	claims        *mongo.Collection
	transactional bool
	now           func() time.Time
}

// Open connects, verifies the server is reachable, and ensures indexes.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.URI) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "open catalog", "mongo uri is empty", nil)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, catalogErr("open catalog", "connect", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, catalogErr("open catalog", "ping", err)
	}

	db := client.Database(opts.Database)
	s := &Store{
		client:  client,
		sources: db.Collection(opts.SourceCollection),
		records: db.Collection(opts.RecordsCollection),
		claims:  db.Collection(opts.ClaimsCollection),
		now:     time.Now,
	}
	s.transactional = supportsTransactions(ctx, client)
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// supportsTransactions reports whether the deployment is a replica set or a
// sharded cluster. Standalone servers reject multi-document transactions.
func supportsTransactions(ctx context.Context, client *mongo.Client) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.sources.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "videoUrl", Value: 1}}},
		{Keys: bson.D{{Key: "processed", Value: 1}, {Key: "_id", Value: 1}}},
	}); err != nil {
		return catalogErr("open catalog", "create source indexes", err)
	}
	if _, err := s.records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "processedAt", Value: -1}},
	}); err != nil {
		return catalogErr("open catalog", "create record indexes", err)
	}
	return nil
}

// SetClock overrides the time source used for timestamps and claim expiry.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Health pings the primary.
func (s *Store) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return catalogErr("health", "ping", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return catalogErr("close catalog", "disconnect", err)
	}
	return nil
}

// Drop removes the store's collections. Used by tests against a scratch database.
func (s *Store) Drop(ctx context.Context) error {
	return errors.Join(
		s.sources.Drop(ctx),
		s.records.Drop(ctx),
		s.claims.Drop(ctx),
	)
}

func catalogErr(op, msg string, err error) error {
	return services.Wrap(services.ErrCatalog, "", op, msg, err)
}
