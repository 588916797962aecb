package catalog

import (
	"context"
	"errors"
	"iter"
	"time"
)

// ErrIdentityTaken reports a completion whose identity is already recorded
// for a different source URL. The source item is left unprocessed.
var ErrIdentityTaken = errors.New("identity recorded for another source")

// WorkItem is one entry of the ingestion backlog.
type WorkItem struct {
	SourceURL   string   `json:"videoUrl"`
	OriginID    string   `json:"id,omitempty"`
	RawURL      string   `json:"rawUrl,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Username    string   `json:"username,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
	Views       int64    `json:"views,omitempty"`
	Processed   bool     `json:"processed,omitempty"`

	Attempts  int       `json:"-"`
	LastError string    `json:"-"`
	LastStage string    `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Record is the immutable metadata written once an item is published.
type Record struct {
	Identity          string    `json:"identity"`
	SourceURL         string    `json:"videoUrl"`
	OriginID          string    `json:"id,omitempty"`
	RawURL            string    `json:"rawUrl,omitempty"`
	ImageURL          string    `json:"imageUrl,omitempty"`
	Username          string    `json:"username,omitempty"`
	Tags              []string  `json:"tags,omitempty"`
	Description       string    `json:"description,omitempty"`
	Views             int64     `json:"views,omitempty"`
	PlaylistKey       string    `json:"playlistKey"`
	PublicPlaylistURL string    `json:"hlsUrl"`
	ObjectKeys        []string  `json:"objectKeys"`
	ProcessedAt       time.Time `json:"processedAt"`
}

// NewRecord copies the descriptive fields of item into a Record.
func NewRecord(item WorkItem, identity string) Record {
	return Record{
		Identity:    identity,
		SourceURL:   item.SourceURL,
		OriginID:    item.OriginID,
		RawURL:      item.RawURL,
		ImageURL:    item.ImageURL,
		Username:    item.Username,
		Tags:        append([]string(nil), item.Tags...),
		Description: item.Description,
		Views:       item.Views,
	}
}

// Stats summarizes catalog contents.
type Stats struct {
	Items        int
	Processed    int
	Pending      int
	Failing      int
	Records      int
	ActiveClaims int
}

// Store is the provenance store used by the pipeline. Implementations must be
// safe for concurrent use.
type Store interface {
	// Enqueue adds backlog items. Items whose source URL is already present
	// are left untouched. It returns the number inserted.
	Enqueue(ctx context.Context, items []WorkItem) (int, error)
	// Unprocessed lazily yields items whose processed flag is false, in
	// insertion order. The sequence is restartable by calling Unprocessed again.
	Unprocessed(ctx context.Context) iter.Seq2[WorkItem, error]
	// Lookup returns the record for identity, or nil when none exists.
	Lookup(ctx context.Context, identity string) (*Record, error)
	// RecordCompletion writes rec and marks its source item processed in one
	// commit. An existing record for the identity is kept unchanged and
	// inserted is false. When that record belongs to another source URL the
	// flag is not touched and the error wraps ErrIdentityTaken.
	RecordCompletion(ctx context.Context, rec Record) (inserted bool, err error)
	// MarkProcessed flips the processed flag of the item with sourceURL.
	MarkProcessed(ctx context.Context, sourceURL string) error
	// RecordFailure bumps the attempt counter and stores the last failure.
	RecordFailure(ctx context.Context, sourceURL, stage, message string) error
	// Claim takes or refreshes an exclusive lease on identity for owner.
	// It returns false when another owner holds an unexpired claim.
	Claim(ctx context.Context, identity, owner string, ttl time.Duration) (bool, error)
	// Release drops owner's claim on identity.
	Release(ctx context.Context, identity, owner string) error
	// RecentRecords returns up to limit records, newest first.
	RecentRecords(ctx context.Context, limit int) ([]Record, error)
	Stats(ctx context.Context) (Stats, error)
	Health(ctx context.Context) error
	Close() error
}

// Match classifies what the catalog already knows about an identity.
type Match int

const (
	// MatchNone means no record exists for the identity.
	MatchNone Match = iota
	// MatchSame means the identity was already published from this source URL.
	MatchSame
	// MatchCollision means a different source URL owns the identity.
	MatchCollision
)

// Check looks up identity and compares the stored source URL to sourceURL.
func Check(ctx context.Context, store Store, identity, sourceURL string) (Match, *Record, error) {
	rec, err := store.Lookup(ctx, identity)
	if err != nil {
		return MatchNone, nil, err
	}
	switch {
	case rec == nil:
		return MatchNone, nil, nil
	case rec.SourceURL == sourceURL:
		return MatchSame, rec, nil
	default:
		return MatchCollision, rec, nil
	}
}
