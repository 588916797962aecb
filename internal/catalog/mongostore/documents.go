package mongostore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hlsingest/internal/catalog"
)

type sourceDoc struct {
	ID          any       `bson:"_id,omitempty"`
	OriginID    string    `bson:"id,omitempty"`
	RawURL      string    `bson:"rawUrl,omitempty"`
	SourceURL   string    `bson:"videoUrl"`
	ImageURL    string    `bson:"imageUrl,omitempty"`
	Username    string    `bson:"username,omitempty"`
	Tags        []string  `bson:"tags,omitempty"`
	Description string    `bson:"description,omitempty"`
	Views       int64     `bson:"views,omitempty"`
	Processed   bool      `bson:"processed"`
	Attempts    int       `bson:"attempts,omitempty"`
	LastError   string    `bson:"lastError,omitempty"`
	LastStage   string    `bson:"lastStage,omitempty"`
	CreatedAt   time.Time `bson:"createdAt,omitempty"`
	UpdatedAt   time.Time `bson:"updatedAt,omitempty"`
}

func (d sourceDoc) item() catalog.WorkItem {
	return catalog.WorkItem{
		SourceURL:   d.SourceURL,
		OriginID:    d.originID(),
		RawURL:      d.RawURL,
		ImageURL:    d.ImageURL,
		Username:    d.Username,
		Tags:        d.Tags,
		Description: d.Description,
		Views:       d.Views,
		Processed:   d.Processed,
		Attempts:    d.Attempts,
		LastError:   d.LastError,
		LastStage:   d.LastStage,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// originID prefers the feed's own id field. Legacy feed documents only carry
// their _id, which then becomes the provenance id.
func (d sourceDoc) originID() string {
	if d.OriginID != "" {
		return d.OriginID
	}
	switch id := d.ID.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

func newSourceDoc(item catalog.WorkItem, now time.Time) sourceDoc {
	return sourceDoc{
		OriginID:    item.OriginID,
		RawURL:      item.RawURL,
		SourceURL:   item.SourceURL,
		ImageURL:    item.ImageURL,
		Username:    item.Username,
		Tags:        item.Tags,
		Description: item.Description,
		Views:       item.Views,
		Processed:   item.Processed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// recordDoc mirrors the published video document. ID is left empty when the
// document is written through $setOnInsert so the filter supplies _id.
type recordDoc struct {
	ID                string    `bson:"_id,omitempty"`
	OriginID          string    `bson:"id,omitempty"`
	RawURL            string    `bson:"rawUrl,omitempty"`
	SourceURL         string    `bson:"videoUrl"`
	ImageURL          string    `bson:"imageUrl,omitempty"`
	Username          string    `bson:"username,omitempty"`
	Tags              []string  `bson:"tags,omitempty"`
	Description       string    `bson:"description,omitempty"`
	Views             int64     `bson:"views,omitempty"`
	PublicPlaylistURL string    `bson:"hlsUrl"`
	PlaylistKey       string    `bson:"playlistKey"`
	ObjectKeys        []string  `bson:"objectKeys"`
	ProcessedAt       time.Time `bson:"processedAt"`
}

func newRecordDoc(rec catalog.Record) recordDoc {
	return recordDoc{
		OriginID:          rec.OriginID,
		RawURL:            rec.RawURL,
		SourceURL:         rec.SourceURL,
		ImageURL:          rec.ImageURL,
		Username:          rec.Username,
		Tags:              rec.Tags,
		Description:       rec.Description,
		Views:             rec.Views,
		PublicPlaylistURL: rec.PublicPlaylistURL,
		PlaylistKey:       rec.PlaylistKey,
		ObjectKeys:        rec.ObjectKeys,
		ProcessedAt:       rec.ProcessedAt.UTC(),
	}
}

func (d recordDoc) record() catalog.Record {
	return catalog.Record{
		Identity:          d.ID,
		SourceURL:         d.SourceURL,
		OriginID:          d.OriginID,
		RawURL:            d.RawURL,
		ImageURL:          d.ImageURL,
		Username:          d.Username,
		Tags:              d.Tags,
		Description:       d.Description,
		Views:             d.Views,
		PlaylistKey:       d.PlaylistKey,
		PublicPlaylistURL: d.PublicPlaylistURL,
		ObjectKeys:        d.ObjectKeys,
		ProcessedAt:       d.ProcessedAt.UTC(),
	}
}

type claimDoc struct {
	Identity  string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expiresAt"`
}
