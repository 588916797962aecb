package catalog

import (
	"database/sql"
	"encoding/json"
	"time"
)

const itemColumns = "id, source_url, origin_id, raw_url, image_url, username, tags_json, description, views, processed, attempts, last_error, last_stage, created_at, updated_at"

const recordColumns = "identity, source_url, origin_id, raw_url, image_url, username, tags_json, description, views, playlist_key, public_playlist_url, object_keys_json, processed_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanItem(scanner rowScanner) (int64, WorkItem, error) {
	var (
		id          int64
		sourceURL   string
		originID    sql.NullString
		rawURL      sql.NullString
		imageURL    sql.NullString
		username    sql.NullString
		tagsJSON    sql.NullString
		description sql.NullString
		views       sql.NullInt64
		processed   sql.NullInt64
		attempts    sql.NullInt64
		lastError   sql.NullString
		lastStage   sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&sourceURL,
		&originID,
		&rawURL,
		&imageURL,
		&username,
		&tagsJSON,
		&description,
		&views,
		&processed,
		&attempts,
		&lastError,
		&lastStage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return 0, WorkItem{}, err
	}
	item := WorkItem{
		SourceURL:   sourceURL,
		OriginID:    originID.String,
		RawURL:      rawURL.String,
		ImageURL:    imageURL.String,
		Username:    username.String,
		Tags:        decodeStrings(tagsJSON),
		Description: description.String,
		Views:       views.Int64,
		Processed:   processed.Int64 != 0,
		Attempts:    int(attempts.Int64),
		LastError:   lastError.String,
		LastStage:   lastStage.String,
		CreatedAt:   parseTime(createdRaw),
		UpdatedAt:   parseTime(updatedRaw),
	}
	return id, item, nil
}

func scanRecord(scanner rowScanner) (*Record, error) {
	var (
		rec          Record
		originID     sql.NullString
		rawURL       sql.NullString
		imageURL     sql.NullString
		username     sql.NullString
		tagsJSON     sql.NullString
		description  sql.NullString
		views        sql.NullInt64
		keysJSON     sql.NullString
		processedRaw sql.NullString
	)
	if err := scanner.Scan(
		&rec.Identity,
		&rec.SourceURL,
		&originID,
		&rawURL,
		&imageURL,
		&username,
		&tagsJSON,
		&description,
		&views,
		&rec.PlaylistKey,
		&rec.PublicPlaylistURL,
		&keysJSON,
		&processedRaw,
	); err != nil {
		return nil, err
	}
	rec.OriginID = originID.String
	rec.RawURL = rawURL.String
	rec.ImageURL = imageURL.String
	rec.Username = username.String
	rec.Tags = decodeStrings(tagsJSON)
	rec.Description = description.String
	rec.Views = views.Int64
	rec.ObjectKeys = decodeStrings(keysJSON)
	rec.ProcessedAt = parseTime(processedRaw)
	return &rec, nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeStrings(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
