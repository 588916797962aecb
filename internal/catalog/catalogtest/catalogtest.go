// Package catalogtest holds behaviour checks shared by every catalog.Store
// backend.
package catalogtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hlsingest/internal/catalog"
	"hlsingest/internal/services"
)

// Opener returns an empty store. The store is closed by the caller's cleanup.
type Opener func(t *testing.T) catalog.Store

// Run exercises the Store contract against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Run("EnqueueSkipsDuplicates", func(t *testing.T) { testEnqueue(t, open(t)) })
	t.Run("UnprocessedPagesInOrder", func(t *testing.T) { testUnprocessed(t, open(t)) })
	t.Run("RecordCompletionIsImmutable", func(t *testing.T) { testRecordCompletion(t, open(t)) })
	t.Run("CheckClassifiesIdentity", func(t *testing.T) { testCheck(t, open(t)) })
	t.Run("MarkProcessedHealsFlag", func(t *testing.T) { testMarkProcessed(t, open(t)) })
	t.Run("ClaimsAreExclusive", func(t *testing.T) { testClaims(t, open(t)) })
	t.Run("RecordFailureKeepsItemPending", func(t *testing.T) { testRecordFailure(t, open(t)) })
	t.Run("RecentRecordsNewestFirst", func(t *testing.T) { testRecentRecords(t, open(t)) })
}

func collect(t *testing.T, store catalog.Store) []catalog.WorkItem {
	t.Helper()
	var items []catalog.WorkItem
	for item, err := range store.Unprocessed(context.Background()) {
		if err != nil {
			t.Fatalf("Unprocessed failed: %v", err)
		}
		items = append(items, item)
	}
	return items
}

func sampleRecord(identity, url string) catalog.Record {
	return catalog.Record{
		Identity:          identity,
		SourceURL:         url,
		Username:          "uploader",
		Tags:              []string{"a", "b"},
		PlaylistKey:       identity + "/output.m3u8",
		PublicPlaylistURL: "https://cdn.example.com/" + identity + "/output.m3u8",
		ObjectKeys:        []string{identity + "/output.m3u8", identity + "/output0.ts"},
		ProcessedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func testEnqueue(t *testing.T, store catalog.Store) {
	ctx := context.Background()
	n, err := store.Enqueue(ctx, []catalog.WorkItem{
		{SourceURL: "https://v.redd.it/abc123.mp4", Username: "first", Tags: []string{"x"}},
		{SourceURL: "https://a.com/x.mp4"},
		{SourceURL: "   "},
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}
	n, err = store.Enqueue(ctx, []catalog.WorkItem{
		{SourceURL: "https://v.redd.it/abc123.mp4", Username: "second"},
		{SourceURL: "https://b.com/y.mp4"},
	})
	if err != nil {
		t.Fatalf("second Enqueue failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted on second enqueue, got %d", n)
	}
	items := collect(t, store)
	if len(items) != 3 {
		t.Fatalf("expected 3 pending items, got %d", len(items))
	}
	if items[0].Username != "first" || len(items[0].Tags) != 1 || items[0].Tags[0] != "x" {
		t.Fatalf("existing item was modified: %#v", items[0])
	}
}

func testUnprocessed(t *testing.T, store catalog.Store) {
	ctx := context.Background()
	const total = 250
	batch := make([]catalog.WorkItem, 0, total)
	for i := range total {
		batch = append(batch, catalog.WorkItem{SourceURL: fmt.Sprintf("https://example.com/%03d.mp4", i)})
	}
	if _, err := store.Enqueue(ctx, batch); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	seen := 0
	for item, err := range store.Unprocessed(ctx) {
		if err != nil {
			t.Fatalf("Unprocessed failed: %v", err)
		}
		want := fmt.Sprintf("https://example.com/%03d.mp4", seen)
		if item.SourceURL != want {
			t.Fatalf("item %d: got %q want %q", seen, item.SourceURL, want)
		}
		// Processing while iterating must not skip later items.
		if err := store.MarkProcessed(ctx, item.SourceURL); err != nil {
			t.Fatalf("MarkProcessed failed: %v", err)
		}
		seen++
	}
	if seen != total {
		t.Fatalf("expected %d items, saw %d", total, seen)
	}
	if rest := collect(t, store); len(rest) != 0 {
		t.Fatalf("expected no pending items after processing, got %d", len(rest))
	}

	// Breaking out early stops iteration cleanly.
	if _, err := store.Enqueue(ctx, []catalog.WorkItem{{SourceURL: "https://example.com/late.mp4"}, {SourceURL: "https://example.com/later.mp4"}}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	count := 0
	for _, err := range store.Unprocessed(ctx) {
		if err != nil {
			t.Fatalf("Unprocessed failed: %v", err)
		}
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected early break after one item, got %d", count)
	}
}

func testRecordCompletion(t *testing.T, store catalog.Store) {
	ctx := context.Background()
	url := "https://v.redd.it/abc123.mp4"
	if _, err := store.Enqueue(ctx, []catalog.WorkItem{{SourceURL: url}}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	rec := sampleRecord("v_redd_it_abc123", url)
	inserted, err := store.RecordCompletion(ctx, rec)
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected first completion to insert")
	}
	if pending := collect(t, store); len(pending) != 0 {
		t.Fatalf("expected item processed in the same commit, pending=%d", len(pending))
	}

	changed := rec
	changed.PublicPlaylistURL = "https://elsewhere.example.com/x.m3u8"
	inserted, err = store.RecordCompletion(ctx, changed)
	if err != nil {
		t.Fatalf("second RecordCompletion failed: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate completion to be ignored")
	}

	got, err := store.Lookup(ctx, rec.Identity)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected record")
	}
	if got.PublicPlaylistURL != rec.PublicPlaylistURL {
		t.Fatalf("record was overwritten: %q", got.PublicPlaylistURL)
	}
	if got.PlaylistKey != rec.PlaylistKey || len(got.ObjectKeys) != 2 || got.Username != "uploader" {
		t.Fatalf("unexpected record: %#v", got)
	}
	if !got.ProcessedAt.Equal(rec.ProcessedAt) {
		t.Fatalf("processed_at mismatch: got %s want %s", got.ProcessedAt, rec.ProcessedAt)
	}

	other := "https://mirror.example.com/v_redd_it/abc123.mp4"
	if _, err := store.Enqueue(ctx, []catalog.WorkItem{{SourceURL: other}}); err != nil {
		t.Fatalf("Enqueue other failed: %v", err)
	}
	inserted, err = store.RecordCompletion(ctx, sampleRecord(rec.Identity, other))
	if !errors.Is(err, catalog.ErrIdentityTaken) || !errors.Is(err, services.ErrCatalog) {
		t.Fatalf("expected identity taken catalog error, got inserted=%v err=%v", inserted, err)
	}
	if pending := collect(t, store); len(pending) != 1 || pending[0].SourceURL != other {
		t.Fatalf("expected %s to stay unprocessed, pending=%#v", other, pending)
	}

	if _, err := store.RecordCompletion(ctx, catalog.Record{SourceURL: url}); !errors.Is(err, services.ErrCatalog) {
		t.Fatalf("expected catalog error for missing identity, got %v", err)
	}

	missing, err := store.Lookup(ctx, "absent")
	if err != nil {
		t.Fatalf("Lookup absent failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil record, got %#v", missing)
	}
}

func testCheck(t *testing.T, store catalog.Store) {
	ctx := context.Background()
	if _, err := store.RecordCompletion(ctx, sampleRecord("a_com_x", "https://a.com/x.mp4")); err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	cases := []struct {
		identity string
		url      string
		want     catalog.Match
	}{
		{"a_com_x", "https://a.com/x.mp4", catalog.MatchSame},
		{"a_com_x", "http://a.com/x.mov", catalog.MatchCollision},
		{"b_com_y", "https://b.com/y.mp4", catalog.MatchNone},
	}
	for _, tc := range cases {
		got, rec, err := catalog.Check(ctx, store, tc.identity, tc.url)
		if err != nil {
			t.Fatalf("Check(%s) failed: %v", tc.url, err)
		}
		if got != tc.want {
			t.Fatalf("Check(%s) = %v, want %v", tc.url, got, tc.want)
		}
		if (got == catalog.MatchNone) != (rec == nil) {
			t.Fatalf("Check(%s) record presence mismatch: %#v", tc.url, rec)
		}
	}
}

func testMarkProcessed(t *testing.T, store catalog.Store) {
	ctx := context.Background()
	url := "https://a.com/heal.mp4"
	if _, err := store.Enqueue(ctx, []catalog.WorkItem{{SourceURL: url}}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := store.MarkProcessed(ctx, url); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := store.MarkProcessed(ctx, url); err != nil {
		t.Fatalf("repeat MarkProcessed failed: %v", err)
	}
	if pending := collect(t, store); len(pending) != 0 {
		t.Fatalf("expected no pending items, got %d", len(pending))
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Items != 1 || stats.Processed != 1 || stats.Pending != 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func testClaims(t *testing.T, store catalog.Store) {
	ctx := context.Background()
	ttl := time.Minute
	ok, err := store.Claim(ctx, "id1", "owner-a", ttl)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = store.Claim(ctx, "id1", "owner-a", ttl)
	if err != nil || !ok {
		t.Fatalf("re-entrant claim: ok=%v err=%v", ok, err)
	}
	ok, err = store.Claim(ctx, "id1", "owner-b", ttl)
	if err != nil {
		t.Fatalf("contended claim failed: %v", err)
	}
	if ok {
		t.Fatal("expected contended claim to be refused")
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.ActiveClaims != 1 {
		t.Fatalf("expected 1 active claim, got %d", stats.ActiveClaims)
	}

	// Releasing as a non-owner leaves the claim in place.
	if err := store.Release(ctx, "id1", "owner-b"); err != nil {
		t.Fatalf("Release by non-owner failed: %v", err)
	}
	if ok, _ := store.Claim(ctx, "id1", "owner-b", ttl); ok {
		t.Fatal("expected claim to survive non-owner release")
	}
	if err := store.Release(ctx, "id1", "owner-a"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	ok, err = store.Claim(ctx, "id1", "owner-b", ttl)
	if err != nil || !ok {
		t.Fatalf("claim after release: ok=%v err=%v", ok, err)
	}

	// A non-positive ttl expires immediately, so another owner may take over.
	ok, err = store.Claim(ctx, "id2", "owner-a", -time.Second)
	if err != nil || !ok {
		t.Fatalf("expired claim: ok=%v err=%v", ok, err)
	}
	ok, err = store.Claim(ctx, "id2", "owner-b", ttl)
	if err != nil || !ok {
		t.Fatalf("takeover of expired claim: ok=%v err=%v", ok, err)
	}
}

func testRecordFailure(t *testing.T, store catalog.Store) {
	ctx := context.Background()
	url := "https://a.com/broken.mp4"
	if _, err := store.Enqueue(ctx, []catalog.WorkItem{{SourceURL: url}}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	for range 2 {
		if err := store.RecordFailure(ctx, url, "fetching", "status 404"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}
	items := collect(t, store)
	if len(items) != 1 {
		t.Fatalf("expected item to stay pending, got %d", len(items))
	}
	if items[0].Attempts != 2 || items[0].LastStage != "fetching" || items[0].LastError != "status 404" {
		t.Fatalf("unexpected failure bookkeeping: %#v", items[0])
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Failing != 1 || stats.Records != 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func testRecentRecords(t *testing.T, store catalog.Store) {
	ctx := context.Background()
	older := sampleRecord("older", "https://a.com/older.mp4")
	newer := sampleRecord("newer", "https://a.com/newer.mp4")
	newer.ProcessedAt = older.ProcessedAt.Add(500 * time.Millisecond)
	for _, rec := range []catalog.Record{older, newer} {
		if _, err := store.RecordCompletion(ctx, rec); err != nil {
			t.Fatalf("RecordCompletion failed: %v", err)
		}
	}
	recs, err := store.RecentRecords(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRecords failed: %v", err)
	}
	if len(recs) != 2 || recs[0].Identity != "newer" || recs[1].Identity != "older" {
		t.Fatalf("unexpected order: %#v", recs)
	}
	recs, err = store.RecentRecords(ctx, 1)
	if err != nil {
		t.Fatalf("RecentRecords limit failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(recs))
	}
}
