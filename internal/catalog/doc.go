// Package catalog persists the ingestion backlog and the metadata records of
// published items.
//
// A Store holds three kinds of state: source WorkItems (the backlog, each with
// a processed flag), immutable metadata Records keyed by identity, and
// short-lived identity claims that keep two workers off the same item. The
// processed flag flips in the same commit that writes the Record, so a
// reader never sees one without the other.
//
// SQLiteStore is the default backend; package mongostore provides the
// MongoDB implementation.
package catalog
