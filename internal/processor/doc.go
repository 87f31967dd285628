// Package processor merges validated feed rowsets into the store.
//
// OrderProcessor applies a per-order staleness discipline (strictly
// increasing generatedAt, non-increasing volRemaining) and then reconciles
// the book: any stored order absent from the latest snapshot of its
// (typeID, regionID) pair is flagged probablyOld, because the feed never
// publishes explicit cancel or fill events.
//
// HistoryProcessor replaces whole (typeID, regionID) daily-history
// aggregates under last-writer-wins.
//
// Stale updates are discarded silently; only store failures (anything other
// than not-found) produce a failure result.
package processor
