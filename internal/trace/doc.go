// Package trace records every handler delivery of a run in SQLite.
//
// A Journal plugs into an app as both delivery observer and tick observer.
// Deliveries are buffered during a tick and written in one transaction when
// the tick completes, each with its event value encoded as canonical JSON.
// The journal is append-only and ordered by a per-run sequence number, so
// two runs of the same scenario can be compared row for row.
package trace
