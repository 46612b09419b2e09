// Package engine finds pairs of events that cannot both be attended.
//
// Matching runs in four stages over one working set of events:
//
//  1. FilterDuplicates drops incomplete events and near-duplicate postings
//     of the same real-world event by different sources.
//  2. CalculateDynamicThreshold derives a venue proximity cutoff from local
//     venue density when the caller does not pass one.
//  3. FindConflicts scans every unordered pair for buffered time overlap at
//     the same or nearby venues.
//  4. DetermineConflictType and CalculateSeverity label each matched pair.
//
// Every function is a pure computation over its arguments. An *Engine holds
// only immutable configuration, so one value can serve concurrent callers.
// Events without start, end or venue coordinates are skipped, never rejected.
package engine
