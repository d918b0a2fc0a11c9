// Package sync reconciles the product feed with the catalog.
//
// A cycle runs in three phases:
//
//   - Fetching: the feed is downloaded and truncated to the configured
//     number of records. A fetch or parse failure ends the cycle before
//     anything is written.
//   - Upserting: every record is looked up by SKU and either updated in
//     place or created. Failures are collected as RecordError values and
//     the loop moves on.
//   - Evicting: catalog entries not refreshed within one interval are
//     deleted. This phase only runs when at least one record was stored,
//     so an empty or broken feed never wipes the catalog.
//
// Cancellation is checked between records. A catalog call already in
// progress is allowed to finish, and a cancelled cycle never evicts.
//
// # Coordinator Package
//
// The sync/coordinator subpackage decides when a cycle runs: it polls the
// trigger store, serializes runs behind a lock and persists the outcome.
package sync
