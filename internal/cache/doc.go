// Package cache provides the Redis-backed key/value manager used by
// internal/jobstore and internal/tickets (SPEC_FULL.md §4.8, §4.13, §6.4).
//
// Manager wraps a single go-redis client: connection lifecycle, a
// background health-check loop, and Get/Set/SetNX/GetDelete/Delete/Exists/
// Expire plus GetJSON/SetJSON convenience wrappers. It intentionally does
// not track hit/miss statistics or memory usage — nothing in SPEC_FULL.md
// consumes that information, and /metrics (internal/metrics) reports the
// figures that matter (HTTP traffic, stage timings, LLM outcomes, push
// sends, dedup decisions) at a higher layer.
package cache
