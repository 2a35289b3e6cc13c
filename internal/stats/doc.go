// Package stats provides the read-only state view for the stats listener.
//
// It uses a channel-based event pipeline to collect connection and health
// events asynchronously: the proxy and health checkers emit events via
// buffered channels with non-blocking semantics, so the relay path never
// stalls on bookkeeping. The Reporter merges those totals with live pool
// state (role, health state, probe streaks, active connections) into a
// Snapshot, served as JSON by the http-mode listener.
//
// The collector runs in a dedicated goroutine and drains pending events on
// shutdown.
package stats
