// Package healthcheck implements per-server probe loops with rise/fall
// smoothing. Each server gets an independent goroutine that probes on a
// jittered interval and flips the server's state only after the configured
// number of consecutive successes or failures. Probes are pluggable: a plain
// TCP connect check and a MySQL login check are provided.
package healthcheck
