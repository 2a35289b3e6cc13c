// Package serverpool implements the ordered server set behind a listener
// and the round-robin pick with backup fallback.
package serverpool
