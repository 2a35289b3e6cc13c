// Package backend defines the Server type: a backend target's identity,
// normal/backup role, up/down/checking health state and its probe and
// connection counters. State is guarded per server so concurrent selection
// and health checking never contend on a shared lock.
package backend
