// Package balancer defines the selection strategy interface between the
// connection proxy and a server pool. Round-robin is the only strategy in
// scope; the interface exists so alternatives (least-connections, etc.) can
// be added without touching the proxy or the pool.
package balancer
