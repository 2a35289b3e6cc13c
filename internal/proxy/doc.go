// Package proxy implements the tcp-mode listener: an accept loop bounded by
// a process-wide connection limiter, target selection through the balancer,
// and a bidirectional byte relay with connect and idle timeouts. Each
// connection follows accepted -> connecting -> relaying -> closed, with
// connecting -> closed as the only short-circuit. Selection failures and
// per-connection errors never take down the listener.
package proxy
