package backend

import (
	"sync"
)

// Role determines when a server is considered for selection: normal servers
// take round-robin traffic, backup servers only serve when no normal server
// is up.
type Role int

const (
	RoleNormal Role = iota
	RoleBackup
)

func (r Role) String() string {
	switch r {
	case RoleNormal:
		return "normal"
	case RoleBackup:
		return "backup"
	default:
		return "unknown"
	}
}

// State is the health state of a server. Servers start in StateChecking and
// are not eligible for traffic until their checker has observed enough
// consecutive successful probes.
type State int

const (
	StateChecking State = iota
	StateUp
	StateDown
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	default:
		return "unknown"
	}
}

// Server represents one backend target with its identity, role, health state
// and counters. Health state and probe counters are mutated only by the
// server's health checker; connection counters by the proxy. All access goes
// through the server's own mutex so selection never takes a pool-wide lock.
type Server struct {
	name    string
	address string
	role    Role

	mutex             sync.Mutex
	state             State
	successes         int
	failures          int
	activeConnections int
	totalConnections  uint64
}

// New creates a server in the checking state.
func New(name, address string, role Role) *Server {
	return &Server{
		name:    name,
		address: address,
		role:    role,
		state:   StateChecking,
	}
}

func (s *Server) Name() string {
	return s.name
}

func (s *Server) Address() string {
	return s.address
}

func (s *Server) Role() Role {
	return s.role
}

// State returns the current health state.
func (s *Server) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Eligible reports whether the server may receive traffic.
func (s *Server) Eligible() bool {
	return s.State() == StateUp
}

// SetState updates the health state.
// Returns true if the state changed, false if it was already in that state.
func (s *Server) SetState(state State) (changed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == state {
		return false
	}

	s.state = state
	return true
}

// RecordSuccess registers one successful probe, resets the failure streak and
// returns the new consecutive-success count.
func (s *Server) RecordSuccess() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.successes++
	s.failures = 0
	return s.successes
}

// RecordFailure registers one failed probe, resets the success streak and
// returns the new consecutive-failure count.
func (s *Server) RecordFailure() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.failures++
	s.successes = 0
	return s.failures
}

// ProbeCounters returns the current consecutive success and failure streaks.
func (s *Server) ProbeCounters() (successes, failures int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.successes, s.failures
}

// IncrementConn increments the active connection count.
func (s *Server) IncrementConn() {
	s.mutex.Lock()
	s.activeConnections++
	s.totalConnections++
	s.mutex.Unlock()
}

// DecrementConn decrements the active connection count.
func (s *Server) DecrementConn() {
	s.mutex.Lock()
	if s.activeConnections > 0 {
		s.activeConnections--
	}
	s.mutex.Unlock()
}

// ActiveConnections returns the current number of active connections.
func (s *Server) ActiveConnections() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.activeConnections
}

// TotalConnections returns the number of connections ever routed here.
func (s *Server) TotalConnections() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.totalConnections
}
