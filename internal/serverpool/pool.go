package serverpool

import (
	"errors"
	"sync/atomic"

	"github.com/angeloszaimis/tcp-loadbalancer/internal/backend"
)

// ErrNoAvailableServer is returned by PickNext when no normal or backup
// server is up.
var ErrNoAvailableServer = errors.New("no available server")

// Pool holds the ordered set of servers behind one listener. Membership is
// fixed after construction; only health state changes which subset is
// eligible. The round-robin cursor advances in a single atomic step, so
// concurrent picks each observe a distinct position.
type Pool struct {
	name    string
	servers []*backend.Server
	cursor  atomic.Uint64
}

// New creates a pool over the given servers in configuration order.
func New(name string, servers []*backend.Server) *Pool {
	return &Pool{
		name:    name,
		servers: servers,
	}
}

// Name returns the listener name this pool serves.
func (p *Pool) Name() string {
	return p.name
}

// Servers returns all pool members in configuration order.
func (p *Pool) Servers() []*backend.Server {
	return p.servers
}

// EligibleNormals returns, in configuration order, all normal servers
// currently up.
func (p *Pool) EligibleNormals() []*backend.Server {
	return p.eligible(backend.RoleNormal)
}

// EligibleBackups returns, in configuration order, all backup servers
// currently up.
func (p *Pool) EligibleBackups() []*backend.Server {
	return p.eligible(backend.RoleBackup)
}

func (p *Pool) eligible(role backend.Role) []*backend.Server {
	out := make([]*backend.Server, 0, len(p.servers))
	for _, s := range p.servers {
		if s.Role() == role && s.Eligible() {
			out = append(out, s)
		}
	}
	return out
}

// PickNext selects the next target: round-robin over the eligible normal
// servers, or the first up backup in configuration order when no normal
// server is up. Backups are never round-robined among themselves.
func (p *Pool) PickNext() (*backend.Server, error) {
	normals := p.EligibleNormals()
	if len(normals) > 0 {
		n := p.cursor.Add(1)
		return normals[(n-1)%uint64(len(normals))], nil
	}

	for _, s := range p.servers {
		if s.Role() == backend.RoleBackup && s.Eligible() {
			return s, nil
		}
	}

	return nil, ErrNoAvailableServer
}
