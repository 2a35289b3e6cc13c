package balancer

import (
	"fmt"

	"github.com/angeloszaimis/tcp-loadbalancer/internal/backend"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/serverpool"
)

// Strategy selects a target server from a pool for one inbound connection.
type Strategy interface {
	Select(pool *serverpool.Pool) (*backend.Server, error)
}

// NewStrategy builds the strategy named in the configuration. Unknown names
// are a configuration error, not a silent default.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "roundrobin":
		return NewRoundRobinStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown balance strategy %q", name)
	}
}
