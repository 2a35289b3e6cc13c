package balancer

import (
	"github.com/angeloszaimis/tcp-loadbalancer/internal/backend"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/serverpool"
)

type roundRobinStrategy struct{}

// Select delegates to the pool's cursor-based pick: round-robin over up
// normal servers, first up backup otherwise.
func (rb *roundRobinStrategy) Select(pool *serverpool.Pool) (*backend.Server, error) {
	return pool.PickNext()
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
