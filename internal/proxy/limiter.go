package proxy

import "context"

// Limiter caps concurrent inbound connections process-wide (maxconn). One
// instance is shared by every listener. A zero limit means unlimited.
type Limiter struct {
	sem chan struct{}
}

func NewLimiter(max int) *Limiter {
	l := &Limiter{}
	if max > 0 {
		l.sem = make(chan struct{}, max)
	}
	return l
}

// Acquire blocks until a slot is free or ctx is cancelled. Blocking here
// queues excess connections in the accept backlog instead of refusing them.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.sem == nil {
		return ctx.Err()
	}

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) Release() {
	if l.sem == nil {
		return
	}
	<-l.sem
}
