package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type EventType string

const (
	EventConnOpened    EventType = "conn_opened"
	EventConnClosed    EventType = "conn_closed"
	EventConnRefused   EventType = "conn_refused"
	EventHealthChanged EventType = "health_changed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Listener  string
	Server    string
	State     string
	BytesIn   int64
	BytesOut  int64
}

// Collector aggregates proxy and health-check events off the hot path.
// Emit never blocks; under pressure events are dropped rather than stalling
// a relay or a probe loop.
type Collector struct {
	eventCh chan Event
	logger  *slog.Logger

	mutex       sync.RWMutex
	opened      map[string]uint64
	refused     map[string]uint64
	transitions map[string]uint64
	bytesIn     map[string]uint64
	bytesOut    map[string]uint64
	startTime   time.Time
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:     make(chan Event, bufferSize),
		logger:      logger,
		opened:      make(map[string]uint64),
		refused:     make(map[string]uint64),
		transitions: make(map[string]uint64),
		bytesIn:     make(map[string]uint64),
		bytesOut:    make(map[string]uint64),
		startTime:   time.Now(),
	}
}

// Emit queues an event without blocking the caller.
func (c *Collector) Emit(event Event) {
	if c == nil {
		return
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("stats collector started")
	defer c.logger.Info("stats collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := event.Listener + "/" + event.Server

	switch event.Type {
	case EventConnOpened:
		c.opened[key]++
	case EventConnClosed:
		c.bytesIn[key] += uint64(event.BytesIn)
		c.bytesOut[key] += uint64(event.BytesOut)
	case EventConnRefused:
		c.refused[event.Listener]++
	case EventHealthChanged:
		c.transitions[event.Server]++
	}
}

func (c *Collector) Uptime() time.Duration {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return time.Since(c.startTime)
}

func (c *Collector) refusedFor(listener string) uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.refused[listener]
}

func (c *Collector) serverTotals(listener, server string) (opened, bytesIn, bytesOut, transitions uint64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	key := listener + "/" + server
	return c.opened[key], c.bytesIn[key], c.bytesOut[key], c.transitions[server]
}
