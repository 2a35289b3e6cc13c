package healthcheck

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/angeloszaimis/tcp-loadbalancer/internal/backend"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/stats"
)

// CheckConfig carries the probe schedule and smoothing thresholds for one
// server's checker.
type CheckConfig struct {
	// Interval between probes, before jitter.
	Interval time.Duration
	// Timeout bounds a single probe, connect and handshake included.
	Timeout time.Duration
	// Rise is the number of consecutive successes required to mark up.
	Rise int
	// Fall is the number of consecutive failures required to mark down.
	Fall int
	// SpreadPct randomizes each wait within ±SpreadPct% of Interval.
	SpreadPct int
}

// Checker runs the periodic probe loop for a single server and owns all
// writes to its health state.
type Checker struct {
	server    *backend.Server
	probe     Probe
	cfg       CheckConfig
	logger    *slog.Logger
	collector *stats.Collector
	rng       *rand.Rand
}

// New creates a checker for one server. Each checker gets its own random
// source so probe jitter is uncorrelated across servers.
func New(server *backend.Server, probe Probe, cfg CheckConfig, logger *slog.Logger, collector *stats.Collector) *Checker {
	h := fnv.New64a()
	h.Write([]byte(server.Name()))
	h.Write([]byte(server.Address()))

	return &Checker{
		server:    server,
		probe:     probe,
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), h.Sum64())),
	}
}

// Run probes the server until ctx is cancelled. Probe errors are never fatal
// to the loop.
func (c *Checker) Run(ctx context.Context) {
	timer := time.NewTimer(c.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("health check stopped",
				slog.String("server", c.server.Name()))
			return

		case <-timer.C:
			c.check(ctx)
			timer.Reset(c.nextWait())
		}
	}
}

func (c *Checker) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	err := c.probe.Check(probeCtx, c.server.Address())
	cancel()

	if err != nil {
		failures := c.server.RecordFailure()
		c.logger.Debug("probe failed",
			slog.String("server", c.server.Name()),
			slog.String("address", c.server.Address()),
			slog.Int("consecutive_failures", failures),
			slog.String("error", err.Error()))

		if failures >= c.cfg.Fall && c.server.SetState(backend.StateDown) {
			c.logger.Warn("server is down",
				slog.String("server", c.server.Name()),
				slog.String("address", c.server.Address()))
			c.emitTransition(backend.StateDown)
		}
		return
	}

	successes := c.server.RecordSuccess()
	if successes >= c.cfg.Rise && c.server.SetState(backend.StateUp) {
		c.logger.Info("server is up",
			slog.String("server", c.server.Name()),
			slog.String("address", c.server.Address()))
		c.emitTransition(backend.StateUp)
	}
}

func (c *Checker) emitTransition(state backend.State) {
	c.collector.Emit(stats.Event{
		Type:      stats.EventHealthChanged,
		Timestamp: time.Now(),
		Server:    c.server.Name(),
		State:     state.String(),
	})
}

// nextWait returns the interval with a uniform random offset inside
// ±SpreadPct%, so many checkers never probe in lockstep.
func (c *Checker) nextWait() time.Duration {
	if c.cfg.SpreadPct <= 0 {
		return c.cfg.Interval
	}

	span := float64(c.cfg.Interval) * float64(c.cfg.SpreadPct) / 100
	offset := (c.rng.Float64()*2 - 1) * span
	return c.cfg.Interval + time.Duration(offset)
}
