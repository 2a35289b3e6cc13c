package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/angeloszaimis/tcp-loadbalancer/internal/balancer"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/serverpool"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/stats"
)

// Config holds one tcp listener's settings plus the process-wide relay
// options that apply to its connections.
type Config struct {
	Name           string
	Bind           string
	ConnectTimeout time.Duration
	ClientTimeout  time.Duration
	ServerTimeout  time.Duration
	KeepAlive      bool
	ShutdownGrace  time.Duration
}

// Proxy accepts inbound connections on one listener and relays each to a
// balancer-selected server until either side closes or idles out.
type Proxy struct {
	cfg       Config
	pool      *serverpool.Pool
	strategy  balancer.Strategy
	limiter   *Limiter
	logger    *slog.Logger
	collector *stats.Collector

	wg        sync.WaitGroup
	mutex     sync.Mutex
	active    map[net.Conn]struct{}
	boundAddr net.Addr
}

func New(cfg Config, pool *serverpool.Pool, strategy balancer.Strategy, limiter *Limiter, logger *slog.Logger, collector *stats.Collector) *Proxy {
	return &Proxy{
		cfg:       cfg,
		pool:      pool,
		strategy:  strategy,
		limiter:   limiter,
		logger:    logger,
		collector: collector,
		active:    make(map[net.Conn]struct{}),
	}
}

// Run binds the listener and serves until ctx is cancelled, then lets
// in-flight relays drain for the shutdown grace period before forcing the
// remainder closed. The returned error is nil on clean shutdown.
func (p *Proxy) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", p.cfg.Bind)
	if err != nil {
		return fmt.Errorf("bind %s: %w", p.cfg.Bind, err)
	}

	p.mutex.Lock()
	p.boundAddr = ln.Addr()
	p.mutex.Unlock()

	p.logger.Info("listener started",
		slog.String("listener", p.cfg.Name),
		slog.String("bind", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			p.logger.Warn("accept failed",
				slog.String("listener", p.cfg.Name),
				slog.String("error", err.Error()))
			continue
		}

		if err := p.limiter.Acquire(ctx); err != nil {
			_ = conn.Close()
			break
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer p.limiter.Release()
			p.handleConn(ctx, conn)
		}()
	}

	p.drain()
	p.logger.Info("listener stopped", slog.String("listener", p.cfg.Name))
	return nil
}

// drain waits for in-flight connections, forcing them closed once the grace
// period expires.
func (p *Proxy) drain() {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	grace := p.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}

	select {
	case <-done:
	case <-time.After(grace):
		p.logger.Warn("shutdown grace expired, closing remaining connections",
			slog.String("listener", p.cfg.Name))
		p.closeActive()
		<-done
	}
}

func (p *Proxy) handleConn(ctx context.Context, client net.Conn) {
	defer client.Close()
	p.track(client)
	defer p.untrack(client)

	target, err := p.strategy.Select(p.pool)
	if err != nil {
		// Connection-refused semantics: no eligible server means the
		// client is dropped immediately, the listener keeps serving.
		p.logger.Warn("no available server",
			slog.String("listener", p.cfg.Name),
			slog.String("client", client.RemoteAddr().String()))
		p.collector.Emit(stats.Event{
			Type:      stats.EventConnRefused,
			Timestamp: time.Now(),
			Listener:  p.cfg.Name,
		})
		return
	}

	dialer := net.Dialer{Timeout: p.cfg.ConnectTimeout}
	upstream, err := dialer.DialContext(ctx, "tcp", target.Address())
	if err != nil {
		p.logger.Warn("connect to server failed",
			slog.String("listener", p.cfg.Name),
			slog.String("server", target.Name()),
			slog.String("address", target.Address()),
			slog.String("error", err.Error()))
		return
	}
	defer upstream.Close()

	if p.cfg.KeepAlive {
		setKeepAlive(client)
		setKeepAlive(upstream)
	}

	target.IncrementConn()
	defer target.DecrementConn()

	p.collector.Emit(stats.Event{
		Type:      stats.EventConnOpened,
		Timestamp: time.Now(),
		Listener:  p.cfg.Name,
		Server:    target.Name(),
	})

	p.logger.Debug("relaying",
		slog.String("listener", p.cfg.Name),
		slog.String("client", client.RemoteAddr().String()),
		slog.String("server", target.Name()))

	bytesIn, bytesOut := p.relay(client, upstream)

	p.collector.Emit(stats.Event{
		Type:      stats.EventConnClosed,
		Timestamp: time.Now(),
		Listener:  p.cfg.Name,
		Server:    target.Name(),
		BytesIn:   bytesIn,
		BytesOut:  bytesOut,
	})
}

type relayResult struct {
	bytes int64
	err   error
}

// relay runs both directions concurrently. The first side to finish (EOF,
// error or idle timeout) ends the connection; both sockets are then closed
// to unblock the other side, whose result is still collected.
func (p *Proxy) relay(client, upstream net.Conn) (bytesIn, bytesOut int64) {
	inbound := make(chan relayResult, 1)
	outbound := make(chan relayResult, 1)

	go func() {
		n, err := copyWithIdleTimeout(upstream, client, p.cfg.ClientTimeout)
		halfCloseWrite(upstream)
		inbound <- relayResult{bytes: n, err: err}
	}()

	go func() {
		n, err := copyWithIdleTimeout(client, upstream, p.cfg.ServerTimeout)
		halfCloseWrite(client)
		outbound <- relayResult{bytes: n, err: err}
	}()

	var first relayResult
	select {
	case first = <-inbound:
		client.Close()
		upstream.Close()
		second := <-outbound
		bytesIn, bytesOut = first.bytes, second.bytes
	case first = <-outbound:
		client.Close()
		upstream.Close()
		second := <-inbound
		bytesOut, bytesIn = first.bytes, second.bytes
	}

	if first.err != nil && !errors.Is(first.err, net.ErrClosed) {
		p.logger.Debug("relay ended",
			slog.String("listener", p.cfg.Name),
			slog.String("error", first.err.Error()))
	}

	return bytesIn, bytesOut
}

// Addr returns the bound listener address, or nil before Run has bound it.
// Useful when the configured bind uses port 0.
func (p *Proxy) Addr() net.Addr {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.boundAddr
}

func (p *Proxy) track(c net.Conn) {
	p.mutex.Lock()
	p.active[c] = struct{}{}
	p.mutex.Unlock()
}

func (p *Proxy) untrack(c net.Conn) {
	p.mutex.Lock()
	delete(p.active, c)
	p.mutex.Unlock()
}

func (p *Proxy) closeActive() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for c := range p.active {
		_ = c.Close()
	}
}
