package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/angeloszaimis/tcp-loadbalancer/config"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/backend"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/balancer"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/healthcheck"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/httpserver"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/proxy"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/serverpool"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/stats"
	"github.com/angeloszaimis/tcp-loadbalancer/pkg/logger"
)

const (
	statsEventBuffer = 1024
	shutdownGrace    = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Global.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := stats.NewCollector(statsEventBuffer, log)
	collector.Start(ctx)

	limiter := proxy.NewLimiter(cfg.Global.MaxConn)

	proxies, checkers, pools, statsBind, err := initializeListeners(cfg, log, collector, limiter)
	if err != nil {
		log.Error("failed to initialize listeners", slog.Any("err", err))
		os.Exit(1)
	}

	for _, c := range checkers {
		go c.Run(ctx)
	}

	errCh := make(chan error, len(proxies)+1)
	var wg sync.WaitGroup

	for _, p := range proxies {
		wg.Add(1)
		go func(p *proxy.Proxy) {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				errCh <- err
			}
		}(p)
	}

	var statsSrv *httpserver.Server
	if statsBind != "" {
		reporter := stats.NewReporter(collector, pools)
		mux := http.NewServeMux()
		mux.HandleFunc("/", reporter.Handler())

		statsSrv, err = httpserver.New(statsBind, mux)
		if err != nil {
			log.Error("failed to create stats server", slog.Any("err", err))
			os.Exit(1)
		}

		go func() {
			if err := statsSrv.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully...")
	case err := <-errCh:
		log.Error("listener failed", slog.Any("err", err))
		cancel()
	}

	if statsSrv != nil {
		if err := statsSrv.Shutdown(context.Background()); err != nil {
			log.Error("error during stats shutdown", slog.Any("err", err))
		}
	}

	wg.Wait()
}

func initializeListeners(
	cfg *config.Config,
	log *slog.Logger,
	collector *stats.Collector,
	limiter *proxy.Limiter,
) (proxies []*proxy.Proxy, checkers []*healthcheck.Checker, pools []*serverpool.Pool, statsBind string, err error) {
	connectTimeout, err := time.ParseDuration(cfg.Timeouts.Connect)
	if err != nil {
		return nil, nil, nil, "", err
	}
	clientTimeout, err := time.ParseDuration(cfg.Timeouts.Client)
	if err != nil {
		return nil, nil, nil, "", err
	}
	serverTimeout, err := time.ParseDuration(cfg.Timeouts.Server)
	if err != nil {
		return nil, nil, nil, "", err
	}
	checkInterval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		return nil, nil, nil, "", err
	}
	checkTimeout, err := time.ParseDuration(cfg.HealthCheck.Timeout)
	if err != nil {
		return nil, nil, nil, "", err
	}

	probe := buildProbe(cfg.HealthCheck, checkTimeout)

	for _, lc := range cfg.Listeners {
		if lc.Mode == config.ModeHTTP {
			if statsBind == "" {
				statsBind = lc.Bind
			}
			continue
		}

		servers := make([]*backend.Server, 0, len(lc.Servers))
		for _, sc := range lc.Servers {
			role := backend.RoleNormal
			if sc.Backup {
				role = backend.RoleBackup
			}

			s := backend.New(sc.Name, sc.Address, role)
			servers = append(servers, s)

			interval := checkInterval
			if sc.CheckInterval != "" {
				interval, err = time.ParseDuration(sc.CheckInterval)
				if err != nil {
					return nil, nil, nil, "", err
				}
			}

			checkers = append(checkers, healthcheck.New(s, probe, healthcheck.CheckConfig{
				Interval:  interval,
				Timeout:   checkTimeout,
				Rise:      cfg.HealthCheck.Rise,
				Fall:      cfg.HealthCheck.Fall,
				SpreadPct: cfg.Global.SpreadChecks,
			}, log, collector))
		}

		pool := serverpool.New(lc.Name, servers)
		pools = append(pools, pool)

		strat, err := balancer.NewStrategy(lc.Balance)
		if err != nil {
			return nil, nil, nil, "", err
		}

		proxies = append(proxies, proxy.New(proxy.Config{
			Name:           lc.Name,
			Bind:           lc.Bind,
			ConnectTimeout: connectTimeout,
			ClientTimeout:  clientTimeout,
			ServerTimeout:  serverTimeout,
			KeepAlive:      cfg.Global.TCPKeepAlive,
			ShutdownGrace:  shutdownGrace,
		}, pool, strat, limiter, log, collector))
	}

	return proxies, checkers, pools, statsBind, nil
}

func buildProbe(hc config.HealthCheckConfig, timeout time.Duration) healthcheck.Probe {
	switch hc.Probe {
	case config.ProbeMySQL:
		return healthcheck.NewMySQLProbe(hc.MySQLUser, timeout)
	default:
		return healthcheck.NewTCPProbe()
	}
}
