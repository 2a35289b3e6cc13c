package main

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/tcp-loadbalancer/config"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/healthcheck"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/proxy"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/stats"
)

func TestMain(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Main Suite")
}

var _ = Describe("initializeListeners", func() {
	var (
		log       *slog.Logger
		collector *stats.Collector
		limiter   *proxy.Limiter
		cfg       *config.Config
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, nil))
		collector = stats.NewCollector(16, log)
		limiter = proxy.NewLimiter(10)

		cfg = &config.Config{
			Global: config.GlobalConfig{
				Environment:  config.EnvDev,
				MaxConn:      10,
				SpreadChecks: 5,
			},
			Timeouts: config.TimeoutConfig{
				Connect: "5s",
				Client:  "50s",
				Server:  "50s",
			},
			HealthCheck: config.HealthCheckConfig{
				Interval: "2s",
				Timeout:  "3s",
				Rise:     2,
				Fall:     3,
				Probe:    config.ProbeTCP,
			},
			Listeners: []config.ListenerConfig{
				{
					Name:    "mysql",
					Bind:    "127.0.0.1:0",
					Mode:    config.ModeTCP,
					Balance: config.BalanceRoundRobin,
					Servers: []config.ServerConfig{
						{Name: "replica1", Address: "10.0.0.11:3306"},
						{Name: "replica2", Address: "10.0.0.12:3306", CheckInterval: "1s"},
						{Name: "master", Address: "10.0.0.10:3306", Backup: true},
					},
				},
				{
					Name: "stats",
					Bind: "127.0.0.1:0",
					Mode: config.ModeHTTP,
				},
			},
			Logging: config.LoggingConfig{Level: config.LogLevelInfo},
		}
	})

	It("should build one proxy and pool per tcp listener", func() {
		proxies, checkers, pools, _, err := initializeListeners(cfg, log, collector, limiter)
		Expect(err).NotTo(HaveOccurred())
		Expect(proxies).To(HaveLen(1))
		Expect(pools).To(HaveLen(1))
		Expect(checkers).To(HaveLen(3))
	})

	It("should keep the configured server order in the pool", func() {
		_, _, pools, _, err := initializeListeners(cfg, log, collector, limiter)
		Expect(err).NotTo(HaveOccurred())

		servers := pools[0].Servers()
		Expect(servers[0].Name()).To(Equal("replica1"))
		Expect(servers[1].Name()).To(Equal("replica2"))
		Expect(servers[2].Name()).To(Equal("master"))
		Expect(servers[2].Role().String()).To(Equal("backup"))
	})

	It("should take the stats bind from the http listener", func() {
		_, _, _, statsBind, err := initializeListeners(cfg, log, collector, limiter)
		Expect(err).NotTo(HaveOccurred())
		Expect(statsBind).To(Equal("127.0.0.1:0"))
	})

	It("should fail on a malformed per-server check interval", func() {
		cfg.Listeners[0].Servers[1].CheckInterval = "soon"
		_, _, _, _, err := initializeListeners(cfg, log, collector, limiter)
		Expect(err).To(HaveOccurred())
	})

	It("should fail on an unknown balance strategy", func() {
		cfg.Listeners[0].Balance = "leastconn"
		_, _, _, _, err := initializeListeners(cfg, log, collector, limiter)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("buildProbe", func() {
	It("should build a mysql probe when configured", func() {
		probe := buildProbe(config.HealthCheckConfig{
			Probe:     config.ProbeMySQL,
			MySQLUser: "haproxy_check",
		}, 3*time.Second)
		Expect(probe).To(BeAssignableToTypeOf(&healthcheck.MySQLProbe{}))
	})

	It("should default to the tcp probe", func() {
		probe := buildProbe(config.HealthCheckConfig{Probe: config.ProbeTCP}, 3*time.Second)
		Expect(probe).To(BeAssignableToTypeOf(&healthcheck.TCPProbe{}))
	})
})
