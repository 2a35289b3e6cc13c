package stats_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/tcp-loadbalancer/internal/backend"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/serverpool"
	"github.com/angeloszaimis/tcp-loadbalancer/internal/stats"
)

func TestStats(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Stats Suite")
}

var _ = Describe("Reporter", func() {
	var (
		collector *stats.Collector
		reporter  *stats.Reporter
		servers   []*backend.Server
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log := slog.New(slog.NewTextHandler(os.Stdout, nil))
		ctx, cancel = context.WithCancel(context.Background())
		collector = stats.NewCollector(64, log)
		collector.Start(ctx)

		servers = []*backend.Server{
			backend.New("replica1", "10.0.0.11:3306", backend.RoleNormal),
			backend.New("master", "10.0.0.10:3306", backend.RoleBackup),
		}
		pool := serverpool.New("mysql", servers)
		reporter = stats.NewReporter(collector, []*serverpool.Pool{pool})
	})

	AfterEach(func() {
		cancel()
	})

	Describe("Snapshot", func() {
		It("should expose listener and server identity", func() {
			snap := reporter.Snapshot()

			Expect(snap.Listeners).To(HaveLen(1))
			Expect(snap.Listeners[0].Name).To(Equal("mysql"))
			Expect(snap.Listeners[0].Servers).To(HaveLen(2))
			Expect(snap.Listeners[0].Servers[0].Name).To(Equal("replica1"))
			Expect(snap.Listeners[0].Servers[0].Role).To(Equal("normal"))
			Expect(snap.Listeners[0].Servers[1].Role).To(Equal("backup"))
		})

		It("should reflect live health state and probe streaks", func() {
			servers[0].SetState(backend.StateUp)
			servers[0].RecordSuccess()
			servers[0].RecordSuccess()

			snap := reporter.Snapshot()
			Expect(snap.Listeners[0].Servers[0].State).To(Equal("up"))
			Expect(snap.Listeners[0].Servers[0].ConsecutiveSuccesses).To(Equal(2))
			Expect(snap.Listeners[0].Servers[1].State).To(Equal("checking"))
		})

		It("should aggregate collector events", func() {
			collector.Emit(stats.Event{Type: stats.EventConnRefused, Listener: "mysql", Timestamp: time.Now()})
			collector.Emit(stats.Event{Type: stats.EventHealthChanged, Server: "replica1", State: "up", Timestamp: time.Now()})
			collector.Emit(stats.Event{
				Type: stats.EventConnClosed, Listener: "mysql", Server: "replica1",
				BytesIn: 10, BytesOut: 20, Timestamp: time.Now(),
			})

			Eventually(func() uint64 {
				return reporter.Snapshot().Listeners[0].Refused
			}).Should(Equal(uint64(1)))

			snap := reporter.Snapshot()
			Expect(snap.Listeners[0].Servers[0].HealthTransitions).To(Equal(uint64(1)))
			Expect(snap.Listeners[0].Servers[0].BytesIn).To(Equal(uint64(10)))
			Expect(snap.Listeners[0].Servers[0].BytesOut).To(Equal(uint64(20)))
		})
	})

	Describe("Handler", func() {
		It("should serve the snapshot as JSON", func() {
			servers[0].SetState(backend.StateUp)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			reporter.Handler()(rec, req)

			Expect(rec.Code).To(Equal(200))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap stats.Snapshot
			Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.Listeners[0].Servers[0].State).To(Equal("up"))
		})
	})
})

var _ = Describe("Collector", func() {
	It("should never block the emitter when the buffer is full", func() {
		log := slog.New(slog.NewTextHandler(os.Stdout, nil))
		// Not started: nothing drains the channel.
		collector := stats.NewCollector(1, log)

		done := make(chan struct{})
		go func() {
			for i := 0; i < 100; i++ {
				collector.Emit(stats.Event{Type: stats.EventConnRefused, Listener: "mysql"})
			}
			close(done)
		}()

		Eventually(done).Should(BeClosed())
	})
})
