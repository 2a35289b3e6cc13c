package stats

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/angeloszaimis/tcp-loadbalancer/internal/serverpool"
)

type Snapshot struct {
	Uptime    time.Duration   `json:"uptime"`
	Listeners []ListenerStats `json:"listeners"`
}

type ListenerStats struct {
	Name    string        `json:"name"`
	Refused uint64        `json:"refused_connections"`
	Servers []ServerStats `json:"servers"`
}

type ServerStats struct {
	Name                 string `json:"name"`
	Address              string `json:"address"`
	Role                 string `json:"role"`
	State                string `json:"state"`
	ConsecutiveSuccesses int    `json:"consecutive_successes"`
	ConsecutiveFailures  int    `json:"consecutive_failures"`
	ActiveConnections    int    `json:"active_connections"`
	TotalConnections     uint64 `json:"total_connections"`
	HealthTransitions    uint64 `json:"health_transitions"`
	BytesIn              uint64 `json:"bytes_in"`
	BytesOut             uint64 `json:"bytes_out"`
}

// Reporter exposes a read-only view over the registered pools merged with
// collector totals. It never mutates core state.
type Reporter struct {
	collector *Collector
	pools     []*serverpool.Pool
}

func NewReporter(collector *Collector, pools []*serverpool.Pool) *Reporter {
	return &Reporter{
		collector: collector,
		pools:     pools,
	}
}

// Snapshot reads live pool state and aggregated totals. Health states are
// read per server and may trail in-flight probe writes.
func (r *Reporter) Snapshot() Snapshot {
	snap := Snapshot{
		Uptime:    r.collector.Uptime(),
		Listeners: make([]ListenerStats, 0, len(r.pools)),
	}

	for _, pool := range r.pools {
		ls := ListenerStats{
			Name:    pool.Name(),
			Refused: r.collector.refusedFor(pool.Name()),
			Servers: make([]ServerStats, 0, len(pool.Servers())),
		}

		for _, s := range pool.Servers() {
			successes, failures := s.ProbeCounters()
			_, bytesIn, bytesOut, transitions := r.collector.serverTotals(pool.Name(), s.Name())

			ls.Servers = append(ls.Servers, ServerStats{
				Name:                 s.Name(),
				Address:              s.Address(),
				Role:                 s.Role().String(),
				State:                s.State().String(),
				ConsecutiveSuccesses: successes,
				ConsecutiveFailures:  failures,
				ActiveConnections:    s.ActiveConnections(),
				TotalConnections:     s.TotalConnections(),
				HealthTransitions:    transitions,
				BytesIn:              bytesIn,
				BytesOut:             bytesOut,
			})
		}

		snap.Listeners = append(snap.Listeners, ls)
	}

	return snap
}

// Handler serves the snapshot as JSON.
func (r *Reporter) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		snap := r.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
