package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the game collectors. A nil *Metrics records nothing.
type Metrics struct {
	RoomsCreated    prometheus.Counter
	ActiveRooms     prometheus.Gauge
	PhaseEntries    *prometheus.CounterVec
	GamesFinished   *prometheus.CounterVec
	ActionsRejected *prometheus.CounterVec
	RoomsEvicted    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RoomsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mafia",
			Name:      "rooms_created_total",
			Help:      "Rooms created since start.",
		}),
		ActiveRooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "mafia",
			Name:      "rooms_active",
			Help:      "Rooms currently held in the registry.",
		}),
		PhaseEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mafia",
			Name:      "phase_entries_total",
			Help:      "Phase transitions by phase entered.",
		}, []string{"phase"}),
		GamesFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mafia",
			Name:      "games_finished_total",
			Help:      "Finished games by winning faction.",
		}, []string{"winner"}),
		ActionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mafia",
			Name:      "actions_rejected_total",
			Help:      "Rejected player actions by action and reason.",
		}, []string{"action", "reason"}),
		RoomsEvicted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mafia",
			Name:      "rooms_evicted_total",
			Help:      "Rooms removed from the registry by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) RoomCreated() {
	if m == nil {
		return
	}
	m.RoomsCreated.Inc()
	m.ActiveRooms.Inc()
}

func (m *Metrics) RoomEvicted(reason string) {
	if m == nil {
		return
	}
	m.ActiveRooms.Dec()
	m.RoomsEvicted.WithLabelValues(reason).Inc()
}

func (m *Metrics) PhaseEntered(phase string) {
	if m == nil {
		return
	}
	m.PhaseEntries.WithLabelValues(phase).Inc()
}

func (m *Metrics) GameFinished(winner string) {
	if m == nil {
		return
	}
	m.GamesFinished.WithLabelValues(winner).Inc()
}

func (m *Metrics) ActionRejected(action, reason string) {
	if m == nil {
		return
	}
	m.ActionsRejected.WithLabelValues(action, reason).Inc()
}
