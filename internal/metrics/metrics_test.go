package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RoomCreated()
	m.RoomCreated()
	m.RoomEvicted("ended")
	m.PhaseEntered("doctor")
	m.GameFinished("town")
	m.ActionRejected("day_vote", "wrong_phase")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RoomsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveRooms))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoomsEvicted.WithLabelValues("ended")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PhaseEntries.WithLabelValues("doctor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GamesFinished.WithLabelValues("town")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsRejected.WithLabelValues("day_vote", "wrong_phase")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RoomCreated()
	m.RoomEvicted("closed")
	m.PhaseEntered("lobby")
	m.GameFinished("mafia")
	m.ActionRejected("protect", "not_found")
}
