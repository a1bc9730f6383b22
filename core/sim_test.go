package core

import (
	"sync"
	"testing"
	"time"

	"github.com/encodeous/dvsim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func newCanonicalSim(t *testing.T, h Router) *Simulator {
	t.Helper()
	sim, err := NewSimulator(state.CanonicalTopology(), NewInjector(&seqSource{}, 0), h)
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func TestNewSimulator_Invalid(t *testing.T) {
	cfg := state.CanonicalTopology()
	cfg.Links[0].Cost = 0
	_, err := NewSimulator(cfg, nil, nil)
	assert.ErrorIs(t, err, state.ErrInvalidTopology)
}

func TestSimulator_Converge(t *testing.T) {
	h := &RouterHarness{}
	sim := newCanonicalSim(t, h)
	h.GetActions()

	n, ok, err := sim.Converge(16)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Empty(t, CheckConvergence(sim.Network))

	n, ok, err = sim.Converge(1)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	assert.Len(t, h.GetActions().Filter("RoundCommitted"), 4)
}

func TestSimulator_ConvergeLimit(t *testing.T) {
	sim := newCanonicalSim(t, nil)
	n, ok, err := sim.Converge(1)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, n)
}

func TestSimulator_Reset(t *testing.T) {
	h := &RouterHarness{}
	sim := newCanonicalSim(t, h)
	fresh := sim.Snapshot()

	_, _, err := sim.Converge(16)
	assert.NoError(t, err)
	_, err = sim.InjectAnomaly()
	assert.NoError(t, err)
	_, err = sim.InjectAnomalyAt("Pump")
	assert.NoError(t, err)
	_, _, err = sim.Converge(16)
	assert.NoError(t, err)

	h.GetActions()
	assert.NoError(t, sim.Reset())
	if diff := cmp.Diff(fresh, sim.Snapshot()); diff != "" {
		t.Errorf("Reset() mismatch (-want +got):\n%s", diff)
	}
	h.GetActions().AssertContains(t, "NetworkBuilt", "nodes", 5, "links", 7)

	// resetting twice is the same as resetting once
	assert.NoError(t, sim.Reset())
	if diff := cmp.Diff(fresh, sim.Snapshot()); diff != "" {
		t.Errorf("Reset() mismatch (-want +got):\n%s", diff)
	}

	// a reset network evolves exactly like a newly built one
	other := newCanonicalSim(t, nil)
	for i := 1; i <= 5; i++ {
		_, err = sim.Step()
		assert.NoError(t, err)
		_, err = other.Step()
		assert.NoError(t, err)
		if diff := cmp.Diff(other.Snapshot(), sim.Snapshot()); diff != "" {
			t.Errorf("round %d mismatch after Reset() (-fresh +reset):\n%s", i, diff)
		}
	}
}

func TestSimulator_ResetInvalidKeepsNetwork(t *testing.T) {
	sim := newCanonicalSim(t, nil)
	_, err := sim.InjectAnomalyAt("Pump")
	assert.NoError(t, err)
	_, err = sim.Step()
	assert.NoError(t, err)
	before := sim.Snapshot()

	sim.Topology.Links[0].Cost = 0
	assert.ErrorIs(t, sim.Reset(), state.ErrInvalidTopology)

	if diff := cmp.Diff(before, sim.Snapshot()); diff != "" {
		t.Errorf("failed Reset() changed the network (-want +got):\n%s", diff)
	}
	assert.True(t, sim.Network.GetNode("Pump").Anomaly)
	assert.Equal(t, uint64(8), sim.Network.GetLink("Pump", "Gateway").Cost)
	assert.Equal(t, uint64(1), sim.Snapshot().Round)
}

func TestSimulator_Anomaly(t *testing.T) {
	h := &RouterHarness{}
	sim := newCanonicalSim(t, h)

	report, err := sim.InjectAnomaly()
	assert.NoError(t, err)
	assert.Equal(t, state.NodeId("Soil1"), report.Node)
	h.GetActions().AssertContains(t, "AnomalyInjected", "node", state.NodeId("Soil1"), "repeat", false)

	_, err = sim.InjectAnomalyAt("Tractor")
	assert.ErrorIs(t, err, state.ErrUnknownNode)
	h.GetActions().AssertNotContains(t, "AnomalyInjected")

	assert.Len(t, sim.Nodes(), 5)
	assert.Len(t, sim.Links(), 7)
}

func TestSimulator_ResetClearsCooldown(t *testing.T) {
	sim, err := NewSimulator(state.CanonicalTopology(), NewInjector(&seqSource{}, time.Hour), nil)
	assert.NoError(t, err)
	report, err := sim.InjectAnomaly()
	assert.NoError(t, err)
	assert.Equal(t, state.NodeId("Soil1"), report.Node)

	assert.NoError(t, sim.Reset())
	report, err = sim.InjectAnomaly()
	assert.NoError(t, err)
	assert.Equal(t, state.NodeId("Soil1"), report.Node)
	assert.False(t, report.Repeat)
}

func TestSyncSimulator(t *testing.T) {
	ctrl := NewSyncSimulator(newCanonicalSim(t, nil))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				_, err := ctrl.InjectAnomaly("Pump")
				assert.NoError(t, err)
			} else {
				_, err := ctrl.Step()
				assert.NoError(t, err)
			}
			_, err := ctrl.Snapshot()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := ctrl.Snapshot()
	assert.NoError(t, err)
	assert.Equal(t, uint64(6), snap.Round)
	v, _ := snap.Node("Pump")
	assert.True(t, v.Anomaly)
	// two anomalies compounded
	assert.Equal(t, uint64(32), snap.Links[2].Cost)

	_, err = ctrl.InjectAnomaly("")
	assert.NoError(t, err)
	assert.NoError(t, ctrl.Reset())
	snap, err = ctrl.Snapshot()
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), snap.Round)
}

func TestRender(t *testing.T) {
	sim := newCanonicalSim(t, nil)
	assert.Equal(t, "Round 0:\n - Soil1: Gateway->∞ Pump->∞ Soil1->0 Soil2->∞ Temp->∞\n",
		RenderTables(state.Snapshot{Round: 0, Nodes: sim.Nodes()[:1]}))

	_, _, err := sim.Converge(16)
	assert.NoError(t, err)
	v, _ := sim.Snapshot().Node("Soil1")
	assert.Equal(t, `Soil1 (sensor)
   Gateway: 1
   Pump: 2
   Soil1: 0
   Soil2: 1
   Temp: 2
`, RenderNode(v))

	report, err := sim.InjectAnomalyAt("Pump")
	assert.NoError(t, err)
	assert.Equal(t, `Anomaly injected at Pump
 - (Pump, Gateway) cost: 2 -> 8
 - (Soil2, Pump) cost: 1 -> 4
 - (Pump, Temp) cost: 1 -> 4
`, RenderAnomaly(report))

	v, _ = sim.Snapshot().Node("Pump")
	assert.Contains(t, RenderNode(v), "Pump (relay) [anomaly]\n")
	assert.Contains(t, RenderTables(sim.Snapshot()), " - Pump!: ")
	assert.Contains(t, RenderLinks(sim.Snapshot()), " - (Gateway, Pump) cost: 8 base: 2\n")

	assert.Equal(t, "Links:\n (none)\n", RenderLinks(state.Snapshot{}))
}

func TestShortestPaths(t *testing.T) {
	net := MakeNetwork(t, state.CanonicalTopology())
	assert.Equal(t, map[state.NodeId]uint64{
		"Soil1":   0,
		"Soil2":   1,
		"Pump":    2,
		"Temp":    2,
		"Gateway": 1,
	}, ShortestPaths(net, "Soil1"))

	unknown := ShortestPaths(net, "Tractor")
	assert.Equal(t, state.INF, unknown["Soil1"])

	// before any round every remote entry disagrees with the shortest paths
	mismatches := CheckConvergence(net)
	assert.Len(t, mismatches, 20)
	assert.Equal(t, "Soil1 -> Soil2: table ∞, shortest path 1", mismatches[0].String())
}
