package core

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/encodeous/dvsim/state"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func newTestServer(t *testing.T, topo state.TopologyCfg) *httptest.Server {
	t.Helper()
	sim, err := NewSimulator(topo, NewInjector(&seqSource{}, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewHttpHandler(NewSyncSimulator(sim), nil, slog.New(slog.DiscardHandler)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, code int, out any) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	assert.Equal(t, code, res.StatusCode, "%s %s", method, url)
	if out != nil {
		assert.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
}

func TestHttpSnapshot(t *testing.T) {
	srv := newTestServer(t, state.CanonicalTopology())

	var snap state.Snapshot
	doJSON(t, http.MethodGet, srv.URL+"/snapshot", http.StatusOK, &snap)
	assert.Equal(t, uint64(0), snap.Round)
	assert.Len(t, snap.Nodes, 5)
	assert.Len(t, snap.Links, 7)

	var node httpNode
	doJSON(t, http.MethodGet, srv.URL+"/nodes/Soil1", http.StatusOK, &node)
	assert.Equal(t, state.KindSensor, node.Kind)
	assert.Equal(t, "∞", node.Table["Gateway"])
	assert.Equal(t, "0", node.Table["Soil1"])

	var nodes []httpNode
	doJSON(t, http.MethodGet, srv.URL+"/nodes", http.StatusOK, &nodes)
	assert.Len(t, nodes, 5)

	var e map[string]string
	doJSON(t, http.MethodGet, srv.URL+"/nodes/Tractor", http.StatusNotFound, &e)
	assert.Contains(t, e["error"], "Tractor")
}

func TestHttpStepAndAnomaly(t *testing.T) {
	srv := newTestServer(t, state.CanonicalTopology())

	var round httpRound
	for i := 1; i <= 3; i++ {
		doJSON(t, http.MethodPost, srv.URL+"/step", http.StatusOK, &round)
		assert.Equal(t, uint64(i), round.Round)
	}
	assert.True(t, round.Converged)
	assert.Empty(t, round.Changes)

	var node httpNode
	doJSON(t, http.MethodGet, srv.URL+"/nodes/Soil1", http.StatusOK, &node)
	assert.Equal(t, map[state.NodeId]string{
		"Soil1":   "0",
		"Soil2":   "1",
		"Pump":    "2",
		"Temp":    "2",
		"Gateway": "1",
	}, node.Table)

	var report AnomalyReport
	doJSON(t, http.MethodPost, srv.URL+"/anomaly?node=Pump", http.StatusOK, &report)
	assert.Equal(t, state.NodeId("Pump"), report.Node)
	assert.Len(t, report.Links, 3)

	doJSON(t, http.MethodPost, srv.URL+"/anomaly?node=Tractor", http.StatusNotFound, nil)

	// without a node the injector picks one
	doJSON(t, http.MethodPost, srv.URL+"/anomaly", http.StatusOK, &report)
	assert.Equal(t, state.NodeId("Soil1"), report.Node)

	var links []state.LinkView
	doJSON(t, http.MethodGet, srv.URL+"/links", http.StatusOK, &links)
	assert.Equal(t, state.LinkView{A: "Pump", B: "Gateway", Cost: 8, BaseCost: 2}, links[2])

	doJSON(t, http.MethodPost, srv.URL+"/step", http.StatusOK, &round)
	assert.False(t, round.Converged)
	assert.NotEmpty(t, round.Changes)

	doJSON(t, http.MethodPost, srv.URL+"/reset", http.StatusNoContent, nil)
	var snap state.Snapshot
	doJSON(t, http.MethodGet, srv.URL+"/snapshot", http.StatusOK, &snap)
	assert.Equal(t, uint64(0), snap.Round)
	for _, l := range snap.Links {
		assert.Equal(t, l.BaseCost, l.Cost)
	}
}

func TestHttpEmptyNetwork(t *testing.T) {
	srv := newTestServer(t, state.TopologyCfg{})
	var e map[string]string
	doJSON(t, http.MethodPost, srv.URL+"/step", http.StatusConflict, &e)
	assert.Equal(t, state.ErrEmptyNetwork.Error(), e["error"])
	doJSON(t, http.MethodPost, srv.URL+"/anomaly", http.StatusConflict, nil)
}

func TestHttpMethods(t *testing.T) {
	srv := newTestServer(t, state.CanonicalTopology())
	doJSON(t, http.MethodGet, srv.URL+"/step", http.StatusMethodNotAllowed, nil)
	doJSON(t, http.MethodGet, srv.URL+"/missing", http.StatusNotFound, nil)
	// no watcher
	doJSON(t, http.MethodGet, srv.URL+"/watch", http.StatusNotFound, nil)
}

func TestHttpWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	trace := &SimTrace{}
	assert.NoError(t, trace.Init(nil))
	sim := newCanonicalSim(t, nil)
	srv := httptest.NewServer(NewHttpHandler(NewSyncSimulator(sim), trace, slog.New(slog.DiscardHandler)))

	res, err := http.Get(srv.URL + "/watch")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	round, err := sim.Step()
	assert.NoError(t, err)
	trace.Submit(round)

	line, err := bufio.NewReader(res.Body).ReadString('\n')
	assert.NoError(t, err)
	var got httpRound
	assert.NoError(t, json.Unmarshal([]byte(line), &got))
	assert.Equal(t, uint64(1), got.Round)
	assert.Len(t, got.Changes, 14)

	assert.NoError(t, res.Body.Close())
	srv.Close()
	assert.NoError(t, trace.Cleanup(nil))
}
