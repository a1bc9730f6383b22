//go:build integration

package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) WaitFor(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-s:
	case <-time.After(d):
		t.Fatalf("signal not triggered within %s", d)
	}
}

// Round mirrors one line of the /watch stream
type Round struct {
	Round     uint64             `json:"round"`
	Converged bool               `json:"converged"`
	Reset     bool               `json:"reset"`
	Changes   []core.TableChange `json:"changes"`
}

type Node struct {
	Id      state.NodeId            `json:"id"`
	Anomaly bool                    `json:"anomaly"`
	Table   map[state.NodeId]string `json:"table"`
}

// SimHarness runs a full simulation with its inspect api on a local port
type SimHarness struct {
	Topology state.TopologyCfg
	Cfg      state.RunCfg
	Base     string

	cancel context.CancelFunc
	result chan error
	final  state.Snapshot
}

func freeAddr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer ln.Close()
	return ln.Addr().String(), nil
}

func (h *SimHarness) Start(t *testing.T) {
	t.Helper()
	addr, err := freeAddr()
	if err != nil {
		t.Fatal(err)
	}
	h.Cfg.HttpBind = addr
	h.Base = "http://" + addr
	if h.Cfg.StepDelay == 0 {
		h.Cfg.StepDelay = 5 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.result = make(chan error, 1)
	go func() {
		snap, err := core.Start(ctx, h.Topology, h.Cfg, slog.LevelWarn)
		h.final = snap
		h.result <- err
	}()

	// wait for the api to come up
	deadline := time.Now().Add(5 * time.Second)
	for {
		res, err := http.Get(h.Base + "/snapshot")
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("inspect api did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop ends the simulation and returns its final snapshot
func (h *SimHarness) Stop(t *testing.T) state.Snapshot {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.result:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("simulation did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
	return h.final
}

// Watch calls fn for every committed round until fn returns false or ctx is done
func (h *SimHarness) Watch(ctx context.Context, fn func(Round) bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.Base+"/watch", nil)
	if err != nil {
		return err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	sc := bufio.NewScanner(res.Body)
	for sc.Scan() {
		var r Round
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return err
		}
		if !fn(r) {
			return nil
		}
	}
	return sc.Err()
}

// WaitConverged blocks until a round changes nothing
func (h *SimHarness) WaitConverged(t *testing.T) Round {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var last Round
	err := h.Watch(ctx, func(r Round) bool {
		last = r
		return !r.Converged
	})
	if err != nil {
		t.Fatal(err)
	}
	if !last.Converged {
		t.Fatal("network did not converge")
	}
	return last
}

func (h *SimHarness) do(t *testing.T, method, path string, out any) {
	t.Helper()
	req, err := http.NewRequest(method, h.Base+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		t.Fatalf("%s %s: %s", method, path, res.Status)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
}

func (h *SimHarness) Node(t *testing.T, id state.NodeId) Node {
	t.Helper()
	var n Node
	h.do(t, http.MethodGet, fmt.Sprintf("/nodes/%s", id), &n)
	return n
}

func (h *SimHarness) Anomaly(t *testing.T, id state.NodeId) core.AnomalyReport {
	t.Helper()
	var report core.AnomalyReport
	h.do(t, http.MethodPost, "/anomaly?node="+string(id), &report)
	return report
}

func (h *SimHarness) Reset(t *testing.T) {
	t.Helper()
	h.do(t, http.MethodPost, "/reset", nil)
}
