package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/dvsim/state"
	"github.com/google/go-cmp/cmp"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records every event raised by the simulation
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	h.actions = append(h.actions, MakeEvent(event.String(), args...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns the events recorded since the last call
func (h *RouterHarness) GetActions() HarnessEvents {
	x := h.actions
	h.actions = make([]HarnessEvent, 0)
	return x
}

func (e HarnessEvents) Filter(msg string) HarnessEvents {
	x := make(HarnessEvents, 0)
	for _, event := range e {
		if event.Message == msg {
			x = append(x, event)
		}
	}
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

func MakeNetwork(t *testing.T, cfg state.TopologyCfg) *state.Network {
	t.Helper()
	net, err := state.BuildNetwork(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return net
}

// StepN runs n rounds, failing the test on error
func StepN(t *testing.T, net *state.Network, r Router, n int) RoundResult {
	t.Helper()
	var res RoundResult
	for range n {
		var err error
		res, err = Step(net, r)
		if err != nil {
			t.Fatal(err)
		}
	}
	return res
}

// ConvergeNet steps until a round changes nothing
func ConvergeNet(t *testing.T, net *state.Network, r Router) int {
	t.Helper()
	for i := 1; i <= 64; i++ {
		res, err := Step(net, r)
		if err != nil {
			t.Fatal(err)
		}
		if res.Converged {
			return i
		}
	}
	t.Fatal("network did not converge within 64 rounds")
	return 0
}

// ShortestTables computes the expected converged table of every node
func ShortestTables(net *state.Network) map[state.NodeId]map[state.NodeId]uint64 {
	tables := make(map[state.NodeId]map[state.NodeId]uint64)
	for _, n := range net.Nodes {
		tables[n.Id] = ShortestPaths(net, n.Id)
	}
	return tables
}

// seqSource returns picks in order and records every n it was asked for
type seqSource struct {
	picks []int
	seen  []int
}

func (s *seqSource) IntN(n int) int {
	s.seen = append(s.seen, n)
	if len(s.picks) == 0 {
		return 0
	}
	p := s.picks[0]
	s.picks = s.picks[1:]
	return p
}
