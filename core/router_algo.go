package core

import (
	"github.com/encodeous/dvsim/state"
)

type RouterEvent int

// trace events

const (
	RouteImproved RouterEvent = iota
	RouteWorsened
	RouteLearned
	RouteLost
	RoundCommitted
	AnomalyInjected
	NetworkBuilt
)

// warn events

const (
	EmptyNetwork RouterEvent = iota + 1000
	MissingTableEntry
)

func (e RouterEvent) String() string {
	switch e {
	case RouteImproved:
		return "RouteImproved"
	case RouteWorsened:
		return "RouteWorsened"
	case RouteLearned:
		return "RouteLearned"
	case RouteLost:
		return "RouteLost"
	case RoundCommitted:
		return "RoundCommitted"
	case AnomalyInjected:
		return "AnomalyInjected"
	case NetworkBuilt:
		return "NetworkBuilt"
	case EmptyNetwork:
		return "EmptyNetwork"
	case MissingTableEntry:
		return "MissingTableEntry"
	}
	return "RouterEvent(?)"
}

// Router receives the events produced while the network evolves
type Router interface {
	Log(event RouterEvent, desc string, args ...any)
}

type nopRouter struct{}

func (nopRouter) Log(RouterEvent, string, ...any) {}

// TableChange records one routing table entry that moved during a round
type TableChange struct {
	Node state.NodeId `json:"node"`
	Dest state.NodeId `json:"dst"`
	Old  uint64       `json:"old"`
	New  uint64       `json:"new"`
}

func (c TableChange) Event() RouterEvent {
	switch {
	case c.Old >= state.INF:
		return RouteLearned
	case c.New >= state.INF:
		return RouteLost
	case c.New < c.Old:
		return RouteImproved
	}
	return RouteWorsened
}

type RoundResult struct {
	Round   uint64
	Changes []TableChange
	// Converged is true when the round left every table unchanged
	Converged bool
	// Reset marks the initial state published after the network was rebuilt, no round ran
	Reset    bool
	Snapshot state.Snapshot
}

// Step runs one synchronous distance-vector round over net.
//
// Every node computes its new table from the tables committed by the previous round;
// the new tables replace the old ones only once every node has been computed.
func Step(net *state.Network, r Router) (RoundResult, error) {
	if r == nil {
		r = nopRouter{}
	}
	if len(net.Nodes) == 0 {
		r.Log(EmptyNetwork, "attempted to step an empty network")
		return RoundResult{}, state.ErrEmptyNetwork
	}

	newTables := make(map[state.NodeId]map[state.NodeId]uint64, len(net.Nodes))
	for _, node := range net.Nodes {
		newTables[node.Id] = ComputeTable(net, node, r)
	}

	// commit the round
	changes := make([]TableChange, 0)
	for _, node := range net.Nodes {
		newTable := newTables[node.Id]
		for _, dst := range net.Nodes {
			oldCost, ok := node.Table[dst.Id]
			if !ok {
				oldCost = state.INF
			}
			newCost := newTable[dst.Id]
			if oldCost != newCost {
				change := TableChange{
					Node: node.Id,
					Dest: dst.Id,
					Old:  oldCost,
					New:  newCost,
				}
				changes = append(changes, change)
				r.Log(change.Event(), "table entry changed", "node", node.Id, "dst", dst.Id,
					"old", state.FormatMetric(oldCost), "new", state.FormatMetric(newCost))
			}
		}
		node.Table = newTable
	}
	net.Round++
	r.Log(RoundCommitted, "round committed", "round", net.Round, "changes", len(changes))

	return RoundResult{
		Round:     net.Round,
		Changes:   changes,
		Converged: len(changes) == 0,
		Snapshot:  net.Snapshot(),
	}, nil
}

// ComputeTable computes the table node would hold after relaxing every incident link
// against the tables currently committed in net. It does not modify net.
func ComputeTable(net *state.Network, node *state.Node, r Router) map[state.NodeId]uint64 {
	links := net.LinksOf(node.Id)
	table := make(map[state.NodeId]uint64, len(net.Nodes))

	for _, dst := range net.Nodes {
		if dst.Id == node.Id {
			table[dst.Id] = 0
			continue
		}
		best := state.INF
		for _, link := range links {
			neighId, _ := link.Other(node.Id)
			neigh := net.GetNode(neighId)
			advertised, ok := neigh.Table[dst.Id]
			if !ok {
				r.Log(MissingTableEntry, "neighbour has no entry for destination", "neigh", neighId, "dst", dst.Id)
				advertised = state.INF
			}
			best = min(best, AddMetric(link.Cost, advertised))
		}
		table[dst.Id] = best
	}
	return table
}
