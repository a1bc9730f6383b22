package state

import (
	"maps"
	"slices"
)

type NodeView struct {
	Id      NodeId            `json:"id"`
	Kind    NodeKind          `json:"kind"`
	Anomaly bool              `json:"anomaly"`
	Table   map[NodeId]uint64 `json:"table"`
}

type LinkView struct {
	A        NodeId `json:"a"`
	B        NodeId `json:"b"`
	Cost     uint64 `json:"cost"`
	BaseCost uint64 `json:"base_cost"`
}

// Snapshot is a deep copy of a network, safe to hand to other goroutines
type Snapshot struct {
	Round uint64     `json:"round"`
	Nodes []NodeView `json:"nodes"`
	Links []LinkView `json:"links"`
}

func (n *Node) View() NodeView {
	return NodeView{
		Id:      n.Id,
		Kind:    n.Kind,
		Anomaly: n.Anomaly,
		Table:   maps.Clone(n.Table),
	}
}

func (l *Link) View() LinkView {
	return LinkView{
		A:        l.A,
		B:        l.B,
		Cost:     l.Cost,
		BaseCost: l.BaseCost,
	}
}

func (n *Network) Snapshot() Snapshot {
	snap := Snapshot{
		Round: n.Round,
		Nodes: make([]NodeView, 0, len(n.Nodes)),
		Links: make([]LinkView, 0, len(n.Links)),
	}
	for _, node := range n.Nodes {
		snap.Nodes = append(snap.Nodes, node.View())
	}
	for _, link := range n.Links {
		snap.Links = append(snap.Links, link.View())
	}
	return snap
}

func (s Snapshot) Node(id NodeId) (NodeView, bool) {
	idx := slices.IndexFunc(s.Nodes, func(v NodeView) bool {
		return v.Id == id
	})
	if idx == -1 {
		return NodeView{}, false
	}
	return s.Nodes[idx], true
}

// Tables returns the routing table of every node, keyed by node id
func (s Snapshot) Tables() map[NodeId]map[NodeId]uint64 {
	tables := make(map[NodeId]map[NodeId]uint64, len(s.Nodes))
	for _, v := range s.Nodes {
		tables[v.Id] = maps.Clone(v.Table)
	}
	return tables
}
