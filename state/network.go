package state

import (
	"fmt"
	"slices"
)

type NodeId string

type NodeKind string

const (
	KindSensor  NodeKind = "sensor"
	KindRelay   NodeKind = "relay"
	KindGateway NodeKind = "gateway"
)

var ValidKinds = []NodeKind{KindSensor, KindRelay, KindGateway}

type Node struct {
	Id   NodeId
	Kind NodeKind
	// Anomaly is set by fault injection and only cleared by a rebuild
	Anomaly bool
	// Table holds our best known cost to every node in the network, including ourselves
	Table map[NodeId]uint64
}

// Link is an undirected edge between A and B
type Link struct {
	A        NodeId
	B        NodeId
	Cost     uint64
	BaseCost uint64
}

func (l *Link) Touches(id NodeId) bool {
	return l.A == id || l.B == id
}

// Other returns the endpoint opposite to id
func (l *Link) Other(id NodeId) (NodeId, bool) {
	switch id {
	case l.A:
		return l.B, true
	case l.B:
		return l.A, true
	}
	return "", false
}

func (l *Link) Endpoints() Pair[NodeId, NodeId] {
	return MakeSortedPair(l.A, l.B)
}

func (l *Link) String() string {
	return fmt.Sprintf("(%s, %s) cost: %s", l.A, l.B, FormatMetric(l.Cost))
}

// Network owns every node and link of a simulation.
// It must only be accessed from a single goroutine.
type Network struct {
	Nodes []*Node
	Links []*Link
	// Round is the number of rounds committed since the network was built
	Round uint64
	index map[NodeId]int
}

func NewNetwork() *Network {
	return &Network{
		Nodes: make([]*Node, 0),
		Links: make([]*Link, 0),
		index: make(map[NodeId]int),
	}
}

func (n *Network) addNode(id NodeId, kind NodeKind) *Node {
	node := &Node{
		Id:    id,
		Kind:  kind,
		Table: make(map[NodeId]uint64),
	}
	n.index[id] = len(n.Nodes)
	n.Nodes = append(n.Nodes, node)
	return node
}

func (n *Network) addLink(a, b NodeId, cost uint64) *Link {
	link := &Link{
		A:        a,
		B:        b,
		Cost:     cost,
		BaseCost: cost,
	}
	n.Links = append(n.Links, link)
	return link
}

func (n *Network) GetNode(id NodeId) *Node {
	idx, ok := n.index[id]
	if !ok {
		return nil
	}
	return n.Nodes[idx]
}

func (n *Network) NodeIds() []NodeId {
	ids := make([]NodeId, 0, len(n.Nodes))
	for _, node := range n.Nodes {
		ids = append(ids, node.Id)
	}
	return ids
}

// LinksOf returns every link with id as one of its endpoints
func (n *Network) LinksOf(id NodeId) []*Link {
	links := make([]*Link, 0)
	for _, l := range n.Links {
		if l.Touches(id) {
			links = append(links, l)
		}
	}
	return links
}

// Neighbours returns the distinct nodes directly linked to id
func (n *Network) Neighbours(id NodeId) []NodeId {
	neighs := make([]NodeId, 0)
	for _, l := range n.LinksOf(id) {
		other, _ := l.Other(id)
		if !slices.Contains(neighs, other) {
			neighs = append(neighs, other)
		}
	}
	return neighs
}

// GetLink returns the first link between a and b, in either direction
func (n *Network) GetLink(a, b NodeId) *Link {
	idx := slices.IndexFunc(n.Links, func(l *Link) bool {
		return l.A == a && l.B == b || l.A == b && l.B == a
	})
	if idx == -1 {
		return nil
	}
	return n.Links[idx]
}

// MaxLinkCost is the ceiling for link costs in this network, see state.MaxLinkCost
func (n *Network) MaxLinkCost() uint64 {
	return MaxLinkCost(len(n.Nodes))
}

// ResetTables sets every table to 0 for the node itself and INF for every other destination
func (n *Network) ResetTables() {
	for _, node := range n.Nodes {
		node.Table = make(map[NodeId]uint64, len(n.Nodes))
		for _, dst := range n.Nodes {
			if dst.Id == node.Id {
				node.Table[dst.Id] = 0
			} else {
				node.Table[dst.Id] = INF
			}
		}
	}
}

func FormatMetric(m uint64) string {
	if m >= INF {
		return "∞"
	}
	return fmt.Sprint(m)
}
