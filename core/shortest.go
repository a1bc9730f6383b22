package core

import (
	"fmt"

	"github.com/encodeous/dvsim/state"
)

// ShortestPaths computes the exact cost from src to every node over the current link costs.
// It is independent of the routing tables and is used to check convergence.
func ShortestPaths(net *state.Network, src state.NodeId) map[state.NodeId]uint64 {
	dist := make(map[state.NodeId]uint64, len(net.Nodes))
	done := make(map[state.NodeId]bool, len(net.Nodes))
	for _, n := range net.Nodes {
		dist[n.Id] = state.INF
	}
	if net.GetNode(src) == nil {
		return dist
	}
	dist[src] = 0

	for range net.Nodes {
		// pick the closest unvisited node
		var cur state.NodeId
		best := state.INF
		for _, n := range net.Nodes {
			if !done[n.Id] && dist[n.Id] < best {
				cur = n.Id
				best = dist[n.Id]
			}
		}
		if best == state.INF {
			break // everything left is unreachable
		}
		done[cur] = true
		for _, link := range net.LinksOf(cur) {
			other, _ := link.Other(cur)
			dist[other] = min(dist[other], AddMetric(best, link.Cost))
		}
	}
	return dist
}

type Mismatch struct {
	Node     state.NodeId
	Dest     state.NodeId
	Table    uint64
	Expected uint64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s -> %s: table %s, shortest path %s", m.Node, m.Dest, state.FormatMetric(m.Table), state.FormatMetric(m.Expected))
}

// CheckConvergence compares every routing table entry against ShortestPaths
func CheckConvergence(net *state.Network) []Mismatch {
	mismatches := make([]Mismatch, 0)
	for _, node := range net.Nodes {
		expected := ShortestPaths(net, node.Id)
		for _, dst := range net.Nodes {
			if node.Table[dst.Id] != expected[dst.Id] {
				mismatches = append(mismatches, Mismatch{
					Node:     node.Id,
					Dest:     dst.Id,
					Table:    node.Table[dst.Id],
					Expected: expected[dst.Id],
				})
			}
		}
	}
	return mismatches
}
