package core

import (
	"fmt"
	"time"

	"github.com/encodeous/dvsim/state"
	"github.com/jellydator/ttlcache/v3"
)

// IndexSource picks an index in [0, n). *math/rand/v2.Rand satisfies it.
type IndexSource interface {
	IntN(n int) int
}

type LinkCostChange struct {
	A   state.NodeId `json:"a"`
	B   state.NodeId `json:"b"`
	Old uint64       `json:"old"`
	New uint64       `json:"new"`
}

type AnomalyReport struct {
	Node state.NodeId `json:"node"`
	// Repeat is true when the node was already anomalous, in which case the costs compound
	Repeat bool             `json:"repeat"`
	Links  []LinkCostChange `json:"links"`
}

// InjectAnomaly picks a node uniformly from the whole network and applies an anomaly to it
func InjectAnomaly(net *state.Network, src IndexSource) (AnomalyReport, error) {
	if len(net.Nodes) == 0 {
		return AnomalyReport{}, state.ErrEmptyNetwork
	}
	target := net.Nodes[src.IntN(len(net.Nodes))]
	return applyAnomaly(net, target), nil
}

// ApplyAnomaly flags node id as anomalous and multiplies the cost of every incident link by state.AnomalyFactor
func ApplyAnomaly(net *state.Network, id state.NodeId) (AnomalyReport, error) {
	if len(net.Nodes) == 0 {
		return AnomalyReport{}, state.ErrEmptyNetwork
	}
	target := net.GetNode(id)
	if target == nil {
		return AnomalyReport{}, fmt.Errorf("%w: %s", state.ErrUnknownNode, id)
	}
	return applyAnomaly(net, target), nil
}

func applyAnomaly(net *state.Network, target *state.Node) AnomalyReport {
	report := AnomalyReport{
		Node:   target.Id,
		Repeat: target.Anomaly,
		Links:  make([]LinkCostChange, 0),
	}
	target.Anomaly = true
	ceiling := net.MaxLinkCost()
	for _, link := range net.LinksOf(target.Id) {
		old := link.Cost
		link.Cost = MulMetric(link.Cost, state.AnomalyFactor, ceiling)
		report.Links = append(report.Links, LinkCostChange{
			A:   link.A,
			B:   link.B,
			Old: old,
			New: link.Cost,
		})
	}
	return report
}

// Injector selects anomaly targets, optionally avoiding nodes that were hit recently
type Injector struct {
	Source   IndexSource
	cooldown *ttlcache.Cache[state.NodeId, struct{}]
}

// NewInjector creates an injector. A zero cooldown selects uniformly over every node on each injection.
func NewInjector(src IndexSource, cooldown time.Duration) *Injector {
	inj := &Injector{Source: src}
	if cooldown > 0 {
		inj.cooldown = ttlcache.New[state.NodeId, struct{}](
			ttlcache.WithTTL[state.NodeId, struct{}](cooldown),
			ttlcache.WithDisableTouchOnHit[state.NodeId, struct{}](),
		)
	}
	return inj
}

func (i *Injector) Inject(net *state.Network) (AnomalyReport, error) {
	if i.cooldown == nil {
		return InjectAnomaly(net, i.Source)
	}
	if len(net.Nodes) == 0 {
		return AnomalyReport{}, state.ErrEmptyNetwork
	}
	i.cooldown.DeleteExpired()
	candidates := make([]*state.Node, 0, len(net.Nodes))
	for _, node := range net.Nodes {
		if i.cooldown.Get(node.Id) == nil {
			candidates = append(candidates, node)
		}
	}
	if len(candidates) == 0 {
		candidates = net.Nodes
	}
	target := candidates[i.Source.IntN(len(candidates))]
	i.cooldown.Set(target.Id, struct{}{}, ttlcache.DefaultTTL)
	return applyAnomaly(net, target), nil
}

// Forget clears the cooldown window, called when the network is rebuilt
func (i *Injector) Forget() {
	if i.cooldown != nil {
		i.cooldown.DeleteAll()
	}
}
