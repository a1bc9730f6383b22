package state

import (
	"time"
)

type NodeCfg struct {
	Id   NodeId   `yaml:"id" hcl:"id"`
	Kind NodeKind `yaml:"kind,omitempty" hcl:"kind,optional"` // presentation only, defaults to relay
}

// LinkCfg describes an undirected link. Cost is signed so that negative values reach validation.
type LinkCfg struct {
	A    NodeId `yaml:"a" hcl:"a"`
	B    NodeId `yaml:"b" hcl:"b"`
	Cost int64  `yaml:"cost" hcl:"cost"`
}

// TopologyCfg is the data-driven description of a network
type TopologyCfg struct {
	Nodes []NodeCfg `yaml:"nodes" hcl:"node,block"`
	Links []LinkCfg `yaml:"links" hcl:"link,block"`
}

// RunCfg controls how the driver advances the simulation
type RunCfg struct {
	StepDelay       time.Duration // time between rounds
	MaxRounds       uint64        // stop after this many rounds, 0 runs until cancelled
	UntilConverged  bool          // stop once a round changes nothing
	AnomalyAfter    time.Duration // inject a single anomaly after this delay, 0 to disable
	AnomalyEvery    time.Duration // inject an anomaly periodically, 0 to disable
	AnomalyCooldown time.Duration // nodes hit within this window are not picked again while others remain
	Seed            uint64
	HttpBind        string // if not empty, serve the inspect api on this address
	LogPath         string // if not empty, logs are also written to this file
}

func DefaultRunCfg() RunCfg {
	return RunCfg{
		StepDelay: StepDelay,
		Seed:      uint64(time.Now().UnixNano()),
	}
}

// CanonicalTopology returns the built-in five node field network
func CanonicalTopology() TopologyCfg {
	return TopologyCfg{
		Nodes: []NodeCfg{
			{Id: "Soil1", Kind: KindSensor},
			{Id: "Soil2", Kind: KindSensor},
			{Id: "Pump", Kind: KindRelay},
			{Id: "Temp", Kind: KindRelay},
			{Id: "Gateway", Kind: KindGateway},
		},
		Links: []LinkCfg{
			{A: "Soil1", B: "Gateway", Cost: 1},
			{A: "Soil2", B: "Gateway", Cost: 2},
			{A: "Pump", B: "Gateway", Cost: 2},
			{A: "Temp", B: "Gateway", Cost: 1},
			{A: "Soil1", B: "Soil2", Cost: 1},
			{A: "Soil2", B: "Pump", Cost: 1},
			{A: "Pump", B: "Temp", Cost: 1},
		},
	}
}

// ExpandTopology fills in defaults that may be omitted from a topology file
func ExpandTopology(cfg *TopologyCfg) {
	for idx, node := range cfg.Nodes {
		if node.Kind == "" {
			node.Kind = DefaultKind
		}
		cfg.Nodes[idx] = node
	}
}

func (c *TopologyCfg) HasNode(id NodeId) bool {
	for _, n := range c.Nodes {
		if n.Id == id {
			return true
		}
	}
	return false
}

// BuildNetwork validates cfg and builds a fresh network with every table initialised
func BuildNetwork(cfg TopologyCfg) (*Network, error) {
	cfg.Nodes = append([]NodeCfg(nil), cfg.Nodes...)
	ExpandTopology(&cfg)
	if err := TopologyValidator(&cfg); err != nil {
		return nil, err
	}
	net := NewNetwork()
	for _, n := range cfg.Nodes {
		net.addNode(n.Id, n.Kind)
	}
	for _, l := range cfg.Links {
		net.addLink(l.A, l.B, uint64(l.Cost))
	}
	net.ResetTables()
	return net, nil
}
