package core

import (
	"math/rand/v2"
	"time"

	"github.com/encodeous/dvsim/state"
)

// Simulator ties the network to its topology, its fault injector and its event sink.
// It is not safe for concurrent use, see SyncSimulator.
type Simulator struct {
	Topology state.TopologyCfg
	Network  *state.Network
	Injector *Injector
	Router   Router
}

// NewSimulator builds the network described by topo. A nil router discards events,
// a nil injector picks targets uniformly with a time seeded source.
func NewSimulator(topo state.TopologyCfg, injector *Injector, r Router) (*Simulator, error) {
	if r == nil {
		r = nopRouter{}
	}
	if injector == nil {
		injector = NewInjector(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)), 0)
	}
	s := &Simulator{
		Topology: topo,
		Injector: injector,
		Router:   r,
	}
	if err := s.Build(); err != nil {
		return nil, err
	}
	return s, nil
}

// Build discards the current network and rebuilds it from the topology, with base link costs
// and fresh tables
func (s *Simulator) Build() error {
	net, err := state.BuildNetwork(s.Topology)
	if err != nil {
		return err
	}
	s.Network = net
	s.Router.Log(NetworkBuilt, "network built", "nodes", len(net.Nodes), "links", len(net.Links))
	return nil
}

// Reset restores the network to the state right after Build, clearing every anomaly.
// If the topology no longer builds, the current network is left untouched.
func (s *Simulator) Reset() error {
	if err := s.Build(); err != nil {
		return err
	}
	if s.Injector != nil {
		s.Injector.Forget()
	}
	return nil
}

func (s *Simulator) Step() (RoundResult, error) {
	return Step(s.Network, s.Router)
}

// InjectAnomaly perturbs a node chosen by the injector
func (s *Simulator) InjectAnomaly() (AnomalyReport, error) {
	report, err := s.Injector.Inject(s.Network)
	if err != nil {
		return report, err
	}
	s.logAnomaly(report)
	return report, nil
}

// InjectAnomalyAt perturbs a specific node
func (s *Simulator) InjectAnomalyAt(id state.NodeId) (AnomalyReport, error) {
	report, err := ApplyAnomaly(s.Network, id)
	if err != nil {
		return report, err
	}
	s.logAnomaly(report)
	return report, nil
}

func (s *Simulator) logAnomaly(report AnomalyReport) {
	s.Router.Log(AnomalyInjected, "anomaly injected", "node", report.Node, "repeat", report.Repeat, "links", len(report.Links))
}

// Converge steps until a round changes nothing or maxRounds rounds have run.
// It returns the number of rounds executed and whether the network is quiescent.
func (s *Simulator) Converge(maxRounds int) (int, bool, error) {
	for i := 1; i <= maxRounds; i++ {
		res, err := s.Step()
		if err != nil {
			return i - 1, false, err
		}
		if res.Converged {
			return i, true, nil
		}
	}
	return maxRounds, false, nil
}

func (s *Simulator) Snapshot() state.Snapshot {
	return s.Network.Snapshot()
}

func (s *Simulator) Nodes() []state.NodeView {
	return s.Snapshot().Nodes
}

func (s *Simulator) Links() []state.LinkView {
	return s.Snapshot().Links
}
