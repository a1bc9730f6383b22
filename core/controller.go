package core

import (
	"sync"

	"github.com/encodeous/dvsim/state"
)

// Controller is the surface exposed to presentation layers. Every call is atomic with respect to the others.
type Controller interface {
	Snapshot() (state.Snapshot, error)
	Step() (RoundResult, error)
	InjectAnomaly(node state.NodeId) (AnomalyReport, error)
	Reset() error
}

// SyncSimulator serialises access to a Simulator with a mutex
type SyncSimulator struct {
	mu  sync.Mutex
	sim *Simulator
}

func NewSyncSimulator(sim *Simulator) *SyncSimulator {
	return &SyncSimulator{sim: sim}
}

func (s *SyncSimulator) Snapshot() (state.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Snapshot(), nil
}

func (s *SyncSimulator) Step() (RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Step()
}

// InjectAnomaly targets node, or lets the injector choose when node is empty
func (s *SyncSimulator) InjectAnomaly(node state.NodeId) (AnomalyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if node == "" {
		return s.sim.InjectAnomaly()
	}
	return s.sim.InjectAnomalyAt(node)
}

func (s *SyncSimulator) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Reset()
}
