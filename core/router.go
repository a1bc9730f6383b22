package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// ErrSimulationFinished is the cancel cause used when the run reaches its stop condition
var ErrSimulationFinished = errors.New("simulation finished")

// SimRouter owns the simulator inside the main loop and advances it on a fixed cadence
type SimRouter struct {
	*state.State
	Sim        *Simulator
	LastResult RoundResult
}

func (r *SimRouter) Log(event RouterEvent, desc string, args ...any) {
	if event >= EmptyNetwork {
		r.Env.Log.Warn(fmt.Sprintf("%s %s", event.String(), desc), args...)
		return
	}
	if state.DBG_log_router {
		r.Env.Log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
	}
}

func (r *SimRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	injector := NewInjector(rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15)), s.AnomalyCooldown)
	sim, err := NewSimulator(s.Topology, injector, r)
	if err != nil {
		return err
	}
	r.Sim = sim
	r.LastResult = RoundResult{Snapshot: sim.Snapshot()}

	s.Log.Debug("schedule router tasks")

	delay := s.StepDelay
	if delay <= 0 {
		delay = state.StepDelay
	}
	s.Env.RepeatTask(stepRound, delay)
	if s.AnomalyEvery > 0 {
		s.Env.RepeatTask(injectRound, s.AnomalyEvery)
	}
	if s.AnomalyAfter > 0 {
		s.Env.ScheduleTask(injectRound, s.AnomalyAfter)
	}
	return nil
}

func (r *SimRouter) Cleanup(s *state.State) error {
	r.State = nil
	return nil
}

// Advance runs one round and publishes it to metrics and observers
func (r *SimRouter) Advance() (RoundResult, error) {
	start := time.Now()
	res, err := r.Sim.Step()
	if err != nil {
		return res, err
	}
	perf.RoundLatency.Add(float64(time.Since(start).Microseconds()))
	perf.RoundsPerSecond.Add(1)
	perf.RouteChanges.Add(float64(len(res.Changes)))
	r.LastResult = res

	Get[*SimTrace](r.State).Submit(res)

	if state.DBG_log_round {
		r.Env.Log.Info("round complete", "round", res.Round, "changes", len(res.Changes))
		for _, v := range res.Snapshot.Nodes {
			r.Env.Log.Info(RenderNode(v))
		}
	}
	return res, nil
}

// Inject applies an anomaly to node, or to a node picked by the injector when node is empty
func (r *SimRouter) Inject(node state.NodeId) (AnomalyReport, error) {
	var report AnomalyReport
	var err error
	if node == "" {
		report, err = r.Sim.InjectAnomaly()
	} else {
		report, err = r.Sim.InjectAnomalyAt(node)
	}
	if err != nil {
		return report, err
	}
	perf.Anomalies.Add(1)
	r.Env.Log.Info("anomaly injected", "node", report.Node, "repeat", report.Repeat)
	for _, l := range report.Links {
		r.Env.Log.Info("link cost changed", "a", l.A, "b", l.B, "old", l.Old, "new", l.New)
	}
	return report, nil
}

// Reset rebuilds the network and publishes the fresh tables to observers
func (r *SimRouter) Reset() error {
	if err := r.Sim.Reset(); err != nil {
		return err
	}
	snap := r.Sim.Snapshot()
	r.LastResult = RoundResult{
		Round:    snap.Round,
		Changes:  make([]TableChange, 0),
		Reset:    true,
		Snapshot: snap,
	}
	Get[*SimTrace](r.State).Submit(r.LastResult)
	r.Env.Log.Info("network reset")
	return nil
}

func stepRound(s *state.State) error {
	res, err := Get[*SimRouter](s).Advance()
	if err != nil {
		return err
	}
	if s.MaxRounds != 0 && res.Round >= s.MaxRounds {
		s.Log.Info("reached round limit", "round", res.Round)
		s.Cancel(ErrSimulationFinished)
	} else if s.UntilConverged && res.Converged {
		s.Log.Info("network converged", "round", res.Round)
		s.Cancel(ErrSimulationFinished)
	}
	return nil
}

func injectRound(s *state.State) error {
	_, err := Get[*SimRouter](s).Inject("")
	return err
}

// dispatchController runs every call on the main loop
type dispatchController struct {
	env *state.Env
}

func NewDispatchController(env *state.Env) Controller {
	return &dispatchController{env: env}
}

func (c *dispatchController) Snapshot() (state.Snapshot, error) {
	res, err := c.env.DispatchWait(func(s *state.State) (any, error) {
		return Get[*SimRouter](s).Sim.Snapshot(), nil
	})
	if err != nil {
		return state.Snapshot{}, err
	}
	return res.(state.Snapshot), nil
}

func (c *dispatchController) Step() (RoundResult, error) {
	res, err := c.env.DispatchWait(func(s *state.State) (any, error) {
		return Get[*SimRouter](s).Advance()
	})
	if err != nil {
		return RoundResult{}, err
	}
	return res.(RoundResult), nil
}

func (c *dispatchController) InjectAnomaly(node state.NodeId) (AnomalyReport, error) {
	res, err := c.env.DispatchWait(func(s *state.State) (any, error) {
		return Get[*SimRouter](s).Inject(node)
	})
	if err != nil {
		return AnomalyReport{}, err
	}
	return res.(AnomalyReport), nil
}

func (c *dispatchController) Reset() error {
	_, err := c.env.DispatchWait(func(s *state.State) (any, error) {
		return nil, Get[*SimRouter](s).Reset()
	})
	return err
}
