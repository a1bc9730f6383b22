package core

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"reflect"
	"runtime"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// Bootstrap loads the topology at topologyPath (the canonical topology if empty) and runs the simulation until ctx is done
// or the run reaches its stop condition. It returns the final state of the network.
func Bootstrap(ctx context.Context, topologyPath string, cfg state.RunCfg, verbose bool) (state.Snapshot, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	topo, err := state.LoadTopology(topologyPath)
	if err != nil {
		return state.Snapshot{}, err
	}
	err = state.TopologyValidator(topo)
	if err != nil {
		return state.Snapshot{}, err
	}
	return Start(ctx, *topo, cfg, level)
}

func newLogger(cfg state.RunCfg, logLevel slog.Level) (*slog.Logger, func(), error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: "dvsim",
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	closer := func() {}
	if cfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(cfg.LogPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
		closer = func() {
			_ = f.Close()
		}
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Start runs the main loop. Every access to the simulation happens on the calling goroutine.
func Start(parent context.Context, topo state.TopologyCfg, cfg state.RunCfg, logLevel slog.Level) (state.Snapshot, error) {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	logger, closeLog, err := newLogger(cfg, logLevel)
	if err != nil {
		return state.Snapshot{}, err
	}
	defer closeLog()

	dispatch := make(chan func(env *state.State) error, state.DispatchQueueSize)

	s := state.State{
		Modules: make(map[string]state.SimModule),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			RunCfg:          cfg,
			Topology:        topo,
			Log:             logger,
		},
	}

	s.Log.Info("init modules")
	err = initModules(&s)
	if err != nil {
		Stop(&s)
		return state.Snapshot{}, err
	}
	s.Log.Info("init modules complete")

	s.Log.Info("Simulation has been initialized. To gracefully exit, send SIGINT or Ctrl+C.")

	MainLoop(&s, dispatch)

	snap := Get[*SimRouter](&s).Sim.Snapshot()
	Stop(&s)

	cause := context.Cause(ctx)
	if errors.Is(cause, ErrSimulationFinished) || errors.Is(cause, context.Canceled) {
		return snap, nil
	}
	return snap, cause
}

func initModules(s *state.State) error {
	var modules []state.SimModule
	modules = append(modules, &SimTrace{})
	modules = append(modules, &SimRouter{})
	modules = append(modules, &SimHttp{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			if s.Context.Err() != nil {
				// drop work queued behind a stop
				continue
			}
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > time.Millisecond*4 {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
			return
		}
	}
}

func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	s.Log.Info("stopped")
}
