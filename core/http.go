package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SimHttp serves a read-mostly inspect api for presentation layers
type SimHttp struct {
	Server *http.Server
	Addr   net.Addr
}

func (h *SimHttp) Init(s *state.State) error {
	if s.HttpBind == "" {
		return nil
	}
	ln, err := net.Listen("tcp", s.HttpBind)
	if err != nil {
		return err
	}
	h.Addr = ln.Addr()
	h.Server = &http.Server{
		Handler: NewHttpHandler(NewDispatchController(s.Env), Get[*SimTrace](s), s.Log),
		// streaming requests end with the simulation
		BaseContext: func(net.Listener) context.Context {
			return s.Context
		},
	}
	go func() {
		err := h.Server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Cancel(err)
		}
	}()
	s.Log.Info("serving inspect api", "addr", h.Addr.String())
	return nil
}

func (h *SimHttp) Cleanup(s *state.State) error {
	if h.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), state.HttpShutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

type httpNode struct {
	Id      state.NodeId            `json:"id"`
	Kind    state.NodeKind          `json:"kind"`
	Anomaly bool                    `json:"anomaly"`
	Table   map[state.NodeId]string `json:"table"`
}

type httpRound struct {
	Round     uint64        `json:"round"`
	Converged bool          `json:"converged"`
	Reset     bool          `json:"reset,omitempty"`
	Changes   []TableChange `json:"changes"`
}

func toHttpRound(res RoundResult) httpRound {
	return httpRound{
		Round:     res.Round,
		Converged: res.Converged,
		Reset:     res.Reset,
		Changes:   res.Changes,
	}
}

func toHttpNode(v state.NodeView) httpNode {
	tbl := make(map[state.NodeId]string, len(v.Table))
	for dst, cost := range v.Table {
		tbl[dst] = state.FormatMetric(cost)
	}
	return httpNode{
		Id:      v.Id,
		Kind:    v.Kind,
		Anomaly: v.Anomaly,
		Table:   tbl,
	}
}

// NewHttpHandler exposes ctrl over http. Costs are rendered as strings so that unreachable entries read "∞".
// GET /watch streams every committed round as newline delimited json, it is only served when watch is not nil.
func NewHttpHandler(ctrl Controller, watch Watcher, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	writeJSON := func(w http.ResponseWriter, code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Warn("failed to write response", "error", err)
		}
	}
	writeErr := func(w http.ResponseWriter, err error) {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, state.ErrUnknownNode):
			code = http.StatusNotFound
		case errors.Is(err, state.ErrEmptyNetwork), errors.Is(err, state.ErrInvalidTopology):
			code = http.StatusConflict
		}
		writeJSON(w, code, map[string]string{"error": err.Error()})
	}

	r.Get("/snapshot", func(w http.ResponseWriter, req *http.Request) {
		snap, err := ctrl.Snapshot()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})
	r.Get("/nodes", func(w http.ResponseWriter, req *http.Request) {
		snap, err := ctrl.Snapshot()
		if err != nil {
			writeErr(w, err)
			return
		}
		nodes := make([]httpNode, 0, len(snap.Nodes))
		for _, v := range snap.Nodes {
			nodes = append(nodes, toHttpNode(v))
		}
		writeJSON(w, http.StatusOK, nodes)
	})
	r.Get("/nodes/{id}", func(w http.ResponseWriter, req *http.Request) {
		snap, err := ctrl.Snapshot()
		if err != nil {
			writeErr(w, err)
			return
		}
		id := state.NodeId(chi.URLParam(req, "id"))
		v, ok := snap.Node(id)
		if !ok {
			writeErr(w, fmt.Errorf("%w: %s", state.ErrUnknownNode, id))
			return
		}
		writeJSON(w, http.StatusOK, toHttpNode(v))
	})
	r.Get("/links", func(w http.ResponseWriter, req *http.Request) {
		snap, err := ctrl.Snapshot()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap.Links)
	})
	r.Post("/step", func(w http.ResponseWriter, req *http.Request) {
		res, err := ctrl.Step()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toHttpRound(res))
	})
	r.Post("/anomaly", func(w http.ResponseWriter, req *http.Request) {
		report, err := ctrl.InjectAnomaly(state.NodeId(req.URL.Query().Get("node")))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})
	r.Post("/reset", func(w http.ResponseWriter, req *http.Request) {
		if err := ctrl.Reset(); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if watch != nil {
		r.Get("/watch", func(w http.ResponseWriter, req *http.Request) {
			rounds, unsubscribe := watch.Subscribe()
			defer unsubscribe()

			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			flusher, _ := w.(http.Flusher)
			if flusher != nil {
				flusher.Flush()
			}
			enc := json.NewEncoder(w)
			for {
				select {
				case <-req.Context().Done():
					return
				case m, ok := <-rounds:
					if !ok {
						return
					}
					res, isRound := m.(RoundResult)
					if !isRound {
						continue
					}
					if err := enc.Encode(toHttpRound(res)); err != nil {
						return
					}
					if flusher != nil {
						flusher.Flush()
					}
				}
			}
		})
	}
	r.Handle("/debug/metrics", perf.Handler())
	return r
}
