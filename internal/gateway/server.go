// Package gateway serves the calculator over HTTP and WebSocket.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/graphcalc/internal/calculator"
	"github.com/dohr-michael/graphcalc/internal/events"
	"github.com/dohr-michael/graphcalc/internal/gateway/ws"
	"github.com/dohr-michael/graphcalc/internal/session"
)

const maxBodyBytes = 1 << 20

// Server is the graphcalc gateway.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	calc       *calculator.Calculator
	handlers   map[string]handlerFunc
}

// NewServer wires the routes for calc. Events published on bus are
// relayed to WebSocket clients and exposed at /api/events.
func NewServer(bus *events.Bus, calc *calculator.Calculator, host string, port int) *Server {
	s := &Server{
		bus:  bus,
		calc: calc,
	}
	s.handlers = s.methods()
	s.hub = ws.NewHub(bus, s)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ws", s.hub.ServeWS)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/session", s.route(MethodSession))

	r.Post("/api/eval", s.route(MethodEval))
	r.Post("/api/derive", s.route(MethodDerive))
	r.Post("/api/integrate", s.route(MethodIntegrate))
	r.Post("/api/plot/2d", s.route(MethodPlot2D))
	r.Post("/api/plot/3d", s.route(MethodPlot3D))

	r.Get("/api/history", s.route(MethodHistory))
	r.Delete("/api/history", s.route(MethodClearHistory))

	r.Get("/api/vars", s.route(MethodVars))
	r.Put("/api/vars/{name}", s.handleSetVar)
	r.Delete("/api/vars/{name}", s.handleUnsetVar)

	r.Post("/api/signin", s.route(MethodSignIn))
	r.Post("/api/signout", s.route(MethodSignOut))

	r.Post("/api/zoom/{direction}", s.handleZoom)
	r.Put("/api/range", s.route(MethodSetRange))
	r.Put("/api/theme", s.route(MethodSetTheme))
	r.Put("/api/font", s.route(MethodSetFont))

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) store() *session.Store { return s.calc.Store() }

// Start listens and serves until Shutdown. ready, when non-nil, receives
// the bound address before serving begins.
func (s *Server) Start(ready func(addr string)) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()
	slog.Info("graphcalc gateway listening", "addr", addr, "session", s.store().Name())
	if ready != nil {
		ready(addr)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown disconnects WebSocket clients and drains HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// route serves a method whose params are the request body.
func (s *Server) route(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		s.respond(w, r, name, body)
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, name string, params json.RawMessage) {
	result, err := s.Dispatch(r.Context(), name, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSetVar(w http.ResponseWriter, r *http.Request) {
	var p varParams
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	p.Name = chi.URLParam(r, "name")
	params, _ := json.Marshal(p)
	s.respond(w, r, MethodSetVar, params)
}

func (s *Server) handleUnsetVar(w http.ResponseWriter, r *http.Request) {
	params, _ := json.Marshal(varParams{Name: chi.URLParam(r, "name")})
	s.respond(w, r, MethodUnsetVar, params)
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	params, _ := json.Marshal(zoomParams{Direction: chi.URLParam(r, "direction")})
	s.respond(w, r, MethodZoom, params)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"session": s.store().Name(),
		"clients": s.hub.Clients(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: invalid limit %q", ErrBadRequest, v))
			return
		}
		limit = n
	}
	q := r.URL.Query()
	filter := events.Filter{Session: q.Get("session")}
	for _, t := range q["type"] {
		filter.Types = append(filter.Types, events.EventType(t))
	}
	history := s.bus.Recent(limit, filter)
	if history == nil {
		history = []events.Event{}
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("gateway request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
