package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dohr-michael/graphcalc/internal/calculator"
	"github.com/dohr-michael/graphcalc/internal/calculus"
	"github.com/dohr-michael/graphcalc/internal/compile"
	"github.com/dohr-michael/graphcalc/internal/eval"
	"github.com/dohr-michael/graphcalc/internal/expr"
	"github.com/dohr-michael/graphcalc/internal/session"
	"github.com/dohr-michael/graphcalc/internal/storage"
)

var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnknownMethod = errors.New("unknown method")
)

// Request methods shared by the HTTP routes and WebSocket frames.
const (
	MethodEval         = "eval"
	MethodDerive       = "derive"
	MethodIntegrate    = "integrate"
	MethodPlot2D       = "plot_2d"
	MethodPlot3D       = "plot_3d"
	MethodHistory      = "history"
	MethodClearHistory = "clear_history"
	MethodVars         = "vars"
	MethodSetVar       = "set_var"
	MethodUnsetVar     = "unset_var"
	MethodSignIn       = "signin"
	MethodSignOut      = "signout"
	MethodSession      = "session"
	MethodZoom         = "zoom"
	MethodSetRange     = "set_range"
	MethodSetTheme     = "set_theme"
	MethodSetFont      = "set_font"
)

type exprParams struct {
	Expression string `json:"expression"`
	Variable   string `json:"variable,omitempty"`
}

type integrateParams struct {
	Expression string   `json:"expression"`
	Variable   string   `json:"variable,omitempty"`
	Lower      *float64 `json:"lower,omitempty"`
	Upper      *float64 `json:"upper,omitempty"`
}

type plotParams struct {
	Expression string `json:"expression"`
	Samples    int    `json:"samples,omitempty"`
}

type varParams struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value,omitempty"`
}

type signInParams struct {
	User string `json:"user"`
}

type zoomParams struct {
	Direction string `json:"direction"` // in | out
}

type rangeParams struct {
	Axis session.Axis `json:"axis"`
	Min  float64      `json:"min"`
	Max  float64      `json:"max"`
}

type themeParams struct {
	Dark bool `json:"dark"`
}

type fontParams struct {
	Size int `json:"size"`
}

// Derivation is the derive response.
type Derivation struct {
	Expression string `json:"expression"`
	Variable   string `json:"variable"`
	Derivative string `json:"derivative"`
}

type handlerFunc func(ctx context.Context, raw json.RawMessage) (any, error)

// method adapts a typed handler to raw JSON params. Empty params decode to
// the zero value.
func method[P any](fn func(context.Context, P) (any, error)) handlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p P
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
			}
		}
		return fn(ctx, p)
	}
}

func (s *Server) methods() map[string]handlerFunc {
	return map[string]handlerFunc{
		MethodEval:         method(s.eval),
		MethodDerive:       method(s.derive),
		MethodIntegrate:    method(s.integrate),
		MethodPlot2D:       method(s.plot2D),
		MethodPlot3D:       method(s.plot3D),
		MethodHistory:      method(s.history),
		MethodClearHistory: method(s.clearHistory),
		MethodVars:         method(s.vars),
		MethodSetVar:       method(s.setVar),
		MethodUnsetVar:     method(s.unsetVar),
		MethodSignIn:       method(s.signIn),
		MethodSignOut:      method(s.signOut),
		MethodSession:      method(s.snapshot),
		MethodZoom:         method(s.zoom),
		MethodSetRange:     method(s.setRange),
		MethodSetTheme:     method(s.setTheme),
		MethodSetFont:      method(s.setFont),
	}
}

// Dispatch runs a named method. It implements ws.Dispatcher.
func (s *Server) Dispatch(ctx context.Context, name string, params json.RawMessage) (any, error) {
	fn, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	return fn(ctx, params)
}

func (s *Server) eval(ctx context.Context, p exprParams) (any, error) {
	return s.calc.Evaluate(ctx, p.Expression)
}

func (s *Server) derive(_ context.Context, p exprParams) (any, error) {
	d, err := s.calc.Derive(p.Expression, p.Variable)
	if err != nil {
		return nil, err
	}
	v := p.Variable
	if v == "" {
		v = "x"
	}
	return Derivation{Expression: p.Expression, Variable: v, Derivative: d}, nil
}

func (s *Server) integrate(ctx context.Context, p integrateParams) (any, error) {
	var bounds *calculator.Bounds
	switch {
	case p.Lower != nil && p.Upper != nil:
		bounds = &calculator.Bounds{Lower: *p.Lower, Upper: *p.Upper}
	case p.Lower != nil || p.Upper != nil:
		return nil, fmt.Errorf("%w: lower and upper must be given together", ErrBadRequest)
	}
	return s.calc.Integrate(ctx, p.Expression, p.Variable, bounds)
}

func (s *Server) plot2D(_ context.Context, p plotParams) (any, error) {
	return s.calc.Plot2D(p.Expression, p.Samples)
}

func (s *Server) plot3D(_ context.Context, p plotParams) (any, error) {
	return s.calc.Plot3D(p.Expression, p.Samples)
}

func (s *Server) history(context.Context, struct{}) (any, error) {
	return s.store().History(), nil
}

func (s *Server) clearHistory(ctx context.Context, _ struct{}) (any, error) {
	if err := s.store().ClearHistory(ctx); err != nil {
		return nil, err
	}
	return s.store().Snapshot(), nil
}

func (s *Server) vars(context.Context, struct{}) (any, error) {
	return s.store().Env(), nil
}

func (s *Server) setVar(ctx context.Context, p varParams) (any, error) {
	if p.Value == nil {
		return nil, fmt.Errorf("%w: value is required", ErrBadRequest)
	}
	if err := s.store().SetVar(ctx, p.Name, *p.Value); err != nil {
		return nil, err
	}
	return s.store().Env(), nil
}

func (s *Server) unsetVar(ctx context.Context, p varParams) (any, error) {
	if err := s.store().UnsetVar(ctx, p.Name); err != nil {
		return nil, err
	}
	return s.store().Env(), nil
}

func (s *Server) signIn(ctx context.Context, p signInParams) (any, error) {
	if err := s.store().SignIn(ctx, p.User); err != nil {
		return nil, err
	}
	return s.store().Snapshot(), nil
}

func (s *Server) signOut(ctx context.Context, _ struct{}) (any, error) {
	if err := s.store().SignOut(ctx); err != nil {
		return nil, err
	}
	return s.store().Snapshot(), nil
}

func (s *Server) snapshot(context.Context, struct{}) (any, error) {
	return s.store().Snapshot(), nil
}

func (s *Server) zoom(ctx context.Context, p zoomParams) (any, error) {
	var err error
	switch p.Direction {
	case "in":
		err = s.store().ZoomIn(ctx)
	case "out":
		err = s.store().ZoomOut(ctx)
	default:
		return nil, fmt.Errorf("%w: zoom direction must be in or out, got %q", ErrBadRequest, p.Direction)
	}
	if err != nil {
		return nil, err
	}
	return s.store().PlotRange(), nil
}

func (s *Server) setRange(ctx context.Context, p rangeParams) (any, error) {
	if err := s.store().SetRange(ctx, p.Axis, p.Min, p.Max); err != nil {
		return nil, err
	}
	return s.store().PlotRange(), nil
}

func (s *Server) setTheme(ctx context.Context, p themeParams) (any, error) {
	if err := s.store().SetDarkMode(ctx, p.Dark); err != nil {
		return nil, err
	}
	return s.store().Preferences(), nil
}

func (s *Server) setFont(ctx context.Context, p fontParams) (any, error) {
	if err := s.store().SetFontSize(ctx, p.Size); err != nil {
		return nil, err
	}
	return s.store().Preferences(), nil
}

// statusFor maps the error taxonomy onto HTTP status codes: malformed
// input is 400, well-formed input that cannot be computed is 422.
// Classify gives WebSocket error frames the status the REST routes use.
func (s *Server) Classify(err error) int { return statusFor(err) }

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrUnknownMethod),
		errors.Is(err, expr.ErrParse),
		errors.Is(err, session.ErrInvalidUser),
		errors.Is(err, session.ErrInvalidVariable),
		errors.Is(err, session.ErrInvalidRange),
		errors.Is(err, compile.ErrShape):
		return http.StatusBadRequest
	case errors.Is(err, eval.ErrUndefinedVariable),
		errors.Is(err, eval.ErrDivisionByZero),
		errors.Is(err, eval.ErrDomain),
		errors.Is(err, calculus.ErrDifferentiation),
		errors.Is(err, calculus.ErrIntegration),
		errors.Is(err, compile.ErrCompilation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
