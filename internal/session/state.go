// Package session holds the calculator's mutable state: evaluation history,
// variable environments, the sign-in state machine, plot ranges and display
// preferences, and their persistence.
package session

import (
	"errors"
	"math"
	"regexp"

	"github.com/dohr-michael/graphcalc/internal/eval"
	"github.com/dohr-michael/graphcalc/internal/expr"
)

const (
	MaxHistory = 50

	DefaultFontSize = 18
	MinFontSize     = 12
	MaxFontSize     = 36

	ZoomInFactor  = 0.8
	ZoomOutFactor = 1.2
)

var (
	ErrInvalidUser     = errors.New("invalid user name")
	ErrInvalidVariable = errors.New("invalid variable")
	ErrInvalidRange    = errors.New("invalid range")
)

// HistoryEntry is one successful evaluation.
type HistoryEntry struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

// Range is a closed interval on one axis.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) scale(f float64) Range {
	return Range{Min: r.Min * f, Max: r.Max * f}
}

func (r Range) valid() bool {
	return !math.IsNaN(r.Min) && !math.IsInf(r.Min, 0) &&
		!math.IsNaN(r.Max) && !math.IsInf(r.Max, 0) && r.Min < r.Max
}

// PlotRange bounds plot sampling and default integration limits.
type PlotRange struct {
	X Range `json:"x"`
	Y Range `json:"y"`
}

// Axis selects a PlotRange component.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Preferences are display settings owned by the presentation layer but
// persisted with the session.
type Preferences struct {
	DarkMode bool `json:"dark_mode"`
	FontSize int  `json:"font_size"`
}

// DefaultPlotRange is (-10, 10) on both axes.
func DefaultPlotRange() PlotRange {
	return PlotRange{X: Range{Min: -10, Max: 10}, Y: Range{Min: -10, Max: 10}}
}

// DefaultPreferences is light mode at font size 18.
func DefaultPreferences() Preferences {
	return Preferences{FontSize: DefaultFontSize}
}

var userPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidUser reports whether name can be used as a username.
func ValidUser(name string) bool {
	return userPattern.MatchString(name)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidVariable reports whether name can be bound: it must be an
// identifier and not one of the function names.
func ValidVariable(name string) bool {
	if !identPattern.MatchString(name) {
		return false
	}
	_, isFunc := expr.LookupFunc(name)
	return !isFunc
}

// record is the durable session snapshot. Ranges are stored as pairs.
type record struct {
	History     []HistoryEntry `json:"history"`
	Variables   eval.Env       `json:"variables"`
	DarkMode    bool           `json:"dark_mode"`
	FontSize    int            `json:"font_size"`
	XRange      [2]float64     `json:"x_range"`
	YRange      [2]float64     `json:"y_range"`
	CurrentUser string         `json:"current_user,omitempty"`
}

// profile is the durable per-user environment.
type profile struct {
	Variables eval.Env `json:"variables"`
}
