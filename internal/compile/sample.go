package compile

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Range is a closed sampling interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Series is a sampled curve; X[i] maps to Y[i], with NaN marking holes.
type Series struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Grid is a sampled surface shaped like a meshgrid: row i holds the
// samples at y = Y[i][*], column j those at x = X[*][j].
type Grid struct {
	X, Y, Z *mat.Dense
}

// Linspace returns n evenly spaced points from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Sample1 evaluates f at n evenly spaced points of r.
func Sample1(f Func1, r Range, n int) Series {
	xs := Linspace(r.Min, r.Max, n)
	return Series{X: xs, Y: f(xs)}
}

// Sample2 evaluates f on an n×n grid spanning xr and yr.
func Sample2(f Func2, xr, yr Range, n int) (*Grid, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: grid needs at least 2 samples per axis, got %d", ErrShape, n)
	}
	xs := Linspace(xr.Min, xr.Max, n)
	ys := Linspace(yr.Min, yr.Max, n)
	gx := make([]float64, 0, n*n)
	gy := make([]float64, 0, n*n)
	for i := range n {
		for j := range n {
			gx = append(gx, xs[j])
			gy = append(gy, ys[i])
		}
	}
	z, err := f(gx, gy)
	if err != nil {
		return nil, err
	}
	return &Grid{
		X: mat.NewDense(n, n, gx),
		Y: mat.NewDense(n, n, gy),
		Z: mat.NewDense(n, n, z),
	}, nil
}

// Rows copies the grid into nested slices, row-major.
func (g *Grid) Rows() (x, y, z [][]float64) {
	return rows(g.X), rows(g.Y), rows(g.Z)
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range r {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
