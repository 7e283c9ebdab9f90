package compile

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/mat"
)

// nullable maps non-finite samples to nil so they encode as JSON null.
func nullable(v []float64) []*float64 {
	out := make([]*float64, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) && !math.IsInf(v[i], 0) {
			out[i] = &v[i]
		}
	}
	return out
}

// MarshalJSON encodes holes as null.
func (s Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X []*float64 `json:"x"`
		Y []*float64 `json:"y"`
	}{nullable(s.X), nullable(s.Y)})
}

// MarshalJSON encodes the grid as its two axes plus the z rows, holes as null.
func (g *Grid) MarshalJSON() ([]byte, error) {
	r, _ := g.Z.Dims()
	z := make([][]*float64, r)
	for i := range r {
		z[i] = nullable(mat.Row(nil, i, g.Z))
	}
	return json.Marshal(struct {
		X []float64    `json:"x"`
		Y []float64    `json:"y"`
		Z [][]*float64 `json:"z"`
	}{
		X: mat.Row(nil, 0, g.X),
		Y: mat.Col(nil, 0, g.Y),
		Z: z,
	})
}
