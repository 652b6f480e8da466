// Package stencils holds the one dimensional finite difference kernels and the
// lookup tables that map a differencing method to its kernel.
package stencils

// Stencil is a five point window of a field along one axis
type Stencil struct {
	MM, M, C, P, PP float64
}

// Offset places a stencil relative to the output point
type Offset uint8

const (
	Centred  Offset = iota // Input and output share a location
	ToLow                  // Centre input, output shifted half a cell down
	ToCentre               // Low input, output at the centre
)

// Gather fills a stencil about point i from get. Only points within w of the
// output are read, the rest stay zero.
func Gather(get func(j int) float64, i int, o Offset, w int) (s Stencil) {
	var lo, hi int // Input indices of M and P
	switch o {
	case Centred:
		lo, hi = i-1, i+1
	case ToLow:
		lo, hi = i-1, i
	case ToCentre:
		lo, hi = i, i+1
	}
	s.C = get(i)
	if w < 1 {
		return
	}
	s.M, s.P = get(lo), get(hi)
	if w > 1 {
		s.MM, s.PP = get(lo-1), get(hi+1)
	}
	return
}

// Unit is the stencil with a one at position k in MM..PP, used to probe
// linear kernels for their coefficients
func Unit(k int) (s Stencil) {
	switch k {
	case 0:
		s.MM = 1
	case 1:
		s.M = 1
	case 2:
		s.C = 1
	case 3:
		s.P = 1
	case 4:
		s.PP = 1
	}
	return
}
