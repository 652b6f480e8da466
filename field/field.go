package field

import (
	"fmt"

	"github.com/notargets/plasmamesh/types"
)

/*
Field is a scalar over the local grid of one processor, guard cells included.
Points are stored with z fastest: ind = z + Nz*(y + Ny*x).

A Field carries the cell location it is stored at and whether it is held in
field aligned form. Arithmetic returns new fields and never modifies its
operands; combining fields stored at different locations or alignments is a
configuration error and panics.
*/
type Field struct {
	Nx, Ny, Nz int
	Data       []float64
	Loc        types.CellLoc
	Aligned    bool
}

func New(Nx, Ny, Nz int, loc types.CellLoc) (f *Field) {
	if Nx < 1 || Ny < 1 || Nz < 1 {
		panic(fmt.Errorf("field dimensions must be positive, have %d x %d x %d", Nx, Ny, Nz))
	}
	if loc == types.CELL_DEFAULT {
		loc = types.CELL_CENTRE
	}
	if !loc.IsReal() {
		panic(fmt.Errorf("a field cannot be stored at %s", loc))
	}
	f = &Field{
		Nx: Nx, Ny: Ny, Nz: Nz,
		Data: make([]float64, Nx*Ny*Nz),
		Loc:  loc,
	}
	return
}

func NewConst(Nx, Ny, Nz int, val float64, loc types.CellLoc) (f *Field) {
	f = New(Nx, Ny, Nz, loc)
	for i := range f.Data {
		f.Data[i] = val
	}
	return
}

// NewLike allocates a zero field with the shape, location and alignment of f
func NewLike(f *Field) (r *Field) {
	r = New(f.Nx, f.Ny, f.Nz, f.Loc)
	r.Aligned = f.Aligned
	return
}

// NewFunc fills a new field from a function of the local indices
func NewFunc(Nx, Ny, Nz int, loc types.CellLoc, fn func(x, y, z int) float64) (f *Field) {
	f = New(Nx, Ny, Nz, loc)
	var ind int
	for x := 0; x < Nx; x++ {
		for y := 0; y < Ny; y++ {
			for z := 0; z < Nz; z++ {
				f.Data[ind] = fn(x, y, z)
				ind++
			}
		}
	}
	return
}

func (f *Field) Index(x, y, z int) int {
	return z + f.Nz*(y+f.Ny*x)
}

func (f *Field) At(x, y, z int) float64 {
	return f.Data[z+f.Nz*(y+f.Ny*x)]
}

func (f *Field) Set(x, y, z int, val float64) {
	f.Data[z+f.Nz*(y+f.Ny*x)] = val
}

func (f *Field) Location() types.CellLoc {
	return f.Loc
}

func (f *Field) Copy() (r *Field) {
	r = &Field{
		Nx: f.Nx, Ny: f.Ny, Nz: f.Nz,
		Data:    make([]float64, len(f.Data)),
		Loc:     f.Loc,
		Aligned: f.Aligned,
	}
	copy(r.Data, f.Data)
	return
}

// WithLocation returns a copy retagged at loc without interpolating
func (f *Field) WithLocation(loc types.CellLoc) (r *Field) {
	if !loc.IsReal() {
		panic(fmt.Errorf("a field cannot be stored at %s", loc))
	}
	r = f.Copy()
	r.Loc = loc
	return
}

func (f *Field) SameShape(g *Field) bool {
	return f.Nx == g.Nx && f.Ny == g.Ny && f.Nz == g.Nz
}

func (f *Field) checkCompatible(g *Field, op string) {
	switch {
	case !f.SameShape(g):
		panic(fmt.Errorf("%s: field shapes differ, %dx%dx%d and %dx%dx%d",
			op, f.Nx, f.Ny, f.Nz, g.Nx, g.Ny, g.Nz))
	case f.Loc != g.Loc:
		panic(fmt.Errorf("%s: fields at different locations, %s and %s", op, f.Loc, g.Loc))
	case f.Aligned != g.Aligned:
		panic(fmt.Errorf("%s: cannot combine field aligned and standard fields", op))
	}
}

func (f *Field) binary(g *Field, op string, fn func(a, b float64) float64) (r *Field) {
	f.checkCompatible(g, op)
	r = NewLike(f)
	for i, a := range f.Data {
		r.Data[i] = fn(a, g.Data[i])
	}
	return
}

func (f *Field) unary(fn func(a float64) float64) (r *Field) {
	r = NewLike(f)
	for i, a := range f.Data {
		r.Data[i] = fn(a)
	}
	return
}

func (f *Field) Add(g *Field) *Field {
	return f.binary(g, "Add", func(a, b float64) float64 { return a + b })
}

func (f *Field) Sub(g *Field) *Field {
	return f.binary(g, "Sub", func(a, b float64) float64 { return a - b })
}

func (f *Field) Mul(g *Field) *Field {
	return f.binary(g, "Mul", func(a, b float64) float64 { return a * b })
}

func (f *Field) Div(g *Field) *Field {
	return f.binary(g, "Div", func(a, b float64) float64 { return a / b })
}

func (f *Field) Scale(s float64) *Field {
	return f.unary(func(a float64) float64 { return s * a })
}

func (f *Field) AddScalar(s float64) *Field {
	return f.unary(func(a float64) float64 { return a + s })
}

func (f *Field) Neg() *Field {
	return f.unary(func(a float64) float64 { return -a })
}

// Apply maps fn over every point
func (f *Field) Apply(fn func(a float64) float64) *Field {
	return f.unary(fn)
}

// Fill overwrites the point values in place
func (f *Field) Fill(val float64) {
	for i := range f.Data {
		f.Data[i] = val
	}
}

// CopyFrom overwrites f's values with g's, g must be compatible
func (f *Field) CopyFrom(g *Field) {
	f.checkCompatible(g, "CopyFrom")
	copy(f.Data, g.Data)
}

// ZLine returns the slice of z values at (x, y), aliased to the field storage
func (f *Field) ZLine(x, y int) []float64 {
	ind := f.Nz * (y + f.Ny*x)
	return f.Data[ind : ind+f.Nz]
}
