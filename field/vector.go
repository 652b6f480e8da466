package field

import (
	"fmt"

	"github.com/notargets/plasmamesh/types"
)

// Vector is a rank-1 field held as covariant or contravariant components
type Vector struct {
	X, Y, Z   *Field
	Covariant bool
}

// NewVector allocates zero components. CELL_VSHIFT places each component
// half a cell down along its own axis.
func NewVector(Nx, Ny, Nz int, loc types.CellLoc, covariant bool) (v Vector) {
	lx, ly, lz := loc.Expand()
	v = Vector{
		X:         New(Nx, Ny, Nz, lx),
		Y:         New(Nx, Ny, Nz, ly),
		Z:         New(Nx, Ny, Nz, lz),
		Covariant: covariant,
	}
	return
}

func NewVectorFrom(x, y, z *Field, covariant bool) Vector {
	return Vector{X: x, Y: y, Z: z, Covariant: covariant}
}

// Copy is deep, the result shares no storage with v
func (v Vector) Copy() Vector {
	return Vector{
		X:         v.X.Copy(),
		Y:         v.Y.Copy(),
		Z:         v.Z.Copy(),
		Covariant: v.Covariant,
	}
}

func (v Vector) Component(d types.Direction) *Field {
	return [...]*Field{v.X, v.Y, v.Z}[d]
}

// Location is the common component location, CELL_VSHIFT for the
// staggered vector layout
func (v Vector) Location() types.CellLoc {
	switch {
	case v.X.Loc == v.Y.Loc && v.Y.Loc == v.Z.Loc:
		return v.X.Loc
	case v.X.Loc == types.CELL_XLOW && v.Y.Loc == types.CELL_YLOW && v.Z.Loc == types.CELL_ZLOW:
		return types.CELL_VSHIFT
	}
	panic(fmt.Errorf("vector components at inconsistent locations %s, %s, %s",
		v.X.Loc, v.Y.Loc, v.Z.Loc))
}

func (v Vector) checkKind(w Vector, op string) {
	if v.Covariant != w.Covariant {
		panic(fmt.Errorf("%s: vectors must both be covariant or both contravariant, convert one first", op))
	}
}

func (v Vector) Add(w Vector) Vector {
	v.checkKind(w, "Add")
	return Vector{v.X.Add(w.X), v.Y.Add(w.Y), v.Z.Add(w.Z), v.Covariant}
}

func (v Vector) Sub(w Vector) Vector {
	v.checkKind(w, "Sub")
	return Vector{v.X.Sub(w.X), v.Y.Sub(w.Y), v.Z.Sub(w.Z), v.Covariant}
}

func (v Vector) Scale(s float64) Vector {
	return Vector{v.X.Scale(s), v.Y.Scale(s), v.Z.Scale(s), v.Covariant}
}

// Mul multiplies every component by the scalar field f
func (v Vector) Mul(f *Field) Vector {
	return Vector{v.X.Mul(f), v.Y.Mul(f), v.Z.Mul(f), v.Covariant}
}
