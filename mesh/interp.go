package mesh

import (
	"fmt"

	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/stencils"
	"github.com/notargets/plasmamesh/types"
)

/*
InterpTo moves f to loc with fourth order midpoint interpolation along the
staggered axis. Points too close to the end of a line for four points use the
two point average, and on the very end keep f's value. Moving between two
staggered locations goes through the cell centre.
*/
func (m *Mesh) InterpTo(f *field.Field, loc types.CellLoc) (r *field.Field) {
	if loc == types.CELL_DEFAULT || loc == f.Loc {
		return f.Copy()
	}
	if !loc.IsReal() {
		panic(fmt.Errorf("cannot interpolate to %s", loc))
	}
	if f.Loc != types.CELL_CENTRE && loc != types.CELL_CENTRE {
		return m.InterpTo(m.InterpTo(f, types.CELL_CENTRE), loc)
	}
	var (
		toLow  = loc != types.CELL_CENTRE
		dir, _ = loc.StaggerAxis()
		n      = [...]int{f.Nx, f.Ny, f.Nz}
	)
	if !toLow {
		dir, _ = f.Loc.StaggerAxis()
	}
	periodic := dir == types.Z
	r = f.WithLocation(loc)
	if n[dir] == 1 {
		return
	}
	var (
		in = axisLine{data: f.Data, stride: stride(f, dir), n: n[dir], periodic: periodic}
		nl = n[dir]
	)
	// Output i sits between inputs a and a+1
	first := 0
	if toLow {
		first = -1
	}
	each := func(base int) {
		in.base = base
		for i := 0; i < nl; i++ {
			a := i + first
			var val float64
			switch {
			case periodic || (a-1 >= 0 && a+2 < nl):
				val = stencils.Interp4(in.at(a-1), in.at(a), in.at(a+1), in.at(a+2))
			case a >= 0 && a+1 < nl:
				val = 0.5 * (in.at(a) + in.at(a+1))
			default:
				continue
			}
			r.Data[base+i*in.stride] = val
		}
	}
	switch dir {
	case types.X:
		for y := 0; y < f.Ny; y++ {
			for z := 0; z < f.Nz; z++ {
				each(z + f.Nz*y)
			}
		}
	case types.Y:
		for x := 0; x < f.Nx; x++ {
			for z := 0; z < f.Nz; z++ {
				each(z + f.Nz*f.Ny*x)
			}
		}
	case types.Z:
		for x := 0; x < f.Nx; x++ {
			for y := 0; y < f.Ny; y++ {
				each(f.Nz * (y + f.Ny*x))
			}
		}
	}
	return
}
