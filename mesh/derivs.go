package mesh

import (
	"fmt"

	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/stencils"
	"github.com/notargets/plasmamesh/types"
)

// axisLine reads one line of a field along an axis, starting at base
type axisLine struct {
	data            []float64
	base, stride, n int
	periodic        bool
}

func (l *axisLine) at(j int) float64 {
	if l.periodic {
		j = ((j % l.n) + l.n) % l.n
	}
	return l.data[l.base+j*l.stride]
}

func (m *Mesh) axisSize(dir types.Direction) int {
	return [...]int{m.LocalNx, m.LocalNy, m.LocalNz}[dir]
}

func (m *Mesh) guards(dir types.Direction) int {
	return [...]int{m.MXG, m.MYG, m.LocalNz}[dir]
}

func stride(f *field.Field, dir types.Direction) int {
	return [...]int{f.Ny * f.Nz, f.Nz, 1}[dir]
}

// eachLine calls fn with the base index of every line along dir that the
// derivatives are evaluated on, and the inclusive index range along the line
func (m *Mesh) eachLine(f *field.Field, dir types.Direction, incXBndry bool, fn func(base, lo, hi int)) {
	switch dir {
	case types.X:
		for y := 0; y < f.Ny; y++ {
			for z := 0; z < f.Nz; z++ {
				fn(z+f.Nz*y, m.Xstart, m.Xend)
			}
		}
	case types.Y:
		for x := 0; x < f.Nx; x++ {
			for z := 0; z < f.Nz; z++ {
				fn(z+f.Nz*f.Ny*x, m.Ystart, m.Yend)
			}
		}
	case types.Z:
		xs, xe := m.Xstart, m.Xend
		if incXBndry {
			xs, xe = 0, f.Nx-1
		}
		for x := xs; x <= xe; x++ {
			for y := 0; y < f.Ny; y++ {
				fn(f.Nz*(y+f.Ny*x), 0, f.Nz-1)
			}
		}
	}
}

// derivPlan resolves where a derivative is evaluated. A location change along
// the derivative axis uses a staggered kernel, a change along another axis
// is an interpolation of the input or of the result.
type derivPlan struct {
	outloc   types.CellLoc
	stag     bool
	stagLoc  types.CellLoc
	offset   stencils.Offset
	interpIn types.CellLoc
	interpTo types.CellLoc
}

func (m *Mesh) plan(dir types.Direction, inloc, outloc types.CellLoc) (p derivPlan) {
	if outloc == types.CELL_DEFAULT {
		outloc = inloc
	}
	p.outloc = outloc
	if outloc == inloc {
		return
	}
	if !outloc.IsReal() {
		panic(fmt.Errorf("derivative output at %s: locations must be expanded before differencing", outloc))
	}
	if !m.StaggerGrids {
		panic(fmt.Errorf("derivative from %s to %s needs StaggerGrids enabled", inloc, outloc))
	}
	var (
		low = dir.Low()
	)
	switch {
	case outloc == low:
		// Centre the input first when it is staggered along another axis
		if inloc != types.CELL_CENTRE {
			p.interpIn = types.CELL_CENTRE
		}
		p.stag, p.stagLoc, p.offset = true, low, stencils.ToLow
	case inloc == low:
		p.stag, p.stagLoc, p.offset = true, types.CELL_CENTRE, stencils.ToCentre
		if outloc != types.CELL_CENTRE {
			p.interpTo = outloc
		}
	default:
		// Staggered along other axes only, differentiate then interpolate
		p.interpTo = outloc
	}
	return
}

func (m *Mesh) kernel(dir types.Direction, kind types.DerivKind, stag bool, method types.DiffMethod) (k stencils.Kernel) {
	var err error
	if k, err = m.defaults.Resolve(dir, kind, stag, method); err != nil {
		panic(err)
	}
	if dir != types.Z && k.Width > m.guards(dir) {
		panic(fmt.Errorf("%s method %s along %s needs %d guard cells, the mesh has %d",
			stencils.TableName(kind, stag), k.Method.Key(), dir, k.Width, m.guards(dir)))
	}
	return
}

func (m *Mesh) indexDeriv(dir types.Direction, kind types.DerivKind, f *field.Field,
	outloc types.CellLoc, method types.DiffMethod, incXBndry bool) (r *field.Field) {
	p := m.plan(dir, f.Loc, outloc)
	if m.axisSize(dir) == 1 {
		return NewLikeAt(f, p.outloc)
	}
	k := m.kernel(dir, kind, p.stag, method)
	if p.interpIn != types.CELL_DEFAULT {
		f = m.InterpTo(f, p.interpIn)
	}
	r = NewLikeAt(f, f.Loc)
	if p.stag {
		r.Loc = p.stagLoc
	}
	if k.IsSpectral() {
		m.spectral(kind, f, r, incXBndry)
	} else {
		var (
			in = axisLine{data: f.Data, stride: stride(f, dir), n: m.axisSize(dir), periodic: dir == types.Z}
		)
		m.eachLine(f, dir, incXBndry, func(base, lo, hi int) {
			in.base = base
			for i := lo; i <= hi; i++ {
				r.Data[base+i*in.stride] = k.Deriv(stencils.Gather(in.at, i, p.offset, k.Width))
			}
		})
	}
	if p.interpTo != types.CELL_DEFAULT {
		r = m.InterpTo(r, p.interpTo)
	}
	return
}

func (m *Mesh) spectral(kind types.DerivKind, f, r *field.Field, incXBndry bool) {
	order := 1
	if kind == types.SECOND {
		order = 2
	}
	var (
		sp  = stencils.NewSpectral(f.Nz)
		tmp = make([]float64, f.Nz)
	)
	m.eachLine(f, types.Z, incXBndry, func(base, _, _ int) {
		sp.Derivative(tmp, f.Data[base:base+f.Nz], order)
		copy(r.Data[base:base+f.Nz], tmp)
	})
}

// NewLikeAt allocates a zero field shaped and aligned like f at loc
func NewLikeAt(f *field.Field, loc types.CellLoc) (r *field.Field) {
	r = field.NewLike(f)
	r.Loc = loc
	return
}

// flowPlan resolves a flow derivative: the result is at f's location and a
// velocity staggered against f along the axis selects the staggered kernel
func (m *Mesh) flowPlan(dir types.Direction, v, f *field.Field, outloc types.CellLoc) (stag bool, voff stencils.Offset) {
	if outloc == types.CELL_DEFAULT {
		outloc = f.Loc
	}
	if outloc != f.Loc {
		panic(fmt.Errorf("flow derivative along %s: output location %s must equal the field location %s",
			dir, outloc, f.Loc))
	}
	if v.Loc == f.Loc {
		return false, stencils.Centred
	}
	if !m.StaggerGrids {
		panic(fmt.Errorf("velocity at %s and field at %s need StaggerGrids enabled", v.Loc, f.Loc))
	}
	low := dir.Low()
	switch {
	case v.Loc == low && f.Loc == types.CELL_CENTRE:
		return true, stencils.ToCentre
	case v.Loc == types.CELL_CENTRE && f.Loc == low:
		return true, stencils.ToLow
	}
	panic(fmt.Errorf("unsupported flow derivative along %s with velocity at %s and field at %s",
		dir, v.Loc, f.Loc))
}

func (m *Mesh) indexFlow(dir types.Direction, kind types.DerivKind, v, f *field.Field,
	outloc types.CellLoc, method types.DiffMethod, incXBndry bool) (r *field.Field) {
	if !v.SameShape(f) {
		panic(fmt.Errorf("velocity and field shapes differ"))
	}
	stag, voff := m.flowPlan(dir, v, f, outloc)
	if m.axisSize(dir) == 1 {
		return field.NewLike(f)
	}
	k := m.kernel(dir, kind, stag, method)
	if k.IsSplit() {
		// v df/dx + f dv/dx, with dv/dx taken to f's location
		adv := m.indexFlow(dir, types.UPWIND, v, f, f.Loc, types.DIFF_DEFAULT, incXBndry)
		dv := m.indexDeriv(dir, types.FIRST, v, f.Loc, types.DIFF_DEFAULT, incXBndry)
		return adv.Add(f.Mul(dv))
	}
	r = field.NewLike(f)
	var (
		n   = m.axisSize(dir)
		st  = stride(f, dir)
		fin = axisLine{data: f.Data, stride: st, n: n, periodic: dir == types.Z}
		vin = axisLine{data: v.Data, stride: st, n: n, periodic: dir == types.Z}
	)
	m.eachLine(f, dir, incXBndry, func(base, lo, hi int) {
		fin.base, vin.base = base, base
		for i := lo; i <= hi; i++ {
			var (
				fs  = stencils.Gather(fin.at, i, stencils.Centred, k.Width)
				val float64
			)
			switch {
			case k.Upwind != nil:
				val = k.Upwind(vin.at(i), fs)
			default:
				val = k.Flow(stencils.Gather(vin.at, i, voff, k.Width), fs)
			}
			r.Data[base+i*st] = val
		}
	})
	return
}

/*
	Index space derivatives. Guard cells of the input must be valid; the
	result is zero outside the evaluation range.
*/
func (m *Mesh) IndexDDX(f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexDeriv(types.X, types.FIRST, f, outloc, method, false)
}

func (m *Mesh) IndexDDY(f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexDeriv(types.Y, types.FIRST, f, outloc, method, false)
}

// IndexDDZ includes the x guard cells when incXBndry is set
func (m *Mesh) IndexDDZ(f *field.Field, outloc types.CellLoc, method types.DiffMethod, incXBndry bool) *field.Field {
	return m.indexDeriv(types.Z, types.FIRST, f, outloc, method, incXBndry)
}

func (m *Mesh) IndexD2DX2(f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexDeriv(types.X, types.SECOND, f, outloc, method, false)
}

func (m *Mesh) IndexD2DY2(f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexDeriv(types.Y, types.SECOND, f, outloc, method, false)
}

func (m *Mesh) IndexD2DZ2(f *field.Field, outloc types.CellLoc, method types.DiffMethod, incXBndry bool) *field.Field {
	return m.indexDeriv(types.Z, types.SECOND, f, outloc, method, incXBndry)
}

func (m *Mesh) IndexD4DX4(f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexDeriv(types.X, types.FOURTH, f, outloc, method, false)
}

func (m *Mesh) IndexD4DY4(f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexDeriv(types.Y, types.FOURTH, f, outloc, method, false)
}

func (m *Mesh) IndexD4DZ4(f *field.Field, outloc types.CellLoc, method types.DiffMethod, incXBndry bool) *field.Field {
	return m.indexDeriv(types.Z, types.FOURTH, f, outloc, method, incXBndry)
}

// IndexVDDX is the upwinded v df/dx
func (m *Mesh) IndexVDDX(v, f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexFlow(types.X, types.UPWIND, v, f, outloc, method, false)
}

func (m *Mesh) IndexVDDY(v, f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexFlow(types.Y, types.UPWIND, v, f, outloc, method, false)
}

func (m *Mesh) IndexVDDZ(v, f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexFlow(types.Z, types.UPWIND, v, f, outloc, method, false)
}

// IndexFDDX is the conservative d(v f)/dx
func (m *Mesh) IndexFDDX(v, f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexFlow(types.X, types.FLUX, v, f, outloc, method, false)
}

func (m *Mesh) IndexFDDY(v, f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexFlow(types.Y, types.FLUX, v, f, outloc, method, false)
}

func (m *Mesh) IndexFDDZ(v, f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field {
	return m.indexFlow(types.Z, types.FLUX, v, f, outloc, method, false)
}
