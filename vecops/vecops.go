package vecops

import (
	"github.com/notargets/plasmamesh/coords"
	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/types"
)

func orLoc(loc, def types.CellLoc) types.CellLoc {
	if loc == types.CELL_DEFAULT {
		return def
	}
	return loc
}

// at moves f to loc when it is stored elsewhere
func (o *Operators) at(f *field.Field, loc types.CellLoc) *field.Field {
	if f.Loc == loc {
		return f
	}
	return o.m.InterpTo(f, loc)
}

/*
Grad returns the covariant gradient of f. CELL_VSHIFT puts each component
half a cell down along its own axis.
*/
func (o *Operators) Grad(f *field.Field, outloc types.CellLoc) field.Vector {
	ox, oy, oz := outloc.Expand()
	return o.GradLoc(f, ox, oy, oz)
}

// GradLoc places each component separately, CELL_DEFAULT keeps f's location
func (o *Operators) GradLoc(f *field.Field, ox, oy, oz types.CellLoc) field.Vector {
	return field.Vector{
		X:         o.DDX(f, Config{Outloc: orLoc(ox, f.Loc)}),
		Y:         o.DDY(f, Config{Outloc: orLoc(oy, f.Loc)}),
		Z:         o.DDZ(f, Config{Outloc: orLoc(oz, f.Loc)}),
		Covariant: true,
	}
}

// GradPerp removes the parallel part of the gradient, the y component is zero
func (o *Operators) GradPerp(f *field.Field, ox, oy, oz types.CellLoc) field.Vector {
	ox, oy, oz = orLoc(ox, f.Loc), orLoc(oy, f.Loc), orLoc(oz, f.Loc)
	// d - g dpar/(J B)^2 with g the cross metric term
	perp := func(d *field.Field, c *coords.Coordinates, g *field.Field) *field.Field {
		dpar := o.DDY(f, Config{Outloc: c.Location})
		for i := range d.Data {
			parcoef := 1 / (c.J.Data[i] * c.Bxy.Data[i])
			d.Data[i] -= parcoef * parcoef * g.Data[i] * dpar.Data[i]
		}
		return d
	}
	cx, cz := o.coords(ox), o.coords(oz)
	return field.Vector{
		X:         perp(o.DDX(f, Config{Outloc: ox}), cx, cx.G_12),
		Y:         o.m.NewField(oy),
		Z:         perp(o.DDZ(f, Config{Outloc: oz}), cz, cz.G_23),
		Covariant: true,
	}
}

// Div is the divergence of v at outloc, the cell centre by default
func (o *Operators) Div(v field.Vector, outloc types.CellLoc) *field.Field {
	outloc = orLoc(outloc, types.CELL_CENTRE)
	vcn := o.flux(v)
	cfg := Config{Outloc: outloc}
	r := o.DDX(vcn.X, cfg).Add(o.DDY(vcn.Y, cfg)).Add(o.DDZ(vcn.Z, cfg))
	return over(r, o.coords(outloc).J)
}

// DivFlux is the divergence of v f in conservative form
func (o *Operators) DivFlux(v field.Vector, f *field.Field, cfg Config) *field.Field {
	cfg.Outloc = orLoc(cfg.Outloc, types.CELL_CENTRE)
	vcn := o.flux(v)
	r := o.FDDX(vcn.X, f, cfg).Add(o.FDDY(vcn.Y, f, cfg)).Add(o.FDDZ(vcn.Z, f, cfg))
	return over(r, o.coords(cfg.Outloc).J)
}

// flux returns J v^i, each component with the Jacobian at its own location
func (o *Operators) flux(v field.Vector) (r field.Vector) {
	vcn := o.coords(v.X.Loc).ToContravariant(v)
	comp := [3]*field.Field{vcn.X, vcn.Y, vcn.Z}
	for i, c := range comp {
		comp[i] = o.coords(c.Loc).J.Mul(c)
	}
	return field.Vector{X: comp[0], Y: comp[1], Z: comp[2]}
}

// Curl returns the contravariant curl of v
func (o *Operators) Curl(v field.Vector, outloc types.CellLoc) field.Vector {
	if outloc == types.CELL_DEFAULT {
		outloc = v.Location()
	}
	ox, oy, oz := outloc.Expand()
	return o.CurlLoc(v, ox, oy, oz)
}

func (o *Operators) CurlLoc(v field.Vector, ox, oy, oz types.CellLoc) (r field.Vector) {
	var (
		vco        = o.coords(v.X.Loc).ToCovariant(v)
		lx, ly, lz = v.Location().Expand()
	)
	ox, oy, oz = orLoc(ox, lx), orLoc(oy, ly), orLoc(oz, lz)
	cx, cy, cz := Config{Outloc: ox}, Config{Outloc: oy}, Config{Outloc: oz}
	r = field.Vector{
		X: over(o.DDY(vco.Z, cx).Sub(o.DDZ(vco.Y, cx)), o.coords(ox).J),
		Y: over(o.DDZ(vco.X, cy).Sub(o.DDX(vco.Z, cy)), o.coords(oy).J),
		Z: over(o.DDX(vco.Y, cz).Sub(o.DDY(vco.X, cz)), o.coords(oz).J),
	}
	if o.m.ShiftXderivs {
		var (
			c  = o.coords(oz)
			vz = o.at(vco.Z, oz)
		)
		for i := range r.Z.Data {
			r.Z.Data[i] -= c.ShiftTorsion.Data[i] * vz.Data[i] / c.J.Data[i]
		}
	}
	return
}

// VDotGrad is v.Grad(f), upwinded with the contravariant components of v
func (o *Operators) VDotGrad(v field.Vector, f *field.Field, cfg Config) *field.Field {
	return o.vDotGrad(o.coords(v.X.Loc).ToContravariant(v), f, cfg)
}

func (o *Operators) vDotGrad(vcn field.Vector, f *field.Field, cfg Config) *field.Field {
	return o.VDDX(o.velocity(vcn.X, f, types.X), f, cfg).
		Add(o.VDDY(o.velocity(vcn.Y, f, types.Y), f, cfg)).
		Add(o.VDDZ(o.velocity(vcn.Z, f, types.Z), f, cfg))
}

// velocity keeps v staggered against f along dir where a staggered upwind
// kernel applies and interpolates it to f's location otherwise
func (o *Operators) velocity(v, f *field.Field, dir types.Direction) *field.Field {
	if v.Loc == f.Loc {
		return v
	}
	low := dir.Low()
	if o.m.StaggerGrids && ((v.Loc == low && f.Loc == types.CELL_CENTRE) || (v.Loc == types.CELL_CENTRE && f.Loc == low)) {
		return v
	}
	return o.m.InterpTo(v, f.Loc)
}

/*
VDotGradVec is the advective derivative of the vector a along v. Besides the
upwinded derivative of each component, the changing basis adds

	covariant a:     - v^j G^k_ji a_k
	contravariant a: + v^j G^i_jk a^k

to component i. The branch follows a.Covariant, the kind of v does not matter.
*/
func (o *Operators) VDotGradVec(v, a field.Vector, cfg Config) field.Vector {
	var (
		vcn  = o.coords(v.X.Loc).ToContravariant(v)
		comp = [3]*field.Field{a.X, a.Y, a.Z}
		out  [3]*field.Field
	)
	for i := types.X; i <= types.Z; i++ {
		var (
			loc = comp[i].Loc
			c   = o.coords(loc)
			r   = o.vDotGrad(vcn, comp[i], cfg)
		)
		for j := types.X; j <= types.Z; j++ {
			vj := o.at(vcn.Component(j), loc)
			for k := types.X; k <= types.Z; k++ {
				var (
					ak   = o.at(comp[k], loc)
					G    = c.Christoffel(i, j, k)
					sign = 1.
				)
				if a.Covariant {
					G, sign = c.Christoffel(k, j, i), -1
				}
				for n := range r.Data {
					r.Data[n] += sign * vj.Data[n] * G.Data[n] * ak.Data[n]
				}
			}
		}
		out[i] = r
	}
	return field.Vector{X: out[0], Y: out[1], Z: out[2], Covariant: a.Covariant}
}
