// Package vecops holds the derivatives in metric units and the vector
// calculus operators built on them: Grad, Grad_perp, Div, Curl and V_dot_Grad.
package vecops

import (
	"fmt"

	"github.com/notargets/plasmamesh/coords"
	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/mesh"
	"github.com/notargets/plasmamesh/types"
)

// Config selects the differencing method and output location of a call. The
// zero value uses the mesh defaults and the input location.
type Config struct {
	Method    types.DiffMethod
	Outloc    types.CellLoc
	IncXBndry bool // Z derivatives only, also evaluate the x guard cells
}

type Operators struct {
	m *mesh.Mesh
}

func New(m *mesh.Mesh) *Operators {
	return &Operators{m: m}
}

func (o *Operators) Mesh() *mesh.Mesh { return o.m }

func (o *Operators) coords(loc types.CellLoc) *coords.Coordinates {
	return o.m.CoordinatesAt(loc)
}

// over divides r in place by a metric quantity. Metric quantities are constant
// in z so this holds for field aligned data too.
func over(r, d *field.Field) *field.Field {
	if !r.SameShape(d) || r.Loc != d.Loc {
		panic(fmt.Errorf("metric at %s does not match a field at %s", d.Loc, r.Loc))
	}
	for i := range r.Data {
		r.Data[i] /= d.Data[i]
	}
	return r
}

// aligned runs a y derivative in the field aligned frame unless the inputs
// are already aligned
func (o *Operators) aligned(fn func(fs ...*field.Field) *field.Field, fs ...*field.Field) *field.Field {
	if fs[0].Aligned {
		return fn(fs...)
	}
	al := make([]*field.Field, len(fs))
	for i, f := range fs {
		al[i] = o.m.ToFieldAligned(f)
	}
	return o.m.FromFieldAligned(fn(al...))
}

func (o *Operators) DDX(f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexDDX(f, cfg.Outloc, cfg.Method)
	return over(r, o.coords(r.Loc).Dx)
}

func (o *Operators) DDY(f *field.Field, cfg Config) *field.Field {
	r := o.aligned(func(fs ...*field.Field) *field.Field {
		return o.m.IndexDDY(fs[0], cfg.Outloc, cfg.Method)
	}, f)
	return over(r, o.coords(r.Loc).Dy)
}

func (o *Operators) DDZ(f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexDDZ(f, cfg.Outloc, cfg.Method, cfg.IncXBndry)
	return r.Scale(1 / o.coords(r.Loc).Dz)
}

func (o *Operators) D2DX2(f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexD2DX2(f, cfg.Outloc, cfg.Method)
	dx := o.coords(r.Loc).Dx
	return over(over(r, dx), dx)
}

func (o *Operators) D2DY2(f *field.Field, cfg Config) *field.Field {
	r := o.aligned(func(fs ...*field.Field) *field.Field {
		return o.m.IndexD2DY2(fs[0], cfg.Outloc, cfg.Method)
	}, f)
	dy := o.coords(r.Loc).Dy
	return over(over(r, dy), dy)
}

func (o *Operators) D2DZ2(f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexD2DZ2(f, cfg.Outloc, cfg.Method, cfg.IncXBndry)
	dz := o.coords(r.Loc).Dz
	return r.Scale(1 / (dz * dz))
}

func (o *Operators) D4DX4(f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexD4DX4(f, cfg.Outloc, cfg.Method)
	dx := o.coords(r.Loc).Dx
	return over(over(over(over(r, dx), dx), dx), dx)
}

func (o *Operators) D4DY4(f *field.Field, cfg Config) *field.Field {
	r := o.aligned(func(fs ...*field.Field) *field.Field {
		return o.m.IndexD4DY4(fs[0], cfg.Outloc, cfg.Method)
	}, f)
	dy := o.coords(r.Loc).Dy
	return over(over(over(over(r, dy), dy), dy), dy)
}

func (o *Operators) D4DZ4(f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexD4DZ4(f, cfg.Outloc, cfg.Method, cfg.IncXBndry)
	dz := o.coords(r.Loc).Dz
	return r.Scale(1 / (dz * dz * dz * dz))
}

// VDDX is v df/dx, upwinded on the sign of v
func (o *Operators) VDDX(v, f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexVDDX(v, f, cfg.Outloc, cfg.Method)
	return over(r, o.coords(r.Loc).Dx)
}

func (o *Operators) VDDY(v, f *field.Field, cfg Config) *field.Field {
	r := o.aligned(func(fs ...*field.Field) *field.Field {
		return o.m.IndexVDDY(fs[0], fs[1], cfg.Outloc, cfg.Method)
	}, v, f)
	return over(r, o.coords(r.Loc).Dy)
}

func (o *Operators) VDDZ(v, f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexVDDZ(v, f, cfg.Outloc, cfg.Method)
	return r.Scale(1 / o.coords(r.Loc).Dz)
}

// FDDX is the conservative d(v f)/dx
func (o *Operators) FDDX(v, f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexFDDX(v, f, cfg.Outloc, cfg.Method)
	return over(r, o.coords(r.Loc).Dx)
}

func (o *Operators) FDDY(v, f *field.Field, cfg Config) *field.Field {
	r := o.aligned(func(fs ...*field.Field) *field.Field {
		return o.m.IndexFDDY(fs[0], fs[1], cfg.Outloc, cfg.Method)
	}, v, f)
	return over(r, o.coords(r.Loc).Dy)
}

func (o *Operators) FDDZ(v, f *field.Field, cfg Config) *field.Field {
	r := o.m.IndexFDDZ(v, f, cfg.Outloc, cfg.Method)
	return r.Scale(1 / o.coords(r.Loc).Dz)
}
