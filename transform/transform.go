// Package transform maps fields between the standard grid and the field
// aligned grid used for parallel (y) derivatives.
package transform

import (
	"fmt"

	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/stencils"
)

type ParallelTransform interface {
	Name() string
	ToFieldAligned(f *field.Field) *field.Field
	FromFieldAligned(f *field.Field) *field.Field
}

// Identity is used when the grid is already field aligned
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) ToFieldAligned(f *field.Field) (r *field.Field) {
	r = f.Copy()
	r.Aligned = true
	return
}

func (Identity) FromFieldAligned(f *field.Field) (r *field.Field) {
	r = f.Copy()
	r.Aligned = false
	return
}

/*
ShiftedMetric aligns fields by shifting each z line by the local toroidal
shift zShift(x, y). The shift is applied in Fourier space so it is exact for
every resolved mode and exactly invertible.
*/
type ShiftedMetric struct {
	Nx, Ny, Nz int
	ZLength    float64
	zShift     []float64 // Indexed y + Ny*x
}

// NewShiftedMetric takes zShift over the local (x, y) points, any z slice of
// zShift is used
func NewShiftedMetric(zShift *field.Field, zlength float64) (sm *ShiftedMetric) {
	if zlength <= 0 {
		panic(fmt.Errorf("shifted metric needs a positive z length, have %g", zlength))
	}
	sm = &ShiftedMetric{
		Nx: zShift.Nx, Ny: zShift.Ny, Nz: zShift.Nz,
		ZLength: zlength,
		zShift:  make([]float64, zShift.Nx*zShift.Ny),
	}
	for x := 0; x < sm.Nx; x++ {
		for y := 0; y < sm.Ny; y++ {
			sm.zShift[y+sm.Ny*x] = zShift.At(x, y, 0)
		}
	}
	return
}

func (sm *ShiftedMetric) Name() string { return "shifted" }

func (sm *ShiftedMetric) ToFieldAligned(f *field.Field) (r *field.Field) {
	if f.Aligned {
		panic(fmt.Errorf("field is already field aligned"))
	}
	r = sm.shift(f, -1)
	r.Aligned = true
	return
}

func (sm *ShiftedMetric) FromFieldAligned(f *field.Field) (r *field.Field) {
	if !f.Aligned {
		panic(fmt.Errorf("field is not field aligned"))
	}
	r = sm.shift(f, 1)
	r.Aligned = false
	return
}

func (sm *ShiftedMetric) shift(f *field.Field, sign float64) (r *field.Field) {
	if f.Nx != sm.Nx || f.Ny != sm.Ny || f.Nz != sm.Nz {
		panic(fmt.Errorf("field %dx%dx%d does not match the shifted metric %dx%dx%d",
			f.Nx, f.Ny, f.Nz, sm.Nx, sm.Ny, sm.Nz))
	}
	r = f.Copy()
	ShiftZ(r, sm.ZLength, func(x, y int) float64 { return sign * sm.zShift[y+sm.Ny*x] })
	return
}

// ShiftZ shifts every z line of f in place, f(x, y, z) becomes
// f(x, y, z + angle(x, y)) for a periodic z of length zlength
func ShiftZ(f *field.Field, zlength float64, angle func(x, y int) float64) {
	if f.Nz == 1 {
		return
	}
	var (
		sp  = stencils.NewSpectral(f.Nz)
		tmp = make([]float64, f.Nz)
	)
	for x := 0; x < f.Nx; x++ {
		for y := 0; y < f.Ny; y++ {
			a := angle(x, y)
			if a == 0 {
				continue
			}
			line := f.ZLine(x, y)
			sp.Shift(tmp, line, a/zlength)
			copy(line, tmp)
		}
	}
}
