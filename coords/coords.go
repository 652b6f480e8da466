// Package coords holds the metric tensor of a mesh at one cell location and the
// geometric quantities derived from it.
package coords

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/griddata"
	"github.com/notargets/plasmamesh/types"
)

// Mesh is what the coordinates need from the mesh that owns them
type Mesh interface {
	LocalSize() (nx, ny, nz int)
	Interior() (xstart, xend, ystart, yend int)
	Get(name string, def float64) (*field.Field, error)
	ZLength() float64
	Communicate(fields ...*field.Field) error
	IndexDDX(f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field
	IndexDDY(f *field.Field, outloc types.CellLoc, method types.DiffMethod) *field.Field
	InterpTo(f *field.Field, loc types.CellLoc) *field.Field
	CoordinatesAt(loc types.CellLoc) *Coordinates
	Logger() *slog.Logger
}

/*
Coordinates of one mesh location. All quantities vary in (x, y) only and are
stored as fields constant in z.

	G11..G23     contravariant metric g^ij
	G_11..G_23   covariant metric g_ij
	G1_11..G3_33 Christoffel symbols of the second kind G^k_ij
*/
type Coordinates struct {
	mesh     Mesh
	Location types.CellLoc

	Dx, Dy *field.Field
	Dz     float64

	G11, G22, G33, G12, G13, G23       *field.Field
	G_11, G_22, G_33, G_12, G_13, G_23 *field.Field

	J, Bxy *field.Field

	G1_11, G1_22, G1_33, G1_12, G1_13, G1_23 *field.Field
	G2_11, G2_22, G2_33, G2_12, G2_13, G2_23 *field.Field
	G3_11, G3_22, G3_33, G3_12, G3_13, G3_23 *field.Field
	G1, G2, G3                               *field.Field

	ShiftTorsion    *field.Field // d(pitch angle)/dx
	IntShiftTorsion *field.Field // Integrated shear, used when IncIntShear is set
}

// New builds the coordinates at loc. Centre coordinates are read from the grid,
// staggered ones are interpolated from the centre coordinates of m.
func New(m Mesh, loc types.CellLoc) (c *Coordinates, err error) {
	if loc == types.CELL_DEFAULT {
		loc = types.CELL_CENTRE
	}
	if !loc.IsReal() {
		return nil, fmt.Errorf("coordinates cannot be located at %s", loc)
	}
	c = &Coordinates{mesh: m, Location: loc}
	if loc == types.CELL_CENTRE {
		if err = c.read(); err != nil {
			return nil, err
		}
	} else {
		c.interpolate(m.CoordinatesAt(types.CELL_CENTRE))
		if err = c.CalcCovariant(); err != nil {
			return nil, fmt.Errorf("coordinates at %s: %w", loc, err)
		}
	}
	if err = c.Geometry(); err != nil {
		return nil, fmt.Errorf("coordinates at %s: %w", loc, err)
	}
	return
}

func (c *Coordinates) read() (err error) {
	var (
		log = c.mesh.Logger()
		get = func(name string, def float64) (f *field.Field) {
			if err != nil {
				return
			}
			var gerr error
			if f, gerr = c.mesh.Get(name, def); gerr != nil {
				if !errors.Is(gerr, griddata.ErrNotFound) {
					err = gerr
					return
				}
				log.Debug("grid variable not found, using default", "name", name, "default", def)
			}
			return
		}
		_, _, nz = c.mesh.LocalSize()
	)
	c.Dx, c.Dy = get("dx", 1), get("dy", 1)
	c.Dz = c.mesh.ZLength() / float64(nz)

	c.G11, c.G22, c.G33 = get("g11", 1), get("g22", 1), get("g33", 1)
	c.G12, c.G13, c.G23 = get("g12", 0), get("g13", 0), get("g23", 0)
	c.ShiftTorsion = get("ShiftTorsion", 0)
	c.IntShiftTorsion = get("IntShiftTorsion", 0)
	if err != nil {
		return
	}
	if err = c.CalcCovariant(); err != nil {
		return
	}

	Jcalc := c.jacobian()
	if J, gerr := c.mesh.Get("J", 0); gerr == nil {
		c.J = J
		if d := maxRelDiff(J, Jcalc); d > 1.e-6 {
			log.Warn("Jacobian in grid differs from metric", "max relative difference", d)
		}
	} else if errors.Is(gerr, griddata.ErrNotFound) {
		c.J = Jcalc
	} else {
		return gerr
	}
	Bcalc := c.G_22.Apply(math.Sqrt).Div(c.J)
	if B, gerr := c.mesh.Get("Bxy", 0); gerr == nil {
		c.Bxy = B
		if d := maxRelDiff(B, Bcalc); d > 1.e-6 {
			log.Warn("Bxy in grid differs from metric", "max relative difference", d)
		}
	} else if errors.Is(gerr, griddata.ErrNotFound) {
		c.Bxy = Bcalc
	} else {
		return gerr
	}
	return
}

func (c *Coordinates) interpolate(centre *Coordinates) {
	var (
		m   = c.mesh
		loc = c.Location
	)
	in := func(f *field.Field) *field.Field { return m.InterpTo(f, loc) }
	c.Dx, c.Dy, c.Dz = in(centre.Dx), in(centre.Dy), centre.Dz
	c.G11, c.G22, c.G33 = in(centre.G11), in(centre.G22), in(centre.G33)
	c.G12, c.G13, c.G23 = in(centre.G12), in(centre.G13), in(centre.G23)
	c.J, c.Bxy = in(centre.J), in(centre.Bxy)
	c.ShiftTorsion, c.IntShiftTorsion = in(centre.ShiftTorsion), in(centre.IntShiftTorsion)
}

// jacobian of the contravariant metric, 1/sqrt(det g^ij)
func (c *Coordinates) jacobian() *field.Field {
	J := field.NewLike(c.G11)
	for i := range J.Data {
		var (
			g11, g22, g33 = c.G11.Data[i], c.G22.Data[i], c.G33.Data[i]
			g12, g13, g23 = c.G12.Data[i], c.G13.Data[i], c.G23.Data[i]
		)
		det := g11*g22*g33 + 2.*g12*g13*g23 - g11*g23*g23 - g22*g13*g13 - g33*g12*g12
		J.Data[i] = 1. / math.Sqrt(det)
	}
	return J
}

func (c *Coordinates) metric() (contra, cov [3][3]*field.Field) {
	contra = [3][3]*field.Field{
		{c.G11, c.G12, c.G13},
		{c.G12, c.G22, c.G23},
		{c.G13, c.G23, c.G33},
	}
	cov = [3][3]*field.Field{
		{c.G_11, c.G_12, c.G_13},
		{c.G_12, c.G_22, c.G_23},
		{c.G_13, c.G_23, c.G_33},
	}
	return
}

// invert computes the pointwise inverse of the symmetric tensor in, returning
// the six independent components in the order 11, 22, 33, 12, 13, 23
func invert(in [3][3]*field.Field) (out [6]*field.Field, err error) {
	var (
		f         = in[0][0]
		a         = mat.NewDense(3, 3, nil)
		inv, prod mat.Dense
		iden      = mat.NewDiagDense(3, []float64{1, 1, 1})
		upper     = [6][2]int{{0, 0}, {1, 1}, {2, 2}, {0, 1}, {0, 2}, {1, 2}}
		maxErr    float64
	)
	for n := range out {
		out[n] = field.NewLike(f)
	}
	for x := 0; x < f.Nx; x++ {
		for y := 0; y < f.Ny; y++ {
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					a.Set(i, j, in[i][j].At(x, y, 0))
				}
			}
			if err = inv.Inverse(a); err != nil {
				return out, fmt.Errorf("metric inversion failed at (%d, %d): %w", x, y, err)
			}
			prod.Mul(a, &inv)
			prod.Sub(&prod, iden)
			if e := mat.Norm(&prod, math.Inf(1)); e > maxErr {
				maxErr = e
			}
			for n, ij := range upper {
				val := inv.At(ij[0], ij[1])
				for z := 0; z < f.Nz; z++ {
					out[n].Set(x, y, z, val)
				}
			}
		}
	}
	if maxErr > 1.e-10 {
		err = fmt.Errorf("metric inversion error %g exceeds tolerance", maxErr)
	}
	return
}

// CalcCovariant inverts g^ij into g_ij
func (c *Coordinates) CalcCovariant() (err error) {
	contra, _ := c.metric()
	var out [6]*field.Field
	if out, err = invert(contra); err != nil {
		return
	}
	c.G_11, c.G_22, c.G_33, c.G_12, c.G_13, c.G_23 = out[0], out[1], out[2], out[3], out[4], out[5]
	return
}

// CalcContravariant inverts g_ij into g^ij
func (c *Coordinates) CalcContravariant() (err error) {
	_, cov := c.metric()
	var out [6]*field.Field
	if out, err = invert(cov); err != nil {
		return
	}
	c.G11, c.G22, c.G33, c.G12, c.G13, c.G23 = out[0], out[1], out[2], out[3], out[4], out[5]
	return
}

func maxRelDiff(a, b *field.Field) (d float64) {
	for i := range a.Data {
		if r := math.Abs(a.Data[i]-b.Data[i]) / math.Max(math.Abs(b.Data[i]), 1.e-300); r > d {
			d = r
		}
	}
	return
}
