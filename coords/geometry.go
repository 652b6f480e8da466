package coords

import (
	"fmt"
	"math"

	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/types"
)

// Geometry communicates and checks the metric, then computes the Christoffel
// symbols and the G1..G3 coefficients of the Laplacian
func (c *Coordinates) Geometry() (err error) {
	m := c.mesh
	if err = m.Communicate(c.Dx, c.Dy, c.G11, c.G22, c.G33, c.G12, c.G13, c.G23,
		c.G_11, c.G_22, c.G_33, c.G_12, c.G_13, c.G_23, c.J, c.Bxy); err != nil {
		return fmt.Errorf("communicating metric: %w", err)
	}
	if err = c.check(); err != nil {
		return
	}
	var (
		contra, cov = c.metric()
		// dg[d][a][b] is the derivative of g_ab along d
		dg [3][3][3]*field.Field
	)
	for a := 0; a < 3; a++ {
		for b := a; b < 3; b++ {
			dg[0][a][b] = m.IndexDDX(cov[a][b], c.Location, types.DIFF_DEFAULT).Div(c.Dx)
			dg[1][a][b] = m.IndexDDY(cov[a][b], c.Location, types.DIFF_DEFAULT).Div(c.Dy)
			// Metric varies in (x, y) only
			dg[2][a][b] = field.NewLike(cov[a][b])
			for d := 0; d < 3; d++ {
				dg[d][b][a] = dg[d][a][b]
			}
		}
	}
	// G^k_ij = 1/2 g^kl (d_i g_lj + d_j g_li - d_l g_ij)
	var G [3][3][3]*field.Field
	for k := 0; k < 3; k++ {
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				r := field.NewLike(c.G11)
				for l := 0; l < 3; l++ {
					gkl := contra[k][l]
					for n := range r.Data {
						r.Data[n] += 0.5 * gkl.Data[n] *
							(dg[i][l][j].Data[n] + dg[j][l][i].Data[n] - dg[l][i][j].Data[n])
					}
				}
				G[k][i][j], G[k][j][i] = r, r
			}
		}
	}
	c.G1_11, c.G1_22, c.G1_33, c.G1_12, c.G1_13, c.G1_23 = G[0][0][0], G[0][1][1], G[0][2][2], G[0][0][1], G[0][0][2], G[0][1][2]
	c.G2_11, c.G2_22, c.G2_33, c.G2_12, c.G2_13, c.G2_23 = G[1][0][0], G[1][1][1], G[1][2][2], G[1][0][1], G[1][0][2], G[1][1][2]
	c.G3_11, c.G3_22, c.G3_33, c.G3_12, c.G3_13, c.G3_23 = G[2][0][0], G[2][1][1], G[2][2][2], G[2][0][1], G[2][0][2], G[2][1][2]

	// Gi = 1/J d_j(J g^ij), no z dependence
	var Gi [3]*field.Field
	for i := 0; i < 3; i++ {
		Gi[i] = m.IndexDDX(c.J.Mul(contra[i][0]), c.Location, types.DIFF_DEFAULT).Div(c.Dx).
			Add(m.IndexDDY(c.J.Mul(contra[i][1]), c.Location, types.DIFF_DEFAULT).Div(c.Dy)).
			Div(c.J)
	}
	c.G1, c.G2, c.G3 = Gi[0], Gi[1], Gi[2]

	if err = m.Communicate(c.G1_11, c.G1_22, c.G1_33, c.G1_12, c.G1_13, c.G1_23,
		c.G2_11, c.G2_22, c.G2_33, c.G2_12, c.G2_13, c.G2_23,
		c.G3_11, c.G3_22, c.G3_33, c.G3_12, c.G3_13, c.G3_23,
		c.G1, c.G2, c.G3); err != nil {
		return fmt.Errorf("communicating Christoffel symbols: %w", err)
	}
	return
}

// check requires a finite metric with positive diagonal and finite non zero J
// over the interior
func (c *Coordinates) check() (err error) {
	var (
		xs, xe, ys, ye = c.mesh.Interior()
	)
	for _, q := range []struct {
		name     string
		f        *field.Field
		positive bool
	}{
		{"dx", c.Dx, true}, {"dy", c.Dy, true},
		{"g11", c.G11, true}, {"g22", c.G22, true}, {"g33", c.G33, true},
		{"g12", c.G12, false}, {"g13", c.G13, false}, {"g23", c.G23, false},
		{"g_11", c.G_11, true}, {"g_22", c.G_22, true}, {"g_33", c.G_33, true},
		{"g_12", c.G_12, false}, {"g_13", c.G_13, false}, {"g_23", c.G_23, false},
		{"J", c.J, false}, {"Bxy", c.Bxy, false},
	} {
		for x := xs; x <= xe; x++ {
			for y := ys; y <= ye; y++ {
				val := q.f.At(x, y, 0)
				switch {
				case math.IsNaN(val) || math.IsInf(val, 0):
					return fmt.Errorf("%s is not finite at (%d, %d)", q.name, x, y)
				case q.positive && val <= 0:
					return fmt.Errorf("%s is not positive at (%d, %d), %g", q.name, x, y, val)
				case q.name == "J" && val == 0:
					return fmt.Errorf("J is zero at (%d, %d)", x, y)
				}
			}
		}
	}
	return
}

// Contravariant returns g^ij
func (c *Coordinates) Contravariant(i, j types.Direction) *field.Field {
	contra, _ := c.metric()
	return contra[i][j]
}

// Covariant returns g_ij
func (c *Coordinates) Covariant(i, j types.Direction) *field.Field {
	_, cov := c.metric()
	return cov[i][j]
}

// Christoffel returns G^k_ij
func (c *Coordinates) Christoffel(k, i, j types.Direction) *field.Field {
	if i > j {
		i, j = j, i
	}
	G := [3][6]*field.Field{
		{c.G1_11, c.G1_12, c.G1_13, c.G1_22, c.G1_23, c.G1_33},
		{c.G2_11, c.G2_12, c.G2_13, c.G2_22, c.G2_23, c.G2_33},
		{c.G3_11, c.G3_12, c.G3_13, c.G3_22, c.G3_23, c.G3_33},
	}
	// Packed upper triangle, row i starts at 3i - i(i-1)/2
	return G[k][3*int(i)-int(i)*(int(i)-1)/2+int(j-i)]
}

// D returns the grid spacing along d, dz as a constant field
func (c *Coordinates) D(d types.Direction) *field.Field {
	switch d {
	case types.X:
		return c.Dx
	case types.Y:
		return c.Dy
	}
	return field.NewConst(c.Dx.Nx, c.Dx.Ny, c.Dx.Nz, c.Dz, c.Location)
}
