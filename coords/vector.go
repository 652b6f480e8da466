package coords

import (
	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/types"
)

// ToCovariant returns v with lowered indices, v_i = g_ij v^j. The metric used
// is the one at the vector's location, per component for CELL_VSHIFT.
func (c *Coordinates) ToCovariant(v field.Vector) field.Vector {
	if v.Covariant {
		return v.Copy()
	}
	r := c.convert(v, false)
	r.Covariant = true
	return r
}

// ToContravariant returns v with raised indices, v^i = g^ij v_j
func (c *Coordinates) ToContravariant(v field.Vector) field.Vector {
	if !v.Covariant {
		return v.Copy()
	}
	r := c.convert(v, true)
	r.Covariant = false
	return r
}

func (c *Coordinates) convert(v field.Vector, raise bool) (r field.Vector) {
	var (
		m    = c.mesh
		comp = [3]*field.Field{v.X, v.Y, v.Z}
		out  [3]*field.Field
	)
	for i := types.X; i <= types.Z; i++ {
		var (
			loc = comp[i].Loc
			ci  = c
		)
		if loc != c.Location {
			ci = m.CoordinatesAt(loc)
		}
		out[i] = field.NewLike(comp[i])
		for j := types.X; j <= types.Z; j++ {
			vj := comp[j]
			if vj.Loc != loc {
				vj = m.InterpTo(vj, loc)
			}
			g := ci.Covariant(i, j)
			if raise {
				g = ci.Contravariant(i, j)
			}
			for n := range vj.Data {
				out[i].Data[n] += g.Data[n] * vj.Data[n]
			}
		}
	}
	return field.Vector{X: out[0], Y: out[1], Z: out[2]}
}
