package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypes(t *testing.T) {
	{ // Location parsing and expansion
		for label, loc := range map[string]CellLoc{
			"CELL_CENTRE": CELL_CENTRE, "xlow": CELL_XLOW, " YLow ": CELL_YLOW, "cell_zlow": CELL_ZLOW,
		} {
			c, err := NewCellLoc(label)
			assert.NoError(t, err)
			assert.Equal(t, loc, c)
		}
		_, err := NewCellLoc("corner")
		assert.Error(t, err)
		x, y, z := CELL_VSHIFT.Expand()
		assert.Equal(t, []CellLoc{CELL_XLOW, CELL_YLOW, CELL_ZLOW}, []CellLoc{x, y, z})
		x, y, z = CELL_CENTRE.Expand()
		assert.Equal(t, []CellLoc{CELL_CENTRE, CELL_CENTRE, CELL_CENTRE}, []CellLoc{x, y, z})
		assert.False(t, CELL_VSHIFT.IsReal())
		assert.False(t, CELL_DEFAULT.IsReal())
		assert.True(t, CELL_ZLOW.IsReal())
		d, ok := CELL_YLOW.StaggerAxis()
		assert.True(t, ok)
		assert.Equal(t, Y, d)
		_, ok = CELL_CENTRE.StaggerAxis()
		assert.False(t, ok)
		assert.Equal(t, CELL_ZLOW, Z.Low())
		assert.Equal(t, "CELL_XLOW", CELL_XLOW.String())
	}
	{ // Method names
		m, err := NewDiffMethod("c4")
		assert.NoError(t, err)
		assert.Equal(t, DIFF_C4, m)
		assert.Equal(t, "C4", m.Key())
		assert.Equal(t, "Fourth order central", m.Description())
		_, err = NewDiffMethod("Q9")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "SPLIT")
		assert.True(t, UPWIND.IsFlow())
		assert.False(t, SECOND.IsFlow())
	}
}
