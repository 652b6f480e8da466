package types

import (
	"fmt"
	"strings"
)

// CellLoc is the position of a quantity within a grid cell
type CellLoc uint8

const (
	CELL_DEFAULT CellLoc = iota // Inherit from the operand
	CELL_CENTRE
	CELL_XLOW
	CELL_YLOW
	CELL_ZLOW
	CELL_VSHIFT // Vector staggering, expands to (XLOW, YLOW, ZLOW)
)

var cellLocNames = [...]string{
	"CELL_DEFAULT",
	"CELL_CENTRE",
	"CELL_XLOW",
	"CELL_YLOW",
	"CELL_ZLOW",
	"CELL_VSHIFT",
}

var CellLocNameMap = map[string]CellLoc{
	"default": CELL_DEFAULT,
	"centre":  CELL_CENTRE,
	"center":  CELL_CENTRE,
	"xlow":    CELL_XLOW,
	"ylow":    CELL_YLOW,
	"zlow":    CELL_ZLOW,
	"vshift":  CELL_VSHIFT,
}

func (c CellLoc) String() string {
	if int(c) < len(cellLocNames) {
		return cellLocNames[c]
	}
	return fmt.Sprintf("CellLoc(%d)", uint8(c))
}

func NewCellLoc(label string) (c CellLoc, err error) {
	var ok bool
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(label)), "cell_")
	if c, ok = CellLocNameMap[key]; !ok {
		err = fmt.Errorf("unknown cell location %q", label)
	}
	return
}

// IsReal is false for the meta locations DEFAULT and VSHIFT
func (c CellLoc) IsReal() bool {
	return c >= CELL_CENTRE && c <= CELL_ZLOW
}

// Expand returns the per-axis locations, resolving VSHIFT
func (c CellLoc) Expand() (x, y, z CellLoc) {
	if c == CELL_VSHIFT {
		return CELL_XLOW, CELL_YLOW, CELL_ZLOW
	}
	return c, c, c
}

// StaggerAxis reports the axis a real location is shifted along, ok is false
// for CELL_CENTRE
func (c CellLoc) StaggerAxis() (d Direction, ok bool) {
	switch c {
	case CELL_XLOW:
		return X, true
	case CELL_YLOW:
		return Y, true
	case CELL_ZLOW:
		return Z, true
	}
	return X, false
}

// Direction is one of the three logical grid axes
type Direction uint8

const (
	X Direction = iota
	Y
	Z
)

func (d Direction) String() string {
	return [...]string{"x", "y", "z"}[d]
}

// Low is the location staggered half a cell down along this axis
func (d Direction) Low() CellLoc {
	return [...]CellLoc{CELL_XLOW, CELL_YLOW, CELL_ZLOW}[d]
}

// RegionKind classifies a guard region
type RegionKind uint8

const (
	REGION_SEAM     RegionKind = iota // Filled by communication with a neighbour
	REGION_BOUNDARY                   // Physical domain boundary, filled by boundary conditions
)

func (r RegionKind) String() string {
	if r == REGION_BOUNDARY {
		return "boundary"
	}
	return "seam"
}
