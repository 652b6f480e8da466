package mesh

import (
	"fmt"
)

/*
Topology describes how rows of the global grid connect in y. Rows are the
global interior y indices [0, ny). The x direction splits at Separatrix, a
global x index including the boundary cells: x < Separatrix is "inner" and
follows the inner connections.
*/
type Topology interface {
	Name() string
	Separatrix() int
	// Up is the row above j, -1 at a boundary. twist is set where the line
	// closes on itself so a twist-shift applies.
	Up(j int, inner bool) (jn int, twist bool)
	Down(j int, inner bool) (jn int, twist bool)
	// Periodic reports whether the field line through (x, j) is closed
	Periodic(x, j int) bool
	// YSize is the number of rows on the field line through (x, j)
	YSize(x, j int) int
	// Cuts are the rows that start a new region, they must begin a processor
	Cuts() []int
}

// Rectangular connects every x the same way, optionally periodic in y
type Rectangular struct {
	NY        int
	PeriodicY bool
}

func (r Rectangular) Name() string {
	if r.PeriodicY {
		return "rectangular periodic"
	}
	return "rectangular"
}

func (r Rectangular) Separatrix() int { return 0 }

func (r Rectangular) Up(j int, _ bool) (int, bool) {
	if j < r.NY-1 {
		return j + 1, false
	}
	if r.PeriodicY {
		return 0, true
	}
	return -1, false
}

func (r Rectangular) Down(j int, _ bool) (int, bool) {
	if j > 0 {
		return j - 1, false
	}
	if r.PeriodicY {
		return r.NY - 1, true
	}
	return -1, false
}

func (r Rectangular) Periodic(_, _ int) bool { return r.PeriodicY }
func (r Rectangular) YSize(_, _ int) int     { return r.NY }
func (r Rectangular) Cuts() []int            { return nil }

/*
SingleNull is a lower single null divertor. With ny rows:

	[0, Jyseps1_1]             inner divertor leg
	(Jyseps1_1, Jyseps2_2]     core, closed for x < Ixseps1
	(Jyseps2_2, ny)            outer divertor leg

For x < Ixseps1 the core closes on itself and the two legs join into the
private flux region. For x >= Ixseps1 field lines run open from row 0 to ny-1.
Without legs (Jyseps1_1 = -1, Jyseps2_2 = ny-1) this is a limiter geometry.
*/
type SingleNull struct {
	NY                   int
	Ixseps1              int
	Jyseps1_1, Jyseps2_2 int
}

func NewSingleNull(ny, ixseps1, jyseps1_1, jyseps2_2 int) (sn SingleNull, err error) {
	sn = SingleNull{NY: ny, Ixseps1: ixseps1, Jyseps1_1: jyseps1_1, Jyseps2_2: jyseps2_2}
	switch {
	case jyseps1_1 < -1 || jyseps2_2 > ny-1 || jyseps1_1 >= jyseps2_2:
		err = fmt.Errorf("need -1 <= jyseps1_1 < jyseps2_2 <= ny-1, have %d, %d with ny = %d: %w",
			jyseps1_1, jyseps2_2, ny, ErrConfig)
	case (jyseps1_1 >= 0) != (jyseps2_2 < ny-1):
		err = fmt.Errorf("single null needs both divertor legs or neither, jyseps1_1 = %d, jyseps2_2 = %d: %w",
			jyseps1_1, jyseps2_2, ErrConfig)
	}
	return
}

func (sn SingleNull) Name() string { return "single null" }

func (sn SingleNull) Separatrix() int { return sn.Ixseps1 }

func (sn SingleNull) Up(j int, inner bool) (int, bool) {
	if inner {
		switch j {
		case sn.Jyseps2_2:
			return sn.Jyseps1_1 + 1, true
		case sn.Jyseps1_1:
			return sn.Jyseps2_2 + 1, false
		}
	}
	if j == sn.NY-1 {
		return -1, false
	}
	return j + 1, false
}

func (sn SingleNull) Down(j int, inner bool) (int, bool) {
	if inner {
		switch j {
		case sn.Jyseps1_1 + 1:
			return sn.Jyseps2_2, true
		case sn.Jyseps2_2 + 1:
			return sn.Jyseps1_1, false
		}
	}
	if j == 0 {
		return -1, false
	}
	return j - 1, false
}

func (sn SingleNull) inCore(j int) bool {
	return j > sn.Jyseps1_1 && j <= sn.Jyseps2_2
}

func (sn SingleNull) Periodic(x, j int) bool {
	return x < sn.Ixseps1 && sn.inCore(j)
}

func (sn SingleNull) YSize(x, j int) int {
	switch {
	case x >= sn.Ixseps1:
		return sn.NY
	case sn.inCore(j):
		return sn.Jyseps2_2 - sn.Jyseps1_1
	}
	return sn.Jyseps1_1 + 1 + sn.NY - 1 - sn.Jyseps2_2
}

func (sn SingleNull) Cuts() (cuts []int) {
	if sn.Jyseps1_1 >= 0 {
		cuts = append(cuts, sn.Jyseps1_1+1)
	}
	if sn.Jyseps2_2 < sn.NY-1 {
		cuts = append(cuts, sn.Jyseps2_2+1)
	}
	return
}

// YLink is one y end of a processor. Guard cells with local x < XSplit go to
// InDest, the rest to OutDest; a destination of -1 is a physical boundary.
type YLink struct {
	InDest, OutDest   int
	InTwist, OutTwist bool
	XSplit            int
}

// Dest returns the rank local x exchanges with
func (l YLink) Dest(x int) int {
	if x < l.XSplit {
		return l.InDest
	}
	return l.OutDest
}
