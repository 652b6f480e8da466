package mesh

import (
	"github.com/notargets/plasmamesh/types"
	"github.com/notargets/plasmamesh/utils"
)

type BndrySide uint8

const (
	BNDRY_XIN BndrySide = iota
	BNDRY_XOUT
	BNDRY_YDOWN
	BNDRY_YUP
)

func (s BndrySide) String() string {
	return [...]string{"xin", "xout", "ydown", "yup"}[s]
}

/*
BoundaryRegion is a block of guard cells on one side of the local domain,
either a seam filled by communication or a physical boundary. (Bx, By) points
out of the domain. Iterate with

	for b.First(); !b.IsDone(); b.Next() { f.Set(b.X, b.Y, z, ...) }
*/
type BoundaryRegion struct {
	Label          string
	Side           BndrySide
	Kind           types.RegionKind
	Dest           int // Rank across a seam, -1 at a boundary
	Xs, Xe, Ys, Ye int // Inclusive
	Bx, By         int
	X, Y           int
}

func (b *BoundaryRegion) IsGlobal() bool {
	return b.Kind == types.REGION_BOUNDARY
}

func (b *BoundaryRegion) Empty() bool {
	return b.Xe < b.Xs || b.Ye < b.Ys
}

func (b *BoundaryRegion) Size() int {
	if b.Empty() {
		return 0
	}
	return (b.Xe - b.Xs + 1) * (b.Ye - b.Ys + 1)
}

func (b *BoundaryRegion) First() {
	b.X, b.Y = b.Xs, b.Ys
	if b.Empty() {
		b.X = b.Xe + 1
	}
}

// Next moves along y first, then x
func (b *BoundaryRegion) Next() {
	if b.IsDone() {
		return
	}
	if b.Y++; b.Y > b.Ye {
		b.Y = b.Ys
		b.X++
	}
}

func (b *BoundaryRegion) IsDone() bool {
	return b.X > b.Xe
}

// Contains reports whether local (x, y) is one of the region's cells
func (b *BoundaryRegion) Contains(x, y int) bool {
	return x >= b.Xs && x <= b.Xe && y >= b.Ys && y <= b.Ye
}

// GuardRegions lists the non-empty guard blocks of the local domain. Together
// they cover every guard cell once: the x guards over the interior y, and the
// y guards over all x split at the link x splits.
func (m *Mesh) GuardRegions() (regions []*BoundaryRegion) {
	kind := func(dest int) types.RegionKind {
		if dest < 0 {
			return types.REGION_BOUNDARY
		}
		return types.REGION_SEAM
	}
	add := func(b *BoundaryRegion) {
		b.Kind = kind(b.Dest)
		if !b.Empty() {
			b.First()
			regions = append(regions, b)
		}
	}
	add(&BoundaryRegion{Label: "xin", Side: BNDRY_XIN, Dest: m.xin,
		Xs: 0, Xe: m.Xstart - 1, Ys: m.Ystart, Ye: m.Yend, Bx: -1})
	add(&BoundaryRegion{Label: "xout", Side: BNDRY_XOUT, Dest: m.xout,
		Xs: m.Xend + 1, Xe: m.LocalNx - 1, Ys: m.Ystart, Ye: m.Yend, Bx: 1})
	add(&BoundaryRegion{Label: "lower_inner", Side: BNDRY_YDOWN, Dest: m.down.InDest,
		Xs: 0, Xe: m.down.XSplit - 1, Ys: 0, Ye: m.Ystart - 1, By: -1})
	add(&BoundaryRegion{Label: "lower_outer", Side: BNDRY_YDOWN, Dest: m.down.OutDest,
		Xs: m.down.XSplit, Xe: m.LocalNx - 1, Ys: 0, Ye: m.Ystart - 1, By: -1})
	add(&BoundaryRegion{Label: "upper_inner", Side: BNDRY_YUP, Dest: m.up.InDest,
		Xs: 0, Xe: m.up.XSplit - 1, Ys: m.Yend + 1, Ye: m.LocalNy - 1, By: 1})
	add(&BoundaryRegion{Label: "upper_outer", Side: BNDRY_YUP, Dest: m.up.OutDest,
		Xs: m.up.XSplit, Xe: m.LocalNx - 1, Ys: m.Yend + 1, Ye: m.LocalNy - 1, By: 1})
	return
}

func (m *Mesh) globalBoundaries() (regions []*BoundaryRegion) {
	for _, b := range m.GuardRegions() {
		if b.IsGlobal() {
			regions = append(regions, b)
		}
	}
	return
}

// Boundaries are the physical boundary regions plus any added ones
func (m *Mesh) Boundaries() []*BoundaryRegion {
	return m.boundaries
}

func (m *Mesh) AddBoundary(b *BoundaryRegion) {
	m.boundaries = append(m.boundaries, b)
}

// BoundariesPar are the regions used by parallel boundary conditions, empty
// until added
func (m *Mesh) BoundariesPar() []*BoundaryRegion {
	return m.boundariesPar
}

func (m *Mesh) AddBoundaryPar(b *BoundaryRegion) {
	m.boundariesPar = append(m.boundariesPar, b)
}

func (m *Mesh) HasBndryLowerY() bool {
	return m.down.InDest < 0 && m.down.XSplit > 0 || m.down.OutDest < 0 && m.down.XSplit < m.LocalNx
}

func (m *Mesh) HasBndryUpperY() bool {
	return m.up.InDest < 0 && m.up.XSplit > 0 || m.up.OutDest < 0 && m.up.XSplit < m.LocalNx
}

// bndryRange is the part of [lo, hi) on a y boundary
func bndryRange(dest, lo, hi int) [2]int {
	if dest >= 0 {
		return [2]int{0, -1}
	}
	return [2]int{lo, hi - 1}
}

// IterateBndryLowerY walks the local x whose lower y guards are a boundary
func (m *Mesh) IterateBndryLowerY() utils.RangeIterator {
	return utils.NewRangeIterator(
		bndryRange(m.down.InDest, 0, m.down.XSplit),
		bndryRange(m.down.OutDest, m.down.XSplit, m.LocalNx))
}

func (m *Mesh) IterateBndryUpperY() utils.RangeIterator {
	return utils.NewRangeIterator(
		bndryRange(m.up.InDest, 0, m.up.XSplit),
		bndryRange(m.up.OutDest, m.up.XSplit, m.LocalNx))
}

func (m *Mesh) IterateBndryLowerInnerY() utils.RangeIterator {
	return utils.NewRangeIterator(bndryRange(m.down.InDest, 0, m.down.XSplit))
}

func (m *Mesh) IterateBndryLowerOuterY() utils.RangeIterator {
	return utils.NewRangeIterator(bndryRange(m.down.OutDest, m.down.XSplit, m.LocalNx))
}

func (m *Mesh) IterateBndryUpperInnerY() utils.RangeIterator {
	return utils.NewRangeIterator(bndryRange(m.up.InDest, 0, m.up.XSplit))
}

func (m *Mesh) IterateBndryUpperOuterY() utils.RangeIterator {
	return utils.NewRangeIterator(bndryRange(m.up.OutDest, m.up.XSplit, m.LocalNx))
}
