package mesh

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/plasmamesh/comm"
	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/griddata"
	"github.com/notargets/plasmamesh/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newOptions(settings map[string]interface{}) *viper.Viper {
	v := viper.New()
	for k, val := range settings {
		v.Set(k, val)
	}
	return v
}

// runMeshes loads one mesh per rank of an in-process world and runs fn on each
func runMeshes(np int, src griddata.Source, settings map[string]interface{}, fn func(m *Mesh) error) error {
	return runWorld(comm.NewWorld(np), src, settings, fn)
}

func runWorld(w *comm.World, src griddata.Source, settings map[string]interface{}, fn func(m *Mesh) error) error {
	return w.Run(func(tr comm.Transport) error {
		m, err := New(src, newOptions(settings), tr, WithLogger(quiet))
		if err != nil {
			return err
		}
		if err = m.Load(); err != nil {
			return err
		}
		return fn(m)
	})
}

func singleMesh(t *testing.T, src griddata.Source, settings map[string]interface{}) *Mesh {
	m, err := New(src, newOptions(settings), comm.NewWorld(1).Endpoint(0), WithLogger(quiet))
	require.NoError(t, err)
	require.NoError(t, m.Load())
	return m
}

func sizes(nx, ny, nz int) *griddata.Memory {
	return griddata.NewMemory().
		SetScalar("nx", float64(nx)).SetScalar("ny", float64(ny)).SetScalar("nz", float64(nz))
}

// singleNull has inner leg rows 0..2, core 3..8, outer leg 9..11 and a
// separatrix at global x = 6
func singleNull() *griddata.Memory {
	return sizes(12, 12, 4).
		SetScalar("ixseps1", 6).SetScalar("jyseps1_1", 2).SetScalar("jyseps2_2", 8)
}

func TestDecomposition(t *testing.T) {
	{ // Even split, automatic NXPE
		type layout struct{ px, py, offX, offY, nx, ny int }
		got := make([]layout, 4)
		err := runMeshes(4, sizes(12, 8, 1), nil, func(m *Mesh) error {
			got[m.t.Rank()] = layout{m.XProcIndex(), m.YProcIndex(), m.OffsetX, m.OffsetY, m.LocalNx, m.LocalNy}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []layout{
			{0, 0, 0, -2, 8, 8},
			{1, 0, 4, -2, 8, 8},
			{0, 1, 0, 2, 8, 8},
			{1, 1, 4, 2, 8, 8},
		}, got)
	}
	{ // Uneven split, imbalance of one
		m := singleMesh(t, sizes(13, 5, 1), map[string]interface{}{"MYG": 1})
		assert.Equal(t, 1, m.NXPE())
		assert.Equal(t, 9, m.MX)
		assert.Equal(t, 2, m.Xstart)
		assert.Equal(t, 10, m.Xend)
		assert.Equal(t, 1, m.Ystart)
		assert.Equal(t, 5, m.Yend)
		nx := make([]int, 2)
		err := runMeshes(2, sizes(13, 4, 1), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
			nx[m.XProcIndex()] = m.Xend - m.Xstart + 1
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{5, 4}, nx)
	}
	{ // Global indices
		m := singleMesh(t, sizes(12, 8, 1), nil)
		assert.Equal(t, m.Xstart, m.XGLOBAL(m.Xstart))
		assert.Equal(t, 0, m.YGLOBAL(m.Ystart))
		assert.InDelta(t, 0.5/8, m.GlobalX(m.Xstart), 1.e-15)
		assert.InDelta(t, 1-0.5/8, m.GlobalY(m.Yend), 1.e-15)
		assert.InDelta(t, m.GlobalX(3), m.GlobalXf(3), 1.e-15)
		assert.Equal(t, 5, m.XLOCAL(m.XGLOBAL(5)))
		assert.True(t, m.FirstX() && m.LastX() && m.FirstY() && m.LastY())
	}
	{ // Configuration errors
		err := runMeshes(3, sizes(12, 8, 1), map[string]interface{}{"NXPE": 2}, func(*Mesh) error { return nil })
		assert.True(t, errors.Is(err, ErrConfig))
		err = runMeshes(2, singleNull(), map[string]interface{}{"NXPE": 1}, func(*Mesh) error { return nil })
		assert.ErrorContains(t, err, "branch cut")
		err = runMeshes(2, singleNull(), map[string]interface{}{"NXPE": 2, "MYG": 1}, func(*Mesh) error { return nil })
		assert.ErrorContains(t, err, "branch cut")
		err = runMeshes(8, sizes(12, 8, 1), map[string]interface{}{"NXPE": 8}, func(*Mesh) error { return nil })
		assert.ErrorContains(t, err, "need at least MXG")
		err = runMeshes(1, sizes(12, 8, 1), map[string]interface{}{"ddx.first": "QUICK"}, func(*Mesh) error { return nil })
		assert.ErrorContains(t, err, "ddx.first")
		err = runMeshes(1, sizes(12, 8, 1), map[string]interface{}{"MXG": 1, "ddx.first": "C4"}, func(*Mesh) error { return nil })
		assert.ErrorContains(t, err, "guard cells")
		err = runMeshes(1, sizes(12, 8, 1), map[string]interface{}{"paralleltransform": "twisted"}, func(*Mesh) error { return nil })
		assert.ErrorContains(t, err, "parallel transform")
		err = runMeshes(1, griddata.NewMemory(), nil, func(*Mesh) error { return nil })
		assert.True(t, errors.Is(err, ErrConfig))
	}
	{ // Sizes from the options when the grid has none
		m := singleMesh(t, nil, map[string]interface{}{"nx": 8, "ny": 4, "nz": 2})
		assert.Equal(t, 8, m.GlobalNx)
		assert.Equal(t, 2, m.LocalNz)
		assert.Equal(t, "rectangular periodic", m.Topology.Name())
	}
}

func TestTopology(t *testing.T) {
	{
		sn, err := NewSingleNull(12, 6, 2, 8)
		require.NoError(t, err)
		j, twist := sn.Up(8, true)
		assert.Equal(t, 3, j)
		assert.True(t, twist)
		j, _ = sn.Up(2, true)
		assert.Equal(t, 9, j)
		j, _ = sn.Up(2, false)
		assert.Equal(t, 3, j)
		j, _ = sn.Down(9, true)
		assert.Equal(t, 2, j)
		j, twist = sn.Down(3, true)
		assert.Equal(t, 8, j)
		assert.True(t, twist)
		j, _ = sn.Down(0, true)
		assert.Equal(t, -1, j)
		j, _ = sn.Up(11, false)
		assert.Equal(t, -1, j)
		assert.Equal(t, 6, sn.YSize(0, 5))
		assert.Equal(t, 6, sn.YSize(0, 1))
		assert.Equal(t, 12, sn.YSize(7, 5))
		assert.True(t, sn.Periodic(5, 4))
		assert.False(t, sn.Periodic(6, 4))
		assert.False(t, sn.Periodic(2, 10))
		assert.Equal(t, []int{3, 9}, sn.Cuts())
	}
	{
		_, err := NewSingleNull(12, 6, 2, 11)
		assert.ErrorContains(t, err, "both divertor legs")
		_, err = NewSingleNull(12, 6, 8, 2)
		assert.Error(t, err)
	}
	{
		r := Rectangular{NY: 4, PeriodicY: true}
		j, twist := r.Down(0, false)
		assert.Equal(t, 3, j)
		assert.True(t, twist)
		j, _ = Rectangular{NY: 4}.Up(3, true)
		assert.Equal(t, -1, j)
	}
}

const (
	boundaryVal = -1.
	garbage     = -99.
)

// globalValue is a unique value per global interior point
func globalValue(xg, yg, z int) float64 {
	return float64(1000*xg + 10*yg + z)
}

// fillForExchange sets the interior from globalValue, physical x boundary
// cells to boundaryVal and every other guard cell to garbage
func fillForExchange(m *Mesh) *field.Field {
	return field.NewFunc(m.LocalNx, m.LocalNy, m.LocalNz, types.CELL_CENTRE, func(x, y, z int) float64 {
		switch {
		case m.isXBoundary(x):
			return boundaryVal
		case x < m.Xstart || x > m.Xend || y < m.Ystart || y > m.Yend:
			return garbage
		}
		return globalValue(m.XGLOBAL(x), m.YGLOBAL(y), z)
	})
}

func (m *Mesh) isXBoundary(x int) bool {
	return (x < m.Xstart && m.xin < 0) || (x > m.Xend && m.xout < 0)
}

// expectedAfterExchange follows the topology to the global point a guard
// cell mirrors
func expectedAfterExchange(m *Mesh, x, y, z int) float64 {
	if m.isXBoundary(x) {
		return boundaryVal
	}
	xg := m.XGLOBAL(x)
	if m.PeriodicX {
		xg = (xg-m.MXG+m.MX)%m.MX + m.MXG
	}
	inner := m.XGLOBAL(x) < m.Topology.Separatrix()
	yg := m.YGLOBAL(y)
	switch {
	case y > m.Yend:
		j, _ := m.Topology.Up(m.YGLOBAL(m.Yend), inner)
		if j < 0 {
			return garbage
		}
		yg = j + y - m.Yend - 1
	case y < m.Ystart:
		j, _ := m.Topology.Down(m.YGLOBAL(m.Ystart), inner)
		if j < 0 {
			return garbage
		}
		yg = j - (m.Ystart - 1 - y)
	}
	return globalValue(xg, yg, z)
}

func checkExchange(m *Mesh) (err error) {
	f := fillForExchange(m)
	g := fillForExchange(m).WithLocation(types.CELL_XLOW)
	if err = m.Communicate(f, g); err != nil {
		return
	}
	for x := 0; x < m.LocalNx; x++ {
		for y := 0; y < m.LocalNy; y++ {
			for z := 0; z < m.LocalNz; z++ {
				want := expectedAfterExchange(m, x, y, z)
				if f.At(x, y, z) != want || g.At(x, y, z) != want {
					return fmt.Errorf("rank %d (%d, %d, %d): have %g, %g want %g",
						m.t.Rank(), x, y, z, f.At(x, y, z), g.At(x, y, z), want)
				}
			}
		}
	}
	return
}

func TestCommunicate(t *testing.T) {
	{ // Two processors in x, periodic y
		assert.NoError(t, runMeshes(2, sizes(12, 6, 2), map[string]interface{}{"NXPE": 2}, checkExchange))
	}
	{ // Four processors, periodic x and y
		assert.NoError(t, runMeshes(4, sizes(12, 8, 3), map[string]interface{}{"NXPE": 2, "periodicX": true}, checkExchange))
	}
	{ // Periodic x on a single processor column, open y
		assert.NoError(t, runMeshes(2, sizes(10, 8, 1),
			map[string]interface{}{"NXPE": 1, "periodicX": true, "periodicY": false}, checkExchange))
	}
	{ // Single processor, exchanges with itself
		assert.NoError(t, runMeshes(1, sizes(10, 6, 2), map[string]interface{}{"periodicX": true}, checkExchange))
	}
	{ // Single null, separatrix inside both x processors
		assert.NoError(t, runMeshes(8, singleNull(), map[string]interface{}{"NXPE": 2, "MYG": 2}, checkExchange))
	}
	{ // Single null with one guard cell
		assert.NoError(t, runMeshes(8, singleNull(), map[string]interface{}{"NXPE": 2, "MXG": 1, "MYG": 1}, func(m *Mesh) error {
			if m.GlobalNx != 12 || m.MX != 10 {
				return fmt.Errorf("unexpected sizes %d, %d", m.GlobalNx, m.MX)
			}
			return checkExchange(m)
		}))
	}
	{ // CommunicateXZ leaves the y guards alone
		err := runMeshes(2, sizes(12, 6, 2), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
			f := fillForExchange(m)
			if err := m.CommunicateXZ(f); err != nil {
				return err
			}
			for x := 0; x < m.LocalNx; x++ {
				for y := 0; y < m.LocalNy; y++ {
					want := expectedAfterExchange(m, x, y, 0)
					if y < m.Ystart || y > m.Yend {
						want = garbage
						if m.isXBoundary(x) {
							want = boundaryVal
						}
					}
					if f.At(x, y, 0) != want {
						return fmt.Errorf("(%d, %d): have %g want %g", x, y, f.At(x, y, 0), want)
					}
				}
			}
			return nil
		})
		assert.NoError(t, err)
	}
}

func TestCommunicateTwistShift(t *testing.T) {
	var (
		nx, ny, nz = 8, 4, 8
		angle      = 2 * math.Pi / float64(nz) // One z point
		shift      = make([]float64, nx)
	)
	for i := range shift {
		shift[i] = angle
	}
	src := sizes(nx, ny, nz).SetProfile("ShiftAngle", shift)
	m := singleMesh(t, src, map[string]interface{}{"TwistShift": true})
	periodic, twist := m.PeriodicY(m.Xstart)
	assert.True(t, periodic)
	assert.InDelta(t, angle, twist, 1.e-15)
	assert.Equal(t, ny, m.YSize(m.Xstart))
	f := fillForExchange(m)
	require.NoError(t, m.Communicate(f))
	for x := m.Xstart; x <= m.Xend; x++ {
		for z := 0; z < nz; z++ {
			// Lower guard mirrors the top row shifted by +angle, upper by -angle
			assert.InDelta(t, globalValue(x, ny-1, (z+1)%nz), f.At(x, m.Ystart-1, z), 1.e-9)
			assert.InDelta(t, globalValue(x, 0, (z+nz-1)%nz), f.At(x, m.Yend+1, z), 1.e-9)
		}
	}
}

func TestCommunicateFailure(t *testing.T) {
	{ // Mismatched groups, nothing is committed
		err := runMeshes(2, sizes(12, 6, 2), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
			f := fillForExchange(m)
			before := f.Copy()
			var err error
			if m.t.Rank() == 0 {
				err = m.Communicate(f)
			} else {
				err = m.Communicate(f, f.Copy())
			}
			if !errors.Is(err, comm.ErrSizeMismatch) {
				return fmt.Errorf("expected a size mismatch, have %v", err)
			}
			if !assert.Equal(t, before.Data, f.Data) {
				return fmt.Errorf("guard cells changed after a failed exchange")
			}
			return nil
		})
		assert.NoError(t, err)
	}
	{ // A peer that never sends
		w := comm.NewWorld(2)
		w.Timeout = 50 * time.Millisecond
		err := runWorld(w, sizes(12, 6, 2), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
			if m.t.Rank() == 1 {
				return nil
			}
			f := fillForExchange(m)
			before := f.Copy()
			err := m.Communicate(f)
			if !errors.Is(err, comm.ErrTimeout) {
				return fmt.Errorf("expected a timeout, have %v", err)
			}
			assert.Equal(t, before.Data, f.Data)
			return nil
		})
		assert.NoError(t, err)
	}
	{ // Wrong shape
		m := singleMesh(t, sizes(12, 6, 2), nil)
		err := m.Communicate(field.New(3, 3, 3, types.CELL_CENTRE))
		assert.True(t, errors.Is(err, ErrConfig))
	}
}

func TestSendWait(t *testing.T) {
	{ // Split phase, single use handle
		err := runMeshes(2, sizes(12, 6, 2), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
			f := fillForExchange(m)
			h, err := m.Send(f)
			if err != nil {
				return err
			}
			if err = m.Wait(h); err != nil {
				return err
			}
			if err = m.Wait(h); !errors.Is(err, ErrHandleConsumed) {
				return fmt.Errorf("second wait returned %v", err)
			}
			want := expectedAfterExchange(m, m.Xend+1, m.Ystart, 0)
			if f.At(m.Xend+1, m.Ystart, 0) != want {
				return fmt.Errorf("guard not filled")
			}
			return nil
		})
		assert.NoError(t, err)
	}
	{ // Two outstanding handles waited on in reverse order keep their own guards
		err := runMeshes(2, sizes(12, 6, 2), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
			a := fillForExchange(m)
			b := a.Copy()
			for i := range b.Data {
				b.Data[i] = -b.Data[i]
			}
			ha, err := m.Send(a)
			if err != nil {
				return err
			}
			hb, err := m.Send(b)
			if err != nil {
				return err
			}
			if err = m.Wait(hb); err != nil {
				return err
			}
			if err = m.Wait(ha); err != nil {
				return err
			}
			for x := 0; x < m.LocalNx; x++ {
				for y := 0; y < m.LocalNy; y++ {
					for z := 0; z < m.LocalNz; z++ {
						want := expectedAfterExchange(m, x, y, z)
						if a.At(x, y, z) != want || b.At(x, y, z) != -want {
							return fmt.Errorf("rank %d (%d, %d, %d): a = %g, b = %g want %g",
								m.t.Rank(), x, y, z, a.At(x, y, z), b.At(x, y, z), want)
						}
					}
				}
			}
			return nil
		})
		assert.NoError(t, err)
	}
	{ // Nil handle
		m := singleMesh(t, sizes(12, 6, 2), nil)
		assert.True(t, errors.Is(m.Wait(nil), ErrConfig))
	}
}

func TestPointToPoint(t *testing.T) {
	err := runMeshes(4, sizes(12, 8, 1), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
		var (
			me   = float64(m.t.Rank())
			buf  = make([]float64, 1)
			reqs []comm.Request
		)
		// Ring over the x direction
		if !m.LastX() {
			reqs = append(reqs, m.SendXOut([]float64{me}, 7))
		}
		if !m.FirstX() {
			if err := m.IrecvXIn(buf, 7).Wait(); err != nil {
				return err
			}
			if buf[0] != me-1 {
				return fmt.Errorf("rank %g received %g from x in", me, buf[0])
			}
		} else if err := m.IrecvXIn(buf, 7).Wait(); !errors.Is(err, ErrNoNeighbour) {
			return fmt.Errorf("expected no neighbour, have %v", err)
		}
		// Periodic y, up and down are the other row
		reqs = append(reqs, m.SendYOutOutdest([]float64{me}, 8), m.SendYInOutdest([]float64{me}, 9))
		if err := m.IrecvYInOutdest(buf, 8).Wait(); err != nil {
			return err
		}
		other := float64(m.procRank(m.XProcIndex(), 1-m.YProcIndex()))
		if buf[0] != other {
			return fmt.Errorf("rank %g received %g from below", me, buf[0])
		}
		if err := m.IrecvYOutOutdest(buf, 9).Wait(); err != nil {
			return err
		}
		// Any processor by grid position
		reqs = append(reqs, m.SendToProc(0, 0, []float64{me}, 10))
		if m.t.Rank() == 0 {
			for px := 0; px < 2; px++ {
				for py := 0; py < 2; py++ {
					h := m.ReceiveFromProc(px, py, buf, 10)
					if err := m.Wait(h); err != nil {
						return err
					}
					if buf[0] != float64(m.procRank(px, py)) {
						return fmt.Errorf("received %g from (%d, %d)", buf[0], px, py)
					}
				}
			}
		}
		return comm.WaitAll(reqs...)
	})
	assert.NoError(t, err)
}

func TestBoundaries(t *testing.T) {
	err := runMeshes(8, singleNull(), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
		// Every guard cell is in exactly one region, no interior cell is
		count := make(map[[2]int]int)
		for _, b := range m.GuardRegions() {
			n := 0
			for b.First(); !b.IsDone(); b.Next() {
				count[[2]int{b.X, b.Y}]++
				n++
			}
			if n != b.Size() {
				return fmt.Errorf("region %s iterated %d of %d cells", b.Label, n, b.Size())
			}
		}
		for x := 0; x < m.LocalNx; x++ {
			for y := 0; y < m.LocalNy; y++ {
				want := 1
				if x >= m.Xstart && x <= m.Xend && y >= m.Ystart && y <= m.Yend {
					want = 0
				}
				if count[[2]int{x, y}] != want {
					return fmt.Errorf("rank %d cell (%d, %d) covered %d times", m.t.Rank(), x, y, count[[2]int{x, y}])
				}
			}
		}
		// Physical boundaries are the global regions only
		for _, b := range m.Boundaries() {
			if !b.IsGlobal() {
				return fmt.Errorf("boundary %s is a seam", b.Label)
			}
		}
		// Inner and outer y iterators split the full one without overlap
		for _, set := range [][3]func() []int{
			{m.IterateBndryLowerY().Indices, m.IterateBndryLowerInnerY().Indices, m.IterateBndryLowerOuterY().Indices},
			{m.IterateBndryUpperY().Indices, m.IterateBndryUpperInnerY().Indices, m.IterateBndryUpperOuterY().Indices},
		} {
			all, in, out := set[0](), set[1](), set[2]()
			if len(all) != len(in)+len(out) {
				return fmt.Errorf("rank %d iterators %v = %v + %v", m.t.Rank(), all, in, out)
			}
			for i, x := range append(in, out...) {
				if all[i] != x {
					return fmt.Errorf("rank %d iterators %v = %v + %v", m.t.Rank(), all, in, out)
				}
			}
		}
		for it := m.IterateBndryLowerY(); !it.IsDone(); it.Next() {
			if !m.FirstYAt(it.Ind) {
				return fmt.Errorf("x %d iterated but not on the lower boundary", it.Ind)
			}
		}
		return nil
	})
	require.NoError(t, err)
	{ // Specific processors of the single null, rows [0,3) [3,6) [6,9) [9,12)
		want := map[int]struct {
			lowerIn, lowerOut, upperIn, upperOut []int
		}{
			0: {lowerIn: []int{0, 1, 2, 3, 4, 5}, lowerOut: []int{6, 7}},
			1: {lowerOut: []int{2, 3, 4, 5, 6, 7}, lowerIn: []int{0, 1}},
			6: {upperIn: []int{0, 1, 2, 3, 4, 5}, upperOut: []int{6, 7}},
			2: {},
		}
		err = runMeshes(8, singleNull(), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
			w, ok := want[m.t.Rank()]
			if !ok {
				return nil
			}
			for _, c := range []struct {
				name      string
				have, exp []int
			}{
				{"lower inner", m.IterateBndryLowerInnerY().Indices(), w.lowerIn},
				{"lower outer", m.IterateBndryLowerOuterY().Indices(), w.lowerOut},
				{"upper inner", m.IterateBndryUpperInnerY().Indices(), w.upperIn},
				{"upper outer", m.IterateBndryUpperOuterY().Indices(), w.upperOut},
			} {
				if fmt.Sprint(c.have) != fmt.Sprint(c.exp) {
					return fmt.Errorf("rank %d %s: have %v want %v", m.t.Rank(), c.name, c.have, c.exp)
				}
			}
			return nil
		})
		assert.NoError(t, err)
	}
	{
		m := singleMesh(t, sizes(10, 6, 1), map[string]interface{}{"periodicY": false})
		assert.True(t, m.HasBndryLowerY())
		assert.True(t, m.HasBndryUpperY())
		labels := []string{}
		for _, b := range m.Boundaries() {
			labels = append(labels, b.Label)
		}
		assert.Equal(t, []string{"xin", "xout", "lower_outer", "upper_outer"}, labels)
		m.AddBoundaryPar(&BoundaryRegion{Label: "par"})
		assert.Len(t, m.BoundariesPar(), 1)
		m.AddBoundary(&BoundaryRegion{Label: "extra", Kind: types.REGION_BOUNDARY})
		assert.Len(t, m.Boundaries(), 5)
	}
}

func TestCommunicators(t *testing.T) {
	err := runMeshes(8, singleNull(), map[string]interface{}{"NXPE": 2}, func(m *Mesh) error {
		xc, err := m.XComm(m.Ystart)
		if err != nil {
			return err
		}
		if xc.Size() != 2 {
			return fmt.Errorf("x communicator size %d", xc.Size())
		}
		px := m.XProcIndex()
		// Rows of processor column px: py 0 leg, 1 and 2 core, 3 leg
		inner := fmt.Sprint([]int{px, 6 + px})
		if py := m.YProcIndex(); py == 1 || py == 2 {
			inner = fmt.Sprint([]int{2 + px, 4 + px})
		}
		all := fmt.Sprint([]int{px, 2 + px, 4 + px, 6 + px})
		if have := fmt.Sprint(m.yRanks(0)); have != inner {
			return fmt.Errorf("rank %d inner y ranks %s want %s", m.t.Rank(), have, inner)
		}
		if have := fmt.Sprint(m.yRanks(m.LocalNx - 1)); have != all {
			return fmt.Errorf("rank %d outer y ranks %s want %s", m.t.Rank(), have, all)
		}
		// Average of the squared global row index over each field line
		f := field.NewFunc(m.LocalNx, m.LocalNy, m.LocalNz, types.CELL_CENTRE, func(x, y, z int) float64 {
			return float64(m.YGLOBAL(y) * m.YGLOBAL(y))
		})
		avg, err := m.AverageY(f)
		if err != nil {
			return err
		}
		for x := 0; x < m.LocalNx; x++ {
			var (
				want        float64
				ysize       = 6
				periodic, _ = m.PeriodicY(x)
			)
			switch {
			case m.XGLOBAL(x) >= 6:
				want, ysize = 506./12, 12 // All rows
			case periodic:
				want = 199. / 6 // Rows 3..8
			default:
				want = 307. / 6 // Rows 0..2, 9..11
			}
			if m.YSize(x) != ysize {
				return fmt.Errorf("rank %d y size at %d is %d want %d", m.t.Rank(), x, m.YSize(x), ysize)
			}
			for y := 0; y < m.LocalNy; y++ {
				if math.Abs(avg.At(x, y, 0)-want) > 1.e-12 {
					return fmt.Errorf("rank %d average at (%d, %d) %g want %g", m.t.Rank(), x, y, avg.At(x, y, 0), want)
				}
			}
		}
		return nil
	})
	assert.NoError(t, err)
}

func TestGet(t *testing.T) {
	src := sizes(8, 4, 2).
		SetScalar("dx", 0.25).
		SetProfile("psi", []float64{0, 1, 2, 3, 4, 5, 6, 7}).
		SetField("Bxy", 8, 4, func(x, y int) float64 { return float64(10*x + y) }).
		SetScalar("nout", 3)
	m := singleMesh(t, src, map[string]interface{}{"MYG": 2})
	{
		f, err := m.Get("dx", 1)
		require.NoError(t, err)
		assert.Equal(t, 0.25, f.At(0, 0, 1))
	}
	{
		f, err := m.Get("psi", 0)
		require.NoError(t, err)
		assert.Equal(t, 5., f.At(5, m.Ystart, 0))
	}
	{ // Interior from the array, guards extrapolated linearly
		f, err := m.Get("Bxy", 0)
		require.NoError(t, err)
		assert.Equal(t, 31., f.At(3, m.Ystart+1, 1))
		assert.InDelta(t, 28., f.At(3, 0, 0), 1.e-12)
		assert.InDelta(t, 35., f.At(3, m.LocalNy-1, 0), 1.e-12)
	}
	{ // Missing variables give the default
		f, err := m.Get("g12", 0.5)
		assert.True(t, errors.Is(err, griddata.ErrNotFound))
		assert.Equal(t, 0.5, f.At(1, 1, 1))
		n, err := m.GetInt("nout", 0)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		n, err = m.GetInt("nin", 7)
		assert.True(t, errors.Is(err, griddata.ErrNotFound))
		assert.Equal(t, 7, n)
		r, err := m.GetReal("dx", 0)
		require.NoError(t, err)
		assert.Equal(t, 0.25, r)
		v, err := m.GetVector("b0", true)
		assert.True(t, errors.Is(err, griddata.ErrNotFound))
		assert.True(t, v.Covariant)
		assert.False(t, m.SourceHasVar("b0_x"))
	}
	{ // Wrong sizes
		src.SetField("bad", 3, 4, func(x, y int) float64 { return 0 })
		_, err := m.Get("bad", 0)
		assert.True(t, errors.Is(err, ErrConfig))
	}
}
