package mesh

import (
	"errors"
	"fmt"
	"sort"

	"github.com/notargets/plasmamesh/comm"
	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/stencils"
)

// Message tags, named by the side of the link that sent them
const (
	IN_SENT_UP    = 0
	OUT_SENT_UP   = 1
	IN_SENT_DOWN  = 2
	OUT_SENT_DOWN = 3
	IN_SENT_OUT   = 4
	OUT_SENT_IN   = 5
	AVERAGE_Y     = 6
)

var ErrNoNeighbour = errors.New("no processor on that side")

// noCopy trips go vet's copylocks check when a handle is copied
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// block is an inclusive index range over (x, y), all z
type block struct {
	x0, x1, y0, y1 int
}

func (b block) empty() bool {
	return b.x1 < b.x0 || b.y1 < b.y0
}

func (b block) size(fields []*field.Field) (n int) {
	if b.empty() {
		return
	}
	for _, f := range fields {
		n += (b.x1 - b.x0 + 1) * (b.y1 - b.y0 + 1) * f.Nz
	}
	return
}

func (b block) pack(fields []*field.Field) (buf []float64) {
	buf = make([]float64, 0, b.size(fields))
	for _, f := range fields {
		for x := b.x0; x <= b.x1; x++ {
			for y := b.y0; y <= b.y1; y++ {
				buf = append(buf, f.ZLine(x, y)...)
			}
		}
	}
	return
}

func (b block) unpack(fields []*field.Field, buf []float64) {
	var n int
	for _, f := range fields {
		for x := b.x0; x <= b.x1; x++ {
			for y := b.y0; y <= b.y1; y++ {
				n += copy(f.ZLine(x, y), buf[n:n+f.Nz])
			}
		}
	}
}

type recvSlot struct {
	req   comm.Request
	buf   []float64
	into  block
	twist float64 // Sign of the twist-shift to apply, zero for none
}

/*
CommHandle tracks a group exchange started by Send. Received guard values are
staged and only written to the fields when the whole exchange succeeds.
*/
type CommHandle struct {
	noCopy noCopy

	fields []*field.Field
	staged []*field.Field
	xOnly  bool
	sends  []comm.Request
	recvs  []recvSlot
	done   bool
}

// Communicate fills every guard cell of fields that borders another
// processor: first the x guards over the interior y, then the y guards over
// all x, so corner cells are consistent
func (m *Mesh) Communicate(fields ...*field.Field) (err error) {
	var h *CommHandle
	if h, err = m.Send(fields...); err != nil {
		return
	}
	return m.Wait(h)
}

// CommunicateXZ exchanges the x guards only
func (m *Mesh) CommunicateXZ(fields ...*field.Field) (err error) {
	var h *CommHandle
	if h, err = m.send(fields, true); err != nil {
		return
	}
	return m.Wait(h)
}

// Send posts the x exchange of a group and returns without waiting
func (m *Mesh) Send(fields ...*field.Field) (*CommHandle, error) {
	return m.send(fields, false)
}

func (m *Mesh) send(fields []*field.Field, xOnly bool) (h *CommHandle, err error) {
	for _, f := range fields {
		if f.Nx != m.LocalNx || f.Ny != m.LocalNy || f.Nz != m.LocalNz {
			return nil, fmt.Errorf("field %dx%dx%d does not match the mesh %dx%dx%d: %w",
				f.Nx, f.Ny, f.Nz, m.LocalNx, m.LocalNy, m.LocalNz, ErrConfig)
		}
	}
	h = &CommHandle{
		fields: fields,
		staged: make([]*field.Field, len(fields)),
		xOnly:  xOnly,
	}
	for i, f := range fields {
		h.staged[i] = f.Copy()
	}
	m.postX(h)
	return
}

// Wait completes an exchange started by Send. A handle can be waited on once.
// The y guards are posted here, so every rank must wait on outstanding
// handles in the same order.
func (m *Mesh) Wait(h *CommHandle) (err error) {
	if h == nil {
		return fmt.Errorf("wait on a nil communication handle: %w", ErrConfig)
	}
	if h.done {
		return ErrHandleConsumed
	}
	h.done = true
	if err = m.complete(h); err != nil {
		return
	}
	if h.fields != nil && !h.xOnly {
		m.postY(h)
		if err = m.complete(h); err != nil {
			return
		}
	}
	if err = comm.WaitAll(h.sends...); err != nil {
		return fmt.Errorf("guard exchange: %w", err)
	}
	for i, f := range h.fields {
		copy(f.Data, h.staged[i].Data)
	}
	return
}

// complete waits on the posted receives, unpacking them into the staged
// fields only when all of them succeeded
func (m *Mesh) complete(h *CommHandle) (err error) {
	var errs []error
	for _, r := range h.recvs {
		if e := r.req.Wait(); e != nil {
			errs = append(errs, e)
		}
	}
	recvs := h.recvs
	h.recvs = nil
	if err = errors.Join(errs...); err != nil {
		return fmt.Errorf("guard exchange on rank %d: %w", m.t.Rank(), err)
	}
	for _, r := range recvs {
		if h.staged == nil {
			continue
		}
		r.into.unpack(h.staged, r.buf)
		if r.twist != 0 {
			m.twistShift(h.staged, r.into, r.twist)
		}
	}
	return
}

func (m *Mesh) exchange(h *CommHandle, dest, sendTag, recvTag int, from, into block, twist float64) {
	if dest < 0 || from.empty() {
		return
	}
	h.sends = append(h.sends, m.t.Isend(dest, sendTag, from.pack(h.staged)))
	buf := make([]float64, into.size(h.staged))
	h.recvs = append(h.recvs, recvSlot{
		req:   m.t.Irecv(dest, recvTag, buf),
		buf:   buf,
		into:  into,
		twist: twist,
	})
}

func (m *Mesh) postX(h *CommHandle) {
	if m.MXG == 0 {
		return
	}
	ys, ye := m.Ystart, m.Yend
	m.exchange(h, m.xin, OUT_SENT_IN, IN_SENT_OUT,
		block{m.Xstart, m.Xstart + m.MXG - 1, ys, ye},
		block{0, m.MXG - 1, ys, ye}, 0)
	m.exchange(h, m.xout, IN_SENT_OUT, OUT_SENT_IN,
		block{m.Xend - m.MXG + 1, m.Xend, ys, ye},
		block{m.Xend + 1, m.LocalNx - 1, ys, ye}, 0)
}

func (m *Mesh) postY(h *CommHandle) {
	if m.MYG == 0 {
		return
	}
	var (
		upRows    = [2]int{m.Yend - m.MYG + 1, m.Yend}
		upGuard   = [2]int{m.Yend + 1, m.LocalNy - 1}
		downRows  = [2]int{m.Ystart, m.Ystart + m.MYG - 1}
		downGuard = [2]int{0, m.MYG - 1}
		twist     = func(on bool, sign float64) float64 {
			if on && m.TwistShift {
				return sign
			}
			return 0
		}
	)
	xsplit := m.up.XSplit
	m.exchange(h, m.up.InDest, IN_SENT_UP, IN_SENT_DOWN,
		block{0, xsplit - 1, upRows[0], upRows[1]},
		block{0, xsplit - 1, upGuard[0], upGuard[1]}, twist(m.up.InTwist, -1))
	m.exchange(h, m.up.OutDest, OUT_SENT_UP, OUT_SENT_DOWN,
		block{xsplit, m.LocalNx - 1, upRows[0], upRows[1]},
		block{xsplit, m.LocalNx - 1, upGuard[0], upGuard[1]}, twist(m.up.OutTwist, -1))
	xsplit = m.down.XSplit
	m.exchange(h, m.down.InDest, IN_SENT_DOWN, IN_SENT_UP,
		block{0, xsplit - 1, downRows[0], downRows[1]},
		block{0, xsplit - 1, downGuard[0], downGuard[1]}, twist(m.down.InTwist, 1))
	m.exchange(h, m.down.OutDest, OUT_SENT_DOWN, OUT_SENT_UP,
		block{xsplit, m.LocalNx - 1, downRows[0], downRows[1]},
		block{xsplit, m.LocalNx - 1, downGuard[0], downGuard[1]}, twist(m.down.OutTwist, 1))
}

// twistShift rotates received guard rows in z by sign*ShiftAngle(x), applied
// where a closed field line crosses its branch cut
func (m *Mesh) twistShift(fields []*field.Field, b block, sign float64) {
	var (
		zlength = m.ZLength()
		sp      *stencils.Spectral
		tmp     []float64
	)
	for _, f := range fields {
		if f.Nz == 1 {
			continue
		}
		if sp == nil || sp.N != f.Nz {
			sp, tmp = stencils.NewSpectral(f.Nz), make([]float64, f.Nz)
		}
		for x := b.x0; x <= b.x1; x++ {
			angle := sign * m.ShiftAngle[m.XGLOBAL(x)]
			if angle == 0 {
				continue
			}
			for y := b.y0; y <= b.y1; y++ {
				line := f.ZLine(x, y)
				sp.Shift(tmp, line, angle/zlength)
				copy(line, tmp)
			}
		}
	}
}

/*
	Point to point messages between processors of the grid
*/
func (m *Mesh) SendToProc(xproc, yproc int, buf []float64, tag int) comm.Request {
	return m.t.Isend(m.procRank(xproc, yproc), tag, buf)
}

// ReceiveFromProc posts a receive, buf is filled once the handle is waited on
func (m *Mesh) ReceiveFromProc(xproc, yproc int, buf []float64, tag int) *CommHandle {
	return &CommHandle{
		recvs: []recvSlot{{req: m.t.Irecv(m.procRank(xproc, yproc), tag, buf), buf: buf}},
	}
}

func (m *Mesh) sendTo(dest int, buf []float64, tag int, side string) comm.Request {
	if dest < 0 {
		return &comm.Completed{Err: fmt.Errorf("send %s: %w", side, ErrNoNeighbour)}
	}
	return m.t.Isend(dest, tag, buf)
}

func (m *Mesh) recvFrom(src int, buf []float64, tag int, side string) comm.Request {
	if src < 0 {
		return &comm.Completed{Err: fmt.Errorf("receive %s: %w", side, ErrNoNeighbour)}
	}
	return m.t.Irecv(src, tag, buf)
}

func (m *Mesh) SendXOut(buf []float64, tag int) comm.Request {
	return m.sendTo(m.xout, buf, tag, "x out")
}

func (m *Mesh) SendXIn(buf []float64, tag int) comm.Request {
	return m.sendTo(m.xin, buf, tag, "x in")
}

func (m *Mesh) IrecvXOut(buf []float64, tag int) comm.Request {
	return m.recvFrom(m.xout, buf, tag, "x out")
}

func (m *Mesh) IrecvXIn(buf []float64, tag int) comm.Request {
	return m.recvFrom(m.xin, buf, tag, "x in")
}

// Y out is the upper end of the processor, y in the lower; indest and outdest
// are the two sides of the x split
func (m *Mesh) SendYOutIndest(buf []float64, tag int) comm.Request {
	return m.sendTo(m.up.InDest, buf, tag, "y out indest")
}

func (m *Mesh) SendYOutOutdest(buf []float64, tag int) comm.Request {
	return m.sendTo(m.up.OutDest, buf, tag, "y out outdest")
}

func (m *Mesh) SendYInIndest(buf []float64, tag int) comm.Request {
	return m.sendTo(m.down.InDest, buf, tag, "y in indest")
}

func (m *Mesh) SendYInOutdest(buf []float64, tag int) comm.Request {
	return m.sendTo(m.down.OutDest, buf, tag, "y in outdest")
}

func (m *Mesh) IrecvYOutIndest(buf []float64, tag int) comm.Request {
	return m.recvFrom(m.up.InDest, buf, tag, "y out indest")
}

func (m *Mesh) IrecvYOutOutdest(buf []float64, tag int) comm.Request {
	return m.recvFrom(m.up.OutDest, buf, tag, "y out outdest")
}

func (m *Mesh) IrecvYInIndest(buf []float64, tag int) comm.Request {
	return m.recvFrom(m.down.InDest, buf, tag, "y in indest")
}

func (m *Mesh) IrecvYInOutdest(buf []float64, tag int) comm.Request {
	return m.recvFrom(m.down.OutDest, buf, tag, "y in outdest")
}

/*
	Communicators
*/

// XComm spans the processors of this processor's x row
func (m *Mesh) XComm(_ int) (*comm.Communicator, error) {
	ranks := make([]int, m.nxpe)
	for px := range ranks {
		ranks[px] = m.procRank(px, m.peyind)
	}
	return comm.NewCommunicator(m.t, ranks)
}

// YComm spans the processors holding the field line through local x
func (m *Mesh) YComm(jx int) (*comm.Communicator, error) {
	return comm.NewCommunicator(m.t, m.yRanks(jx))
}

// yRanks walks the field line at local x through the topology and returns
// the ranks it passes through, sorted
func (m *Mesh) yRanks(jx int) (ranks []int) {
	var (
		inner   = m.XGLOBAL(jx) < m.Topology.Separatrix()
		visited = make(map[int]bool)
		start   = m.YGLOBAL(m.Ystart)
	)
	visit := func(j int) {
		py, _, _ := m.yPart.Owner(j)
		visited[py] = true
	}
	visit(start)
	for _, step := range []func(j int, inner bool) (int, bool){m.Topology.Up, m.Topology.Down} {
		for j := start; ; {
			if j, _ = step(j, inner); j < 0 || j == start {
				break
			}
			visit(j)
		}
	}
	for py := range visited {
		ranks = append(ranks, m.procRank(m.pexind, py))
	}
	sort.Ints(ranks)
	return
}

// AverageY returns the average of f over y along each field line, for every
// x and z. The result is constant in y.
func (m *Mesh) AverageY(f *field.Field) (r *field.Field, err error) {
	r = field.NewLike(f)
	// Group the local x by the processors their field line passes through
	var (
		groups = make(map[string][]int)
		keys   []string
		cs     = make(map[string]*comm.Communicator)
	)
	for x := 0; x < m.LocalNx; x++ {
		ranks := m.yRanks(x)
		key := fmt.Sprint(ranks)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
			if cs[key], err = comm.NewCommunicator(m.t, ranks); err != nil {
				return
			}
		}
		groups[key] = append(groups[key], x)
	}
	sort.Strings(keys)
	for _, key := range keys {
		xs := groups[key]
		// Local sums per (x, z) followed by the point count
		vals := make([]float64, len(xs)*f.Nz+1)
		for i, x := range xs {
			for y := m.Ystart; y <= m.Yend; y++ {
				for z := 0; z < f.Nz; z++ {
					vals[i*f.Nz+z] += f.At(x, y, z)
				}
			}
		}
		vals[len(vals)-1] = float64(m.Yend - m.Ystart + 1)
		var sum []float64
		if sum, err = cs[key].AllReduceSum(vals, AVERAGE_Y); err != nil {
			return nil, fmt.Errorf("averaging in y: %w", err)
		}
		n := sum[len(sum)-1]
		for i, x := range xs {
			for y := 0; y < f.Ny; y++ {
				for z := 0; z < f.Nz; z++ {
					r.Set(x, y, z, sum[i*f.Nz+z]/n)
				}
			}
		}
	}
	return
}
