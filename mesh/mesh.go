// Package mesh decomposes a structured (x, y, z) grid over a rectangular grid
// of processors, exchanges guard cells between them and differentiates fields
// in index space.
package mesh

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/notargets/plasmamesh/comm"
	"github.com/notargets/plasmamesh/coords"
	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/griddata"
	"github.com/notargets/plasmamesh/stencils"
	"github.com/notargets/plasmamesh/transform"
	"github.com/notargets/plasmamesh/types"
	"github.com/notargets/plasmamesh/utils"
)

/*
Mesh is the part of a global grid owned by one processor.

The global grid has GlobalNx points in x including MXG boundary cells at each
end, GlobalNy interior points in y and GlobalNz points in z. Each processor
holds a LocalNx x LocalNy x LocalNz block: its interior [Xstart, Xend] x
[Ystart, Yend] surrounded by MXG and MYG guard cells. z is not decomposed.
*/
type Mesh struct {
	source griddata.Source
	opts   Options
	t      comm.Transport
	log    *slog.Logger

	GlobalNx, GlobalNy, GlobalNz int
	MX                           int // Interior x points of the global grid
	MXG, MYG                     int
	LocalNx, LocalNy, LocalNz    int
	Xstart, Xend, Ystart, Yend   int
	OffsetX, OffsetY, OffsetZ    int

	nxpe, nype     int
	pexind, peyind int
	xPart, yPart   *utils.PartitionMap

	PeriodicX    bool
	StaggerGrids bool
	ShiftXderivs bool
	IncIntShear  bool
	TwistShift   bool
	ZMin, ZMax   float64 // Fractions of 2π

	Topology   Topology
	ShiftAngle []float64 // Twist-shift angle per global x

	xin, xout int // Ranks across the x guards, -1 at a boundary
	up, down  YLink

	defaults      *stencils.Defaults
	boundaries    []*BoundaryRegion
	boundariesPar []*BoundaryRegion

	coords    map[types.CellLoc]*coords.Coordinates
	transform transform.ParallelTransform
	loaded    bool
}

func New(source griddata.Source, opts Options, t comm.Transport, opt ...Option) (m *Mesh, err error) {
	if source == nil {
		source = griddata.NewMemory()
	}
	if t == nil {
		return nil, fmt.Errorf("mesh needs a transport: %w", ErrConfig)
	}
	m = &Mesh{
		source: source,
		opts:   opts,
		t:      t,
		log:    slog.Default(),
		coords: make(map[types.CellLoc]*coords.Coordinates),
	}
	for _, o := range opt {
		o(m)
	}
	return
}

// gridInt reads an integer from the grid, then the options
func (m *Mesh) gridInt(name string, def int) (val int, err error) {
	if m.source.HasVar(name) {
		var f float64
		if f, err = m.source.Scalar(name); err != nil {
			return
		}
		return int(math.Round(f)), nil
	}
	return optInt(m.opts, name, def), nil
}

// Load reads the grid sizes and topology, decomposes the grid over the
// processors and builds the connections between them
func (m *Mesh) Load() (err error) {
	if m.loaded {
		return fmt.Errorf("mesh already loaded: %w", ErrConfig)
	}
	var (
		nx, ny, nz int
		nproc      = m.t.Size()
	)
	if nx, err = m.gridInt("nx", 0); err != nil {
		return
	}
	if ny, err = m.gridInt("ny", 0); err != nil {
		return
	}
	if nz, err = m.gridInt("nz", 1); err != nil {
		return
	}
	m.MXG, m.MYG = optInt(m.opts, "MXG", 2), optInt(m.opts, "MYG", 2)
	switch {
	case m.MXG < 0 || m.MYG < 0:
		return fmt.Errorf("guard cell counts must be non negative, MXG = %d, MYG = %d: %w", m.MXG, m.MYG, ErrConfig)
	case nx <= 2*m.MXG || ny < 1 || nz < 1:
		return fmt.Errorf("grid size %d x %d x %d too small for MXG = %d: %w", nx, ny, nz, m.MXG, ErrConfig)
	}
	m.GlobalNx, m.GlobalNy, m.GlobalNz = nx, ny, nz
	m.MX = nx - 2*m.MXG

	m.PeriodicX = optBool(m.opts, "periodicX", false)
	m.StaggerGrids = optBool(m.opts, "StaggerGrids", false)
	m.ShiftXderivs = optBool(m.opts, "ShiftXderivs", false)
	m.IncIntShear = optBool(m.opts, "IncIntShear", false)
	m.TwistShift = optBool(m.opts, "TwistShift", false)
	m.ZMin, m.ZMax = optFloat(m.opts, "ZMIN", 0), optFloat(m.opts, "ZMAX", 1)
	if m.ZMax <= m.ZMin {
		return fmt.Errorf("ZMAX %g must exceed ZMIN %g: %w", m.ZMax, m.ZMin, ErrConfig)
	}
	if err = m.readTopology(); err != nil {
		return
	}

	if m.opts != nil && m.opts.IsSet("NXPE") {
		m.nxpe = m.opts.GetInt("NXPE")
		if m.nxpe < 1 || nproc%m.nxpe != 0 {
			return fmt.Errorf("NXPE = %d does not divide %d processors: %w", m.nxpe, nproc, ErrConfig)
		}
		if err = m.checkDecomposition(m.nxpe); err != nil {
			return
		}
	} else if m.nxpe, err = m.chooseNXPE(nproc); err != nil {
		return
	}
	m.nype = nproc / m.nxpe
	m.xPart = utils.NewPartitionMap(m.nxpe, m.MX)
	m.yPart = utils.NewPartitionMap(m.nype, ny)

	rank := m.t.Rank()
	m.pexind, m.peyind = rank%m.nxpe, rank/m.nxpe
	xs, xe := m.xPart.Range(m.pexind)
	ys, ye := m.yPart.Range(m.peyind)
	m.LocalNx, m.LocalNy, m.LocalNz = xe-xs+2*m.MXG, ye-ys+2*m.MYG, nz
	m.Xstart, m.Xend = m.MXG, m.MXG+xe-xs-1
	m.Ystart, m.Yend = m.MYG, m.MYG+ye-ys-1
	// Global x counts the boundary cells, global y does not
	m.OffsetX, m.OffsetY, m.OffsetZ = xs, ys-m.MYG, 0

	m.xin, m.xout = -1, -1
	if m.pexind > 0 || m.PeriodicX {
		m.xin = m.procRank((m.pexind+m.nxpe-1)%m.nxpe, m.peyind)
	}
	if m.pexind < m.nxpe-1 || m.PeriodicX {
		m.xout = m.procRank((m.pexind+1)%m.nxpe, m.peyind)
	}
	if m.up, err = m.yLink(true); err != nil {
		return
	}
	if m.down, err = m.yLink(false); err != nil {
		return
	}

	if m.defaults, err = stencils.NewDefaults(m.opts, m.log); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err = m.checkDefaultWidths(); err != nil {
		return
	}
	switch pt := strings.ToLower(optString(m.opts, "paralleltransform", "identity")); pt {
	case "identity", "shifted":
	default:
		return fmt.Errorf("unknown parallel transform %q, options are [identity shifted]: %w", pt, ErrConfig)
	}
	m.boundaries = m.globalBoundaries()
	m.loaded = true

	m.log.Info("mesh loaded",
		"rank", rank, "topology", m.Topology.Name(),
		"global", fmt.Sprintf("%dx%dx%d", nx, ny, nz),
		"local", fmt.Sprintf("%dx%dx%d", m.LocalNx, m.LocalNy, m.LocalNz),
		"NXPE", m.nxpe, "NYPE", m.nype, "PE_XIND", m.pexind, "PE_YIND", m.peyind)
	m.log.Debug("mesh connections", "rank", rank,
		"xin", m.xin, "xout", m.xout,
		"up", fmt.Sprintf("%+v", m.up), "down", fmt.Sprintf("%+v", m.down))
	return
}

func (m *Mesh) readTopology() (err error) {
	var (
		nx, ny                       = m.GlobalNx, m.GlobalNy
		ixseps1, jyseps1_1, jyseps22 int
	)
	if ixseps1, err = m.gridInt("ixseps1", nx); err != nil {
		return
	}
	if jyseps1_1, err = m.gridInt("jyseps1_1", -1); err != nil {
		return
	}
	if jyseps22, err = m.gridInt("jyseps2_2", ny-1); err != nil {
		return
	}
	noLegs := jyseps1_1 < 0 && jyseps22 >= ny-1
	switch {
	case noLegs && m.opts != nil && m.opts.IsSet("periodicY"):
		m.Topology = Rectangular{NY: ny, PeriodicY: m.opts.GetBool("periodicY")}
	case noLegs && ixseps1 >= nx:
		m.Topology = Rectangular{NY: ny, PeriodicY: true}
	case noLegs && ixseps1 <= 0:
		m.Topology = Rectangular{NY: ny}
	default:
		if m.Topology, err = NewSingleNull(ny, ixseps1, jyseps1_1, jyseps22); err != nil {
			return
		}
	}
	m.ShiftAngle = make([]float64, nx)
	if m.source.HasVar("ShiftAngle") {
		var sa []float64
		if sa, err = m.source.Array1D("ShiftAngle"); err != nil {
			return
		}
		if len(sa) != nx {
			return fmt.Errorf("ShiftAngle has %d values, need nx = %d: %w", len(sa), nx, ErrConfig)
		}
		copy(m.ShiftAngle, sa)
	} else if m.TwistShift {
		m.log.Warn("TwistShift is set but the grid has no ShiftAngle, using zero")
	}
	return
}

// checkDecomposition tests an NXPE choice against the guard cell and branch cut
// constraints
func (m *Mesh) checkDecomposition(nxpe int) error {
	var (
		nype  = m.t.Size() / nxpe
		xPart = utils.NewPartitionMap(nxpe, m.MX)
		yPart = utils.NewPartitionMap(nype, m.GlobalNy)
	)
	if sz := xPart.Size(nxpe - 1); sz < m.MXG || sz < 1 {
		return fmt.Errorf("NXPE = %d leaves %d x points per processor, need at least MXG = %d: %w",
			nxpe, sz, m.MXG, ErrConfig)
	}
	if sz := yPart.Size(nype - 1); sz < m.MYG || sz < 1 {
		return fmt.Errorf("NYPE = %d leaves %d y points per processor, need at least MYG = %d: %w",
			nype, sz, m.MYG, ErrConfig)
	}
	for _, cut := range m.Topology.Cuts() {
		if _, start, _ := yPart.Owner(cut); start != cut {
			return fmt.Errorf("branch cut at y = %d is not on a processor boundary with NYPE = %d: %w",
				cut, nype, ErrConfig)
		}
	}
	return nil
}

// chooseNXPE picks the valid NXPE closest to giving square subdomains
func (m *Mesh) chooseNXPE(nproc int) (nxpe int, err error) {
	var (
		ideal = math.Sqrt(float64(m.MX) * float64(nproc) / float64(m.GlobalNy))
		best  = math.Inf(1)
		errs  []error
	)
	for i := 1; i <= nproc; i++ {
		if nproc%i != 0 {
			continue
		}
		if e := m.checkDecomposition(i); e != nil {
			errs = append(errs, e)
			continue
		}
		if d := math.Abs(float64(i) - ideal); d < best {
			best, nxpe = d, i
		}
	}
	if nxpe == 0 {
		err = fmt.Errorf("no valid decomposition of %d processors: %w", nproc, errors.Join(errs...))
	}
	return
}

func (m *Mesh) checkDefaultWidths() error {
	for _, dir := range []types.Direction{types.X, types.Y} {
		guards := m.MXG
		if dir == types.Y {
			guards = m.MYG
		}
		for _, kind := range []types.DerivKind{types.FIRST, types.SECOND, types.UPWIND, types.FLUX} {
			k, err := m.defaults.Resolve(dir, kind, false, types.DIFF_DEFAULT)
			if err != nil {
				return err
			}
			if k.Width > guards {
				return fmt.Errorf("default %s %s method %s needs %d guard cells, have %d: %w",
					dir, kind, k.Method.Key(), k.Width, guards, ErrConfig)
			}
		}
	}
	return nil
}

func (m *Mesh) procRank(xproc, yproc int) int {
	return yproc*m.nxpe + xproc
}

// yLink connects the top (up) or bottom row of this processor
func (m *Mesh) yLink(up bool) (l YLink, err error) {
	ys, ye := m.yPart.Range(m.peyind)
	edge := ys
	if up {
		edge = ye - 1
	}
	l.XSplit = m.Topology.Separatrix() - m.OffsetX
	l.XSplit = max(0, min(l.XSplit, m.LocalNx))
	l.InDest, l.OutDest = -1, -1
	dest := func(inner bool) (rank int, twist bool, err error) {
		var j int
		if up {
			j, twist = m.Topology.Up(edge, inner)
		} else {
			j, twist = m.Topology.Down(edge, inner)
		}
		if j < 0 {
			return -1, false, nil
		}
		py, start, end := m.yPart.Owner(j)
		if (up && start != j) || (!up && end-1 != j) {
			return -1, false, fmt.Errorf("y connection from row %d to row %d crosses a processor interior: %w",
				edge, j, ErrConfig)
		}
		return m.procRank(m.pexind, py), twist, nil
	}
	if l.XSplit > 0 {
		if l.InDest, l.InTwist, err = dest(true); err != nil {
			return
		}
	}
	if l.XSplit < m.LocalNx {
		l.OutDest, l.OutTwist, err = dest(false)
	}
	return
}

/*
	Accessors
*/
func (m *Mesh) Transport() comm.Transport { return m.t }
func (m *Mesh) Logger() *slog.Logger      { return m.log }
func (m *Mesh) NXPE() int                 { return m.nxpe }
func (m *Mesh) NYPE() int                 { return m.nype }
func (m *Mesh) XProcIndex() int           { return m.pexind }
func (m *Mesh) YProcIndex() int           { return m.peyind }
func (m *Mesh) FirstX() bool              { return m.pexind == 0 }
func (m *Mesh) LastX() bool               { return m.pexind == m.nxpe-1 }
func (m *Mesh) FirstY() bool              { return m.peyind == 0 }
func (m *Mesh) LastY() bool               { return m.peyind == m.nype-1 }
func (m *Mesh) UpXSplitIndex() int        { return m.up.XSplit }
func (m *Mesh) DownXSplitIndex() int      { return m.down.XSplit }
func (m *Mesh) UpLink() YLink             { return m.up }
func (m *Mesh) DownLink() YLink           { return m.down }
func (m *Mesh) Defaults() *stencils.Defaults {
	return m.defaults
}

func (m *Mesh) LocalSize() (nx, ny, nz int) {
	return m.LocalNx, m.LocalNy, m.LocalNz
}

func (m *Mesh) Interior() (xstart, xend, ystart, yend int) {
	return m.Xstart, m.Xend, m.Ystart, m.Yend
}

// ZLength is the length of the periodic z domain
func (m *Mesh) ZLength() float64 {
	return 2. * math.Pi * (m.ZMax - m.ZMin)
}

// FirstYAt is true when the lower y guards at local x are a physical boundary
func (m *Mesh) FirstYAt(xpos int) bool {
	return m.down.Dest(xpos) < 0
}

// LastYAt is true when the upper y guards at local x are a physical boundary
func (m *Mesh) LastYAt(xpos int) bool {
	return m.up.Dest(xpos) < 0
}

// PeriodicY reports whether the field line at local x closes in y, with the
// twist-shift angle applied across the closure
func (m *Mesh) PeriodicY(jx int) (periodic bool, twist float64) {
	xg := m.XGLOBAL(jx)
	if periodic = m.Topology.Periodic(xg, m.YGLOBAL(m.Ystart)); periodic && m.TwistShift {
		twist = m.ShiftAngle[xg]
	}
	return
}

// YSize is the number of y points on the field line at local x
func (m *Mesh) YSize(jx int) int {
	return m.Topology.YSize(m.XGLOBAL(jx), m.YGLOBAL(m.Ystart))
}

/*
	Global indices
*/
func (m *Mesh) XGLOBAL(x int) int { return x + m.OffsetX }
func (m *Mesh) YGLOBAL(y int) int { return y + m.OffsetY }

// XLOCAL returns the local index of a global x, which may be outside the block
func (m *Mesh) XLOCAL(xg int) int { return xg - m.OffsetX }
func (m *Mesh) YLOCAL(yg int) int { return yg - m.OffsetY }

// GlobalX is the normalized x position of local jx, 0 to 1 across the interior
func (m *Mesh) GlobalX(jx int) float64 {
	return m.GlobalXf(float64(jx))
}

func (m *Mesh) GlobalXf(jx float64) float64 {
	return (0.5 + jx + float64(m.OffsetX-m.MXG)) / float64(m.MX)
}

// GlobalY is the normalized y position of local jy
func (m *Mesh) GlobalY(jy int) float64 {
	return m.GlobalYf(float64(jy))
}

func (m *Mesh) GlobalYf(jy float64) float64 {
	return (0.5 + jy + float64(m.OffsetY)) / float64(m.GlobalNy)
}

/*
	Grid data
*/
func (m *Mesh) SourceHasVar(name string) bool {
	return m.source.HasVar(name)
}

func (m *Mesh) GetInt(name string, def int) (val int, err error) {
	if !m.source.HasVar(name) {
		return def, fmt.Errorf("%s: %w", name, griddata.ErrNotFound)
	}
	var f float64
	if f, err = m.source.Scalar(name); err != nil {
		return def, err
	}
	return int(math.Round(f)), nil
}

func (m *Mesh) GetReal(name string, def float64) (val float64, err error) {
	if !m.source.HasVar(name) {
		return def, fmt.Errorf("%s: %w", name, griddata.ErrNotFound)
	}
	if val, err = m.source.Scalar(name); err != nil {
		return def, err
	}
	return
}

/*
Get reads a field from the grid: a scalar, a profile in x or an (x, y) array.
A missing variable gives a field of def and an error wrapping
griddata.ErrNotFound. Physical y guard cells are extrapolated linearly, the
y seams are filled by the next Communicate.
*/
func (m *Mesh) Get(name string, def float64) (f *field.Field, err error) {
	f = field.NewConst(m.LocalNx, m.LocalNy, m.LocalNz, def, types.CELL_CENTRE)
	if !m.source.HasVar(name) {
		return f, fmt.Errorf("%s: %w", name, griddata.ErrNotFound)
	}
	if val, serr := m.source.Scalar(name); serr == nil {
		f.Fill(val)
		return
	}
	var value func(xg, yg int) float64
	if prof, perr := m.source.Array1D(name); perr == nil {
		if len(prof) != m.GlobalNx {
			return f, fmt.Errorf("profile %s has %d values, need %d: %w", name, len(prof), m.GlobalNx, ErrConfig)
		}
		value = func(xg, _ int) float64 { return prof[xg] }
	} else {
		var arr [][]float64
		if arr, err = m.source.Array2D(name); err != nil {
			return
		}
		if len(arr) != m.GlobalNx {
			return f, fmt.Errorf("field %s has %d x points, need %d: %w", name, len(arr), m.GlobalNx, ErrConfig)
		}
		for _, col := range arr {
			if len(col) != m.GlobalNy {
				return f, fmt.Errorf("field %s has %d y points, need %d: %w", name, len(col), m.GlobalNy, ErrConfig)
			}
		}
		value = func(xg, yg int) float64 { return arr[xg][yg] }
	}
	for x := 0; x < m.LocalNx; x++ {
		for y := m.Ystart; y <= m.Yend; y++ {
			val := value(m.XGLOBAL(x), m.YGLOBAL(y))
			for z := 0; z < m.LocalNz; z++ {
				f.Set(x, y, z, val)
			}
		}
		m.extrapolateY(f, x)
	}
	return
}

func (m *Mesh) extrapolateY(f *field.Field, x int) {
	for z := 0; z < f.Nz; z++ {
		for y := m.Ystart - 1; y >= 0; y-- {
			val := f.At(x, y+1, z)
			if y+2 <= m.Yend {
				val = 2*val - f.At(x, y+2, z)
			}
			f.Set(x, y, z, val)
		}
		for y := m.Yend + 1; y < f.Ny; y++ {
			val := f.At(x, y-1, z)
			if y-2 >= m.Ystart {
				val = 2*val - f.At(x, y-2, z)
			}
			f.Set(x, y, z, val)
		}
	}
}

// GetVector reads the components <name>_x, <name>_y and <name>_z, each
// defaulting to zero
func (m *Mesh) GetVector(name string, covariant bool) (v field.Vector, err error) {
	var (
		comp [3]*field.Field
		errs []error
	)
	for i, suffix := range []string{"_x", "_y", "_z"} {
		var e error
		if comp[i], e = m.Get(name+suffix, 0); e != nil {
			errs = append(errs, e)
		}
	}
	v = field.NewVectorFrom(comp[0], comp[1], comp[2], covariant)
	err = errors.Join(errs...)
	return
}

/*
	Coordinates and parallel transform, created on first use
*/

// Coordinates returns the cell centre coordinates
func (m *Mesh) Coordinates() *coords.Coordinates {
	return m.CoordinatesAt(types.CELL_CENTRE)
}

// CoordinatesAt panics if the coordinates cannot be built, LoadCoordinates
// returns the error instead
func (m *Mesh) CoordinatesAt(loc types.CellLoc) *coords.Coordinates {
	c, err := m.LoadCoordinates(loc)
	if err != nil {
		panic(err)
	}
	return c
}

func (m *Mesh) LoadCoordinates(loc types.CellLoc) (c *coords.Coordinates, err error) {
	if loc == types.CELL_DEFAULT {
		loc = types.CELL_CENTRE
	}
	var ok bool
	if c, ok = m.coords[loc]; ok {
		return
	}
	if c, err = coords.New(m, loc); err != nil {
		return
	}
	m.coords[loc] = c
	return
}

// SetCoordinates replaces the coordinates at c's location
func (m *Mesh) SetCoordinates(c *coords.Coordinates) {
	m.coords[c.Location] = c
}

func (m *Mesh) ParallelTransform() transform.ParallelTransform {
	if m.transform != nil {
		return m.transform
	}
	switch strings.ToLower(optString(m.opts, "paralleltransform", "identity")) {
	case "shifted":
		zShift, err := m.Get("zShift", 0)
		if err != nil {
			if !errors.Is(err, griddata.ErrNotFound) {
				panic(err)
			}
			m.log.Warn("shifted metric without zShift in the grid, using zero")
		}
		m.transform = transform.NewShiftedMetric(zShift, m.ZLength())
	default:
		m.transform = transform.Identity{}
	}
	return m.transform
}

func (m *Mesh) SetParallelTransform(pt transform.ParallelTransform) {
	m.transform = pt
}

func (m *Mesh) ToFieldAligned(f *field.Field) *field.Field {
	return m.ParallelTransform().ToFieldAligned(f)
}

func (m *Mesh) FromFieldAligned(f *field.Field) *field.Field {
	return m.ParallelTransform().FromFieldAligned(f)
}

// NewField allocates a zero field over the local block
func (m *Mesh) NewField(loc types.CellLoc) *field.Field {
	return field.New(m.LocalNx, m.LocalNy, m.LocalNz, loc)
}

// NewFieldFunc fills a field from a function of the global normalized x, y and
// the z angle
func (m *Mesh) NewFieldFunc(loc types.CellLoc, fn func(x, y, z float64) float64) *field.Field {
	dz := m.ZLength() / float64(m.LocalNz)
	return field.NewFunc(m.LocalNx, m.LocalNy, m.LocalNz, loc, func(ix, iy, iz int) float64 {
		return fn(m.GlobalX(ix), m.GlobalY(iy), float64(iz)*dz)
	})
}
