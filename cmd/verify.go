package cmd

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/james-bowman/sparse"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/plasmamesh/InputParameters"
	"github.com/notargets/plasmamesh/coords"
	"github.com/notargets/plasmamesh/field"
	"github.com/notargets/plasmamesh/griddata"
	"github.com/notargets/plasmamesh/mesh"
	"github.com/notargets/plasmamesh/stencils"
	"github.com/notargets/plasmamesh/types"
	"github.com/notargets/plasmamesh/vecops"
)

type VerifyReport struct {
	Rank                   int
	GuardCells, Mismatches int
	MetricError            float64            // Max |g^ik g_kj - δ_ij|
	DDZError               map[string]float64 // Max error of d/dz sin(kz) by method
	MatrixError            float64            // Max |M f - DDZ f| of the sparse Z operators
}

var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the halo exchange, metric and Z derivatives on a decomposed grid",
	Long: `
Decomposes the grid as decomp does, then on every rank:
  - exchanges the global indices and checks every seam guard cell received a
    value from the right column or row
  - checks the metric inversion
  - compares the Z derivative of sin(kz) with its exact value
  - checks the sparse operator matrices of the linear Z methods against the
    stencil derivative`,
	Run: func(cmd *cobra.Command, args []string) {
		mr := meshRun(cmd)
		ip, src := processInput(mr)
		reports, err := RunVerify(ip, src, meshOptions(ip), mr.NProc, mr.Log)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		if bad := PrintVerify(reports); bad {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(VerifyCmd)
	VerifyCmd.Flags().StringP("inputFile", "I", "", "YAML mesh parameters file")
	VerifyCmd.Flags().IntP("nproc", "n", 0, "number of processors, overrides NProc in the input file")
}

func RunVerify(ip *InputParameters.MeshParameters, src griddata.Source, opts mesh.Options,
	nproc int, log *slog.Logger) (reports []VerifyReport, err error) {
	if nproc < 1 {
		nproc = max(ip.NProc, 1)
	}
	reports = make([]VerifyReport, nproc)
	err = loadMeshes(src, opts, nproc, log, func(m *mesh.Mesh) (err error) {
		r := VerifyReport{Rank: m.Transport().Rank()}
		if r.GuardCells, r.Mismatches, err = checkExchange(m); err != nil {
			return
		}
		r.MetricError = metricError(m.Coordinates())
		r.DDZError = ddzError(vecops.New(m))
		if r.MatrixError, err = matrixError(m); err != nil {
			return
		}
		reports[r.Rank] = r
		return
	})
	return
}

// checkExchange fills the seam guard cells with NaN, exchanges the global x
// and y indices and checks what arrived
func checkExchange(m *mesh.Mesh) (cells, bad int, err error) {
	var (
		xg = indexField(m, func(x, y int) float64 { return float64(m.XGLOBAL(x)) })
		yg = indexField(m, func(x, y int) float64 { return float64(m.YGLOBAL(y)) })
		mx = float64(m.MX)
	)
	seams := make([]*mesh.BoundaryRegion, 0)
	for _, b := range m.GuardRegions() {
		if b.IsGlobal() {
			continue
		}
		seams = append(seams, b)
		for b.First(); !b.IsDone(); b.Next() {
			for z := 0; z < m.LocalNz; z++ {
				xg.Set(b.X, b.Y, z, math.NaN())
				yg.Set(b.X, b.Y, z, math.NaN())
			}
		}
	}
	if err = m.Communicate(xg, yg); err != nil {
		return
	}
	for _, b := range seams {
		xSide := b.Side == mesh.BNDRY_XIN || b.Side == mesh.BNDRY_XOUT
		for b.First(); !b.IsDone(); b.Next() {
			for z := 0; z < m.LocalNz; z++ {
				cells++
				gx, gy := xg.At(b.X, b.Y, z), yg.At(b.X, b.Y, z)
				switch {
				case math.IsNaN(gx) || math.IsNaN(gy):
					bad++
				case math.Abs(math.Remainder(gx-float64(m.XGLOBAL(b.X)), mx)) > 1.e-9:
					bad++
				case xSide && math.Abs(gy-float64(m.YGLOBAL(b.Y))) > 1.e-9:
					bad++
				}
			}
		}
	}
	return
}

func indexField(m *mesh.Mesh, fn func(x, y int) float64) (f *field.Field) {
	f = m.NewField(types.CELL_CENTRE)
	for x := 0; x < m.LocalNx; x++ {
		for y := 0; y < m.LocalNy; y++ {
			val := fn(x, y)
			for z := 0; z < m.LocalNz; z++ {
				f.Set(x, y, z, val)
			}
		}
	}
	return
}

func metricError(c *coords.Coordinates) (e float64) {
	for i := types.X; i <= types.Z; i++ {
		for j := types.X; j <= types.Z; j++ {
			var (
				n    = len(c.G11.Data)
				prod = make([]float64, n)
				tmp  = make([]float64, n)
			)
			for k := types.X; k <= types.Z; k++ {
				floats.MulTo(tmp, c.Contravariant(i, k).Data, c.Covariant(k, j).Data)
				floats.Add(prod, tmp)
			}
			if i == j {
				floats.AddConst(-1, prod)
			}
			e = math.Max(e, floats.Norm(prod, math.Inf(1)))
		}
	}
	return
}

func ddzError(ops *vecops.Operators) (errs map[string]float64) {
	var (
		m    = ops.Mesh()
		k    = 2 * math.Pi / m.ZLength()
		f    = m.NewFieldFunc(types.CELL_CENTRE, func(_, _, z float64) float64 { return math.Sin(k * z) })
		want = m.NewFieldFunc(types.CELL_CENTRE, func(_, _, z float64) float64 { return k * math.Cos(k*z) })
	)
	errs = make(map[string]float64)
	for _, method := range []types.DiffMethod{types.DIFF_C2, types.DIFF_C4, types.DIFF_FFT} {
		var (
			r = ops.DDZ(f, vecops.Config{Method: method})
			e float64
		)
		for x := m.Xstart; x <= m.Xend; x++ {
			for y := m.Ystart; y <= m.Yend; y++ {
				diff := make([]float64, m.LocalNz)
				floats.SubTo(diff, r.ZLine(x, y), want.ZLine(x, y))
				e = math.Max(e, floats.Norm(diff, math.Inf(1)))
			}
		}
		errs[method.Key()] = e
	}
	return
}

// matrixError assembles the periodic Z operator of each linear first
// derivative method and compares M·f with the index derivative on every line
func matrixError(m *mesh.Mesh) (e float64, err error) {
	k := 2 * math.Pi / m.ZLength()
	f := m.NewFieldFunc(types.CELL_CENTRE, func(x, _, z float64) float64 { return x * math.Sin(k*z) })
	for _, method := range []types.DiffMethod{types.DIFF_C2, types.DIFF_C4} {
		var (
			kern stencils.Kernel
			M    *sparse.CSR
		)
		if kern, err = m.Defaults().Resolve(types.Z, types.FIRST, false, method); err != nil {
			return
		}
		if M, err = stencils.OperatorMatrix(kern, m.LocalNz, true); err != nil {
			return
		}
		r := m.IndexDDZ(f, types.CELL_DEFAULT, method, false)
		for x := m.Xstart; x <= m.Xend; x++ {
			for y := m.Ystart; y <= m.Yend; y++ {
				diff := stencils.ApplyMatrix(M, f.ZLine(x, y))
				floats.Sub(diff, r.ZLine(x, y))
				e = math.Max(e, floats.Norm(diff, math.Inf(1)))
			}
		}
	}
	return
}

// PrintVerify reports whether any rank failed the exchange check
func PrintVerify(reports []VerifyReport) (bad bool) {
	fmt.Printf("%4s %8s %10s %12s %12s %12s %12s %12s\n",
		"rank", "guards", "mismatch", "metric", "ddz C2", "ddz C4", "ddz FFT", "matrix")
	for _, r := range reports {
		fmt.Printf("%4d %8d %10d %12.4e %12.4e %12.4e %12.4e %12.4e\n", r.Rank, r.GuardCells, r.Mismatches,
			r.MetricError, r.DDZError["C2"], r.DDZError["C4"], r.DDZError["FFT"], r.MatrixError)
		if r.Mismatches > 0 || r.MatrixError > 1.e-9 {
			bad = true
		}
	}
	return
}
