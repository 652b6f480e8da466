package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/plasmamesh/InputParameters"
	"github.com/notargets/plasmamesh/comm"
	"github.com/notargets/plasmamesh/griddata"
	"github.com/notargets/plasmamesh/mesh"
)

type MeshRun struct {
	InputFile string
	NProc     int
	Log       *slog.Logger
}

// RankReport is what one processor knows about its place in the decomposition
type RankReport struct {
	Rank, PEX, PEY          int
	LocalNx, LocalNy, Nz    int
	OffsetX, OffsetY        int
	Xstart, Xend            int
	Ystart, Yend            int
	Up, Down                mesh.YLink
	Regions                 []string
	Topology                string
	NXPE, NYPE              int
	GlobalNx, GlobalNy, MXG int
}

var DecompCmd = &cobra.Command{
	Use:   "decomp",
	Short: "Decompose a grid over processors and print what each one holds",
	Long: `
Reads a mesh parameters file, splits the grid over the requested number of
processors and prints the local block, offsets, neighbours and guard regions
of every rank.`,
	Run: func(cmd *cobra.Command, args []string) {
		mr := meshRun(cmd)
		ip, src := processInput(mr)
		reports, err := RunDecomp(ip, src, meshOptions(ip), mr.NProc, mr.Log)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		ip.Print()
		PrintDecomp(reports)
	},
}

func init() {
	rootCmd.AddCommand(DecompCmd)
	DecompCmd.Flags().StringP("inputFile", "I", "", "YAML mesh parameters file")
	DecompCmd.Flags().IntP("nproc", "n", 0, "number of processors, overrides NProc in the input file")
}

func meshRun(cmd *cobra.Command) (mr *MeshRun) {
	mr = &MeshRun{Log: newLogger(cmd)}
	mr.InputFile, _ = cmd.Flags().GetString("inputFile")
	mr.NProc, _ = cmd.Flags().GetInt("nproc")
	return
}

func processInput(mr *MeshRun) (ip *InputParameters.MeshParameters, src griddata.Source) {
	var err error
	if len(mr.InputFile) == 0 {
		fmt.Printf("error: must supply a mesh parameters file (-I, --inputFile)\n")
		exampleFile := `
########################################
Title: "Slab"
NProc: 4
nx: 20 # Includes 2*MXG boundary cells
ny: 16
nz: 8
periodicX: false
ddz:
  first: FFT
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	if ip, err = ReadInput(mr.InputFile); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	if mr.NProc > 0 {
		ip.NProc = mr.NProc
	}
	if src, err = GridSource(ip); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	return
}

func ReadInput(path string) (ip *InputParameters.MeshParameters, err error) {
	var data []byte
	if path, err = homedir.Expand(path); err != nil {
		return
	}
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	ip = &InputParameters.MeshParameters{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return
}

// GridSource reads the grid file named in the parameters, or builds a uniform
// grid of the parameter sizes when there is none. Sizes in the parameters
// override those in the file.
func GridSource(ip *InputParameters.MeshParameters) (src *griddata.Memory, err error) {
	if ip.GridFile != "" {
		var path string
		if path, err = homedir.Expand(ip.GridFile); err != nil {
			return
		}
		if src, err = griddata.ReadYAMLFile(path); err != nil {
			return
		}
	} else {
		if ip.NX == 0 || ip.NY == 0 {
			return nil, fmt.Errorf("no GridFile and no grid size given, need nx and ny")
		}
		src = griddata.NewMemory()
	}
	for name, n := range map[string]int{"nx": ip.NX, "ny": ip.NY, "nz": ip.NZ} {
		if n != 0 {
			src.SetScalar(name, float64(n))
		}
	}
	return
}

// meshOptions layers the parameters file over the config file settings
func meshOptions(ip *InputParameters.MeshParameters) (opts *viper.Viper) {
	opts = viper.New()
	for _, key := range viper.AllKeys() {
		opts.Set(key, viper.Get(key))
	}
	for key, val := range ip.Options() {
		opts.Set(key, val)
	}
	return
}

// loadMeshes runs fn on a loaded mesh for each of nproc in process ranks
func loadMeshes(src griddata.Source, opts mesh.Options, nproc int, log *slog.Logger,
	fn func(m *mesh.Mesh) error) error {
	if nproc < 1 {
		nproc = 1
	}
	w := comm.NewWorld(nproc)
	return w.Run(func(t comm.Transport) (err error) {
		var m *mesh.Mesh
		if m, err = mesh.New(src, opts, t, mesh.WithLogger(log)); err != nil {
			return
		}
		if err = m.Load(); err != nil {
			return fmt.Errorf("rank %d: %w", t.Rank(), err)
		}
		return fn(m)
	})
}

func RunDecomp(ip *InputParameters.MeshParameters, src griddata.Source, opts mesh.Options,
	nproc int, log *slog.Logger) (reports []RankReport, err error) {
	if nproc < 1 {
		nproc = max(ip.NProc, 1)
	}
	reports = make([]RankReport, nproc)
	err = loadMeshes(src, opts, nproc, log, func(m *mesh.Mesh) error {
		r := RankReport{
			Rank: m.Transport().Rank(), PEX: m.XProcIndex(), PEY: m.YProcIndex(),
			LocalNx: m.LocalNx, LocalNy: m.LocalNy, Nz: m.LocalNz,
			OffsetX: m.OffsetX, OffsetY: m.OffsetY,
			Xstart: m.Xstart, Xend: m.Xend, Ystart: m.Ystart, Yend: m.Yend,
			Up: m.UpLink(), Down: m.DownLink(),
			Topology: m.Topology.Name(), NXPE: m.NXPE(), NYPE: m.NYPE(),
			GlobalNx: m.GlobalNx, GlobalNy: m.GlobalNy, MXG: m.MXG,
		}
		for _, b := range m.GuardRegions() {
			r.Regions = append(r.Regions, fmt.Sprintf("%s[%s]->%d", b.Label, b.Kind, b.Dest))
		}
		reports[r.Rank] = r
		return nil
	})
	return
}

func PrintDecomp(reports []RankReport) {
	if len(reports) == 0 {
		return
	}
	r0 := reports[0]
	fmt.Printf("[%s]\t= Topology\n", r0.Topology)
	fmt.Printf("[%d x %d]\t\t= NXPE x NYPE\n", r0.NXPE, r0.NYPE)
	fmt.Printf("%4s %6s %9s %9s %9s %9s %s\n", "rank", "PE", "local", "offset", "x range", "y range", "guard regions")
	for _, r := range reports {
		fmt.Printf("%4d %6s %9s %9s %9s %9s %s\n", r.Rank,
			fmt.Sprintf("%d,%d", r.PEX, r.PEY),
			fmt.Sprintf("%dx%dx%d", r.LocalNx, r.LocalNy, r.Nz),
			fmt.Sprintf("%d,%d", r.OffsetX, r.OffsetY),
			fmt.Sprintf("%d:%d", r.Xstart, r.Xend),
			fmt.Sprintf("%d:%d", r.Ystart, r.Yend),
			strings.Join(r.Regions, " "))
	}
}
