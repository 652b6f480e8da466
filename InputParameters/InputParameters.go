package InputParameters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type MeshParameters struct {
	Title             string            `json:"Title"`
	GridFile          string            `json:"GridFile"`
	NProc             int               `json:"NProc"`
	NX                int               `json:"nx"`
	NY                int               `json:"ny"`
	NZ                int               `json:"nz"`
	MXG               int               `json:"MXG"`
	MYG               int               `json:"MYG"`
	NXPE              int               `json:"NXPE"`
	PeriodicX         bool              `json:"periodicX"`
	PeriodicY         *bool             `json:"periodicY"` // Unset follows the grid topology
	StaggerGrids      bool              `json:"StaggerGrids"`
	ShiftXderivs      bool              `json:"ShiftXderivs"`
	IncIntShear       bool              `json:"IncIntShear"`
	TwistShift        bool              `json:"TwistShift"`
	ParallelTransform string            `json:"ParallelTransform"`
	ZMin              float64           `json:"ZMIN"`
	ZMax              float64           `json:"ZMAX"`
	DDX               map[string]string `json:"ddx"` // Keyed by derivative kind, e.g. first: C4
	DDY               map[string]string `json:"ddy"`
	DDZ               map[string]string `json:"ddz"`
}

func (ip *MeshParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// Options flattens the parameters into named mesh options, leaving out the unset ones
func (ip *MeshParameters) Options() (opts map[string]interface{}) {
	opts = make(map[string]interface{})
	setInt := func(key string, val int) {
		if val != 0 {
			opts[key] = val
		}
	}
	setInt("nx", ip.NX)
	setInt("ny", ip.NY)
	setInt("nz", ip.NZ)
	setInt("MXG", ip.MXG)
	setInt("MYG", ip.MYG)
	setInt("NXPE", ip.NXPE)
	opts["periodicX"] = ip.PeriodicX
	if ip.PeriodicY != nil {
		opts["periodicY"] = *ip.PeriodicY
	}
	opts["StaggerGrids"] = ip.StaggerGrids
	opts["ShiftXderivs"] = ip.ShiftXderivs
	opts["IncIntShear"] = ip.IncIntShear
	opts["TwistShift"] = ip.TwistShift
	if ip.ParallelTransform != "" {
		opts["paralleltransform"] = ip.ParallelTransform
	}
	if ip.ZMax != ip.ZMin {
		opts["ZMIN"] = ip.ZMin
		opts["ZMAX"] = ip.ZMax
	}
	for section, methods := range map[string]map[string]string{
		"ddx": ip.DDX, "ddy": ip.DDY, "ddz": ip.DDZ} {
		for kind, name := range methods {
			opts[section+"."+strings.ToLower(kind)] = name
		}
	}
	return
}

func (ip *MeshParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d x %d x %d]\t\t= Grid Size\n", ip.NX, ip.NY, ip.NZ)
	fmt.Printf("[%d]\t\t\t\t= Processors\n", ip.NProc)
	if ip.GridFile != "" {
		fmt.Printf("[%s]\t= Grid File\n", ip.GridFile)
	}
	if ip.ParallelTransform != "" {
		fmt.Printf("[%s]\t\t= Parallel Transform\n", ip.ParallelTransform)
	}
	for _, section := range []struct {
		name    string
		methods map[string]string
	}{{"ddx", ip.DDX}, {"ddy", ip.DDY}, {"ddz", ip.DDZ}} {
		keys := make([]string, 0, len(section.methods))
		for k := range section.methods {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("%s[%s] = %s\n", section.name, key, section.methods[key])
		}
	}
}
