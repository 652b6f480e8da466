package stencils

import (
	"fmt"
	"sort"

	"github.com/notargets/plasmamesh/types"
)

// Kernel is one entry of a method table. Exactly one of the function fields is
// set, except for SPLIT and FFT which are evaluated a whole field at a time.
type Kernel struct {
	Method types.DiffMethod
	Kind   types.DerivKind
	Stag   bool
	Width  int  // Points needed either side of the output
	Linear bool // Result is a fixed weighting of the stencil

	Deriv  func(f Stencil) float64            // First, second and fourth derivatives
	Upwind func(vc float64, f Stencil) float64 // Upwinding with a centred velocity
	Flow   func(v, f Stencil) float64          // Flux, and upwinding with a staggered velocity
}

// IsSplit is true for methods assembled from other default kernels
func (k Kernel) IsSplit() bool { return k.Method == types.DIFF_SPLIT }

// IsSpectral is true for the FFT method
func (k Kernel) IsSpectral() bool { return k.Method == types.DIFF_FFT }

type tableKey struct {
	Kind types.DerivKind
	Stag bool
}

var tables = map[tableKey][]Kernel{
	{types.FIRST, false}: {
		{Method: types.DIFF_C2, Width: 1, Linear: true, Deriv: DDX_C2},
		{Method: types.DIFF_W2, Width: 1, Deriv: DDX_CWENO2},
		{Method: types.DIFF_C4, Width: 2, Linear: true, Deriv: DDX_C4},
		{Method: types.DIFF_S2, Width: 2, Deriv: DDX_S2},
		{Method: types.DIFF_FFT},
	},
	{types.SECOND, false}: {
		{Method: types.DIFF_C2, Width: 1, Linear: true, Deriv: D2DX2_C2},
		{Method: types.DIFF_C4, Width: 2, Linear: true, Deriv: D2DX2_C4},
		{Method: types.DIFF_FFT},
	},
	{types.FOURTH, false}: {
		{Method: types.DIFF_C2, Width: 2, Linear: true, Deriv: D4DX4_C2},
	},
	{types.UPWIND, false}: {
		{Method: types.DIFF_U1, Width: 1, Upwind: VDDX_U1},
		{Method: types.DIFF_U2, Width: 2, Upwind: VDDX_U2},
		{Method: types.DIFF_C2, Width: 1, Upwind: VDDX_C2},
		{Method: types.DIFF_U3, Width: 2, Upwind: VDDX_U3},
		{Method: types.DIFF_W3, Width: 2, Upwind: VDDX_WENO3},
		{Method: types.DIFF_C4, Width: 2, Upwind: VDDX_C4},
	},
	{types.FLUX, false}: {
		{Method: types.DIFF_SPLIT, Width: 1},
		{Method: types.DIFF_U1, Width: 1, Flow: FDDX_U1},
		{Method: types.DIFF_C2, Width: 1, Flow: FDDX_C2},
		{Method: types.DIFF_C4, Width: 2, Flow: FDDX_C4},
	},
	{types.FIRST, true}: {
		{Method: types.DIFF_C2, Width: 1, Linear: true, Deriv: DDX_C2_stag},
		{Method: types.DIFF_C4, Width: 2, Linear: true, Deriv: DDX_C4_stag},
	},
	{types.SECOND, true}: {
		{Method: types.DIFF_C2, Width: 2, Linear: true, Deriv: D2DX2_C2_stag},
	},
	{types.UPWIND, true}: {
		{Method: types.DIFF_U1, Width: 1, Flow: VDDX_U1_stag},
		{Method: types.DIFF_C2, Width: 1, Flow: VDDX_C2_stag},
	},
	{types.FLUX, true}: {
		{Method: types.DIFF_SPLIT, Width: 1},
		{Method: types.DIFF_U1, Width: 1, Flow: FDDX_U1_stag},
	},
}

func init() {
	for key, table := range tables {
		for i := range table {
			table[i].Kind, table[i].Stag = key.Kind, key.Stag
		}
	}
}

// TableName is the option key of a table, e.g. "firststag"
func TableName(kind types.DerivKind, stag bool) (name string) {
	name = [...]string{"first", "second", "fourth", "upwind", "flux"}[kind]
	if stag {
		name += "stag"
	}
	return
}

// Methods lists the option keys available in a table, sorted
func Methods(kind types.DerivKind, stag bool) (keys []string) {
	for _, k := range tables[tableKey{kind, stag}] {
		keys = append(keys, k.Method.Key())
	}
	sort.Strings(keys)
	return
}

// Lookup finds the kernel for a method along an axis. FFT exists only in z.
func Lookup(dir types.Direction, kind types.DerivKind, stag bool, method types.DiffMethod) (k Kernel, err error) {
	table, ok := tables[tableKey{kind, stag}]
	if !ok {
		err = fmt.Errorf("no %s differencing table", TableName(kind, stag))
		return
	}
	for _, k = range table {
		if k.Method != method {
			continue
		}
		if k.IsSpectral() && dir != types.Z {
			break
		}
		return
	}
	err = fmt.Errorf("method %s is not available for %s derivatives in %s, options are %v",
		method.Key(), TableName(kind, stag), dir, Methods(kind, stag))
	return Kernel{}, err
}
