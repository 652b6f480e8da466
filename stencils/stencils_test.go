package stencils

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/plasmamesh/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func sample(fn func(j float64) float64, i int, o Offset, w int) Stencil {
	return Gather(func(j int) float64 { return fn(float64(j)) }, i, o, w)
}

func TestKernels(t *testing.T) {
	cubic := func(j float64) float64 { return j * j * j }
	linear := func(j float64) float64 { return 2*j + 1 }
	{ // Central differences are exact to their order
		s := sample(linear, 3, Centred, 2)
		assert.InDelta(t, 2., DDX_C2(s), 1.e-14)
		assert.InDelta(t, 2., DDX_CWENO2(s), 1.e-12)
		s = sample(cubic, 1, Centred, 2)
		assert.InDelta(t, 3., DDX_C4(s), 1.e-14)
		assert.InDelta(t, 6., D2DX2_C2(s), 1.e-14)
		assert.InDelta(t, 6., D2DX2_C4(s), 1.e-14)
		assert.InDelta(t, 0., D4DX4_C2(s), 1.e-14)
		quartic := func(j float64) float64 { return j * j * j * j }
		assert.InDelta(t, 24., D4DX4_C2(sample(quartic, 0, Centred, 2)), 1.e-14)
	}
	{ // Smoothing adds nothing on a cubic
		s := sample(cubic, 1, Centred, 2)
		assert.InDelta(t, DDX_C4(s), DDX_S2(s), 1.e-14)
	}
	{ // Upwinding picks the side from the velocity
		s := Stencil{MM: 0, M: 1, C: 3, P: 7, PP: 9}
		assert.Equal(t, 2., VDDX_U1(1, s))
		assert.Equal(t, -4., VDDX_U1(-1, s))
		assert.Equal(t, 1.5, VDDX_C2(0.5, s))
		s = sample(linear, 4, Centred, 2)
		for _, fn := range []func(float64, Stencil) float64{VDDX_U1, VDDX_U2, VDDX_U3, VDDX_C2, VDDX_C4, VDDX_WENO3} {
			assert.InDelta(t, 6., fn(3, s), 1.e-12)
			assert.InDelta(t, -6., fn(-3, s), 1.e-12)
		}
	}
	{ // Flux forms reduce to v df/dx for constant v
		s := sample(linear, 4, Centred, 2)
		v := Stencil{MM: 2, M: 2, C: 2, P: 2, PP: 2}
		assert.InDelta(t, 4., FDDX_U1(v, s), 1.e-14)
		assert.InDelta(t, 4., FDDX_C2(v, s), 1.e-14)
		assert.InDelta(t, 4., FDDX_C4(v, s), 1.e-14)
	}
	{ // Staggered differences are exact on linear data in both directions
		for _, o := range []Offset{ToLow, ToCentre} {
			s := sample(linear, 3, o, 2)
			assert.InDelta(t, 2., DDX_C2_stag(s), 1.e-14)
			assert.InDelta(t, 2., DDX_C4_stag(s), 1.e-14)
			assert.InDelta(t, 0., D2DX2_C2_stag(s), 1.e-14)
		}
		// f = j^2 centred, output at j-1/2 has second derivative 2
		sq := func(j float64) float64 { return j * j }
		assert.InDelta(t, 2., D2DX2_C2_stag(sample(sq, 3, ToLow, 2)), 1.e-14)
	}
	{ // Staggered flow with uniform face velocity
		f := sample(linear, 3, Centred, 1)
		v := Stencil{M: 1.5, P: 1.5}
		assert.InDelta(t, 3., VDDX_U1_stag(v, f), 1.e-14)
		assert.InDelta(t, 3., VDDX_C2_stag(v, f), 1.e-14)
		assert.InDelta(t, 3., FDDX_U1_stag(v, f), 1.e-14)
		v = Stencil{M: -1.5, P: -1.5}
		assert.InDelta(t, -3., VDDX_U1_stag(v, f), 1.e-14)
	}
	{
		assert.Equal(t, 0.5, Interp4(0.5, 0.5, 0.5, 0.5))
		assert.InDelta(t, 1.5, Interp4(0, 1, 2, 3), 1.e-14)
	}
}

func TestGather(t *testing.T) {
	get := func(j int) float64 { return float64(10 * j) }
	assert.Equal(t, Stencil{MM: 10, M: 20, C: 30, P: 40, PP: 50}, Gather(get, 3, Centred, 2))
	assert.Equal(t, Stencil{MM: 0, M: 10, C: 20, P: 20, PP: 30}, Gather(get, 2, ToLow, 2))
	assert.Equal(t, Stencil{MM: 10, M: 20, C: 20, P: 30, PP: 40}, Gather(get, 2, ToCentre, 2))
	assert.Equal(t, Stencil{M: 20, C: 30, P: 40}, Gather(get, 3, Centred, 1))
	assert.Equal(t, Stencil{C: 30}, Gather(get, 3, Centred, 0))
}

func TestConvergence(t *testing.T) {
	// DDZ of sin(z) with C2 has second order error
	errAt := func(n int) float64 {
		var (
			dz  = 2 * math.Pi / float64(n)
			err = make([]float64, n)
		)
		get := func(j int) float64 { return math.Sin(float64(((j%n)+n)%n) * dz) }
		for i := 0; i < n; i++ {
			err[i] = DDX_C2(Gather(get, i, Centred, 1))/dz - math.Cos(float64(i)*dz)
		}
		return floats.Norm(err, math.Inf(1))
	}
	e16, e32, e64 := errAt(16), errAt(32), errAt(64)
	assert.InDelta(t, 4., e16/e32, 0.1)
	assert.InDelta(t, 4., e32/e64, 0.05)
}

func TestSpectral(t *testing.T) {
	var (
		n    = 32
		line = make([]float64, n)
		kw   = 2 * math.Pi / float64(n)
	)
	for j := range line {
		line[j] = math.Sin(3*kw*float64(j)) + 0.5*math.Cos(kw*float64(j))
	}
	sp := NewSpectral(n)
	{
		d := sp.Derivative(nil, line, 1)
		for j := range d {
			exact := 3*kw*math.Cos(3*kw*float64(j)) - 0.5*kw*math.Sin(kw*float64(j))
			assert.InDelta(t, exact, d[j], 1.e-12)
		}
	}
	{
		d := sp.Derivative(nil, line, 2)
		for j := range d {
			exact := -9*kw*kw*math.Sin(3*kw*float64(j)) - 0.5*kw*kw*math.Cos(kw*float64(j))
			assert.InDelta(t, exact, d[j], 1.e-12)
		}
	}
	{ // Shifting by a whole number of points is a rotation, and shifts invert
		s := sp.Shift(nil, line, 2./float64(n))
		for j := range s {
			assert.InDelta(t, line[(j+2)%n], s[j], 1.e-12)
		}
		back := sp.Shift(nil, sp.Shift(nil, line, 0.123), -0.123)
		assert.InDeltaSlice(t, line, back, 1.e-12)
	}
}

func TestLookup(t *testing.T) {
	{
		k, err := Lookup(types.X, types.FIRST, false, types.DIFF_C4)
		require.NoError(t, err)
		assert.Equal(t, 2, k.Width)
		assert.Equal(t, types.FIRST, k.Kind)
		assert.True(t, k.Linear)
		w := k.Weights()
		assert.InDeltaSlice(t, []float64{1. / 12, -8. / 12, 0, 8. / 12, -1. / 12}, w[:], 1.e-15)
	}
	{
		k, err := Lookup(types.Z, types.FIRST, false, types.DIFF_FFT)
		require.NoError(t, err)
		assert.True(t, k.IsSpectral())
		_, err = Lookup(types.X, types.FIRST, false, types.DIFF_FFT)
		assert.ErrorContains(t, err, "options are [C2 C4 FFT S2 W2]")
	}
	{
		_, err := Lookup(types.Y, types.UPWIND, true, types.DIFF_W3)
		assert.ErrorContains(t, err, "upwindstag")
		k, err := Lookup(types.Y, types.FLUX, true, types.DIFF_SPLIT)
		require.NoError(t, err)
		assert.True(t, k.IsSplit() && k.Stag)
	}
	assert.Equal(t, []string{"C2", "C4", "U1", "U2", "U3", "W3"}, Methods(types.UPWIND, false))
}

func TestDefaults(t *testing.T) {
	{ // Nothing set
		d, err := NewDefaults(viper.New(), quiet)
		require.NoError(t, err)
		assert.Equal(t, types.DIFF_C2, d.Method(types.X, types.FIRST, false))
		assert.Equal(t, types.DIFF_C2, d.Method(types.Y, types.SECOND, true))
		assert.Equal(t, types.DIFF_U1, d.Method(types.Z, types.UPWIND, false))
		assert.Equal(t, types.DIFF_U1, d.Method(types.Z, types.FLUX, true))
	}
	{ // Precedence kindstag, kind, all
		v := viper.New()
		v.Set("ddx.firststag", "c4")
		v.Set("ddx.first", "W2")
		v.Set("ddx.all", "C4")
		v.Set("ddz.first", "fft")
		d, err := NewDefaults(v, quiet)
		require.NoError(t, err)
		assert.Equal(t, types.DIFF_C4, d.Method(types.X, types.FIRST, true))
		assert.Equal(t, types.DIFF_W2, d.Method(types.X, types.FIRST, false))
		assert.Equal(t, types.DIFF_C4, d.Method(types.X, types.SECOND, false))
		assert.Equal(t, types.DIFF_C4, d.Method(types.X, types.UPWIND, false))
		// C4 is not a staggered upwind method, all leaves it at default
		assert.Equal(t, types.DIFF_U1, d.Method(types.X, types.UPWIND, true))
		assert.Equal(t, types.DIFF_C2, d.Method(types.Y, types.FIRST, false))
		assert.Equal(t, types.DIFF_FFT, d.Method(types.Z, types.FIRST, false))
		// Inherited from first, but there is no staggered FFT
		assert.Equal(t, types.DIFF_C2, d.Method(types.Z, types.FIRST, true))
		k, err := d.Resolve(types.X, types.FIRST, false, types.DIFF_DEFAULT)
		require.NoError(t, err)
		assert.Equal(t, types.DIFF_W2, k.Method)
		k, err = d.Resolve(types.X, types.FIRST, false, types.DIFF_S2)
		require.NoError(t, err)
		assert.Equal(t, types.DIFF_S2, k.Method)
	}
	{ // Unknown names list the table
		v := viper.New()
		v.Set("ddy.upwind", "QUICK")
		_, err := NewDefaults(v, quiet)
		assert.ErrorContains(t, err, "ddy.upwind")
		assert.ErrorContains(t, err, "[C2 C4 U1 U2 U3 W3]")
	}
	{ // Known but not in the table
		v := viper.New()
		v.Set("ddx.first", "FFT")
		_, err := NewDefaults(v, quiet)
		assert.ErrorContains(t, err, "options are")
	}
}

func TestOperatorMatrix(t *testing.T) {
	var (
		n    = 12
		line = make([]float64, n)
	)
	for j := range line {
		line[j] = math.Sin(0.7*float64(j)) + 0.1*float64(j*j)
	}
	get := func(j int) float64 { return line[((j%n)+n)%n] }
	for _, key := range []struct {
		kind   types.DerivKind
		stag   bool
		method types.DiffMethod
	}{
		{types.FIRST, false, types.DIFF_C2},
		{types.FIRST, false, types.DIFF_C4},
		{types.SECOND, false, types.DIFF_C4},
		{types.FOURTH, false, types.DIFF_C2},
		{types.FIRST, true, types.DIFF_C4},
		{types.SECOND, true, types.DIFF_C2},
	} {
		k, err := Lookup(types.X, key.kind, key.stag, key.method)
		require.NoError(t, err)
		o := Centred
		if k.Stag {
			o = ToLow
		}
		{ // Periodic
			M, err := OperatorMatrix(k, n, true)
			require.NoError(t, err)
			out := ApplyMatrix(M, line)
			for i := 0; i < n; i++ {
				assert.InDelta(t, k.Deriv(Gather(get, i, o, k.Width)), out[i], 1.e-12)
			}
		}
		{ // Open ends leave the guard rows empty
			M, err := OperatorMatrix(k, n, false)
			require.NoError(t, err)
			out := ApplyMatrix(M, line)
			for i := 0; i < n; i++ {
				if i < k.Width || i >= n-k.Width {
					assert.Equal(t, 0., out[i])
					continue
				}
				assert.InDelta(t, k.Deriv(Gather(get, i, o, k.Width)), out[i], 1.e-12)
			}
		}
	}
	{
		k, err := Lookup(types.X, types.FIRST, false, types.DIFF_W2)
		require.NoError(t, err)
		_, err = OperatorMatrix(k, n, true)
		assert.Error(t, err)
	}
}
