package stencils

import (
	"github.com/notargets/plasmamesh/utils"
)

const WENO_SMALL = 1.0e-8

/*
		First derivatives
*/
func DDX_C2(f Stencil) float64 {
	return 0.5 * (f.P - f.M)
}

func DDX_C4(f Stencil) float64 {
	return (8.*(f.P-f.M) - f.PP + f.MM) / 12.
}

// DDX_CWENO2 is central WENO, weighting the one sided and central estimates
// by their smoothness
func DDX_CWENO2(f Stencil) float64 {
	var (
		dc  = 0.5 * (f.P - f.M)
		dl  = f.C - f.M
		dr  = f.P - f.C
		isl = utils.SQ(dl)
		isr = utils.SQ(dr)
		isc = (13./3.)*utils.SQ(f.P-2.*f.C+f.M) + 0.25*utils.SQ(f.P-f.M)
		al  = 0.25 / utils.SQ(WENO_SMALL+isl)
		ar  = 0.25 / utils.SQ(WENO_SMALL+isr)
		ac  = 0.5 / utils.SQ(WENO_SMALL+isc)
	)
	return (al*dl + ar*dr + ac*dc) / (al + ar + ac)
}

// DDX_S2 is C4 plus a fourth derivative smoothing term
func DDX_S2(f Stencil) float64 {
	result := (8.*f.P - 8.*f.M + f.MM - f.PP) / 12.
	result += utils.SIGN(f.C) * (f.PP - 4.*f.P + 6.*f.C - 4.*f.M + f.MM) / 12.
	return result
}

/*
		Second and fourth derivatives
*/
func D2DX2_C2(f Stencil) float64 {
	return f.P + f.M - 2.*f.C
}

func D2DX2_C4(f Stencil) float64 {
	return (-f.PP + 16.*f.P - 30.*f.C + 16.*f.M - f.MM) / 12.
}

func D4DX4_C2(f Stencil) float64 {
	return f.PP - 4.*f.P + 6.*f.C - 4.*f.M + f.MM
}

/*
		Upwinding, vc is the velocity at the output point
*/
func VDDX_U1(vc float64, f Stencil) float64 {
	if vc >= 0. {
		return vc * (f.C - f.M)
	}
	return vc * (f.P - f.C)
}

func VDDX_U2(vc float64, f Stencil) float64 {
	if vc >= 0. {
		return vc * (1.5*f.C - 2.0*f.M + 0.5*f.MM)
	}
	return vc * (-0.5*f.PP + 2.0*f.P - 1.5*f.C)
}

func VDDX_U3(vc float64, f Stencil) float64 {
	if vc > 0. {
		return vc * (4.*f.P - 12.*f.M + 2.*f.MM + 6.*f.C) / 12.
	}
	return vc * (-4.*f.M + 12.*f.P - 2.*f.PP - 6.*f.C) / 12.
}

func VDDX_C2(vc float64, f Stencil) float64 {
	return vc * 0.5 * (f.P - f.M)
}

func VDDX_C4(vc float64, f Stencil) float64 {
	return vc * (8.*(f.P-f.M) - f.PP + f.MM) / 12.
}

// VDDX_WENO3 picks the upwind biased smoothness ratio from the sign of vc
func VDDX_WENO3(vc float64, f Stencil) float64 {
	var deriv, r float64
	if vc > 0. {
		r = (WENO_SMALL + utils.SQ(f.C-2.*f.M+f.MM)) / (WENO_SMALL + utils.SQ(f.P-2.*f.C+f.M))
		deriv = -f.MM + 3.*f.M - 3.*f.C + f.P
	} else {
		r = (WENO_SMALL + utils.SQ(f.PP-2.*f.P+f.C)) / (WENO_SMALL + utils.SQ(f.P-2.*f.C+f.M))
		deriv = -f.M + 3.*f.C - 3.*f.P + f.PP
	}
	w := 1. / (1. + 2.*r*r)
	deriv = 0.5 * ((f.P - f.M) - w*deriv)
	return vc * deriv
}

/*
		Flux conserving, d(v f)/dx
*/
func FDDX_U1(v, f Stencil) float64 {
	var result float64
	vs := 0.5 * (v.M + v.C) // Lower cell edge
	if vs >= 0. {
		result = vs * f.M
	} else {
		result = vs * f.C
	}
	vs = 0.5 * (v.C + v.P) // Upper cell edge
	if vs >= 0. {
		result -= vs * f.C
	} else {
		result -= vs * f.P
	}
	return -result
}

func FDDX_C2(v, f Stencil) float64 {
	return 0.5 * (v.P*f.P - v.M*f.M)
}

func FDDX_C4(v, f Stencil) float64 {
	return (8.*(v.P*f.P-v.M*f.M) + v.MM*f.MM - v.PP*f.PP) / 12.
}

/*
		Staggered, the stencil is gathered with ToLow or ToCentre so M and P
		straddle the output point
*/
func DDX_C2_stag(f Stencil) float64 {
	return f.P - f.M
}

func DDX_C4_stag(f Stencil) float64 {
	return (27.*(f.P-f.M) - (f.PP - f.MM)) / 24.
}

func D2DX2_C2_stag(f Stencil) float64 {
	return (f.PP + f.MM - f.P - f.M) / 2.
}

// VDDX_U1_stag takes the staggered velocity at the cell faces, v.M and v.P
func VDDX_U1_stag(v, f Stencil) float64 {
	var result float64
	if v.M >= 0 {
		result = v.M * f.M
	} else {
		result = v.M * f.C
	}
	if v.P >= 0 {
		result -= v.P * f.C
	} else {
		result -= v.P * f.P
	}
	result *= -1
	// Remove the divergence of v, leaving v df/dx
	result -= f.C * (v.P - v.M)
	return result
}

func VDDX_C2_stag(v, f Stencil) float64 {
	return 0.5 * (v.P + v.M) * 0.5 * (f.P - f.M)
}

func FDDX_U1_stag(v, f Stencil) float64 {
	var result float64
	if v.M >= 0 {
		result = v.M * f.M
	} else {
		result = v.M * f.C
	}
	if v.P >= 0 {
		result -= v.P * f.C
	} else {
		result -= v.P * f.P
	}
	return -result
}

/*
		Interpolation
*/

// Interp4 is the fourth order midpoint value between b and c of the run a, b, c, d
func Interp4(a, b, c, d float64) float64 {
	return (9.*(b+c) - (a + d)) / 16.
}
