package stencils

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectral differentiates periodic lines of fixed length in index space, so a
// mode exp(2πikj/n) has wavenumber 2πk/n. Not safe for concurrent use.
type Spectral struct {
	N     int
	fft   *fourier.FFT
	coeff []complex128
}

func NewSpectral(n int) *Spectral {
	return &Spectral{
		N:     n,
		fft:   fourier.NewFFT(n),
		coeff: make([]complex128, n/2+1),
	}
}

// Derivative writes the order'th derivative of line into dst and returns it.
// The Nyquist mode is dropped from odd derivatives.
func (sp *Spectral) Derivative(dst, line []float64, order int) []float64 {
	var (
		n = sp.N
	)
	if dst == nil {
		dst = make([]float64, n)
	}
	sp.coeff = sp.fft.Coefficients(sp.coeff, line)
	for k := range sp.coeff {
		kwave := 2. * math.Pi * float64(k) / float64(n)
		if order%2 == 1 && n%2 == 0 && k == n/2 {
			sp.coeff[k] = 0
			continue
		}
		// (ik)^order, scaled by 1/n for the unnormalized inverse
		fac := complex(math.Pow(kwave, float64(order))/float64(n), 0)
		switch order % 4 {
		case 1:
			fac *= 1i
		case 2:
			fac *= -1
		case 3:
			fac *= -1i
		}
		sp.coeff[k] *= fac
	}
	return sp.fft.Sequence(dst, sp.coeff)
}

// Shift moves a periodic line by a fraction of its length in index space,
// dst(j) = line(j + n*frac), exactly for the resolved modes
func (sp *Spectral) Shift(dst, line []float64, frac float64) []float64 {
	var (
		n = sp.N
	)
	if dst == nil {
		dst = make([]float64, n)
	}
	sp.coeff = sp.fft.Coefficients(sp.coeff, line)
	for k := range sp.coeff {
		phase := 2. * math.Pi * float64(k) * frac
		if n%2 == 0 && k == n/2 {
			// The Nyquist mode keeps only its real part
			sp.coeff[k] *= complex(math.Cos(phase)/float64(n), 0)
			continue
		}
		sp.coeff[k] *= complex(math.Cos(phase)/float64(n), math.Sin(phase)/float64(n))
	}
	return sp.fft.Sequence(dst, sp.coeff)
}
