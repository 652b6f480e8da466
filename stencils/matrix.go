package stencils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Weights probes a linear kernel for the coefficients of MM..PP
func (k Kernel) Weights() (w [5]float64) {
	for i := range w {
		w[i] = k.Deriv(Unit(i))
	}
	return
}

// OperatorMatrix assembles a linear kernel over a line of n points as an n×n
// sparse matrix. Without periodic wrap the rows closer than Width to either end
// are empty, they hold the guard cells the kernel is not evaluated on.
func OperatorMatrix(k Kernel, n int, periodic bool) (M *sparse.CSR, err error) {
	if !k.Linear || k.Deriv == nil {
		err = fmt.Errorf("method %s %s is not a linear kernel", k.Method.Key(), TableName(k.Kind, k.Stag))
		return
	}
	var (
		w     = k.Weights()
		dok   = sparse.NewDOK(n, n)
		first = 0
		last  = n - 1
		// Input offsets of MM..PP relative to the output point
		offsets = [...]int{-2, -1, 0, 1, 2}
	)
	if k.Stag {
		// Staggered kernels read the ToLow layout, P sits on the output index
		offsets = [...]int{-2, -1, 0, 0, 1}
	}
	if !periodic {
		first, last = k.Width, n-1-k.Width
	}
	for i := first; i <= last; i++ {
		for p, off := range offsets {
			if w[p] == 0 {
				continue
			}
			j := i + off
			if periodic {
				j = ((j % n) + n) % n
			}
			dok.Set(i, j, dok.At(i, j)+w[p])
		}
	}
	M = dok.ToCSR()
	return
}

// ApplyMatrix evaluates M·f
func ApplyMatrix(M mat.Matrix, f []float64) []float64 {
	var (
		out mat.VecDense
	)
	out.MulVec(M, mat.NewVecDense(len(f), f))
	return out.RawVector().Data
}
