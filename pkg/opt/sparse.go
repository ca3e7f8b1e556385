package opt

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
)

// SymSparse is a sparse symmetric matrix assembled term by term. Entries
// are collected in a dictionary of keys and compressed to CSR form on the
// first product after a change. [SymSparse.Zero] keeps the stored keys so
// repeated assembly reuses them.
type SymSparse struct {
	n   int
	dok *sparse.DOK
	csr *sparse.CSR // nil when dok changed since the last compression
}

// NewSymSparse returns an n×n zero matrix.
func NewSymSparse(n int) *SymSparse {
	return &SymSparse{n: n, dok: sparse.NewDOK(n, n)}
}

// Dim returns the number of rows (and columns).
func (m *SymSparse) Dim() int { return m.n }

// Zero sets every entry to zero, keeping the sparsity pattern.
func (m *SymSparse) Zero() {
	m.dok.DoNonZero(func(i, j int, _ float64) {
		m.dok.Set(i, j, 0)
	})
	m.csr = nil
}

// Add adds v to the entry (i, j) and, for i ≠ j, to its mirror (j, i).
func (m *SymSparse) Add(i, j int, v float64) {
	if i < 0 || j < 0 || i >= m.n || j >= m.n {
		panic(fmt.Sprintf("opt: index (%d, %d) out of range for %d×%d matrix", i, j, m.n, m.n))
	}
	m.dok.Set(i, j, m.dok.At(i, j)+v)
	if i != j {
		m.dok.Set(j, i, m.dok.At(j, i)+v)
	}
	m.csr = nil
}

// At returns the entry (i, j).
func (m *SymSparse) At(i, j int) float64 { return m.dok.At(i, j) }

// Diag returns the diagonal entry (i, i).
func (m *SymSparse) Diag(i int) float64 { return m.dok.At(i, i) }

// NonZeros returns the number of stored off-diagonal pairs.
func (m *SymSparse) NonZeros() int {
	var nnz int
	m.dok.DoNonZero(func(i, j int, _ float64) {
		if i > j {
			nnz++
		}
	})
	return nnz
}

// MulVecTo computes dst = M·x. dst and x must not overlap.
func (m *SymSparse) MulVecTo(dst, x []float64) {
	if len(dst) != m.n || len(x) != m.n {
		panic("opt: dimension mismatch")
	}
	clear(dst)
	if m.n == 0 {
		return
	}
	if m.csr == nil {
		m.csr = m.dok.ToCSR()
	}
	m.csr.MulVecTo(dst, false, x)
}

// IsFinite reports whether every stored entry is a finite number.
func (m *SymSparse) IsFinite() bool {
	finite := true
	m.dok.DoNonZero(func(_, _ int, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			finite = false
		}
	})
	return finite
}
