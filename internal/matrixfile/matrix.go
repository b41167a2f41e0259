package matrixfile

import (
	"errors"
	"fmt"
	"math"
)

// Matrix is a dense row-major distance matrix.
type Matrix [][]float64

var (
	ErrEmpty      = errors.New("matrix is empty")
	ErrNotSquare  = errors.New("matrix is not square")
	ErrNonFinite  = errors.New("matrix contains a non-finite value")
	ErrNegative   = errors.New("matrix contains a negative distance")
	ErrAsymmetric = errors.New("matrix is not symmetric")
)

// symmetryTolerance absorbs rounding noise from distance computations.
const symmetryTolerance = 1e-9

// Size returns the number of rows (points).
func (m Matrix) Size() int {
	return len(m)
}

// Validate reports whether m is a usable distance matrix: non-empty, square,
// finite, non-negative and symmetric. Errors wrap one of the package sentinels
// and name the offending cell.
func Validate(m Matrix) error {
	n := len(m)
	if n == 0 {
		return ErrEmpty
	}
	for i, row := range m {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrNotSquare, i, len(row), n)
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w at (%d,%d)", ErrNonFinite, i, j)
			}
			if v < 0 {
				return fmt.Errorf("%w at (%d,%d): %g", ErrNegative, i, j, v)
			}
			if j < i && math.Abs(v-m[j][i]) > symmetryTolerance {
				return fmt.Errorf("%w: (%d,%d)=%g but (%d,%d)=%g", ErrAsymmetric, i, j, v, j, i, m[j][i])
			}
		}
	}
	return nil
}
