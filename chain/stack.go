package chain

import (
	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// Stack concatenates chains row-wise in order. Chains may differ in length
// but must all have the same number of columns; otherwise nothing is stacked
// and DimensionMismatch is returned.
func Stack(chains []*mat.Dense) (*mat.Dense, error) {
	if len(chains) == 0 {
		return nil, diagerr.New(diagerr.InvalidParameter, "stack: no chains")
	}

	total := 0
	_, p := dims(chains[0])
	for i, c := range chains {
		if c == nil {
			return nil, diagerr.New(diagerr.InvalidParameter, "stack: chain %d is nil", i)
		}
		r, cols := dims(c)
		if cols != p {
			return nil, diagerr.New(diagerr.DimensionMismatch, "stack: chain %d has %d columns, want %d", i, cols, p)
		}
		if r == 0 {
			return nil, diagerr.New(diagerr.InsufficientData, "stack: chain %d is empty", i)
		}
		total += r
	}

	out := mat.NewDense(total, p, nil)
	row := 0
	for _, c := range chains {
		r, _ := c.Dims()
		out.Slice(row, row+r, 0, p).(*mat.Dense).Copy(c)
		row += r
	}
	return out, nil
}

func dims(c *mat.Dense) (int, int) {
	if c == nil || c.IsEmpty() {
		return 0, 0
	}
	return c.Dims()
}
