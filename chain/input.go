package chain

import (
	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// Input is one of the accepted shapes of MCMC output: SingleChain,
// ChainList, RawMatrix or an already built *Set. Resolve turns any of them
// into a *Set before a diagnostic runs.
type Input interface {
	isInput()
}

// SingleChain is one univariate chain.
type SingleChain struct {
	Values []float64
	Name   string
}

// ChainList is several chains with the same components.
type ChainList struct {
	Chains []*mat.Dense
	Names  []string
}

// RawMatrix is one multivariate chain, rows are iterations.
type RawMatrix struct {
	Data  *mat.Dense
	Names []string
}

func (SingleChain) isInput() {}
func (ChainList) isInput()   {}
func (RawMatrix) isInput()   {}
func (*Set) isInput()        {}

// Resolve converts in to a *Set. opts are applied when a new Set is built; a
// *Set input is returned unchanged.
func Resolve(in Input, opts ...Option) (*Set, error) {
	switch v := in.(type) {
	case *Set:
		if v == nil {
			return nil, diagerr.New(diagerr.InvalidParameter, "resolve: nil chain set")
		}
		return v, nil
	case SingleChain:
		if len(v.Values) == 0 {
			return nil, diagerr.New(diagerr.InsufficientData, "resolve: empty chain")
		}
		data := append([]float64(nil), v.Values...)
		if v.Name != "" {
			opts = append([]Option{WithNames(v.Name)}, opts...)
		}
		return NewSet([]*mat.Dense{mat.NewDense(len(data), 1, data)}, opts...)
	case ChainList:
		if v.Names != nil {
			opts = append([]Option{WithNames(v.Names...)}, opts...)
		}
		return NewSet(v.Chains, opts...)
	case RawMatrix:
		if v.Data == nil {
			return nil, diagerr.New(diagerr.InvalidParameter, "resolve: nil matrix")
		}
		if v.Names != nil {
			opts = append([]Option{WithNames(v.Names...)}, opts...)
		}
		return NewSet([]*mat.Dense{v.Data}, opts...)
	case nil:
		return nil, diagerr.New(diagerr.InvalidParameter, "resolve: nil input")
	default:
		return nil, diagerr.New(diagerr.InvalidParameter, "resolve: unsupported input %T", in)
	}
}
