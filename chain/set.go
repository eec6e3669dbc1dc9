// Package chain holds MCMC output in canonical form. A Set is an ordered
// collection of m chains, each an n x p matrix with one row per iteration and
// one column per component. The stacked (row-wise concatenated) sequence and
// the batch size are derived once at construction and reused by every
// diagnostic.
package chain

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/SiddharthanilPathak/GSoC-2023/batchmeans"
	"github.com/SiddharthanilPathak/GSoC-2023/diagerr"
)

// Set is an immutable collection of chains sharing the same components.
type Set struct {
	chains    []*mat.Dense
	names     []string
	stacked   *mat.Dense
	batchSize int
}

// Option configures NewSet.
type Option func(*settings)

type settings struct {
	names     []string
	batchSize int
	sizer     batchmeans.Sizer
}

// WithNames sets the component names. Their number must equal the chain width.
func WithNames(names ...string) Option {
	return func(s *settings) { s.names = names }
}

// WithBatchSize fixes the batch size. Zero means estimate it from the chains.
func WithBatchSize(b int) Option {
	return func(s *settings) { s.batchSize = b }
}

// WithSizer replaces the per-chain batch-size rule (default batchmeans.Size).
func WithSizer(sizer batchmeans.Sizer) Option {
	return func(s *settings) { s.sizer = sizer }
}

// NewSet validates chains, stacks them and resolves the batch size.
// The chains are referenced, not copied, and must not be modified afterwards.
func NewSet(chains []*mat.Dense, opts ...Option) (*Set, error) {
	cfg := settings{sizer: batchmeans.Size}
	for _, opt := range opts {
		opt(&cfg)
	}

	stacked, err := Stack(chains)
	if err != nil {
		return nil, err
	}
	N, p := stacked.Dims()

	for i, c := range chains {
		if r, _ := c.Dims(); r < 2 {
			return nil, diagerr.New(diagerr.InsufficientData, "chain set: chain %d has %d row(s), need at least 2", i, r)
		}
	}

	names := cfg.names
	if names == nil {
		names = DefaultNames(p)
	} else if len(names) != p {
		return nil, diagerr.New(diagerr.DimensionMismatch, "chain set: %d names for %d components", len(names), p)
	}

	b := cfg.batchSize
	switch {
	case b < 0:
		return nil, diagerr.New(diagerr.InvalidParameter, "chain set: negative batch size %d", b)
	case b > N:
		return nil, diagerr.New(diagerr.InvalidParameter, "chain set: batch size %d exceeds %d stacked rows", b, N)
	case b == 0:
		b, err = averageBatchSize(chains, cfg.sizer)
		if err != nil {
			return nil, err
		}
	}

	return &Set{
		chains:    chains,
		names:     append([]string(nil), names...),
		stacked:   stacked,
		batchSize: b,
	}, nil
}

// averageBatchSize is the floor of the mean per-chain batch size.
func averageBatchSize(chains []*mat.Dense, sizer batchmeans.Sizer) (int, error) {
	total := 0
	for i, c := range chains {
		b, err := sizer(c)
		if err != nil {
			return 0, diagerr.Wrapf(err, "chain set: chain %d", i)
		}
		if b < 1 {
			return 0, diagerr.New(diagerr.InvalidParameter, "chain set: batch size rule returned %d for chain %d", b, i)
		}
		total += b
	}
	return total / len(chains), nil
}

// DefaultNames returns "Component 1" .. "Component p".
func DefaultNames(p int) []string {
	names := make([]string, p)
	for j := range names {
		names[j] = fmt.Sprintf("Component %d", j+1)
	}
	return names
}

// M returns the number of chains.
func (s *Set) M() int { return len(s.chains) }

// Dim returns the number of components p.
func (s *Set) Dim() int {
	_, p := s.stacked.Dims()
	return p
}

// N returns the number of stacked rows.
func (s *Set) N() int {
	n, _ := s.stacked.Dims()
	return n
}

// ChainLen returns the mean chain length, floor(N/m).
func (s *Set) ChainLen() int { return s.N() / s.M() }

// Chain returns chain i.
func (s *Set) Chain(i int) *mat.Dense { return s.chains[i] }

// Chains returns the chains in order.
func (s *Set) Chains() []*mat.Dense {
	return append([]*mat.Dense(nil), s.chains...)
}

// Names returns the component names.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Stacked returns the stacked sequence. Callers must not modify it.
func (s *Set) Stacked() *mat.Dense { return s.stacked }

// BatchSize returns the resolved batch size.
func (s *Set) BatchSize() int { return s.batchSize }

// Component returns a copy of column j of the stacked sequence.
func (s *Set) Component(j int) []float64 {
	return mat.Col(nil, j, s.stacked)
}
