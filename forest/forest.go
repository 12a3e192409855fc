// Package forest implements a bagged ensemble of CART regression trees.
package forest

import (
	"errors"
	"fmt"
	"math/rand"

	"immo-estimator/utils"
)

// Regressor is a random forest for regression. Predictions are the mean of
// the per-tree leaf values.
type Regressor struct {
	NEstimators     int
	MaxDepth        int // 0 => no limit
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => all features
	Bootstrap       bool
	RandomState     int64
	Concurrency     int

	// Learned state
	NFeatures int
	Trees     []*Tree
}

// Option sets one hyperparameter of a Regressor. Zero MaxDepth and
// MaxFeatures mean unlimited depth and all features.
type Option func(*Regressor)

func WithNEstimators(n int) Option     { return func(r *Regressor) { r.NEstimators = n } }
func WithMaxDepth(d int) Option        { return func(r *Regressor) { r.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option { return func(r *Regressor) { r.MinSamplesSplit = n } }
func WithMinSamplesLeaf(n int) Option  { return func(r *Regressor) { r.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) Option     { return func(r *Regressor) { r.MaxFeatures = k } }
func WithBootstrap(b bool) Option      { return func(r *Regressor) { r.Bootstrap = b } }
func WithRandomState(seed int64) Option {
	return func(r *Regressor) { r.RandomState = seed }
}
func WithConcurrency(n int) Option { return func(r *Regressor) { r.Concurrency = n } }

// New returns a Regressor with defaults matching the training pipeline.
func New(opts ...Option) *Regressor {
	r := &Regressor{
		NEstimators:     200,
		MaxDepth:        20,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Bootstrap:       true,
		RandomState:     42,
		Concurrency:     4,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Fit trains every tree on its own bootstrap sample. Each tree draws from a
// source seeded with RandomState+index, so the result does not depend on
// scheduling.
func (r *Regressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errors.New("forest: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("forest: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return fmt.Errorf("forest: row %d has %d features, want %d", i, len(X[i]), p)
		}
	}
	if r.NEstimators < 1 {
		return errors.New("forest: NEstimators must be positive")
	}

	r.NFeatures = p
	r.Trees = make([]*Tree, r.NEstimators)

	pool := utils.NewWorkerPool(r.Concurrency)
	for i := 0; i < r.NEstimators; i++ {
		idx := i
		pool.Submit(func() error {
			rnd := rand.New(rand.NewSource(r.RandomState + int64(idx)))

			sample := make([]int, n)
			for j := range sample {
				if r.Bootstrap {
					sample[j] = rnd.Intn(n)
				} else {
					sample[j] = j
				}
			}

			b := &builder{
				X:               X,
				y:               y,
				maxDepth:        r.MaxDepth,
				minSamplesSplit: r.MinSamplesSplit,
				minSamplesLeaf:  r.MinSamplesLeaf,
				maxFeatures:     r.MaxFeatures,
				rnd:             rnd,
			}
			r.Trees[idx] = b.build(sample)
			return nil
		})
	}
	return pool.Wait()
}

// PredictRow returns the forest estimate for one feature vector.
func (r *Regressor) PredictRow(x []float64) float64 {
	if len(r.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range r.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(r.Trees))
}

// Predict returns the forest estimate for every row of X.
func (r *Regressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		out[i] = r.PredictRow(X[i])
	}
	return out
}

// Trained reports whether Fit has completed.
func (r *Regressor) Trained() bool { return len(r.Trees) > 0 }
