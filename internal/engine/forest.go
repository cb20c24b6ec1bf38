package engine

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
)

// ForestConfig controls random-forest training.
type ForestConfig struct {
	Trees          int
	Seed           uint64
	MinSamplesLeaf int
}

// RandomForest averages bootstrapped CART regression trees. Every split
// considers all features, visited in a per-node random order; trees grow
// until leaves are pure or hold fewer than two samples.
type RandomForest struct {
	cfg   ForestConfig
	trees []*treeNode
}

// NewRandomForest returns an unfitted forest. Zero-valued fields take the
// defaults of 100 trees and one sample per leaf.
func NewRandomForest(cfg ForestConfig) *RandomForest {
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultTrees
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 1
	}
	return &RandomForest{cfg: cfg}
}

func (f *RandomForest) Name() string { return "random_forest" }

func (f *RandomForest) Fit(ctx context.Context, x [][]float64, y []float64) error {
	n, _, err := checkDesign(x, y)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(f.cfg.Seed, f.cfg.Seed^0x9e3779b97f4a7c15))
	trees := make([]*treeNode, 0, f.cfg.Trees)
	for t := 0; t < f.cfg.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		b := treeBuilder{x: x, y: y, minLeaf: f.cfg.MinSamplesLeaf, rng: rng}
		trees = append(trees, b.build(sample))
	}
	f.trees = trees
	return nil
}

func (f *RandomForest) Predict(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type treeBuilder struct {
	x       [][]float64
	y       []float64
	minLeaf int
	rng     *rand.Rand
}

func (b *treeBuilder) build(idx []int) *treeNode {
	var sum float64
	pure := true
	for _, i := range idx {
		sum += b.y[i]
		if b.y[i] != b.y[idx[0]] {
			pure = false
		}
	}
	leaf := &treeNode{leaf: true, value: sum / float64(len(idx))}
	if pure || len(idx) < 2 || len(idx) < 2*b.minLeaf {
		return leaf
	}

	feature, threshold, ok := b.bestSplit(idx, sum)
	if !ok {
		return leaf
	}
	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      b.build(left),
		right:     b.build(right),
	}
}

// bestSplit maximizes sumL²/nL + sumR²/nR, which is equivalent to
// minimizing the children's summed squared error.
func (b *treeBuilder) bestSplit(idx []int, total float64) (feature int, threshold float64, ok bool) {
	n := len(idx)
	best := total * total / float64(n)
	sorted := make([]int, n)
	for _, f := range b.rng.Perm(len(b.x[0])) {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

		var left float64
		for k := 0; k < n-1; k++ {
			left += b.y[sorted[k]]
			lo, hi := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			right := total - left
			score := left*left/float64(nl) + right*right/float64(nr)
			if score > best+1e-12*math.Abs(best) {
				best = score
				feature = f
				threshold = lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
