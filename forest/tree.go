package forest

import (
	"math/rand"
	"sort"
)

// Node is one entry of a flattened tree. Leaves carry Value; internal nodes
// send x[Feature] <= Threshold to Left and everything else to Right.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
}

// Tree is a regression tree stored as a flat node slice rooted at index 0,
// which keeps it gob friendly.
type Tree struct {
	Nodes []Node
}

// Predict walks the tree for x.
func (t *Tree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for !t.Nodes[i].Leaf {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Leaf {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

type builder struct {
	X               [][]float64
	y               []float64
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	rnd             *rand.Rand

	tree *Tree
}

// split is the best partition found for one node.
type split struct {
	feature   int
	threshold float64
	sse       float64
}

func (b *builder) build(idx []int) *Tree {
	b.tree = &Tree{}
	b.grow(idx, 0)
	return b.tree
}

func (b *builder) grow(idx []int, depth int) int {
	at := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Samples: len(idx)})

	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	parentSSE := sumSq - sum*sum/n

	leaf := func() int {
		b.tree.Nodes[at].Leaf = true
		b.tree.Nodes[at].Value = mean
		return at
	}

	minSplit := b.minSamplesSplit
	if minSplit < 2 {
		minSplit = 2
	}
	if len(idx) < minSplit || parentSSE <= 1e-12 {
		return leaf()
	}
	if b.maxDepth > 0 && depth >= b.maxDepth {
		return leaf()
	}

	best, ok := b.bestSplit(idx, parentSSE)
	if !ok {
		return leaf()
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leaf()
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.Nodes[at].Feature = best.feature
	b.tree.Nodes[at].Threshold = best.threshold
	b.tree.Nodes[at].Left = l
	b.tree.Nodes[at].Right = r
	return at
}

// bestSplit scans every candidate feature in sorted order, keeping running
// sums so each threshold costs O(1).
func (b *builder) bestSplit(idx []int, parentSSE float64) (split, bool) {
	p := len(b.X[0])
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	if b.maxFeatures > 0 && b.maxFeatures < p {
		b.rnd.Shuffle(p, func(i, j int) { features[i], features[j] = features[j], features[i] })
		features = features[:b.maxFeatures]
	}

	minLeaf := b.minSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	best := split{sse: parentSSE}
	found := false
	order := make([]int, len(idx))

	for _, f := range features {
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })

		totalSum, totalSq := 0.0, 0.0
		for _, i := range order {
			totalSum += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}

		lSum, lSq := 0.0, 0.0
		n := len(order)
		for s := 1; s < n; s++ {
			yi := b.y[order[s-1]]
			lSum += yi
			lSq += yi * yi

			lo, hi := b.X[order[s-1]][f], b.X[order[s]][f]
			if lo == hi || s < minLeaf || n-s < minLeaf {
				continue
			}

			nl, nr := float64(s), float64(n-s)
			rSum, rSq := totalSum-lSum, totalSq-lSq
			sse := (lSq - lSum*lSum/nl) + (rSq - rSum*rSum/nr)
			if sse < best.sse-1e-9 {
				best = split{feature: f, threshold: (lo + hi) / 2, sse: sse}
				found = true
			}
		}
	}
	return best, found
}
