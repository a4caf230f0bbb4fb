package boosting

import (
	"math"

	"github.com/YuminosukeSato/conformboost/core/parallel"
)

// GrowthPolicy decides the order in which leaves are split.
type GrowthPolicy int

const (
	// LeafWise always splits the leaf with the largest gain until NumLeaves
	// is reached.
	LeafWise GrowthPolicy = iota
	// DepthWise splits every leaf of a level before moving to the next one,
	// up to MaxDepth.
	DepthWise
	// Symmetric grows oblivious trees: every node of a level uses the same
	// feature and threshold.
	Symmetric
)

func (g GrowthPolicy) String() string {
	switch g {
	case LeafWise:
		return "leafwise"
	case DepthWise:
		return "depthwise"
	case Symmetric:
		return "symmetric"
	default:
		return "unknown"
	}
}

const gainEpsilon = 1e-10

type histBin struct {
	grad  float64
	hess  float64
	count int
}

// SplitInfo describes the best split found for a set of rows.
type SplitInfo struct {
	Feature    int
	Bin        int
	Gain       float64
	LeftGrad   float64
	LeftHess   float64
	LeftCount  int
	RightGrad  float64
	RightHess  float64
	RightCount int
}

func noSplit() SplitInfo {
	return SplitInfo{Feature: -1, Gain: math.Inf(-1)}
}

func (s SplitInfo) valid() bool {
	return s.Feature >= 0
}

// treeBuilder grows one tree for one output column.
type treeBuilder struct {
	cfg      *Config
	data     *binnedData
	grad     []float64
	hess     []float64
	features []int
}

// grow builds a tree on rows and returns it with the rows of every leaf,
// indexed by node.
func (b *treeBuilder) grow(rows []int) (Tree, map[int][]int) {
	switch b.cfg.Growth {
	case DepthWise:
		return b.growDepthWise(rows)
	case Symmetric:
		return b.growSymmetric(rows)
	default:
		return b.growLeafWise(rows)
	}
}

func (b *treeBuilder) sums(rows []int) (g, h float64) {
	for _, r := range rows {
		g += b.grad[r]
		h += b.hess[r]
	}
	return g, h
}

func (b *treeBuilder) histogram(feature int, rows []int) []histBin {
	hist := make([]histBin, b.data.mappers[feature].numBins())
	col := b.data.bins[feature]
	for _, r := range rows {
		bin := &hist[col[r]]
		bin.grad += b.grad[r]
		bin.hess += b.hess[r]
		bin.count++
	}
	return hist
}

func (b *treeBuilder) score(g, h float64) float64 {
	return g * g / (h + b.cfg.Lambda + gainEpsilon)
}

// calculateSplitGain is the second-order gain of replacing one leaf by two.
func (b *treeBuilder) calculateSplitGain(lg, lh, rg, rh float64) float64 {
	return 0.5 * (b.score(lg, lh) + b.score(rg, rh) - b.score(lg+rg, lh+rh))
}

func (b *treeBuilder) calculateLeafValue(g, h float64) float64 {
	denom := h + b.cfg.Lambda
	if denom <= gainEpsilon {
		return 0
	}
	return -g / denom * b.cfg.LearningRate
}

func (b *treeBuilder) admissible(count int, hess float64) bool {
	return count >= b.cfg.MinDataInLeaf && hess >= b.cfg.MinSumHessian
}

// findBestSplitForFeature scans bins left to right.
func (b *treeBuilder) findBestSplitForFeature(feature int, hist []histBin, sumG, sumH float64, count int) SplitInfo {
	best := noSplit()
	var lg, lh float64
	lc := 0
	for k := 0; k < len(hist)-1; k++ {
		lg += hist[k].grad
		lh += hist[k].hess
		lc += hist[k].count
		rc := count - lc
		if lc == 0 {
			continue
		}
		if rc == 0 {
			break
		}
		rg, rh := sumG-lg, sumH-lh
		if !b.admissible(lc, lh) || !b.admissible(rc, rh) {
			continue
		}
		gain := b.calculateSplitGain(lg, lh, rg, rh)
		if gain > best.Gain {
			best = SplitInfo{
				Feature: feature, Bin: k, Gain: gain,
				LeftGrad: lg, LeftHess: lh, LeftCount: lc,
				RightGrad: rg, RightHess: rh, RightCount: rc,
			}
		}
	}
	return best
}

// findBestSplit evaluates every sampled feature in parallel.
func (b *treeBuilder) findBestSplit(rows []int) SplitInfo {
	sumG, sumH := b.sums(rows)
	results := make([]SplitInfo, len(b.features))
	parallel.ParallelizeWithThreshold(len(b.features), 4, func(start, end int) {
		for i := start; i < end; i++ {
			f := b.features[i]
			results[i] = b.findBestSplitForFeature(f, b.histogram(f, rows), sumG, sumH, len(rows))
		}
	})

	best := noSplit()
	for _, s := range results {
		if s.valid() && s.Gain > best.Gain {
			best = s
		}
	}
	return best
}

func (b *treeBuilder) partition(rows []int, feature, bin int) (left, right []int) {
	col := b.data.bins[feature]
	for _, r := range rows {
		if int(col[r]) <= bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

// splitLeaf turns leaf idx into an internal node and appends its children.
func (b *treeBuilder) splitLeaf(tree *Tree, idx int, s SplitInfo) (leftIdx, rightIdx int) {
	leftIdx, rightIdx = len(tree.Nodes), len(tree.Nodes)+1
	tree.Nodes = append(tree.Nodes,
		leafNode(b.calculateLeafValue(s.LeftGrad, s.LeftHess), s.LeftCount),
		leafNode(b.calculateLeafValue(s.RightGrad, s.RightHess), s.RightCount),
	)
	node := &tree.Nodes[idx]
	node.Feature = s.Feature
	node.Bin = s.Bin
	node.Threshold = b.data.mappers[s.Feature].threshold(s.Bin)
	node.Gain = s.Gain
	node.Left = leftIdx
	node.Right = rightIdx
	return leftIdx, rightIdx
}

func (b *treeBuilder) newRoot(rows []int) Tree {
	g, h := b.sums(rows)
	return Tree{Nodes: []Node{leafNode(b.calculateLeafValue(g, h), len(rows))}}
}

type leafCandidate struct {
	node  int
	rows  []int
	depth int
	split SplitInfo
}

func (b *treeBuilder) depthAllowed(depth int) bool {
	return b.cfg.MaxDepth <= 0 || depth < b.cfg.MaxDepth
}

// growLeafWise is best-first growth bounded by NumLeaves and MaxDepth.
func (b *treeBuilder) growLeafWise(rows []int) (Tree, map[int][]int) {
	tree := b.newRoot(rows)
	leafRows := map[int][]int{0: rows}

	var candidates []*leafCandidate
	consider := func(node int, rows []int, depth int) {
		if !b.depthAllowed(depth) || len(rows) < 2*b.cfg.MinDataInLeaf {
			return
		}
		if s := b.findBestSplit(rows); s.valid() && s.Gain > b.cfg.MinGainToSplit {
			candidates = append(candidates, &leafCandidate{node: node, rows: rows, depth: depth, split: s})
		}
	}
	consider(0, rows, 0)

	for leaves := 1; leaves < b.cfg.NumLeaves && len(candidates) > 0; leaves++ {
		bestIdx := 0
		for i, c := range candidates {
			if c.split.Gain > candidates[bestIdx].split.Gain {
				bestIdx = i
			}
		}
		c := candidates[bestIdx]
		candidates = append(candidates[:bestIdx], candidates[bestIdx+1:]...)

		left, right := b.partition(c.rows, c.split.Feature, c.split.Bin)
		li, ri := b.splitLeaf(&tree, c.node, c.split)
		delete(leafRows, c.node)
		leafRows[li], leafRows[ri] = left, right

		consider(li, left, c.depth+1)
		consider(ri, right, c.depth+1)
	}
	return tree, leafRows
}

// growDepthWise splits every admissible leaf of a level before descending.
func (b *treeBuilder) growDepthWise(rows []int) (Tree, map[int][]int) {
	tree := b.newRoot(rows)
	leafRows := map[int][]int{0: rows}

	level := []*leafCandidate{{node: 0, rows: rows}}
	for depth := 0; b.depthAllowed(depth) && len(level) > 0; depth++ {
		var next []*leafCandidate
		for _, c := range level {
			if len(c.rows) < 2*b.cfg.MinDataInLeaf {
				continue
			}
			s := b.findBestSplit(c.rows)
			if !s.valid() || s.Gain <= b.cfg.MinGainToSplit {
				continue
			}
			left, right := b.partition(c.rows, s.Feature, s.Bin)
			li, ri := b.splitLeaf(&tree, c.node, s)
			delete(leafRows, c.node)
			leafRows[li], leafRows[ri] = left, right
			next = append(next,
				&leafCandidate{node: li, rows: left, depth: depth + 1},
				&leafCandidate{node: ri, rows: right, depth: depth + 1},
			)
		}
		level = next
	}
	return tree, leafRows
}

// growSymmetric picks one (feature, bin) per level maximizing the summed
// gain over all current leaves and applies it to each of them.
func (b *treeBuilder) growSymmetric(rows []int) (Tree, map[int][]int) {
	tree := b.newRoot(rows)
	level := []*leafCandidate{{node: 0, rows: rows}}

	for depth := 0; depth < b.cfg.MaxDepth; depth++ {
		perFeature := make([]levelSplit, len(b.features))
		parallel.ParallelizeWithThreshold(len(b.features), 4, func(start, end int) {
			for i := start; i < end; i++ {
				perFeature[i] = b.bestSymmetricBin(b.features[i], level)
			}
		})

		bestFeature, best := -1, levelSplit{gain: b.cfg.MinGainToSplit}
		for i, s := range perFeature {
			if s.bin >= 0 && s.gain > best.gain {
				bestFeature, best = b.features[i], s
			}
		}
		if bestFeature < 0 {
			break
		}

		next := make([]*leafCandidate, 0, 2*len(level))
		for _, c := range level {
			left, right := b.partition(c.rows, bestFeature, best.bin)
			lg, lh := b.sums(left)
			rg, rh := b.sums(right)
			s := SplitInfo{
				Feature: bestFeature, Bin: best.bin,
				LeftGrad: lg, LeftHess: lh, LeftCount: len(left),
				RightGrad: rg, RightHess: rh, RightCount: len(right),
				Gain: b.calculateSplitGain(lg, lh, rg, rh),
			}
			li, ri := b.splitLeaf(&tree, c.node, s)
			next = append(next,
				&leafCandidate{node: li, rows: left},
				&leafCandidate{node: ri, rows: right},
			)
		}
		level = next
	}

	leafRows := make(map[int][]int, len(level))
	for _, c := range level {
		leafRows[c.node] = c.rows
	}
	return tree, leafRows
}

type levelSplit struct {
	bin  int
	gain float64
}

func (b *treeBuilder) bestSymmetricBin(feature int, level []*leafCandidate) (best levelSplit) {
	nBins := b.data.mappers[feature].numBins()
	total := make([]float64, nBins-1)
	for _, c := range level {
		hist := b.histogram(feature, c.rows)
		sumG, sumH := b.sums(c.rows)
		var lg, lh float64
		for k := 0; k < nBins-1; k++ {
			lg += hist[k].grad
			lh += hist[k].hess
			total[k] += b.calculateSplitGain(lg, lh, sumG-lg, sumH-lh)
		}
	}

	best.bin = -1
	best.gain = math.Inf(-1)
	for k, g := range total {
		if g > best.gain {
			best.bin, best.gain = k, g
		}
	}
	return best
}
