package boosting

// Node is one node of a regression tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	// Bin is the histogram bin matching Threshold on the training data.
	Bin       int
	Left      int
	Right     int
	Value     float64
	Gain      float64
	Count     int
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left < 0
}

// Tree is a binary regression tree. Node 0 is the root. Leaf values already
// include the learning rate.
type Tree struct {
	Nodes []Node
	// Class is the output column this tree contributes to.
	Class int
}

// Predict routes one row to a leaf: value <= Threshold goes left.
func (t *Tree) Predict(row []float64) float64 {
	idx := 0
	for {
		node := &t.Nodes[idx]
		if node.IsLeaf() {
			return node.Value
		}
		if row[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// NumLeaves counts leaf nodes.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(idx, depth int) int
	walk = func(idx, depth int) int {
		node := &t.Nodes[idx]
		if node.IsLeaf() {
			return depth
		}
		return max(walk(node.Left, depth+1), walk(node.Right, depth+1))
	}
	return walk(0, 0)
}

func leafNode(value float64, count int) Node {
	return Node{Left: -1, Right: -1, Value: value, Count: count}
}
