package model

import (
	"errors"
	"fmt"
)

const leafNode = -1

// Tree is a single decision tree exported as parallel node arrays.
// Node i is a leaf when ChildrenLeft[i] == -1; otherwise samples with
// x[Feature[i]] <= Threshold[i] go left.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// ForestSpec is the serialized tree ensemble.
type ForestSpec struct {
	PositiveIndex int    `json:"positive_index"`
	Trees         []Tree `json:"trees"`
}

// Forest evaluates a random-forest classifier. Immutable after creation.
type Forest struct {
	width    int
	positive int
	trees    []Tree
}

// NewForest validates the tree structure against the input width.
func NewForest(spec ForestSpec, width int) (*Forest, error) {
	if width < 1 {
		return nil, fmt.Errorf("invalid input width: %d", width)
	}
	if len(spec.Trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	if spec.PositiveIndex < 0 {
		return nil, fmt.Errorf("invalid positive class index: %d", spec.PositiveIndex)
	}

	for i, t := range spec.Trees {
		if err := validateTree(t, width, spec.PositiveIndex); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}

	return &Forest{
		width:    width,
		positive: spec.PositiveIndex,
		trees:    spec.Trees,
	}, nil
}

func validateTree(t Tree, width, positive int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("node arrays differ in length")
	}

	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leafNode || r == leafNode {
			if l != r {
				return fmt.Errorf("node %d has a single child", i)
			}
			if len(t.Value[i]) <= positive {
				return fmt.Errorf("node %d value has no positive class column", i)
			}
			continue
		}
		// children always follow their parent, which also rules out cycles
		if l <= i || r <= i || l >= n || r >= n {
			return fmt.Errorf("node %d has invalid children (%d, %d)", i, l, r)
		}
		if f := t.Feature[i]; f < 0 || f >= width {
			return fmt.Errorf("node %d splits on feature %d outside input width %d", i, f, width)
		}
	}
	return nil
}

func (f *Forest) InputWidth() int {
	return f.width
}

// PositiveProbability averages the positive-class leaf fraction over all trees.
func (f *Forest) PositiveProbability(x []float64) (float64, error) {
	if len(x) != f.width {
		return 0, fmt.Errorf("expected %d features, got %d", f.width, len(x))
	}

	var sum float64
	for i := range f.trees {
		sum += f.trees[i].leafProbability(x, f.positive)
	}
	return sum / float64(len(f.trees)), nil
}

func (f *Forest) Close() error {
	return nil
}

func (t *Tree) leafProbability(x []float64, positive int) float64 {
	node := 0
	for t.ChildrenLeft[node] != leafNode {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}

	var total float64
	for _, v := range t.Value[node] {
		total += v
	}
	if total <= 0 {
		return 0
	}
	return t.Value[node][positive] / total
}
