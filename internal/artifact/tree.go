package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DecisionTree is a serialized classification tree stored as a flat node
// array with child indexes. It predicts a class directly and exposes no
// probabilities, so models backed by it take the direct-prediction path.
type DecisionTree struct {
	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

// DecodeTree parses the node array form produced by the training tooling.
func DecodeTree(data []byte) (*DecisionTree, error) {
	var nodes []TreeNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errors.New("tree artifact has no nodes")
	}
	return &DecisionTree{nodes: nodes}, nil
}

// Predict walks the tree and returns the leaf class index.
func (dt *DecisionTree) Predict(features []float64) (float64, error) {
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return float64(node.ClassLabel), nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, fmt.Errorf("feature index %d out of range", node.FeatureIdx)
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}
