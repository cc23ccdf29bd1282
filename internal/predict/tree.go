package predict

import (
	"embed"
	"fmt"

	"github.com/tidwall/gjson"
)

//go:embed trees/*.json
var treeFS embed.FS

// node is one decision or leaf in a parsed tree.
type node struct {
	leaf      bool
	value     float64
	feature   func(*Features) float64
	threshold float64
	le        *node
	gt        *node
}

// Tree is a parsed CART decision tree. Predict walks at most depth
// comparisons and returns the leaf probability.
type Tree struct {
	name string
	root *node
}

// ParseTree builds a tree from a training artifact. Artifacts are nested
// objects of {feature, threshold, le, gt} with {value} leaves.
func ParseTree(name string, data []byte) (*Tree, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("tree %s: invalid JSON", name)
	}
	root, err := parseNode(name, gjson.ParseBytes(data))
	if err != nil {
		return nil, err
	}
	return &Tree{name: name, root: root}, nil
}

func parseNode(name string, n gjson.Result) (*node, error) {
	if v := n.Get("value"); v.Exists() {
		return &node{leaf: true, value: v.Float()}, nil
	}

	col := n.Get("feature").String()
	feature, ok := featureColumns[col]
	if !ok {
		return nil, fmt.Errorf("tree %s: unknown feature column %q", name, col)
	}

	le, err := parseNode(name, n.Get("le"))
	if err != nil {
		return nil, err
	}
	gt, err := parseNode(name, n.Get("gt"))
	if err != nil {
		return nil, err
	}
	return &node{
		feature:   feature,
		threshold: n.Get("threshold").Float(),
		le:        le,
		gt:        gt,
	}, nil
}

// Predict evaluates the tree and returns a hold probability in [0, 1].
func (t *Tree) Predict(f Features) float64 {
	n := t.root
	for !n.leaf {
		if n.feature(&f) <= n.threshold {
			n = n.le
		} else {
			n = n.gt
		}
	}
	return n.value
}

// Name returns the artifact name the tree was loaded from.
func (t *Tree) Name() string {
	return t.name
}

// The three trained trees, one per decision point.
var (
	// ThirdPress predicts hold when a third key is pressed.
	ThirdPress = mustTree("third_press")

	// ReleaseAfterSecondPress predicts hold when the tap-hold key is
	// released while the second key is still down.
	ReleaseAfterSecondPress = mustTree("release_after_second_press")

	// ReleaseAfterSecondRelease predicts hold when the tap-hold key is
	// released after the second key was released.
	ReleaseAfterSecondRelease = mustTree("release_after_second_release")
)

func mustTree(name string) *Tree {
	data, err := treeFS.ReadFile("trees/" + name + ".json")
	if err != nil {
		panic(fmt.Sprintf("predict: missing tree artifact %s: %v", name, err))
	}
	t, err := ParseTree(name, data)
	if err != nil {
		panic(fmt.Sprintf("predict: %v", err))
	}
	return t
}
