package ai

import (
	"fmt"
	"sync/atomic"
)

// MaxNodeDepth はツリーの最大深さです。Stackもこの深さ分のフレームしか持ちません。
const MaxNodeDepth = 20

type nodeKind uint8

const (
	kindSequence nodeKind = iota + 1
	kindSelector
	kindInverter
	kindCondition
	kindAction
)

type node[C any] struct {
	kind     nodeKind
	name     string
	children []int
	cond     Condition[C]
	act      Action[C]
}

// Tree はコンパイル済みの不変なビヘイビアツリーです。
// ノードはフラットなスライスに前順で並び、インデックス0がルートです。
type Tree[C any] struct {
	id    uint64
	name  string
	nodes []node[C]
	depth int
}

var treeIDs atomic.Uint64

// Compile はノード定義を検証してTreeを構築します。
// 未知の葉ノードや MaxNodeDepth を超える深さはここでエラーになります。
func Compile[C any](name string, def NodeDef, reg *Registry[C]) (*Tree[C], error) {
	t := &Tree[C]{
		id:   treeIDs.Add(1),
		name: name,
	}
	if _, err := t.build(&def, 1, reg); err != nil {
		return nil, fmt.Errorf("compile %q: %w", name, err)
	}
	return t, nil
}

func (t *Tree[C]) build(def *NodeDef, depth int, reg *Registry[C]) (int, error) {
	if depth > MaxNodeDepth {
		return 0, fmt.Errorf("%w: depth %d > %d", ErrTreeTooDeep, depth, MaxNodeDepth)
	}
	kind, err := def.kind()
	if err != nil {
		return 0, err
	}
	if depth > t.depth {
		t.depth = depth
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, node[C]{kind: kind})

	var children []int
	switch kind {
	case kindCondition:
		fn, ok := reg.conditions[def.Condition]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownCondition, def.Condition)
		}
		t.nodes[idx].name = def.Condition
		t.nodes[idx].cond = fn
		return idx, nil
	case kindAction:
		fn, ok := reg.actions[def.Action]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownAction, def.Action)
		}
		t.nodes[idx].name = def.Action
		t.nodes[idx].act = fn
		return idx, nil
	case kindInverter:
		t.nodes[idx].name = "not"
		c, err := t.build(def.Not, depth+1, reg)
		if err != nil {
			return 0, err
		}
		children = []int{c}
	case kindSequence, kindSelector:
		defs := def.Sequence
		t.nodes[idx].name = "sequence"
		if kind == kindSelector {
			defs = def.Selector
			t.nodes[idx].name = "selector"
		}
		for i := range defs {
			c, err := t.build(&defs[i], depth+1, reg)
			if err != nil {
				return 0, err
			}
			children = append(children, c)
		}
	}
	t.nodes[idx].children = children
	return idx, nil
}

func (t *Tree[C]) Name() string { return t.name }

// Depth はルートを1とした最大の深さです。
func (t *Tree[C]) Depth() int { return t.depth }

// RunningPath は前回のtickでRunningになったノードの名前をルートから順に返します。
func (t *Tree[C]) RunningPath(st *Stack) []string {
	if st.owner != t.id {
		return nil
	}
	path := make([]string, 0, st.n)
	for _, f := range st.frames[:st.n] {
		path = append(path, t.nodes[f.node].name)
	}
	return path
}
