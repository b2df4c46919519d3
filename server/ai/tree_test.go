package ai_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/touka-aoi/tanzbot/server/ai"
)

// recorder は葉ノードの呼び出し回数と返す結果を記録するテスト用コンテキストです。
type recorder struct {
	calls   map[string]int
	results map[string]ai.Status
	conds   map[string]bool
}

func newRecorder() *recorder {
	return &recorder{
		calls:   make(map[string]int),
		results: make(map[string]ai.Status),
		conds:   make(map[string]bool),
	}
}

func registry(names ...string) *ai.Registry[*recorder] {
	reg := ai.NewRegistry[*recorder]()
	for _, name := range names {
		reg.Action(name, func(p *recorder) ai.Status {
			p.calls[name]++
			return p.results[name]
		})
		reg.Condition("is"+name, func(p *recorder) bool {
			p.calls["is"+name]++
			return p.conds["is"+name]
		})
	}
	return reg
}

func act(name string) ai.NodeDef  { return ai.NodeDef{Action: name} }
func cond(name string) ai.NodeDef { return ai.NodeDef{Condition: name} }

func TestTick_SequenceResumesAtRunningChild(t *testing.T) {
	tree, err := ai.Compile("seq", ai.NodeDef{Sequence: []ai.NodeDef{act("A"), act("B")}}, registry("A", "B"))
	require.NoError(t, err)

	p := newRecorder()
	p.results["A"] = ai.Success
	p.results["B"] = ai.Running
	var st ai.Stack

	assert.Equal(t, ai.Running, tree.Tick(p, &st))
	assert.Equal(t, []string{"sequence", "B"}, tree.RunningPath(&st))
	assert.Equal(t, 1, p.calls["A"])

	assert.Equal(t, ai.Running, tree.Tick(p, &st))
	assert.Equal(t, 1, p.calls["A"], "A must not be re-ticked while B is running")
	assert.Equal(t, 2, p.calls["B"])

	p.results["B"] = ai.Success
	assert.Equal(t, ai.Success, tree.Tick(p, &st))
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, 1, p.calls["A"])

	// 完了後は再びルートから評価される
	p.results["B"] = ai.Running
	assert.Equal(t, ai.Running, tree.Tick(p, &st))
	assert.Equal(t, 2, p.calls["A"])
}

func TestTick_ResumeSkipsAncestorPreconditions(t *testing.T) {
	def := ai.NodeDef{Selector: []ai.NodeDef{
		{Sequence: []ai.NodeDef{cond("isFight"), act("Fight")}},
		act("Roam"),
	}}
	tree, err := ai.Compile("combat", def, registry("Fight", "Roam"))
	require.NoError(t, err)

	p := newRecorder()
	p.conds["isFight"] = true
	p.results["Fight"] = ai.Running
	var st ai.Stack

	for i := 0; i < 3; i++ {
		assert.Equal(t, ai.Running, tree.Tick(p, &st))
	}
	assert.Equal(t, 1, p.calls["isFight"])
	assert.Equal(t, 3, p.calls["Fight"])
	assert.Equal(t, []string{"selector", "sequence", "Fight"}, tree.RunningPath(&st))

	// 戦闘が失敗すると、セレクタは次の子へ進む
	p.results["Fight"] = ai.Failure
	p.results["Roam"] = ai.Running
	assert.Equal(t, ai.Running, tree.Tick(p, &st))
	assert.Equal(t, []string{"selector", "Roam"}, tree.RunningPath(&st))
	assert.Equal(t, 1, p.calls["isFight"])
}

func TestTick_SelectorAndSequenceShortCircuit(t *testing.T) {
	reg := registry("A", "B", "C")
	p := newRecorder()
	p.results["A"] = ai.Failure
	p.results["B"] = ai.Success
	p.results["C"] = ai.Success

	sel, err := ai.Compile("sel", ai.NodeDef{Selector: []ai.NodeDef{act("A"), act("B"), act("C")}}, reg)
	require.NoError(t, err)
	var st ai.Stack
	assert.Equal(t, ai.Success, sel.Tick(p, &st))
	assert.Equal(t, 0, p.calls["C"])

	seq, err := ai.Compile("seq", ai.NodeDef{Sequence: []ai.NodeDef{act("B"), act("A"), act("C")}}, reg)
	require.NoError(t, err)
	st = ai.Stack{}
	assert.Equal(t, ai.Failure, seq.Tick(p, &st))
	assert.Equal(t, 0, p.calls["C"])
	assert.Equal(t, 0, st.Len())
}

func TestTick_Inverter(t *testing.T) {
	tree, err := ai.Compile("not", ai.NodeDef{Not: &ai.NodeDef{Condition: "isA"}}, registry("A"))
	require.NoError(t, err)

	p := newRecorder()
	var st ai.Stack
	assert.Equal(t, ai.Success, tree.Tick(p, &st))
	p.conds["isA"] = true
	assert.Equal(t, ai.Failure, tree.Tick(p, &st))

	running, err := ai.Compile("not-running", ai.NodeDef{Not: &ai.NodeDef{Action: "A"}}, registry("A"))
	require.NoError(t, err)
	p.results["A"] = ai.Running
	assert.Equal(t, ai.Running, running.Tick(p, &st))
	p.results["A"] = ai.Success
	assert.Equal(t, ai.Failure, running.Tick(p, &st))
}

func TestTick_StacksAreIndependentPerBot(t *testing.T) {
	tree, err := ai.Compile("seq", ai.NodeDef{Sequence: []ai.NodeDef{act("A"), act("B")}}, registry("A", "B"))
	require.NoError(t, err)

	p := newRecorder()
	p.results["A"] = ai.Success
	p.results["B"] = ai.Running
	var first, second ai.Stack

	tree.Tick(p, &first)
	assert.Equal(t, 2, first.Len())
	assert.Equal(t, 0, second.Len())
	tree.Tick(p, &second)
	assert.Equal(t, 2, p.calls["A"])
}

func TestTick_ChangingTreeRestartsFromRoot(t *testing.T) {
	reg := registry("A", "B")
	first, err := ai.Compile("first", ai.NodeDef{Sequence: []ai.NodeDef{act("A"), act("B")}}, reg)
	require.NoError(t, err)
	second, err := ai.Compile("second", ai.NodeDef{Sequence: []ai.NodeDef{act("A"), act("B")}}, reg)
	require.NoError(t, err)

	p := newRecorder()
	p.results["A"] = ai.Success
	p.results["B"] = ai.Running
	var st ai.Stack

	first.Tick(p, &st)
	assert.Nil(t, second.RunningPath(&st))
	second.Tick(p, &st)
	assert.Equal(t, 2, p.calls["A"])
	assert.Equal(t, []string{"sequence", "B"}, second.RunningPath(&st))

	st.Reset()
	assert.Equal(t, 0, st.Len())
}

func nested(depth int) ai.NodeDef {
	def := act("A")
	for i := 1; i < depth; i++ {
		inner := def
		def = ai.NodeDef{Not: &inner}
	}
	return def
}

func TestCompile_DepthBound(t *testing.T) {
	reg := registry("A")

	tree, err := ai.Compile("deep", nested(ai.MaxNodeDepth), reg)
	require.NoError(t, err)
	assert.Equal(t, ai.MaxNodeDepth, tree.Depth())

	p := newRecorder()
	p.results["A"] = ai.Running
	var st ai.Stack
	assert.Equal(t, ai.Running, tree.Tick(p, &st))
	assert.Equal(t, ai.MaxNodeDepth, st.Len())

	_, err = ai.Compile("too-deep", nested(ai.MaxNodeDepth+1), reg)
	assert.ErrorIs(t, err, ai.ErrTreeTooDeep)
}

func TestCompile_Errors(t *testing.T) {
	reg := registry("A")

	_, err := ai.Compile("x", act("Missing"), reg)
	assert.ErrorIs(t, err, ai.ErrUnknownAction)

	_, err = ai.Compile("x", cond("isMissing"), reg)
	assert.ErrorIs(t, err, ai.ErrUnknownCondition)

	_, err = ai.Compile("x", ai.NodeDef{Action: "A", Condition: "isA"}, reg)
	assert.ErrorIs(t, err, ai.ErrInvalidNode)

	_, err = ai.Compile("x", ai.NodeDef{}, reg)
	assert.ErrorIs(t, err, ai.ErrInvalidNode)
}

func TestLibrary_Load(t *testing.T) {
	fsys := fstest.MapFS{
		"profiles/default.yaml": {Data: []byte(strings.TrimSpace(`
name: default
tree:
  selector:
    - sequence:
        - condition: isA
        - action: A
    - action: B
`))},
		"profiles/idle.yaml": {Data: []byte("tree:\n  action: B\n")},
		"profiles/README.md": {Data: []byte("not a profile")},
	}

	lib := ai.NewLibrary(registry("A", "B"))
	require.NoError(t, lib.Load(fsys, "profiles/*.yaml"))
	assert.Equal(t, []string{"default", "idle"}, lib.Names())

	tree, ok := lib.Get("default")
	require.True(t, ok)
	assert.Equal(t, 3, tree.Depth())

	_, ok = lib.Get("missing")
	assert.False(t, ok)

	err := lib.Load(fsys, "profiles/idle.yaml")
	assert.ErrorIs(t, err, ai.ErrDuplicateProfile)
}

func TestLibrary_LoadRejectsBadProfiles(t *testing.T) {
	tests := map[string]struct {
		yaml string
		want error
	}{
		"unknown field": {yaml: "name: x\ntree:\n  action: A\nspeed: 3\n", want: ai.ErrInvalidProfile},
		"unknown leaf":  {yaml: "name: x\ntree:\n  action: Jump\n", want: ai.ErrUnknownAction},
		"too deep":      {yaml: "name: x\ntree:\n" + deepYAML(ai.MaxNodeDepth+1), want: ai.ErrTreeTooDeep},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			lib := ai.NewLibrary(registry("A"))
			err := lib.Load(fstest.MapFS{"p.yaml": {Data: []byte(tt.yaml)}}, "*.yaml")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// deepYAML はnotをdepth-1段重ねたYAMLを返します。
func deepYAML(depth int) string {
	var b strings.Builder
	indent := "  "
	for i := 1; i < depth; i++ {
		b.WriteString(indent + "not:\n")
		indent += "  "
	}
	b.WriteString(indent + "action: A\n")
	return b.String()
}
