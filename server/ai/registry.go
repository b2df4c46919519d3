package ai

// Condition は葉ノードの条件判定です。
type Condition[C any] func(c C) bool

// Action は葉ノードの行動です。複数tickにまたがる行動はRunningを返します。
type Action[C any] func(c C) Status

// Registry はプロファイルから名前で参照される葉ノードの実装を保持します。
type Registry[C any] struct {
	conditions map[string]Condition[C]
	actions    map[string]Action[C]
}

func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{
		conditions: make(map[string]Condition[C]),
		actions:    make(map[string]Action[C]),
	}
}

// Condition は条件を登録します。同名の登録は上書きされます。
func (r *Registry[C]) Condition(name string, fn Condition[C]) *Registry[C] {
	r.conditions[name] = fn
	return r
}

// Action は行動を登録します。同名の登録は上書きされます。
func (r *Registry[C]) Action(name string, fn Action[C]) *Registry[C] {
	r.actions[name] = fn
	return r
}
