package ai

// Tick はツリーを1tick進めます。
//
// 前回Runningで中断していれば、ルートからではなく最深部の実行中ノードから再開します。
// 再開した葉がSuccessかFailureを返すと、その結果を親フレームへ順に伝播します。
// 祖先のうち既に成功した前段の子は再評価されません。
func (t *Tree[C]) Tick(c C, st *Stack) Status {
	if st.owner != t.id {
		st.n = 0
		st.owner = t.id
	}
	if st.n == 0 {
		return t.run(c, st, 0)
	}

	r := t.exec(c, st, 0, false)
	for r != Running && st.n > 0 {
		r = t.exec(c, st, r, true)
	}
	return r
}

// run はノードidxを新しいフレームとして積んで評価します。
func (t *Tree[C]) run(c C, st *Stack, idx int) Status {
	if !st.push(idx) {
		return Failure
	}
	return t.exec(c, st, 0, false)
}

// exec はスタック最上段のフレームを評価します。
// fromChildがtrueのとき、rは直前に終了した子の結果です。
func (t *Tree[C]) exec(c C, st *Stack, r Status, fromChild bool) Status {
	f := st.top()
	n := &t.nodes[f.node]

	switch n.kind {
	case kindCondition:
		st.pop()
		if n.cond(c) {
			return Success
		}
		return Failure
	case kindAction:
		r = n.act(c)
		if r == Running {
			return Running
		}
		st.pop()
		return r
	case kindInverter:
		if !fromChild {
			r = t.run(c, st, n.children[0])
			if r == Running {
				return Running
			}
		}
		st.pop()
		switch r {
		case Success:
			return Failure
		case Failure:
			return Success
		default:
			return r
		}
	default:
		// sequenceはFailureで、selectorはSuccessで打ち切る
		stop, exhausted := Failure, Success
		if n.kind == kindSelector {
			stop, exhausted = Success, Failure
		}
		for {
			if fromChild {
				if r == stop {
					st.pop()
					return r
				}
				f.child++
			}
			if f.child >= len(n.children) {
				st.pop()
				return exhausted
			}
			r = t.run(c, st, n.children[f.child])
			if r == Running {
				return Running
			}
			fromChild = true
		}
	}
}
