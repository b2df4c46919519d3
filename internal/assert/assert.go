// Package assert は実行中のゲームを落とさずに契約違反を検出するための仕組みです。
//
// botdebug タグ付きでビルドすると違反時に panic します。
// 通常ビルドではエラーログを出して false を返し、呼び出し側はその操作を無視します。
package assert

// That は cond が偽のとき契約違反として扱います。違反がなければ true を返します。
func That(cond bool, msg string, args ...any) bool {
	if cond {
		return true
	}
	violate(msg, args...)
	return false
}
