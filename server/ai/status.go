// Package ai はtickをまたいで途中から再開できるビヘイビアツリーの実行エンジンです。
//
// ツリーはロード時に一度だけコンパイルされ、以後は読み取り専用で複数のボットから共有されます。
// ボットごとの実行状態は Stack に保持されます。
package ai

// Status はノードのtick結果です。
type Status uint8

const (
	Running Status = iota + 1
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "invalid"
	}
}
