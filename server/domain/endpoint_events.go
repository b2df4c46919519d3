package domain

import "time"

type endpointEventKind uint8

const (
	unknown endpointEventKind = iota

	evPong       // pong を受信した
	evReadError  // 読み込みに失敗した
	evWriteError // 書き込みに失敗した
	evIdle       // 一定時間無通信だった

	evClose // 終了要求
)

// endpointEvent はSessionEndpointのownerLoopへ送る制御イベントです。
// silenceはevIdleのときだけ意味を持ちます。
type endpointEvent struct {
	kind    endpointEventKind
	err     error
	silence time.Duration
}

// closeFrame はイベントに対応する切断コードと理由を返します。
func (ev endpointEvent) closeFrame() (CloseCode, string) {
	switch ev.kind {
	case evIdle:
		return ClosePolicyViolation, "idle for " + ev.silence.Truncate(time.Second).String()
	case evClose:
		return CloseGoingAway, "server shutdown"
	default:
		return CloseNormal, ""
	}
}
