package domain

import (
	"context"
	"time"
)

// Application はRoomのtickループに乗るゲームロジックです。
// すべてのメソッドはRoomのループゴルーチンからのみ呼ばれます。
type Application interface {
	HandleMessage(ctx context.Context, sessionID SessionID, data []byte) error
	HandleDisconnect(ctx context.Context, sessionID SessionID)
	Tick(ctx context.Context, now time.Time)
}

// Sender はセッションへの送信口です。
type Sender interface {
	Send(data []byte) error
}
