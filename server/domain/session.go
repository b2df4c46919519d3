package domain

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionID は人間のクライアントのセッションを識別します。
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// SessionIDFromBytes はヘッダーの16バイトからSessionIDを復元します。
func SessionIDFromBytes(b [16]byte) SessionID {
	return SessionID(uuid.UUID(b).String())
}

// Bytes はヘッダーに載せる16バイト表現を返します。パースできない場合はゼロ値です。
func (id SessionID) Bytes() [16]byte {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return [16]byte{}
	}
	return u
}

func (id SessionID) String() string { return string(id) }

func (id SessionID) IsEmpty() bool { return id == "" }

// Session は1接続の論理的な接続状態を表す構造体です。
type Session struct {
	id SessionID

	// activity
	lastRead atomic.Int64
	lastPong atomic.Int64

	// lifecycle
	closed atomic.Bool
}

func NewSession() *Session {
	s := &Session{
		id: NewSessionID(),
	}
	now := time.Now().UnixNano()
	s.lastRead.Store(now)
	s.lastPong.Store(now)
	return s
}

func (s *Session) ID() SessionID { return s.id }

func (s *Session) TouchRead() {
	s.lastRead.Store(time.Now().UnixNano())
}

func (s *Session) TouchPong() {
	s.lastPong.Store(time.Now().UnixNano())
}

// Close はセッションを閉じます。最初の呼び出しのみtrueを返します。
func (s *Session) Close() bool {
	return s.closed.CompareAndSwap(false, true)
}

func (s *Session) Closed() bool { return s.closed.Load() }

// Silence はnowの時点で、読み込みとpongのうち新しい方から経過した時間です。
// 入力かpongのどちらかが届いていれば無通信とはみなしません。
func (s *Session) Silence(now time.Time) time.Duration {
	last := max(s.lastRead.Load(), s.lastPong.Load())
	return now.Sub(time.Unix(0, last))
}
