package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize session endpoint")
)

const (
	defaultIdleTimeout  = 30 * time.Second
	defaultPingInterval = 5 * time.Second
)

// RoomGateway はセッションエンドポイントから見たRoomです。
type RoomGateway interface {
	Deliver(ctx context.Context, msg Message) error
	Attach(ctx context.Context, sessionID SessionID, sender Sender) error
	Detach(ctx context.Context, sessionID SessionID) error
}

// SessionEndpoint は人間のクライアント1接続分の読み書きを担います。
type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session    *Session
	connection *Connection
	room       RoomGateway

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	idleTimeout  time.Duration
	pingInterval time.Duration

	// lifecycle
	closed atomic.Bool
}

func NewSessionEndpoint(session *Session, connection *Connection, room RoomGateway) (*SessionEndpoint, error) {
	if session == nil || connection == nil || room == nil {
		return nil, ErrInitializationFailed
	}
	ctx, cancel := context.WithCancel(context.Background())
	se := &SessionEndpoint{
		ctx:          ctx,
		cancel:       cancel,
		session:      session,
		connection:   connection,
		room:         room,
		ctrlCh:       make(chan endpointEvent, 16),
		writeCh:      make(chan []byte, 1024),
		idleTimeout:  defaultIdleTimeout,
		pingInterval: defaultPingInterval,
	}
	return se, nil
}

func (se *SessionEndpoint) Run(ctx context.Context) error {
	if err := se.room.Attach(ctx, se.session.ID(), se); err != nil {
		se.close(CloseGoingAway, "room unavailable")
		return err
	}
	defer func() {
		detachCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := se.room.Detach(detachCtx, se.session.ID()); err != nil {
			slog.WarnContext(detachCtx, "session detach failed", "sessionID", se.session.ID(), "err", err)
		}
	}()

	heartbeat := NewHeartbeatService(se.pingInterval, se.session, se.writeCh)

	eg, egCtx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(egCtx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(egCtx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(egCtx)
		return nil
	})
	eg.Go(func() error {
		heartbeat.Run(egCtx)
		return nil
	})
	eg.Go(func() error {
		select {
		case <-ctx.Done():
			se.close(endpointEvent{kind: evClose}.closeFrame())
		case <-egCtx.Done():
		}
		return nil
	})

	// セッションID通知を送信
	if err := se.Send(EncodeAssignMessage(se.session.ID())); err != nil {
		se.close(CloseNormal, "")
	}

	return eg.Wait()
}

// Send はwriteChにデータを積みます。満杯ならErrBackpressureを返します。
func (se *SessionEndpoint) Send(data []byte) error {
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose})
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			if se.idleTimeout <= 0 {
				continue
			}
			if silence := se.session.Silence(time.Now()); silence >= se.idleTimeout {
				se.handleControlEvent(ctx, endpointEvent{kind: evIdle, silence: silence})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		data, err := se.connection.Read(ctx)
		if err != nil {
			se.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
			return
		}
		se.session.TouchRead()
		se.handleData(ctx, data)
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			if err := se.connection.Write(ctx, data); err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, err: err})
				return
			}
		}
	}
}

func (se *SessionEndpoint) close(code CloseCode, reason string) {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	se.cancel()
	se.session.Close()
	se.connection.Close(code, reason)
}

func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	header, err := ParseHeader(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse header", "err", err)
		return
	}
	expectedBytes := se.session.ID().Bytes()
	if header.SessionID != expectedBytes {
		slog.WarnContext(ctx, "session ID mismatch", "expected", se.session.ID(), "got", SessionIDFromBytes(header.SessionID))
		return
	}
	payloadHeader, err := ParsePayloadHeader(data[HeaderSize:])
	if err != nil {
		slog.WarnContext(ctx, "failed to parse payload header", "err", err)
		return
	}

	switch payloadHeader.DataType {
	case DataTypeControl:
		switch ControlSubType(payloadHeader.SubType) {
		case ControlSubTypePong:
			se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
			return
		case ControlSubTypeJoin, ControlSubTypeLeave:
			se.deliver(ctx, data)
		default:
			slog.WarnContext(ctx, "unexpected control subtype", "subType", payloadHeader.SubType)
		}
	case DataTypeInput:
		se.deliver(ctx, data)
	default:
		slog.WarnContext(ctx, "unknown data type", "dataType", payloadHeader.DataType)
	}
}

func (se *SessionEndpoint) deliver(ctx context.Context, data []byte) {
	err := se.room.Deliver(ctx, Message{SessionID: se.session.ID(), Data: data})
	if errors.Is(err, ErrRoomBusy) {
		slog.WarnContext(ctx, "room busy, message dropped", "sessionID", se.session.ID())
		return
	}
	if err != nil {
		slog.DebugContext(ctx, "deliver failed", "sessionID", se.session.ID(), "err", err)
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		slog.InfoContext(ctx, "session closing", "sessionID", se.session.ID())
		se.close(ev.closeFrame())
	case evIdle:
		slog.InfoContext(ctx, "session idle", "sessionID", se.session.ID(), "silence", ev.silence)
		se.close(ev.closeFrame())
	case evPong:
		se.session.TouchPong()
	case evReadError, evWriteError:
		slog.DebugContext(ctx, "session io error", "sessionID", se.session.ID(), "err", ev.err)
		se.close(ev.closeFrame())
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}
