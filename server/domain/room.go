package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type RoomID string

var (
	ErrRoomBusy    = errors.New("room channel is full")
	ErrRoomStopped = errors.New("room is not running")
)

const tracerName = "github.com/touka-aoi/tanzbot/server/domain"

type roomCtrl struct {
	// ctx は呼び出し元のctxです。ループが取り出した時点で終わっていればfnは実行しません。
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

// Room は1つのゲームワールドを60Hzで進めるループです。
// Applicationの状態はループゴルーチンだけが触るため、ロックを持ちません。
type Room struct {
	ID RoomID

	application Application
	sessions    map[SessionID]Sender

	inCh   chan Message
	ctrlCh chan roomCtrl
	done   chan struct{}

	tickInterval time.Duration
	tracer       trace.Tracer
	now          func() time.Time
}

type RoomOption func(*Room)

// WithTickInterval はtick間隔を変更します。
func WithTickInterval(d time.Duration) RoomOption {
	return func(r *Room) { r.tickInterval = d }
}

// WithTracer はtickのspanを記録するTracerを指定します。
func WithTracer(tr trace.Tracer) RoomOption {
	return func(r *Room) { r.tracer = tr }
}

// WithRoomClock はtickに渡す時刻の取得元を差し替えます。
func WithRoomClock(now func() time.Time) RoomOption {
	return func(r *Room) { r.now = now }
}

func NewRoom(id RoomID, application Application, opts ...RoomOption) *Room {
	r := &Room{
		ID:           id,
		application:  application,
		sessions:     make(map[SessionID]Sender),
		inCh:         make(chan Message, 1024),
		ctrlCh:       make(chan roomCtrl, 64),
		done:         make(chan struct{}),
		tickInterval: time.Second / 60,
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Deliver はセッションからのメッセージを次のtickで処理するためにキューへ積みます。
func (r *Room) Deliver(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r.inCh <- msg:
		return nil
	default:
		return ErrRoomBusy
	}
}

// Do はfnをRoomのループゴルーチン上で実行し、その結果を待ちます。
// ctxが終わると結果を待たずに戻ります。ループがfnを取り出す前にctxが終わっていれば、fnは実行されません。
// 取り出した後に終わった場合はfnは最後まで実行され、結果だけが捨てられます。
func (r *Room) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.do(ctx, ctx, fn)
}

// do はfnを積み、ctxが終わるまで結果を待ちます。runCtxが終わっていればループはfnを実行しません。
func (r *Room) do(ctx, runCtx context.Context, fn func(ctx context.Context) error) error {
	c := roomCtrl{ctx: runCtx, fn: fn, result: make(chan error, 1)}
	select {
	case <-r.done:
		return ErrRoomStopped
	case r.ctrlCh <- c:
	default:
		return ErrRoomBusy
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrRoomStopped
	case err := <-c.result:
		return err
	}
}

// Attach はセッションへの送信口を登録します。
func (r *Room) Attach(ctx context.Context, sessionID SessionID, sender Sender) error {
	return r.Do(ctx, func(ctx context.Context) error {
		r.sessions[sessionID] = sender
		return nil
	})
}

// Detach はセッションを外し、Applicationに切断を通知します。
// 後始末は必ず行うため、ctxが終わって待つのをやめても積んだ処理は実行されます。
func (r *Room) Detach(ctx context.Context, sessionID SessionID) error {
	return r.do(ctx, context.WithoutCancel(ctx), func(ctx context.Context) error {
		delete(r.sessions, sessionID)
		r.application.HandleDisconnect(ctx, sessionID)
		return nil
	})
}

func (r *Room) Run(ctx context.Context) error {
	defer close(r.done)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Step(ctx)
		}
	}
}

// Step は1tick分の処理を行います。
func (r *Room) Step(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "room.tick", trace.WithAttributes(attribute.String("room.id", string(r.ID))))
	defer span.End()

	// 制御処理（管理APIからの操作など）
	var ctrls int
CTRL_LOOP:
	for {
		select {
		case c := <-r.ctrlCh:
			if err := c.ctx.Err(); err != nil {
				c.result <- err
				continue
			}
			c.result <- c.fn(ctx)
			ctrls++
		default:
			break CTRL_LOOP
		}
	}
	// 受信メッセージを処理
	var received int
RECEIVE_LOOP:
	for {
		select {
		case msg := <-r.inCh:
			received++
			if err := r.application.HandleMessage(ctx, msg.SessionID, msg.Data); err != nil {
				slog.WarnContext(ctx, "room handle message failed", "sessionID", msg.SessionID, "err", err)
				r.sendError(ctx, msg.SessionID, err)
			}
		default:
			break RECEIVE_LOOP
		}
	}
	span.SetAttributes(attribute.Int("room.ctrls", ctrls), attribute.Int("room.messages", received))

	r.application.Tick(ctx, r.now())
}

func (r *Room) sendError(ctx context.Context, sessionID SessionID, cause error) {
	sender, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	if err := sender.Send(EncodeErrorMessage(sessionID, cause.Error())); err != nil {
		slog.WarnContext(ctx, "room send error message failed", "sessionID", sessionID, "err", err)
	}
}
