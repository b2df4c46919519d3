package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/touka-aoi/tanzbot/server/domain"
)

type recordingApp struct {
	messages     []domain.Message
	disconnected []domain.SessionID
	ticks        int
	failWith     error
}

func (a *recordingApp) HandleMessage(_ context.Context, sessionID domain.SessionID, data []byte) error {
	a.messages = append(a.messages, domain.Message{SessionID: sessionID, Data: data})
	return a.failWith
}

func (a *recordingApp) HandleDisconnect(_ context.Context, sessionID domain.SessionID) {
	a.disconnected = append(a.disconnected, sessionID)
}

func (a *recordingApp) Tick(context.Context, time.Time) { a.ticks++ }

type chanSender chan []byte

func (c chanSender) Send(data []byte) error {
	c <- data
	return nil
}

func TestRoom_StepDrainsMessagesBeforeTick(t *testing.T) {
	app := &recordingApp{}
	room := domain.NewRoom("test", app)
	ctx := context.Background()

	id := domain.NewSessionID()
	for i := 0; i < 3; i++ {
		if err := room.Deliver(ctx, domain.Message{SessionID: id, Data: []byte{byte(i)}}); err != nil {
			t.Fatalf("Deliver failed: %v", err)
		}
	}
	room.Step(ctx)

	if len(app.messages) != 3 {
		t.Errorf("messages = %d, want 3", len(app.messages))
	}
	if app.ticks != 1 {
		t.Errorf("ticks = %d, want 1", app.ticks)
	}
}

func TestRoom_DoRunsOnLoop(t *testing.T) {
	app := &recordingApp{}
	room := domain.NewRoom("test", app, domain.WithTickInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go room.Run(ctx)

	sentinel := errors.New("from loop")
	err := room.Do(ctx, func(context.Context) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("Do err = %v, want %v", err, sentinel)
	}

	id := domain.NewSessionID()
	out := make(chanSender, 1)
	if err := room.Attach(ctx, id, out); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := room.Detach(ctx, id); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if err := room.Do(ctx, func(context.Context) error {
		if len(app.disconnected) != 1 || app.disconnected[0] != id {
			return errors.New("disconnect not reported")
		}
		return nil
	}); err != nil {
		t.Error(err)
	}
}

func TestRoom_DoAfterStop(t *testing.T) {
	room := domain.NewRoom("test", &recordingApp{}, domain.WithTickInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		room.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	if err := room.Do(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, domain.ErrRoomStopped) {
		t.Errorf("Do err = %v, want %v", err, domain.ErrRoomStopped)
	}
}

func TestRoom_HandleErrorIsSentToSession(t *testing.T) {
	app := &recordingApp{failWith: errors.New("name already in use")}
	room := domain.NewRoom("test", app, domain.WithTickInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go room.Run(ctx)

	id := domain.NewSessionID()
	out := make(chanSender, 1)
	if err := room.Attach(ctx, id, out); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := room.Deliver(ctx, domain.Message{SessionID: id, Data: []byte{0}}); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	select {
	case data := <-out:
		ph, err := domain.ParsePayloadHeader(data[domain.HeaderSize:])
		if err != nil {
			t.Fatalf("ParsePayloadHeader failed: %v", err)
		}
		if domain.ControlSubType(ph.SubType) != domain.ControlSubTypeError {
			t.Errorf("subType = %d, want %d", ph.SubType, domain.ControlSubTypeError)
		}
		if got := string(data[domain.HeaderSize+domain.PayloadHeaderSize:]); got != "name already in use" {
			t.Errorf("reason = %q, want %q", got, "name already in use")
		}
	case <-time.After(time.Second):
		t.Fatal("no error message sent")
	}
}

func TestRoom_DoSkipsCancelledCaller(t *testing.T) {
	app := &recordingApp{}
	room := domain.NewRoom("test", app)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	if err := room.Do(ctx, func(context.Context) error {
		ran = true
		return nil
	}); !errors.Is(err, context.Canceled) {
		t.Errorf("Do err = %v, want %v", err, context.Canceled)
	}
	room.Step(context.Background())

	if ran {
		t.Error("fn ran after the caller gave up")
	}
	if app.ticks != 1 {
		t.Errorf("ticks = %d, want 1", app.ticks)
	}
}

func TestRoom_DetachRunsAfterCallerGivesUp(t *testing.T) {
	app := &recordingApp{}
	room := domain.NewRoom("test", app)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id := domain.NewSessionID()
	if err := room.Detach(ctx, id); !errors.Is(err, context.Canceled) {
		t.Errorf("Detach err = %v, want %v", err, context.Canceled)
	}
	room.Step(context.Background())

	if len(app.disconnected) != 1 || app.disconnected[0] != id {
		t.Errorf("disconnected = %v, want [%v]", app.disconnected, id)
	}
}
