package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"

	"github.com/touka-aoi/tanzbot/server/domain"
	"github.com/touka-aoi/tanzbot/utils"
)

// loadclient は人間のクライアントを模した接続を複数張り、UserCmdを送り続ける負荷試験用のクライアントです。
func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	count := utils.GetEnvInt("CLIENT_COUNT", 3)

	serverURL := fmt.Sprintf("ws://%s:%s/ws", addr, port)
	slog.Info("starting load clients", "count", count, "server", serverURL)

	var wg sync.WaitGroup
	for i := range count {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(ctx, serverURL, id)
		}(i)
	}

	wg.Wait()
	slog.Info("all load clients stopped")
}

func runClient(ctx context.Context, serverURL string, id int) {
	logger := slog.With("clientID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := clientSession(ctx, serverURL, id, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

// wanderer は一定間隔で向きを変えながら前進し、ときどき撃つ入力を作ります。
type wanderer struct {
	rng      *rand.Rand
	yaw      float32
	turnAt   time.Time
	serverMs int32
}

func (w *wanderer) next(now time.Time) domain.UserCmd {
	if now.After(w.turnAt) {
		w.yaw = w.rng.Float32() * 360
		w.turnAt = now.Add(time.Duration(1+w.rng.IntN(3)) * time.Second)
	}
	w.serverMs += int32(time.Second / 60 / time.Millisecond)

	cmd := domain.UserCmd{ServerTime: w.serverMs, ForwardMove: 127}
	cmd.Angles[domain.Yaw] = domain.AngleToShort(w.yaw)
	if w.rng.IntN(10) == 0 {
		cmd.Buttons |= domain.Buttons(domain.ButtonAttack)
	}
	return cmd
}

func clientSession(ctx context.Context, serverURL string, id int, logger *slog.Logger) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("connected")

	var (
		mu        sync.Mutex
		sessionID domain.SessionID
		seq       uint16
	)
	nextSeq := func() uint16 {
		seq++
		return seq
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			header, err := domain.ParseHeader(data)
			if err != nil {
				continue
			}
			payloadHeader, err := domain.ParsePayloadHeader(data[domain.HeaderSize:])
			if err != nil || payloadHeader.DataType != domain.DataTypeControl {
				continue
			}

			var reply []byte
			mu.Lock()
			switch domain.ControlSubType(payloadHeader.SubType) {
			case domain.ControlSubTypeAssign:
				sessionID = domain.SessionIDFromBytes(header.SessionID)
				reply, err = domain.EncodeJoinMessage(sessionID, nextSeq(), fmt.Sprintf("load-%d", id))
				logger.Info("session assigned", "sessionID", sessionID)
			case domain.ControlSubTypePing:
				reply = domain.EncodeControlMessage(sessionID, nextSeq(), domain.ControlSubTypePong)
			case domain.ControlSubTypeError:
				logger.Warn("server error", "reason", string(data[domain.HeaderSize+domain.PayloadHeaderSize:]))
			}
			mu.Unlock()

			if err != nil {
				readErr <- err
				return
			}
			if reply != nil {
				if err := conn.Write(ctx, websocket.MessageBinary, reply); err != nil {
					readErr <- err
					return
				}
			}
		}
	}()

	w := &wanderer{rng: rand.New(rand.NewPCG(uint64(id), uint64(time.Now().UnixNano())))}
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "shutdown")
			return nil
		case err := <-readErr:
			return fmt.Errorf("read: %w", err)
		case now := <-ticker.C:
			mu.Lock()
			if sessionID.IsEmpty() {
				mu.Unlock()
				continue
			}
			cmd := w.next(now)
			msg := domain.EncodeInputMessage(sessionID, nextSeq(), &cmd)
			mu.Unlock()

			if err := conn.Write(ctx, websocket.MessageBinary, msg); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}
