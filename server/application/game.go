package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/touka-aoi/tanzbot/server/domain"
)

var ErrAlreadyJoined = errors.New("session already joined")

// UnnamedPlayer は名前を送らなかった人間のクライアントの名前です。
const UnnamedPlayer = "UnnamedPlayer"

// Game は人間のクライアントとボットが同居するApplicationです。
// 人間の入力を受け取り、毎tickボットの思考とワールドの更新を行います。
type Game struct {
	manager *Manager
	world   *World
}

func NewGame(manager *Manager) *Game {
	return &Game{manager: manager, world: manager.World()}
}

func (g *Game) Manager() *Manager { return g.manager }

func (g *Game) HandleMessage(ctx context.Context, sessionID domain.SessionID, data []byte) error {
	header, err := domain.ParseHeader(data)
	if err != nil {
		return err
	}

	payloadData := data[domain.HeaderSize:]
	payloadHeader, err := domain.ParsePayloadHeader(payloadData)
	if err != nil {
		return err
	}

	payload := payloadData[domain.PayloadHeaderSize:]
	switch payloadHeader.DataType {
	case domain.DataTypeInput:
		return g.handleInput(ctx, sessionID, header, payload)
	case domain.DataTypeControl:
		return g.handleControl(ctx, sessionID, payloadHeader.SubType, payload)
	default:
		slog.WarnContext(ctx, "unknown data type", "dataType", payloadHeader.DataType)
		return nil
	}
}

func (g *Game) handleInput(ctx context.Context, sessionID domain.SessionID, header *domain.Header, data []byte) error {
	c := g.world.ClientBySession(sessionID)
	if c == nil {
		slog.DebugContext(ctx, "input from session without slot", "sessionID", sessionID)
		return nil
	}
	cmd, err := domain.ParseUserCmd(data)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "handleInput",
		"sessionID", sessionID,
		"seq", header.Seq,
		"buttons", cmd.Buttons,
	)
	c.Cmd = *cmd
	return nil
}

func (g *Game) handleControl(ctx context.Context, sessionID domain.SessionID, subType uint8, data []byte) error {
	switch domain.ControlSubType(subType) {
	case domain.ControlSubTypeJoin:
		join, err := domain.ParseJoinPayload(data)
		if err != nil {
			return err
		}
		return g.join(ctx, sessionID, join.Name)
	case domain.ControlSubTypeLeave:
		g.leave(ctx, sessionID)
	case domain.ControlSubTypePing, domain.ControlSubTypePong:
		slog.DebugContext(ctx, "handleControl:heartbeat", "sessionID", sessionID)
	default:
		slog.WarnContext(ctx, "unknown control subtype", "subType", subType)
	}
	return nil
}

// join は人間のクライアントを人数の少ないチームに参加させます。
func (g *Game) join(ctx context.Context, sessionID domain.SessionID, name string) error {
	if name == "" {
		name = UnnamedPlayer
	}
	if g.world.ClientBySession(sessionID) != nil {
		return ErrAlreadyJoined
	}
	team := domain.TeamAliens
	if g.world.TeamCount(domain.TeamHumans) < g.world.TeamCount(domain.TeamAliens) {
		team = domain.TeamHumans
	}
	c, err := g.world.ClaimSlot(name, false, team)
	if err != nil {
		if errors.Is(err, ErrNameInUse) {
			return fmt.Errorf("%w: %s", ErrNameCollision, name)
		}
		return err
	}
	c.Session = sessionID
	slog.InfoContext(ctx, "client joined", "sessionID", sessionID, "slot", c.Slot, "name", name, "team", team)
	return nil
}

func (g *Game) leave(ctx context.Context, sessionID domain.SessionID) {
	c := g.world.ClientBySession(sessionID)
	if c == nil {
		return
	}
	g.world.ReleaseSlot(c.Slot)
	slog.InfoContext(ctx, "client left", "sessionID", sessionID, "slot", c.Slot)
}

func (g *Game) HandleDisconnect(ctx context.Context, sessionID domain.SessionID) {
	g.leave(ctx, sessionID)
}

func (g *Game) Tick(ctx context.Context, now time.Time) {
	g.manager.Frame(ctx, now)
}
