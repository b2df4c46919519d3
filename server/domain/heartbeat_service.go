package domain

import (
	"context"
	"log/slog"
	"time"
)

// HeartbeatService は人間のクライアントへ定期的にpingを送ります。
// pongが返らないセッションはSessionEndpointのアイドル判定で閉じられます。
type HeartbeatService struct {
	interval time.Duration
	session  *Session
	out      chan<- []byte
	seq      uint16
	dropped  int
}

func NewHeartbeatService(interval time.Duration, session *Session, out chan<- []byte) *HeartbeatService {
	return &HeartbeatService{
		interval: interval,
		session:  session,
		out:      out,
	}
}

// Run はctxがキャンセルされるかセッションが閉じられるまでpingを送り続けます。
// 送信キューが満杯のときpingは捨てられ、次の周期で再送されます。
func (h *HeartbeatService) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.session.Closed() {
				return
			}
			h.seq++
			select {
			case h.out <- EncodeControlMessage(h.session.ID(), h.seq, ControlSubTypePing):
			default:
				h.dropped++
				slog.WarnContext(ctx, "ping dropped", "sessionID", h.session.ID(), "seq", h.seq, "dropped", h.dropped)
			}
		}
	}
}
