package domain

import "context"

// CloseCode はクライアントへ通知する切断コード (RFC 6455) です。
type CloseCode int32

const (
	CloseNormal          CloseCode = 1000
	CloseGoingAway       CloseCode = 1001
	ClosePolicyViolation CloseCode = 1008
)

// Connection は1セッション分の物理接続です。切断コードと理由はTransportへそのまま渡ります。
type Connection struct {
	SessionID SessionID
	transport Transport
}

func NewConnection(sessionID SessionID, transport Transport) *Connection {
	return &Connection{
		SessionID: sessionID,
		transport: transport,
	}
}

func (c *Connection) Write(ctx context.Context, data []byte) error {
	return c.transport.Write(ctx, data)
}

func (c *Connection) Read(ctx context.Context) ([]byte, error) {
	return c.transport.Read(ctx)
}

func (c *Connection) Close(code CloseCode, reason string) {
	_ = c.transport.Close(int32(code), reason)
}
