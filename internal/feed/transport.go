package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the minimal connection surface the feed needs from a
// transport. Implementations must unblock ReadMessage when Close is
// called from another goroutine.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a push-channel connection. Tests substitute a fake.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// GorillaDialer is the production Dialer over gorilla/websocket.
type GorillaDialer struct {
	HandshakeTimeout time.Duration
}

// Dial opens a websocket connection to url.
func (d GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &gorillaConn{conn: conn}, nil
}

type gorillaConn struct {
	conn *websocket.Conn
}

func (g *gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := g.conn.ReadMessage()
	return data, err
}

func (g *gorillaConn) WriteMessage(data []byte) error {
	return g.conn.WriteMessage(websocket.TextMessage, data)
}

func (g *gorillaConn) Close() error {
	return g.conn.Close()
}
