package ws

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tinyclaw/gateway/internal/channel"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// maxMessageSize is the maximum message size allowed from the peer.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the web client ships from a fixed host
		return true
	},
}

// Transport adapts one websocket connection to channel.Transport.
type Transport struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// Upgrade switches an HTTP request to a websocket connection and wraps it.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Transport, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &Transport{conn: conn}, nil
}

// NewTransport wraps an already-established websocket connection.
func NewTransport(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn}
}

// Accept finishes connection setup. The websocket handshake itself happens
// at upgrade time; Accept configures the read side.
func (t *Transport) Accept() error {
	t.conn.SetReadLimit(maxMessageSize)
	return nil
}

// Send delivers text to the client as a single text frame.
func (t *Transport) Send(text string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// ReceiveText blocks until the next text message arrives. A normal client
// close is reported as channel.ErrTransportClosed.
func (t *Transport) ReceiveText() (string, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				return "", channel.ErrTransportClosed
			}
			return "", fmt.Errorf("websocket receive: %w", err)
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return string(data), nil
		}
	}
}

// Close sends a close frame with the given code and reason, then drops the
// connection. The close frame is best-effort.
func (t *Transport) Close(code int, reason string) error {
	t.writeMu.Lock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	t.writeMu.Unlock()

	return t.conn.Close()
}
