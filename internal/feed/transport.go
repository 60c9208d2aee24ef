package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one open feed connection.
type Conn interface {
	WriteJSON(v any) error
	// ReadMessage blocks until the next message arrives or the connection
	// fails.
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens feed connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// URL builds the feed endpoint with the access token embedded.
func URL(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

// WSDialer dials the feed over WebSocket.
type WSDialer struct {
	Dialer *websocket.Dialer
}

// NewWSDialer returns a WSDialer with the given handshake timeout.
func NewWSDialer(handshakeTimeout time.Duration) *WSDialer {
	d := *websocket.DefaultDialer
	if handshakeTimeout > 0 {
		d.HandshakeTimeout = handshakeTimeout
	}
	return &WSDialer{Dialer: &d}
}

func (d *WSDialer) Dial(ctx context.Context, u string) (Conn, error) {
	c, _, err := d.Dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}
	return &wsConn{c: c}, nil
}

// wsConn serialises writes; gorilla allows one concurrent writer.
type wsConn struct {
	c       *websocket.Conn
	writeMu sync.Mutex
}

// WriteJSON sends v as a single text frame holding exactly its JSON
// encoding, with no trailing newline.
func (w *wsConn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode feed message: %w", err)
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.c.ReadMessage()
	return data, err
}

func (w *wsConn) Close() error {
	w.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	w.writeMu.Unlock()
	return w.c.Close()
}
