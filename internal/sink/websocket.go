package sink

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketSink pushes each segment as one binary message to a
// connected client, suitable for MSE-style playback in a browser.
type WebSocketSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSink wraps an established connection as a segment sink.
func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{conn: conn}
}

// Write sends one segment as a binary message.
func (s *WebSocketSink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, p)
}

// Close closes the underlying connection.
func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}
