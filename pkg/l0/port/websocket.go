package port

import (
	"fmt"

	"golang.org/x/net/websocket"
)

// DialWebsocket connects to a serial-to-websocket bridge. Every write
// is sent as one binary frame, received frames are concatenated.
func DialWebsocket(url, origin string, queueSize int) (*Stream, error) {
	if origin == "" {
		origin = "http://localhost/"
	}
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.PayloadType = websocket.BinaryFrame
	return NewStream(url, conn, queueSize), nil
}
