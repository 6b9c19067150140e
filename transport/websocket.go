package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebsocketConn adapts a websocket connection to the ordered byte stream
// the session layer requires, carrying the raw handshake messages and
// encrypted frames as binary websocket messages. It lets the session
// protocol run over infrastructure that only forwards HTTP, with the same
// end-to-end security as direct TCP: the websocket layer sees only
// ciphertext.
type WebsocketConn struct {
	ws     *websocket.Conn
	reader io.Reader // remainder of the current binary message
}

// NewWebsocketConn wraps an established websocket connection. Use it on the
// server side after upgrading an HTTP request, then hand the result to
// Server.
func NewWebsocketConn(ws *websocket.Conn) *WebsocketConn {
	return &WebsocketConn{ws: ws}
}

// DialWebsocket opens a websocket connection to url (a "ws://" or "wss://"
// URL) ready for the initiator handshake via Client.
func DialWebsocket(ctx context.Context, url string, header http.Header) (*WebsocketConn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s failed: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return &WebsocketConn{ws: ws}, nil
}

// Read returns bytes from incoming binary messages in order, straddling
// message boundaries so the caller sees one continuous stream.
func (c *WebsocketConn) Read(p []byte) (int, error) {
	for {
		if c.reader != nil {
			n, err := c.reader.Read(p)
			if err == io.EOF {
				c.reader = nil
				if n == 0 {
					continue
				}
				return n, nil
			}
			return n, err
		}

		msgType, r, err := c.ws.NextReader()
		if err != nil {
			return 0, err
		}
		if msgType != websocket.BinaryMessage {
			// Text and control frames are not part of the protocol.
			continue
		}
		c.reader = r
	}
}

// Write sends p as a single binary websocket message.
func (c *WebsocketConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the underlying websocket connection.
func (c *WebsocketConn) Close() error {
	return c.ws.Close()
}
