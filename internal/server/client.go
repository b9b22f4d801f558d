package server

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBufferSize = 256

// Client is one websocket connection. The connection ID is minted at
// upgrade time and is distinct from any player ID: players keep their ID
// across reconnects, connections do not.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// readPump consumes inbound frames until the connection drops, handing
// each decoded envelope to the gateway. Runs as its own goroutine.
func (c *Client) readPump(g *Gateway) {
	defer func() {
		g.disconnect(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			g.logger.Debug("malformed frame",
				zap.String("conn_id", c.id),
				zap.Error(err),
			)
			c.sendEvent(eventError, errorPayload{Message: "malformed message"})
			continue
		}

		g.dispatch(c, env)
	}
}

// writePump drains the send channel onto the socket. Runs as its own
// goroutine; closing the send channel ends it.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// sendEvent queues an event for this connection only. A full send buffer
// drops the frame rather than blocking the caller.
func (c *Client) sendEvent(eventType string, data any) {
	payload, err := json.Marshal(outEnvelope{Type: eventType, Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
