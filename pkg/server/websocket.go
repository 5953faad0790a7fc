package server

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/gatehouse-dev/gatehouse/pkg/bridge"
)

// readLoop pumps inbound messages onto the bridge until the connection
// dies. The transport reassembles fragmented messages, so every payload
// pushed is complete. Runs on the upgrade goroutine.
func (s *Server) readLoop(c *Conn) {
	defer s.teardown(c)

	c.ws.SetReadLimit(s.cfg.ReadLimit)

	for {
		c.ws.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.metrics.RecordReadError()
				s.log.Debug("read failed", "conn", c.id, "error", err)
			}
			return
		}

		s.metrics.RecordMessageReceived(len(payload))
		s.bridge.PushNet(bridge.NetEvent{
			Type:      bridge.NetPayload,
			ConnID:    c.id,
			SessionID: c.sessionID,
			Payload:   payload,
		})
	}
}

// writeLoop is the only goroutine that writes to the socket. One packet
// goes out per writability signal; a queue that still holds packets
// re-signals so draining stays fair across connections.
func (s *Server) writeLoop(c *Conn) {
	for {
		select {
		case <-c.done:
			return
		case <-c.writable:
		}

		p, ok := c.queue.Dequeue()
		if !ok {
			continue
		}

		if p.CloseStatus != 0 {
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			msg := websocket.FormatCloseMessage(p.CloseStatus, "")
			c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
			s.teardown(c)
			return
		}

		messageType := websocket.TextMessage
		if p.Binary {
			messageType = websocket.BinaryMessage
		}
		c.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := c.ws.WriteMessage(messageType, p.Data); err != nil {
			s.metrics.RecordWriteError()
			s.log.Debug("write failed", "conn", c.id, "error", err)
			s.teardown(c)
			return
		}
		s.metrics.RecordPacketSent(len(p.Data))

		if c.queue.Len() > 0 {
			c.signalWrite()
		}
	}
}

// teardown removes the connection and tells the application side it is
// gone. Safe to call from multiple paths; the registry ignores ids it no
// longer holds and the connection shuts down once.
func (s *Server) teardown(c *Conn) {
	if s.registry.Remove(c.id) {
		s.metrics.RecordDisconnect()
		s.log.Info("connection closed", "conn", c.id, "session", c.sessionID)
		s.bridge.PushNet(bridge.NetEvent{
			Type:      bridge.NetClientDisconnected,
			ConnID:    c.id,
			SessionID: c.sessionID,
		})
	} else {
		c.shutdown()
	}
}
