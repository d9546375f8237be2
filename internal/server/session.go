package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	DefaultSendQueueSize = 256
)

// Session is one live transport connection. Its user identity, room
// memberships and registry entry are owned by the Hub, not the Session.
type Session struct {
	id       string
	conn     *websocket.Conn
	hub      *Hub
	log      *log.Logger
	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once
}

func NewSession(conn *websocket.Conn, hub *Hub, l *log.Logger, queueSize int) (*Session, error) {
	id, err := shortid.Generate()
	if err != nil {
		return nil, err
	}

	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}

	return &Session{
		id:   id,
		conn: conn,
		hub:  hub,
		log:  l.With("session", id),
		send: make(chan *ServerMessage, queueSize),
		stop: make(chan struct{}),
	}, nil
}

func (s *Session) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		s.log.Debug("write exiting")
	}()

	for {
		select {
		case msg := <-s.send:
			bytes, err := serializeMessage(msg)
			if err != nil {
				s.log.Error("failed to serialize message", "err", err)
				continue
			}

			if !s.writeFrame(websocket.TextMessage, bytes) {
				return
			}
		case <-s.stop:
			s.writeFrame(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-ticker.C:
			if !s.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *Session) Read() {
	defer func() {
		s.hub.disconnect(s)
		s.conn.Close()
		s.log.Debug("read exiting")
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Warn("ws read", "err", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Warn("dropping malformed event", "err", err)
			continue
		}

		msg.session = s
		if !s.hub.dispatch(&msg) {
			return
		}
	}
}

// queueMessage enqueues msg without blocking. A full queue drops msg for this
// session only.
func (s *Session) queueMessage(msg *ServerMessage) bool {
	select {
	case s.send <- msg:
	default:
		s.log.Warn("send queue full, dropping message")
		return false
	}

	return true
}

func (s *Session) writeFrame(msgType int, data []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := s.conn.WriteMessage(msgType, data); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			s.log.Warn("write message", "err", err)
		}
		return false
	}

	return true
}

// stopSession signals the write pump to close the connection. Safe to call
// more than once.
func (s *Session) stopSession() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}
