package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ChinmayaKolhe/VicharManthan/internal/stats"
	"github.com/charmbracelet/log"
)

var ErrHubStopped = errors.New("hub stopped")

const inboxSize = 1024

type eventKind int

const (
	eventConnect eventKind = iota
	eventDisconnect
	eventClientMessage
	eventPush
	eventLookup
)

type hubEvent struct {
	kind    eventKind
	session *Session
	msg     *ClientMessage
	userId  string
	payload json.RawMessage
	reply   chan bool
}

type stopReq struct {
	done chan struct{}
}

// Hub owns the session table, the connection registry and the room router.
// Every transport event and server-side request goes through one inbox and
// is handled to completion on the Run goroutine, so none of that state is
// ever touched concurrently.
type Hub struct {
	log      *log.Logger
	stats    stats.StatsProvider
	sessions map[string]*Session
	registry *Registry
	rooms    *RoomRouter
	presence *Presence
	bridge   *Bridge
	inbox    chan *hubEvent
	stop     chan stopReq
	done     chan struct{}

	// closing is closed when a stop request arrives. Senders hold mu for
	// reading while they enqueue, so once Run holds it for writing and has
	// set closed, no event can land in the inbox after the final drain.
	closing chan struct{}
	mu      sync.RWMutex
	closed  bool
}

func NewHub(logger *log.Logger, su stats.StatsProvider, mirror PresenceMirror) *Hub {
	sessions := make(map[string]*Session)
	registry := NewRegistry()

	for _, name := range []string{
		stats.NumSessions,
		stats.NumOnlineUsers,
		stats.NumActiveRooms,
		stats.NumNotificationsPushed,
		stats.NumNotificationsDropped,
	} {
		su.RegisterMetric(name)
	}

	return &Hub{
		log:      logger,
		stats:    su,
		sessions: sessions,
		registry: registry,
		rooms:    NewRoomRouter(),
		presence: NewPresence(sessions, mirror),
		bridge:   NewBridge(registry, sessions),
		inbox:    make(chan *hubEvent, inboxSize),
		stop:     make(chan stopReq),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case ev := <-h.inbox:
			h.handleEvent(ev)
		case req := <-h.stop:
			close(h.closing)
			h.mu.Lock()
			h.closed = true
			h.mu.Unlock()

			h.drainInbox()
			h.log.Info("closing sessions", "count", len(h.sessions))
			h.closeSessions()
			close(req.done)
			return
		}
	}
}

// Shutdown stops the event loop and closes every session. Shutting down a
// stopped hub is a no-op.
func (h *Hub) Shutdown(ctx context.Context) error {
	if h.stopped() {
		return nil
	}

	req := stopReq{done: make(chan struct{})}

	select {
	case h.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect adds a freshly opened session. It reports false if the hub has stopped.
func (h *Hub) Connect(s *Session) bool {
	return h.enqueue(&hubEvent{kind: eventConnect, session: s})
}

func (h *Hub) disconnect(s *Session) bool {
	return h.enqueue(&hubEvent{kind: eventDisconnect, session: s})
}

func (h *Hub) dispatch(msg *ClientMessage) bool {
	return h.enqueue(&hubEvent{kind: eventClientMessage, session: msg.session, msg: msg})
}

// Push hands payload to the notification bridge. delivered is false when the
// recipient has no live session; that is not an error.
func (h *Hub) Push(ctx context.Context, recipientId string, payload json.RawMessage) (delivered bool, err error) {
	return h.request(ctx, &hubEvent{kind: eventPush, userId: recipientId, payload: payload})
}

// Lookup reports whether userId currently has a registered session.
func (h *Hub) Lookup(ctx context.Context, userId string) (online bool, err error) {
	return h.request(ctx, &hubEvent{kind: eventLookup, userId: userId})
}

func (h *Hub) request(ctx context.Context, ev *hubEvent) (bool, error) {
	ev.reply = make(chan bool, 1)
	if h.stopped() {
		return false, ErrHubStopped
	}

	if err := h.send(ctx, ev); err != nil {
		return false, err
	}

	select {
	case ok := <-ev.reply:
		return ok, nil
	case <-h.done:
		return false, ErrHubStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (h *Hub) enqueue(ev *hubEvent) bool {
	if h.stopped() {
		return false
	}
	return h.send(context.Background(), ev) == nil
}

func (h *Hub) send(ctx context.Context, ev *hubEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubStopped
	}

	select {
	case h.inbox <- ev:
		return nil
	case <-h.closing:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drainInbox settles events accepted before the stop request. Connected
// sessions are added so closeSessions stops them; pending requests are left
// unanswered and see ErrHubStopped once done is closed.
func (h *Hub) drainInbox() {
	for {
		select {
		case ev := <-h.inbox:
			switch ev.kind {
			case eventConnect:
				h.handleConnect(ev.session)
			case eventDisconnect:
				h.handleDisconnect(ev.session)
			}
		default:
			return
		}
	}
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Hub) handleEvent(ev *hubEvent) {
	switch ev.kind {
	case eventConnect:
		h.handleConnect(ev.session)
	case eventDisconnect:
		h.handleDisconnect(ev.session)
	case eventClientMessage:
		h.handleClientMessage(ev.msg)
	case eventPush:
		ev.reply <- h.push(ev.userId, ev.payload)
	case eventLookup:
		_, ok := h.registry.Lookup(ev.userId)
		ev.reply <- ok
	}
}

func (h *Hub) handleConnect(s *Session) {
	if _, ok := h.sessions[s.id]; ok {
		return
	}

	h.sessions[s.id] = s
	h.stats.Incr(stats.NumSessions)
	h.log.Debug("session connected", "session", s.id)
}

// handleDisconnect tears down everything the session owned. Disconnecting an
// unknown session is a no-op.
func (h *Hub) handleDisconnect(s *Session) {
	if _, ok := h.sessions[s.id]; !ok {
		return
	}

	delete(h.sessions, s.id)
	h.stats.Decr(stats.NumSessions)

	for n := h.rooms.LeaveAll(s.id); n > 0; n-- {
		h.stats.Decr(stats.NumActiveRooms)
	}

	if userId, removed := h.registry.Unregister(s.id); removed {
		h.stats.Decr(stats.NumOnlineUsers)
		h.presence.Announce(userId, s.id, false)
		h.log.Info("user offline", "user", userId, "session", s.id)
	}

	s.stopSession()
	h.log.Debug("session disconnected", "session", s.id)
}

func (h *Hub) handleClientMessage(msg *ClientMessage) {
	s := msg.session
	if _, ok := h.sessions[s.id]; !ok {
		return
	}

	switch {
	case msg.UserConnected != nil:
		h.handleUserConnected(s, *msg.UserConnected)
	case msg.JoinChat != nil:
		h.handleJoin(s, *msg.JoinChat)
	case msg.LeaveChat != nil:
		h.handleLeave(s, *msg.LeaveChat)
	case msg.SendMessage != nil:
		h.handleSendMessage(msg.SendMessage)
	case msg.Typing != nil:
		h.handleTyping(s, msg.Typing, true)
	case msg.StopTyping != nil:
		h.handleTyping(s, msg.StopTyping, false)
	case msg.SendNotification != nil:
		h.handleSendNotification(msg.SendNotification)
	default:
		h.log.Debug("dropping empty event", "session", s.id)
	}
}

func (h *Hub) handleUserConnected(s *Session, userId string) {
	if userId == "" {
		return
	}

	wasOnline, dropped := h.registry.Register(userId, s.id)
	if dropped != "" {
		h.stats.Decr(stats.NumOnlineUsers)
		h.presence.Announce(dropped, s.id, false)
	}
	if !wasOnline {
		h.stats.Incr(stats.NumOnlineUsers)
	}

	h.presence.Announce(userId, s.id, true)
	h.log.Info("user online", "user", userId, "session", s.id)
}

func (h *Hub) handleJoin(s *Session, roomId string) {
	if roomId == "" {
		return
	}

	if h.rooms.Join(s, roomId) {
		h.stats.Incr(stats.NumActiveRooms)
	}
	h.log.Debug("joined chat", "session", s.id, "room", roomId)
}

func (h *Hub) handleLeave(s *Session, roomId string) {
	if h.rooms.Leave(s.id, roomId) {
		h.stats.Decr(stats.NumActiveRooms)
	}
}

func (h *Hub) handleSendMessage(m *SendMessage) {
	if m.RoomId == "" || !isPayload(m.Message) {
		return
	}

	h.rooms.Broadcast(m.RoomId, NewMessageMessage(m.Message), nil)
}

func (h *Hub) handleTyping(s *Session, t *Typing, typing bool) {
	if t.RoomId == "" {
		return
	}

	userId := t.UserId
	if userId == "" {
		userId, _ = h.registry.UserFor(s.id)
	}
	if userId == "" {
		return
	}

	if typing {
		h.rooms.TypingStart(t.RoomId, userId, s)
	} else {
		h.rooms.TypingStop(t.RoomId, userId, s)
	}
}

func (h *Hub) handleSendNotification(n *SendNotification) {
	if n.RecipientId == "" || !isPayload(n.Notification) {
		return
	}

	h.push(n.RecipientId, n.Notification)
}

func (h *Hub) push(recipientId string, payload json.RawMessage) bool {
	if h.bridge.Push(recipientId, payload) {
		h.stats.Incr(stats.NumNotificationsPushed)
		return true
	}

	h.stats.Incr(stats.NumNotificationsDropped)
	h.log.Debug("notification dropped, recipient offline", "user", recipientId)
	return false
}

func (h *Hub) closeSessions() {
	for _, s := range h.sessions {
		s.stopSession()
	}
	clear(h.sessions)
}
