package server

// RoomRouter tracks which sessions are joined to which rooms and fans
// messages out to them. Rooms exist only while they have members. It is not
// safe for concurrent use; the Hub goroutine is its only caller.
type RoomRouter struct {
	rooms       map[string]map[string]*Session
	memberships map[string]map[string]struct{}
}

func NewRoomRouter() *RoomRouter {
	return &RoomRouter{
		rooms:       make(map[string]map[string]*Session),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Join adds s to roomId. Joining twice is a no-op. created reports whether
// the room had no members before.
func (rr *RoomRouter) Join(s *Session, roomId string) (created bool) {
	members, ok := rr.rooms[roomId]
	if !ok {
		members = make(map[string]*Session)
		rr.rooms[roomId] = members
		created = true
	}
	members[s.id] = s

	joined, ok := rr.memberships[s.id]
	if !ok {
		joined = make(map[string]struct{})
		rr.memberships[s.id] = joined
	}
	joined[roomId] = struct{}{}

	return created
}

// Leave removes the session from roomId. emptied reports whether the room
// lost its last member.
func (rr *RoomRouter) Leave(sessionId, roomId string) (emptied bool) {
	members, ok := rr.rooms[roomId]
	if !ok {
		return false
	}
	if _, ok := members[sessionId]; !ok {
		return false
	}

	delete(members, sessionId)
	if joined, ok := rr.memberships[sessionId]; ok {
		delete(joined, roomId)
		if len(joined) == 0 {
			delete(rr.memberships, sessionId)
		}
	}

	if len(members) == 0 {
		delete(rr.rooms, roomId)
		return true
	}
	return false
}

// LeaveAll removes the session from every room it joined and returns the
// number of rooms left empty.
func (rr *RoomRouter) LeaveAll(sessionId string) (emptied int) {
	for roomId := range rr.memberships[sessionId] {
		if rr.Leave(sessionId, roomId) {
			emptied++
		}
	}
	return emptied
}

// Broadcast queues msg to every session in roomId except skip, which may be
// nil. It returns the number of sessions the message was queued to.
func (rr *RoomRouter) Broadcast(roomId string, msg *ServerMessage, skip *Session) int {
	delivered := 0
	for _, s := range rr.rooms[roomId] {
		if s == skip {
			continue
		}
		if s.queueMessage(msg) {
			delivered++
		}
	}
	return delivered
}

// TypingStart tells every other member of roomId that userId is typing.
func (rr *RoomRouter) TypingStart(roomId, userId string, from *Session) int {
	return rr.Broadcast(roomId, TypingMessage(userId, true), from)
}

// TypingStop tells every other member of roomId that userId stopped typing.
func (rr *RoomRouter) TypingStop(roomId, userId string, from *Session) int {
	return rr.Broadcast(roomId, TypingMessage(userId, false), from)
}

func (rr *RoomRouter) isMember(sessionId, roomId string) bool {
	_, ok := rr.rooms[roomId][sessionId]
	return ok
}

func (rr *RoomRouter) size() int {
	return len(rr.rooms)
}
