package server

// Registry maps each user to at most one live session. The last registration
// for a user wins. It is not safe for concurrent use; the Hub goroutine is its
// only caller.
type Registry struct {
	byUser    map[string]string
	bySession map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:    make(map[string]string),
		bySession: make(map[string]string),
	}
}

// Register binds userId to sessionId, overwriting any earlier session for the
// user. wasOnline reports whether the user already had an entry. If the
// session was previously bound to a different user whose entry still pointed
// at it, that entry is removed and the user is returned as dropped.
func (r *Registry) Register(userId, sessionId string) (wasOnline bool, dropped string) {
	if prev, ok := r.bySession[sessionId]; ok && prev != userId {
		if r.byUser[prev] == sessionId {
			delete(r.byUser, prev)
			dropped = prev
		}
	}

	_, wasOnline = r.byUser[userId]
	r.byUser[userId] = sessionId
	r.bySession[sessionId] = userId

	return wasOnline, dropped
}

func (r *Registry) Lookup(userId string) (string, bool) {
	sessionId, ok := r.byUser[userId]
	return sessionId, ok
}

// UserFor returns the user the session registered as, if any.
func (r *Registry) UserFor(sessionId string) (string, bool) {
	userId, ok := r.bySession[sessionId]
	return userId, ok
}

// Unregister forgets sessionId. The user's entry is removed only while it
// still points at sessionId, so a stale disconnect cannot clobber a newer
// registration. removed reports whether the user's entry was deleted.
func (r *Registry) Unregister(sessionId string) (userId string, removed bool) {
	userId, ok := r.bySession[sessionId]
	if !ok {
		return "", false
	}
	delete(r.bySession, sessionId)

	if r.byUser[userId] != sessionId {
		return userId, false
	}

	delete(r.byUser, userId)
	return userId, true
}

func (r *Registry) size() int {
	return len(r.byUser)
}
