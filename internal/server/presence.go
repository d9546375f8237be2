package server

// PresenceMirror receives every online/offline transition the hub announces.
// Implementations must not block; the hub calls them from its event loop.
type PresenceMirror interface {
	Online(userId, sessionId string)
	Offline(userId string)
}

type nopMirror struct{}

func (nopMirror) Online(string, string) {}
func (nopMirror) Offline(string)        {}

// Presence announces user status changes to every connected session,
// regardless of room membership.
type Presence struct {
	sessions map[string]*Session
	mirror   PresenceMirror
}

func NewPresence(sessions map[string]*Session, mirror PresenceMirror) *Presence {
	if mirror == nil {
		mirror = nopMirror{}
	}
	return &Presence{sessions: sessions, mirror: mirror}
}

// Announce queues {userId, online} to all connected sessions and returns how
// many accepted it. sessionId is only used by the mirror for online events.
func (p *Presence) Announce(userId, sessionId string, online bool) int {
	if online {
		p.mirror.Online(userId, sessionId)
	} else {
		p.mirror.Offline(userId)
	}

	msg := UserStatusMessage(userId, online)
	delivered := 0
	for _, s := range p.sessions {
		if s.queueMessage(msg) {
			delivered++
		}
	}
	return delivered
}
