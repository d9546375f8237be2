package server

import "encoding/json"

// Bridge pushes a notification straight to the recipient's registered
// session. Delivery is best-effort: a recipient without a session is
// silently skipped and nothing is retried.
type Bridge struct {
	registry *Registry
	sessions map[string]*Session
}

func NewBridge(registry *Registry, sessions map[string]*Session) *Bridge {
	return &Bridge{registry: registry, sessions: sessions}
}

// Push reports whether payload was queued to the recipient's session.
func (b *Bridge) Push(recipientId string, payload json.RawMessage) bool {
	sessionId, ok := b.registry.Lookup(recipientId)
	if !ok {
		return false
	}

	s, ok := b.sessions[sessionId]
	if !ok {
		return false
	}

	return s.queueMessage(NewNotificationMessage(payload))
}
