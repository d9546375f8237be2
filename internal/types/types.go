package types

import (
	"encoding/json"
	"time"
)

type Chat struct {
	Id            string     `json:"_id"`
	Participants  []string   `json:"participants"`
	Messages      []Message  `json:"messages"`
	LastMessage   string     `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt,omitempty"`
}

type Message struct {
	Id        string    `json:"_id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Notification struct {
	Id        string    `json:"_id"`
	Recipient string    `json:"recipient"`
	Sender    string    `json:"sender"`
	Type      string    `json:"type"`
	Idea      string    `json:"idea,omitempty"`
	Proposal  string    `json:"proposal,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Payload returns the notification in the form pushed to a live session.
func (n Notification) Payload() (json.RawMessage, error) {
	return json.Marshal(n)
}

type UserStatus struct {
	UserId string `json:"userId"`
	Online bool   `json:"online"`
}
