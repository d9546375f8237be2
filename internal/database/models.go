package database

import "time"

type Chat struct {
	Id            string
	Participants  []string
	Messages      []Message
	LastMessage   string
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Message struct {
	Id        string
	ChatId    string
	SenderId  string
	Text      string
	CreatedAt time.Time
}

type Notification struct {
	Id          string
	RecipientId string
	SenderId    string
	Type        string
	IdeaId      string
	ProposalId  string
	Message     string
	Read        bool
	CreatedAt   time.Time
}

type AppendMessageParams struct {
	SenderId string
	Text     string
}

type CreateNotificationParams struct {
	RecipientId string
	SenderId    string
	Type        string
	IdeaId      string
	ProposalId  string
	Message     string
}

// Now returns the timestamp stored with new rows, truncated to the
// precision both backing stores keep.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
