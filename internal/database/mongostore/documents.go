package mongostore

import (
	"time"

	"github.com/ChinmayaKolhe/VicharManthan/internal/database"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type chatDoc struct {
	Id            primitive.ObjectID `bson:"_id"`
	Participants  []string           `bson:"participants"`
	Messages      []messageDoc       `bson:"messages"`
	LastMessage   string             `bson:"lastMessage,omitempty"`
	LastMessageAt *time.Time         `bson:"lastMessageAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

type messageDoc struct {
	Id        primitive.ObjectID `bson:"_id"`
	Sender    string             `bson:"sender"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type notificationDoc struct {
	Id        primitive.ObjectID `bson:"_id"`
	Recipient string             `bson:"recipient"`
	Sender    string             `bson:"sender"`
	Type      string             `bson:"type"`
	Idea      string             `bson:"idea,omitempty"`
	Proposal  string             `bson:"proposal,omitempty"`
	Message   string             `bson:"message"`
	Read      bool               `bson:"read"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d chatDoc) toChat() database.Chat {
	chat := database.Chat{
		Id:           d.Id.Hex(),
		Participants: d.Participants,
		Messages:     make([]database.Message, 0, len(d.Messages)),
		LastMessage:  d.LastMessage,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.LastMessageAt != nil {
		t := d.LastMessageAt.UTC()
		chat.LastMessageAt = &t
	}
	for _, m := range d.Messages {
		chat.Messages = append(chat.Messages, m.toMessage(chat.Id))
	}
	return chat
}

func (d messageDoc) toMessage(chatId string) database.Message {
	return database.Message{
		Id:        d.Id.Hex(),
		ChatId:    chatId,
		SenderId:  d.Sender,
		Text:      d.Text,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func (d notificationDoc) toNotification() database.Notification {
	return database.Notification{
		Id:          d.Id.Hex(),
		RecipientId: d.Recipient,
		SenderId:    d.Sender,
		Type:        d.Type,
		IdeaId:      d.Idea,
		ProposalId:  d.Proposal,
		Message:     d.Message,
		Read:        d.Read,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}
