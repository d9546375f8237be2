package api

import (
	"github.com/ChinmayaKolhe/VicharManthan/internal/database"
	"github.com/ChinmayaKolhe/VicharManthan/internal/types"
)

func toChat(c database.Chat) types.Chat {
	messages := make([]types.Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		messages = append(messages, toMessage(m))
	}

	participants := c.Participants
	if participants == nil {
		participants = []string{}
	}

	return types.Chat{
		Id:            c.Id,
		Participants:  participants,
		Messages:      messages,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toChats(chats []database.Chat) []types.Chat {
	out := make([]types.Chat, 0, len(chats))
	for _, c := range chats {
		out = append(out, toChat(c))
	}
	return out
}

func toMessage(m database.Message) types.Message {
	return types.Message{
		Id:        m.Id,
		Sender:    m.SenderId,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func toNotification(n database.Notification) types.Notification {
	return types.Notification{
		Id:        n.Id,
		Recipient: n.RecipientId,
		Sender:    n.SenderId,
		Type:      n.Type,
		Idea:      n.IdeaId,
		Proposal:  n.ProposalId,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func toNotifications(notifications []database.Notification) []types.Notification {
	out := make([]types.Notification, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, toNotification(n))
	}
	return out
}
