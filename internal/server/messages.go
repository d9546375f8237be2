package server

import (
	"encoding/json"
	"time"

	"github.com/ChinmayaKolhe/VicharManthan/internal/types"
)

// ClientMessage is one inbound transport event. Exactly one field is expected
// to be set; unknown or empty events are dropped.
type ClientMessage struct {
	UserConnected    *string           `json:"user_connected,omitempty"`
	JoinChat         *string           `json:"join_chat,omitempty"`
	LeaveChat        *string           `json:"leave_chat,omitempty"`
	SendMessage      *SendMessage      `json:"send_message,omitempty"`
	Typing           *Typing           `json:"typing,omitempty"`
	StopTyping       *Typing           `json:"stop_typing,omitempty"`
	SendNotification *SendNotification `json:"send_notification,omitempty"`
	session          *Session          `json:"-"`
}

// SendMessage relays a message the client already persisted through the
// chat endpoints. Message is forwarded verbatim.
type SendMessage struct {
	RoomId  string          `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

type Typing struct {
	RoomId string `json:"roomId"`
	UserId string `json:"userId"`
}

type SendNotification struct {
	RecipientId  string          `json:"recipientId"`
	Notification json.RawMessage `json:"notification"`
}

// ServerMessage is one outbound transport event. A single ServerMessage may be
// queued to many sessions and must not be modified after it is queued.
type ServerMessage struct {
	Timestamp       time.Time         `json:"timestamp"`
	UserStatus      *types.UserStatus `json:"user_status,omitempty"`
	NewMessage      json.RawMessage   `json:"new_message,omitempty"`
	UserTyping      *TypingStatus     `json:"user_typing,omitempty"`
	UserStopTyping  *TypingStatus     `json:"user_stop_typing,omitempty"`
	NewNotification json.RawMessage   `json:"new_notification,omitempty"`
}

type TypingStatus struct {
	UserId string `json:"userId"`
}

func UserStatusMessage(userId string, online bool) *ServerMessage {
	return &ServerMessage{
		Timestamp:  Now(),
		UserStatus: &types.UserStatus{UserId: userId, Online: online},
	}
}

func NewMessageMessage(message json.RawMessage) *ServerMessage {
	return &ServerMessage{
		Timestamp:  Now(),
		NewMessage: message,
	}
}

func TypingMessage(userId string, typing bool) *ServerMessage {
	msg := &ServerMessage{Timestamp: Now()}
	if typing {
		msg.UserTyping = &TypingStatus{UserId: userId}
	} else {
		msg.UserStopTyping = &TypingStatus{UserId: userId}
	}
	return msg
}

func NewNotificationMessage(notification json.RawMessage) *ServerMessage {
	return &ServerMessage{
		Timestamp:       Now(),
		NewNotification: notification,
	}
}

// isPayload reports whether raw holds a JSON value worth relaying.
func isPayload(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
