package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMessage_Unmarshal(t *testing.T) {
	tcases := []struct {
		name  string
		raw   string
		check func(t *testing.T, msg ClientMessage)
	}{
		{
			name: "user_connected",
			raw:  `{"user_connected":"alice"}`,
			check: func(t *testing.T, msg ClientMessage) {
				require.NotNil(t, msg.UserConnected)
				assert.Equal(t, "alice", *msg.UserConnected)
			},
		},
		{
			name: "join_chat",
			raw:  `{"join_chat":"room1"}`,
			check: func(t *testing.T, msg ClientMessage) {
				require.NotNil(t, msg.JoinChat)
				assert.Equal(t, "room1", *msg.JoinChat)
			},
		},
		{
			name: "send_message keeps payload verbatim",
			raw:  `{"send_message":{"roomId":"room1","message":{"text":"hi","extra":[1,2]}}}`,
			check: func(t *testing.T, msg ClientMessage) {
				require.NotNil(t, msg.SendMessage)
				assert.Equal(t, "room1", msg.SendMessage.RoomId)
				assert.JSONEq(t, `{"text":"hi","extra":[1,2]}`, string(msg.SendMessage.Message))
			},
		},
		{
			name: "stop_typing",
			raw:  `{"stop_typing":{"roomId":"room1","userId":"alice"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				require.NotNil(t, msg.StopTyping)
				assert.Nil(t, msg.Typing)
				assert.Equal(t, "alice", msg.StopTyping.UserId)
			},
		},
		{
			name: "send_notification",
			raw:  `{"send_notification":{"recipientId":"bob","notification":{"type":"like"}}}`,
			check: func(t *testing.T, msg ClientMessage) {
				require.NotNil(t, msg.SendNotification)
				assert.Equal(t, "bob", msg.SendNotification.RecipientId)
			},
		},
		{
			name: "unknown event",
			raw:  `{"shout":"hello"}`,
			check: func(t *testing.T, msg ClientMessage) {
				assert.Equal(t, ClientMessage{}, msg)
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			var msg ClientMessage
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &msg))
			tc.check(t, msg)
		})
	}
}

func Test_serializeMessage(t *testing.T) {
	msg := UserStatusMessage("alice", true)

	expected := `{"timestamp":"` + msg.Timestamp.Format(time.RFC3339Nano) +
		`","user_status":{"userId":"alice","online":true}}`

	bytes, err := serializeMessage(msg)
	assert.NoError(t, err, "expected no error during serialization")
	assert.Equal(t, expected, string(bytes))
}

func Test_isPayload(t *testing.T) {
	tcases := []struct {
		raw  json.RawMessage
		want bool
	}{
		{raw: nil, want: false},
		{raw: json.RawMessage(`null`), want: false},
		{raw: json.RawMessage(`{}`), want: true},
		{raw: json.RawMessage(`"text"`), want: true},
	}

	for _, tc := range tcases {
		t.Run(string(tc.raw), func(t *testing.T) {
			assert.Equal(t, tc.want, isPayload(tc.raw))
		})
	}
}

func TestTypingMessage(t *testing.T) {
	start := TypingMessage("alice", true)
	require.NotNil(t, start.UserTyping)
	assert.Nil(t, start.UserStopTyping)

	stop := TypingMessage("alice", false)
	require.NotNil(t, stop.UserStopTyping)
	assert.Nil(t, stop.UserTyping)
}
