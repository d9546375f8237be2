package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ChinmayaKolhe/VicharManthan/internal/testutil"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) Push(ctx context.Context, recipientId string, payload json.RawMessage) (bool, error) {
	args := m.Called(ctx, recipientId, payload)
	return args.Bool(0), args.Error(1)
}

func TestNotificationSubscriber_handle(t *testing.T) {
	tcases := []struct {
		name     string
		data     string
		setup    func(p *mockPusher)
		wantPush bool
	}{
		{
			name: "delivers valid event",
			data: `{"recipientId":"bob","notification":{"type":"like","message":"hi"}}`,
			setup: func(p *mockPusher) {
				p.On("Push", mock.Anything, "bob", json.RawMessage(`{"type":"like","message":"hi"}`)).
					Return(true, nil).Once()
			},
			wantPush: true,
		},
		{
			name: "recipient offline",
			data: `{"recipientId":"carol","notification":{"type":"like"}}`,
			setup: func(p *mockPusher) {
				p.On("Push", mock.Anything, "carol", mock.Anything).Return(false, nil).Once()
			},
			wantPush: true,
		},
		{
			name: "push error is logged",
			data: `{"recipientId":"bob","notification":{}}`,
			setup: func(p *mockPusher) {
				p.On("Push", mock.Anything, "bob", mock.Anything).Return(false, errors.New("hub stopped")).Once()
			},
			wantPush: true,
		},
		{
			name:  "malformed json",
			data:  `{"recipientId":`,
			setup: func(p *mockPusher) {},
		},
		{
			name:  "missing recipient",
			data:  `{"notification":{"type":"like"}}`,
			setup: func(p *mockPusher) {},
		},
		{
			name:  "null notification",
			data:  `{"recipientId":"bob","notification":null}`,
			setup: func(p *mockPusher) {},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			p := &mockPusher{}
			tc.setup(p)
			defer p.AssertExpectations(t)

			s := NewNotificationSubscriber(nil, "", p, testutil.TestLogger(t))
			assert.Equal(t, DefaultNotificationSubject, s.subject)

			s.handle(&nats.Msg{Subject: s.subject, Data: []byte(tc.data)})
			if !tc.wantPush {
				p.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestNotificationSubscriber_DrainWithoutStart(t *testing.T) {
	s := NewNotificationSubscriber(nil, "custom", &mockPusher{}, testutil.TestLogger(t))
	assert.NoError(t, s.Drain())
}

func TestNotificationSubscriber_Integration(t *testing.T) {
	url := os.Getenv("VICHARMANTHAN_TEST_NATS_URL")
	if url == "" {
		t.Skip("VICHARMANTHAN_TEST_NATS_URL not set")
	}

	nc, err := Connect(url, testutil.TestLogger(t))
	require.NoError(t, err)
	defer nc.Close()

	pushed := make(chan string, 1)
	p := &mockPusher{}
	p.On("Push", mock.Anything, "bob", mock.Anything).
		Run(func(args mock.Arguments) { pushed <- args.String(1) }).
		Return(true, nil)

	subject := "test.notifications." + time.Now().Format("150405.000000")
	s := NewNotificationSubscriber(nc, subject, p, testutil.TestLogger(t))
	require.NoError(t, s.Start())
	defer s.Drain()

	data, err := json.Marshal(NotificationEvent{RecipientId: "bob", Notification: json.RawMessage(`{"type":"like"}`)})
	require.NoError(t, err)
	require.NoError(t, nc.Publish(subject, data))

	select {
	case got := <-pushed:
		assert.Equal(t, "bob", got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push")
	}
}
