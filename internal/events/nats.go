package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

const (
	DefaultNotificationSubject = "notifications.created"

	pushTimeout = 5 * time.Second
)

// Pusher delivers a notification payload to a live recipient.
type Pusher interface {
	Push(ctx context.Context, recipientId string, payload json.RawMessage) (bool, error)
}

// NotificationEvent is published by services that create notifications out
// of process.
type NotificationEvent struct {
	RecipientId  string          `json:"recipientId"`
	Notification json.RawMessage `json:"notification"`
}

func (e NotificationEvent) validate() error {
	if e.RecipientId == "" {
		return errors.New("missing recipientId")
	}
	if len(e.Notification) == 0 || string(e.Notification) == "null" {
		return errors.New("missing notification")
	}
	return nil
}

func Connect(url string, logger *log.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("vicharmanthan"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	return nc, nil
}

// NotificationSubscriber hands notifications published on subject to the
// push bridge. Malformed events are logged and dropped.
type NotificationSubscriber struct {
	nc      *nats.Conn
	subject string
	pusher  Pusher
	log     *log.Logger
	sub     *nats.Subscription
}

func NewNotificationSubscriber(nc *nats.Conn, subject string, pusher Pusher, logger *log.Logger) *NotificationSubscriber {
	if subject == "" {
		subject = DefaultNotificationSubject
	}
	return &NotificationSubscriber{
		nc:      nc,
		subject: subject,
		pusher:  pusher,
		log:     logger.With("subject", subject),
	}
}

func (s *NotificationSubscriber) Start() error {
	sub, err := s.nc.Subscribe(s.subject, s.handle)
	if err != nil {
		return errors.Wrap(err, "subscribe")
	}
	if err := sub.SetPendingLimits(64*1024, 64*1024*1024); err != nil {
		s.log.Warn("set pending limits", "err", err)
	}

	s.sub = sub
	s.log.Info("subscribed to notifications")
	return nil
}

// Drain stops the subscription after in-flight messages are handled.
func (s *NotificationSubscriber) Drain() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}

func (s *NotificationSubscriber) handle(m *nats.Msg) {
	var ev NotificationEvent
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		s.log.Warn("dropping malformed notification event", "err", err)
		return
	}
	if err := ev.validate(); err != nil {
		s.log.Warn("dropping invalid notification event", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	delivered, err := s.pusher.Push(ctx, ev.RecipientId, ev.Notification)
	if err != nil {
		s.log.Error("push notification", "user", ev.RecipientId, "err", err)
		return
	}
	s.log.Debug("notification event handled", "user", ev.RecipientId, "delivered", delivered)
}
