package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
)

// Topics published by the account service.
const (
	TopicUserCreated  = "userhub.user.created"
	TopicUserUpdated  = "userhub.user.updated"
	TopicUserDeleted  = "userhub.user.deleted"
	TopicUserSignedIn = "userhub.user.signed_in"
)

// AllTopics lists every topic a subscriber may want to follow.
var AllTopics = []string{TopicUserCreated, TopicUserUpdated, TopicUserDeleted, TopicUserSignedIn}

// UserEvent is the payload of every account event.
type UserEvent struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits account lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event UserEvent) error
}

// WatermillPublisher publishes JSON events through a watermill publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) Publish(ctx context.Context, topic string, event UserEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, UserEvent) error { return nil }

// Audit logs every event received on the given topics until ctx is done.
func Audit(ctx context.Context, subscriber message.Subscriber, logger logrus.FieldLogger, topics ...string) error {
	for _, topic := range topics {
		messages, err := subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		go consume(topic, messages, logger)
	}
	return nil
}

func consume(topic string, messages <-chan *message.Message, logger logrus.FieldLogger) {
	for msg := range messages {
		var event UserEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			logger.WithError(err).WithField("topic", topic).Warn("drop malformed event")
			msg.Ack()
			continue
		}
		logger.WithFields(logrus.Fields{
			"topic":   topic,
			"user_id": event.UserID,
			"email":   event.Email,
		}).Info("audit")
		msg.Ack()
	}
}
