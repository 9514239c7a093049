package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotificationMessage is the payload published for every notification.
type NotificationMessage struct {
	CorrelationID string    `json:"correlation_id"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	SentAt        time.Time `json:"sent_at"`
}

// PubSubNotifier hands summaries to the delivery service through a Pub/Sub
// topic.
type PubSubNotifier struct {
	topic *pubsub.Topic
	now   func() time.Time
}

// NewPubSubNotifier creates a notifier publishing to topic.
func NewPubSubNotifier(topic *pubsub.Topic) *PubSubNotifier {
	return &PubSubNotifier{topic: topic, now: time.Now}
}

// Notify publishes and waits for the server to accept the message.
func (n *PubSubNotifier) Notify(ctx context.Context, subject, body string) error {
	if n.topic == nil {
		return errors.New("pubsub topic is nil")
	}
	msg := NotificationMessage{
		CorrelationID: uuid.NewString(),
		Subject:       subject,
		Body:          body,
		SentAt:        n.now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	result := n.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"correlation_id": msg.CorrelationID,
		},
	})
	_, err = result.Get(ctx)
	return err
}

// LogNotifier writes notifications to the log. Used when no topic is
// configured.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, subject, body string) error {
	n.logger.WithFields(logrus.Fields{
		"module":  "notifier",
		"subject": subject,
	}).Info(body)
	return nil
}
