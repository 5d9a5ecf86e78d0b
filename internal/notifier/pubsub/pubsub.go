package pubsub

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/codr1/courtside/internal/notifier"
)

const (
	EventStatusChanged = "court.status.changed"
	ContentType        = "application/msgpack"
)

var _ notifier.Notifier = &Publisher{}

// topic is the part of a Pub/Sub topic used here.
type topic interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
	Stop()
}

type gcpTopic struct {
	topic *pubsub.Topic
}

func (t gcpTopic) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	result := t.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	return result.Get(ctx)
}

func (t gcpTopic) Stop() {
	t.topic.Stop()
}

// Publisher sends status changes, msgpack encoded, to a Pub/Sub topic.
type Publisher struct {
	topic    topic
	teardown func()
}

func New(ctx context.Context, projectID, topicID string) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	t := gcpTopic{topic: client.Topic(topicID)}
	return &Publisher{
		topic: t,
		teardown: func() {
			t.Stop()
			client.Close()
		},
	}, nil
}

func newWithTopic(t topic) *Publisher {
	return &Publisher{topic: t, teardown: t.Stop}
}

func (p *Publisher) NotifyStatusChange(ctx context.Context, change notifier.StatusChange) error {
	data, err := msgpack.Marshal(change)
	if err != nil {
		return fmt.Errorf("msgpack marshal status change: %w", err)
	}
	attributes := map[string]string{
		"event":        EventStatusChanged,
		"court_id":     strconv.FormatInt(change.CourtID, 10),
		"facility":     string(change.Current.FacilityStatus),
		"content_type": ContentType,
	}

	serverID, err := p.topic.Publish(ctx, data, attributes)
	if err != nil {
		return fmt.Errorf("publish status change: %w", err)
	}
	log.Ctx(ctx).Debug().
		Str("server_id", serverID).
		Int64("court_id", change.CourtID).
		Msg("Published court status change")
	return nil
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() {
	if p.teardown != nil {
		p.teardown()
	}
}

// DecodeStatusChange is the consumer side of NotifyStatusChange.
func DecodeStatusChange(data []byte) (notifier.StatusChange, error) {
	var change notifier.StatusChange
	if err := msgpack.Unmarshal(data, &change); err != nil {
		return notifier.StatusChange{}, fmt.Errorf("msgpack unmarshal status change: %w", err)
	}
	return change, nil
}
