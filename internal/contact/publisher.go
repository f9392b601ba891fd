package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"

	"github.com/villa-azur/web/internal/observability"
)

// EventSubmitted is the type attribute of published lead events.
const EventSubmitted = "contact.submitted"

// Lead is the event published after a successful delivery. It carries no name, phone
// or message.
type Lead struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	Locale          string    `json:"locale,omitempty"`
	EmailDomain     string    `json:"email_domain"`
	CountryDialCode string    `json:"country_dial_code"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Publisher announces delivered leads.
type Publisher interface {
	PublishLead(ctx context.Context, lead Lead) (string, error)
}

// PubSubPublisher publishes lead events to a Pub/Sub topic.
type PubSubPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubPublisher constructs a Pub/Sub backed lead publisher.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub lead publisher: topic is required")
	}
	return &PubSubPublisher{topic: topic, marshal: json.Marshal}, nil
}

// OpenPubSubPublisher dials Pub/Sub for projectID and binds topicID. The returned close
// function flushes pending messages and releases the client.
func OpenPubSubPublisher(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*PubSubPublisher, func() error, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(topicID) == "" {
		return nil, nil, errors.New("pubsub lead publisher: project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	p, err := NewPubSubPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closeFn := func() error {
		topic.Stop()
		return client.Close()
	}
	return p, closeFn, nil
}

// PublishLead publishes lead and waits for the server acknowledgement.
func (p *PubSubPublisher) PublishLead(ctx context.Context, lead Lead) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub lead publisher: not initialised")
	}
	ctx, span := observability.StartSpan(ctx, "leads.publish", attribute.String("contact.source", lead.Source))
	defer span.End()

	data, err := p.marshal(lead)
	if err != nil {
		return "", fmt.Errorf("marshal lead: %w", err)
	}

	attrs := map[string]string{"type": EventSubmitted}
	setAttr(attrs, "leadId", lead.ID)
	setAttr(attrs, "source", lead.Source)
	setAttr(attrs, "locale", lead.Locale)

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("publish lead: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
