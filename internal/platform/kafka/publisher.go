// Package kafka delivers outbox entries to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"cardledger/pkg/platform/outbox"
)

// Publisher produces one record per outbox entry, keyed by aggregate id so all events
// of a card land on the same partition in order.
type Publisher struct {
	client *kgo.Client
	topic  string
}

func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// EnsureTopic creates the topic if it does not exist yet.
func (p *Publisher) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("kafka: create topic %s: %w", p.topic, resp.Err)
	}
	return nil
}

func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Publisher) Publish(ctx context.Context, entry outbox.Entry) error {
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(entry.AggregateID),
		Value: entry.Payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(entry.EventType)},
			{Key: "event_id", Value: []byte(entry.ID.String())},
		},
		Timestamp: entry.CreatedAt,
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce %s: %w", entry.EventType, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.client.Close()
}
