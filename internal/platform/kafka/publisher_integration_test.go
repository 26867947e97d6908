//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"cardledger/internal/platform/kafka"
	"cardledger/pkg/platform/outbox"
	"cardledger/pkg/testutil/containers"
)

type PublisherSuite struct {
	suite.Suite
	brokers []string
}

func TestPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetKafka(s.T()).Brokers
}

func (s *PublisherSuite) TestRelayDeliversKeyedRecords() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "card-events-test"
	pub, err := kafka.NewPublisher(s.brokers, topic)
	s.Require().NoError(err)
	defer pub.Close()
	s.Require().NoError(pub.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(pub.EnsureTopic(ctx, 1, 1), "existing topic is not an error")

	store := outbox.NewInMemoryStore()
	entry, err := outbox.NewEntry("card", "6f1c2a7e-8f7b-4b8e-9a43-0c1d2e3f4a5b", "card.transferred",
		map[string]string{"from_owner": "Ash", "to_owner": "Brock"}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(store.Append(ctx, entry))

	n, err := outbox.NewRelay(store, pub).Flush(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)
	s.Equal(entry.AggregateID, string(records[0].Key))
	s.JSONEq(`{"from_owner":"Ash","to_owner":"Brock"}`, string(records[0].Value))
}
