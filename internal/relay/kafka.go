package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"flightsurety/internal/ledger/models"
	"flightsurety/internal/platform/config"
)

const eventTypeHeader = "event-type"

// NewKafkaClient builds a franz-go client for cfg. Consumers pass extra
// options such as kgo.ConsumerGroup.
func NewKafkaClient(cfg config.KafkaConfig, opts ...kgo.Opt) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID("flightsurety"),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates the events topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, cfg config.KafkaConfig) error {
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	replication := cfg.Replication
	if replication <= 0 {
		replication = 1
	}
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, partitions, replication, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic %s: %w", cfg.Topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("kafka: create topic %s: %w", cfg.Topic, resp.Err)
	}
	return nil
}

// KafkaSink publishes events to one topic, keyed by event ID so consumers
// can drop redeliveries.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

func NewKafkaSink(client *kgo.Client, topic string) *KafkaSink {
	return &KafkaSink{client: client, topic: topic}
}

func (k *KafkaSink) Name() string {
	return "kafka"
}

func (k *KafkaSink) Publish(ctx context.Context, events []*models.Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", e.Seq, err)
		}
		records = append(records, &kgo.Record{
			Topic: k.topic,
			Key:   []byte(e.ID.String()),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: eventTypeHeader, Value: []byte(e.Type)},
			},
			Timestamp: e.CreatedAt,
		})
	}
	return k.client.ProduceSync(ctx, records...).FirstErr()
}

// ConsumeEvents polls the client's group and passes every decoded event to
// fn. Handler errors are logged and the offset still commits; poison records
// would otherwise stall the partition.
func ConsumeEvents(ctx context.Context, client *kgo.Client, fn Handler, logger *slog.Logger) error {
	for {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			logger.WarnContext(ctx, "kafka fetch error", "topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(r *kgo.Record) {
			var event models.Event
			if err := json.Unmarshal(r.Value, &event); err != nil {
				logger.WarnContext(ctx, "undecodable event record", "offset", r.Offset, "error", err)
				return
			}
			if err := fn(ctx, &event); err != nil {
				logger.WarnContext(ctx, "event handler failed", "type", event.Type, "seq", event.Seq, "error", err)
			}
		})
		if err := client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			logger.WarnContext(ctx, "kafka commit failed", "error", err)
		}
	}
}
