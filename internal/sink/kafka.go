package sink

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"

	"email-ingest/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// Publisher receives every batch after it has been written to disk
type Publisher interface {
	Publish(ctx context.Context, records []models.EmailRecord) error
	Close() error
}

// MessageWriter is the part of kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher builds a publisher for cfg. SASL/SCRAM over TLS is used when a
// username is configured.
func NewKafkaPublisher(cfg models.KafkaConfig) (*KafkaPublisher, error) {
	transport := &kafka.Transport{}
	if cfg.Username != "" {
		mechanism, err := scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("kafka SASL setup: %w", err)
		}
		transport.SASL = mechanism
		transport.TLS = &tls.Config{}
	}

	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:      kafka.TCP(BrokerAddrs(cfg.Brokers)...),
		Topic:     cfg.Topic,
		Balancer:  &kafka.Hash{},
		Transport: transport,
	}), nil
}

// NewKafkaPublisherWithWriter wraps an existing writer
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish sends one message per record, keyed by message id, then thread id
func (p *KafkaPublisher) Publish(ctx context.Context, records []models.EmailRecord) error {
	if len(records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	for i := range records {
		value, err := json.Marshal(&records[i])
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   recordKey(&records[i]),
			Value: value,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing %d records: %w", len(msgs), err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// BrokerAddrs splits a comma-separated broker list, dropping blanks
func BrokerAddrs(brokers string) []string {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return addrs
}

func recordKey(rec *models.EmailRecord) []byte {
	switch {
	case rec.MessageID != nil && *rec.MessageID != "":
		return []byte(*rec.MessageID)
	case rec.ThreadID != nil:
		return []byte(*rec.ThreadID)
	default:
		return nil
	}
}
