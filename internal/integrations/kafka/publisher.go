package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/turbolytics/ckandiff/internal"
	"go.uber.org/zap"
)

const flushTimeoutMS = 10000

// Stats counts what the publisher handed to and got back from the broker.
type Stats struct {
	Produced  int
	Delivered int
	Failed    int
	LastError string
}

// Publisher produces change events to a single topic. Events are keyed
// by dataset identifier.
type Publisher struct {
	config   kafka.ConfigMap
	producer *kafka.Producer
	topic    string
	brokers  string
	logger   *zap.Logger

	statsMu sync.RWMutex
	stats   Stats
	done    chan struct{}
}

// NewPublisher parses a kafka://broker:9092/topic URL. Query parameters
// are passed through as producer config.
func NewPublisher(uri *url.URL, logger *zap.Logger) (*Publisher, error) {
	if uri.Scheme != "kafka" {
		return nil, fmt.Errorf("unsupported scheme: %q", uri.Scheme)
	}

	topic := strings.TrimPrefix(uri.Path, "/")
	if topic == "" {
		return nil, fmt.Errorf("topic must be specified in URL path")
	}

	brokers := uri.Host
	if brokers == "" {
		return nil, fmt.Errorf("broker must be specified in URL host")
	}

	config := kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"client.id":         "ckandiff",

		// Change events are rare and small; durability matters more than latency.
		"acks":                "all",
		"retries":             "3",
		"linger.ms":           "5",
		"compression.type":    "snappy",
		"request.timeout.ms":  "5000",
		"delivery.timeout.ms": "30000",
	}

	for key, values := range uri.Query() {
		if len(values) > 0 {
			config[key] = values[0]
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Publisher{
		config:  config,
		topic:   topic,
		brokers: brokers,
		logger:  logger,
	}, nil
}

func (p *Publisher) Topic() string {
	return p.topic
}

func (p *Publisher) Connect(ctx context.Context) error {
	producer, err := kafka.NewProducer(&p.config)
	if err != nil {
		return err
	}
	p.producer = producer
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		defer p.logger.Debug("producer event loop closed")

		for e := range producer.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				p.statsMu.Lock()
				if ev.TopicPartition.Error != nil {
					p.stats.Failed++
					p.stats.LastError = ev.TopicPartition.Error.Error()
					p.logger.Error("delivery failed",
						zap.ByteString("identifier", ev.Key),
						zap.Error(ev.TopicPartition.Error),
					)
				} else {
					p.stats.Delivered++
					p.logger.Debug("change delivered",
						zap.ByteString("identifier", ev.Key),
						zap.Int32("partition", ev.TopicPartition.Partition),
						zap.Int64("offset", int64(ev.TopicPartition.Offset)),
					)
				}
				p.statsMu.Unlock()
			case kafka.Error:
				p.logger.Error("producer error", zap.Error(ev))
			}
		}
	}()

	p.logger.Info("kafka publisher connected",
		zap.String("topic", p.topic),
		zap.String("brokers", p.brokers),
	)
	return nil
}

// Encode returns the message key and value for change.
func Encode(change internal.Change) ([]byte, []byte, error) {
	value, err := json.Marshal(change)
	if err != nil {
		return nil, nil, err
	}
	return []byte(change.Identifier), value, nil
}

func (p *Publisher) Notify(ctx context.Context, change internal.Change) error {
	if p.producer == nil {
		return fmt.Errorf("publisher is not connected")
	}

	key, value, err := Encode(change)
	if err != nil {
		return err
	}

	message := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   key,
		Value: value,
	}

	if err := p.producer.Produce(message, nil); err != nil {
		p.statsMu.Lock()
		p.stats.Failed++
		p.stats.LastError = err.Error()
		p.statsMu.Unlock()
		return err
	}

	p.statsMu.Lock()
	p.stats.Produced++
	p.statsMu.Unlock()
	return nil
}

// Close flushes outstanding messages once and shuts the producer down.
func (p *Publisher) Close(ctx context.Context) error {
	if p.producer == nil {
		return nil
	}

	if remaining := p.producer.Flush(flushTimeoutMS); remaining > 0 {
		p.logger.Warn("messages not delivered before close",
			zap.Int("remaining", remaining),
		)
	}
	p.producer.Close()
	<-p.done
	p.producer = nil

	stats := p.Stats()
	p.logger.Info("kafka publisher closed",
		zap.Int("produced", stats.Produced),
		zap.Int("delivered", stats.Delivered),
		zap.Int("failed", stats.Failed),
	)
	return nil
}

func (p *Publisher) Stats() Stats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}
