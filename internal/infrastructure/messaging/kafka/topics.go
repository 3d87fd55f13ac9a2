package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
)

// SourceService identifies this service in event envelopes.
const SourceService = "chemindex"

// Header keys set on event messages.
const (
	HeaderEventType     = "event_type"
	HeaderSource        = "source_service"
	HeaderSchemaVersion = "schema_version"
)

// EventEnvelope wraps every event published by the service.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEventEnvelope encodes payload into a new envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	if eventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "event type is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload decodes the payload into target. An empty payload leaves
// target untouched.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode payload")
	}
	return nil
}

// ToMessage encodes the envelope as a message for topic.
func (e *EventEnvelope) ToMessage(topic string) (*Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &Message{
		Topic: topic,
		Value: val,
		Headers: map[string]string{
			HeaderEventType:     e.EventType,
			HeaderSource:        e.Source,
			HeaderSchemaVersion: e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope decodes the envelope carried by msg.
func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Topic administration
// ─────────────────────────────────────────────────────────────────────────────

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the topics the service reads and writes.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager connects to the cluster controller through the first
// reachable broker.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	var lastErr error
	for _, b := range brokers {
		conn, err := kafka.Dial("tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		controller, err := conn.Controller()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		cc, err := kafka.Dial("tcp", controller.Host+":"+strconv.Itoa(controller.Port))
		if err != nil {
			lastErr = err
			continue
		}
		return newTopicManager(cc, logger), nil
	}
	return nil, errors.Wrap(lastErr, errors.ErrCodeMessagingFailed, "failed to reach kafka controller")
}

func newTopicManager(conn ConnInterface, logger logging.Logger) *TopicManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: logger.Named("kafka_topics")}
}

// TopicExists reports whether name has at least one partition.
func (m *TopicManager) TopicExists(name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		if errors.Is(err, kafka.UnknownTopicOrPartition) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeMessagingFailed, "failed to read partitions")
	}
	return len(partitions) > 0, nil
}

// EnsureTopics creates the topics that do not exist yet.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics ...TopicConfig) error {
	for _, t := range topics {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.Name == "" || t.NumPartitions <= 0 || t.ReplicationFactor <= 0 {
			return errors.New(errors.ErrCodeValidation, "topic needs a name, partitions and replication factor").
				WithDetail("topic=" + t.Name)
		}
		exists, err := m.TopicExists(t.Name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		kc := kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     t.NumPartitions,
			ReplicationFactor: t.ReplicationFactor,
		}
		if t.RetentionMs > 0 {
			kc.ConfigEntries = append(kc.ConfigEntries, kafka.ConfigEntry{
				ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(t.RetentionMs, 10),
			})
		}
		if err := m.conn.CreateTopics(kc); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
			return errors.Wrap(err, errors.ErrCodeMessagingFailed, "failed to create topic").
				WithDetail("topic=" + t.Name)
		}
		m.logger.Info("topic created", logging.String(logging.FieldTopic, t.Name))
	}
	return nil
}

// Close closes the controller connection.
func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// DefaultTopics returns the ingest and events topics with a dead-letter
// topic for ingest failures.
func DefaultTopics(ingest, events string) []TopicConfig {
	const week = 7 * 24 * 3600 * 1000
	return []TopicConfig{
		{Name: ingest, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: week},
		{Name: events, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
		{Name: DeadLetterTopic(ingest), NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 4 * week},
	}
}

// DeadLetterTopic names the dead-letter topic of topic.
func DeadLetterTopic(topic string) string {
	return topic + ".dlq"
}

//Personal.AI order the ending
