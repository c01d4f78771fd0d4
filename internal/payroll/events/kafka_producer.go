package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	EmployeeRegistered EventType = "employee_registered"
	EmployeeUpdated    EventType = "employee_updated"
	EmployeeDeleted    EventType = "employee_deleted"
	MonthRecorded      EventType = "month_recorded"
)

// Period identifies the accrual bucket a MonthRecorded event refers to.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Event is the message published for every committed ledger change.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	EmployeeID string    `json:"employee_id"`
	Period     *Period   `json:"period,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps a fresh event.
func NewEvent(eventType EventType, employeeID string, period *Period) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		EmployeeID: employeeID,
		Period:     period,
		OccurredAt: time.Now().UTC(),
	}
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

// NewProducer makes sure topic exists on the cluster and starts the
// background delivery loop.
func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	topicConfigs := []kafka.TopicConfig{
		{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
	}

	err = conn.CreateTopics(topicConfigs...)
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	return newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger, 1000), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, buffer int) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, buffer),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce queues an event without blocking; it is dropped when the queue is full.
func (p *Producer) Produce(event Event) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("employee_id", event.EmployeeID),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("employee_id", event.EmployeeID),
		)
		return
	}
	// keyed by employee so one employee's events stay ordered on a partition
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EmployeeID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("employee_id", event.EmployeeID),
		)
		return
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	<-p.done
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// NopProducer discards events; used when no brokers are configured.
type NopProducer struct{}

func (NopProducer) Produce(Event) {}
