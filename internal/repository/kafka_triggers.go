package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"MarketPulse/internal/domain/models"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/queue"
)

// KafkaTriggerPublisher implements TriggerPublisher on the Kafka bus.
type KafkaTriggerPublisher struct {
	producer        *pkgkafka.Producer
	collectionTopic string
	analysisTopic   string
}

func NewKafkaTriggerPublisher(producer *pkgkafka.Producer, collectionTopic, analysisTopic string) *KafkaTriggerPublisher {
	return &KafkaTriggerPublisher{
		producer:        producer,
		collectionTopic: collectionTopic,
		analysisTopic:   analysisTopic,
	}
}

func (p *KafkaTriggerPublisher) PublishCollection(ctx context.Context, trigger *models.CollectionTrigger) error {
	return p.producer.Publish(ctx, p.collectionTopic, []byte(trigger.Exchange), trigger)
}

func (p *KafkaTriggerPublisher) PublishAnalysis(ctx context.Context, trigger *models.AnalysisTrigger) error {
	return p.producer.Publish(ctx, p.analysisTopic, []byte(trigger.AnalysisType), trigger)
}

func (p *KafkaTriggerPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// TriggerBridge moves triggers from one Kafka topic onto the local Redis job
// queue, where workers pick them up with retry and DLQ semantics. It
// implements the consumer's MessageHandler.
type TriggerBridge struct {
	topic   string
	msgType string
	queue   queue.QueueService
	l       *applogger.Logger
}

func NewTriggerBridge(topic, msgType string, q queue.QueueService, l *applogger.Logger) *TriggerBridge {
	return &TriggerBridge{topic: topic, msgType: msgType, queue: q, l: l}
}

func (b *TriggerBridge) Topic() string { return b.topic }

func (b *TriggerBridge) Handle(ctx context.Context, data []byte) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		// Malformed bus messages are dropped, not retried.
		b.l.Warn("dropping malformed trigger",
			applogger.String("topic", b.topic),
			applogger.Error(err),
		)
		return nil
	}
	if err := b.queue.PublishMessage(ctx, b.msgType, payload); err != nil {
		return fmt.Errorf("enqueue %s trigger: %w", b.msgType, err)
	}
	b.l.Debug("trigger bridged to queue",
		applogger.String("topic", b.topic),
		applogger.String("type", b.msgType),
	)
	return nil
}
