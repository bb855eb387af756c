package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-booking/internal/config"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer publishes booking lifecycle events. One writer serves all
// topics; the topic is chosen per message.
type Producer struct {
	writer *kafka.Writer
	topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer, topics: topics}
}

func (p *Producer) publish(topic string, event models.BookingEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(event.BookingID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) PublishBookingCreated(event models.BookingEvent) error {
	return p.publish(p.topics.BookingCreated, event)
}

func (p *Producer) PublishBookingUpdated(event models.BookingEvent) error {
	return p.publish(p.topics.BookingUpdated, event)
}

func (p *Producer) PublishBookingConfirmed(event models.BookingEvent) error {
	return p.publish(p.topics.BookingConfirmed, event)
}

func (p *Producer) PublishBookingCanceled(event models.BookingEvent) error {
	return p.publish(p.topics.BookingCanceled, event)
}

func (p *Producer) publishPayment(topic string, event models.PaymentEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}

	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(event.BookingID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) PublishPaymentSuccess(event models.PaymentEvent) error {
	return p.publishPayment(p.topics.PaymentSuccess, event)
}

func (p *Producer) PublishPaymentFailed(event models.PaymentEvent) error {
	return p.publishPayment(p.topics.PaymentFailed, event)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
