package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/config"
	"ms-booking/internal/models"
)

// Producer streams ticket lifecycle events. Publishing is best-effort: the
// booking service logs failures and never fails a request over them.
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

func (p *Producer) publish(topic string, ticket models.Ticket) error {
	msgBytes, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(ticket.ID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) PublishTicketBooked(ticket models.Ticket) error {
	return p.publish(p.topics.TicketBooked, ticket)
}

func (p *Producer) PublishTicketPaid(ticket models.Ticket) error {
	return p.publish(p.topics.TicketPaid, ticket)
}

func (p *Producer) PublishTicketConfirmed(ticket models.Ticket) error {
	return p.publish(p.topics.TicketConfirmed, ticket)
}

func (p *Producer) PublishTicketCancelled(ticket models.Ticket) error {
	return p.publish(p.topics.TicketCancelled, ticket)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
