package kafka

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/segmentio/kafka-go"
)

const (
	EventTicketCreated   = "ticket.created"
	EventTicketResolved  = "ticket.resolved"
	EventTicketCancelled = "ticket.cancelled"
	EventMessageSent     = "message.sent"
	// EventTicketUpdated шлёт только reindex-search.
	EventTicketUpdated = "ticket.updated"
)

// TicketEventProducer — интерфейс для отправки событий тикета в Kafka (для подмены моком в тестах).
type TicketEventProducer interface {
	ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{})
}

// Producer пишет события тикетов в топик Kafka (best-effort, не блокирует API).
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer создаёт продюсер. Без brokers или topic методы ничего не делают.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Enabled reports whether events actually leave the process.
func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// ProduceTicketEvent отправляет событие в топик. Ключ сообщения ticket_id,
// поэтому события одного тикета попадают в одну партицию и сохраняют порядок.
func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	body, err := json.Marshal(envelope(event, payload, time.Now()))
	if err != nil {
		log.Printf("kafka: marshal ticket event: %v", err)
		return
	}
	var key []byte
	if id, ok := payload["ticket_id"].(uint64); ok {
		key = []byte(strconv.FormatUint(id, 10))
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: body}); err != nil {
		log.Printf("kafka: write ticket event: %v", err)
	}
}

// envelope дополняет payload именем события, event_id для дедупликации на стороне консьюмера и временем.
func envelope(event string, payload map[string]interface{}, now time.Time) map[string]interface{} {
	msg := make(map[string]interface{}, len(payload)+3)
	for k, v := range payload {
		msg[k] = v
	}
	msg["event"] = event
	msg["event_id"] = uuid.New().String()
	msg["occurred_at"] = now.UTC().Format(time.RFC3339)
	return msg
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func TicketPayload(t *model.Ticket) map[string]interface{} {
	if t == nil {
		return nil
	}
	return map[string]interface{}{
		"ticket_id":   t.ID,
		"number":      t.Number,
		"client_id":   t.ClientID,
		"client_name": t.ClientName,
		"agent_name":  t.AgentName,
		"subject":     t.Subject,
		"status":      string(t.Status),
	}
}

func MessagePayload(m *model.Message) map[string]interface{} {
	if m == nil {
		return nil
	}
	return map[string]interface{}{
		"ticket_id":   m.TicketID,
		"message_id":  m.ID,
		"sender":      m.Sender,
		"sender_role": string(m.SenderRole),
		"text":        m.Text,
	}
}
