package repository

import (
	"context"

	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// TicketFilter для ListTickets. Нулевое значение возвращает все тикеты.
type TicketFilter struct {
	ClientID uint64
}

// Repository — хранилище тикетов и сообщений, упорядоченное по id.
// Реализации: in-memory (по умолчанию) и GORM (postgres/sqlite).
type Repository interface {
	// CreateTicket присваивает t.ID и t.Number.
	CreateTicket(ctx context.Context, t *model.Ticket) error
	GetTicket(ctx context.Context, id uint64) (*model.Ticket, error)
	// ListTickets returns tickets in insertion order.
	ListTickets(ctx context.Context, filter TicketFilter) ([]model.Ticket, error)
	UpdateTicket(ctx context.Context, t *model.Ticket) error

	// AddMessage присваивает m.ID.
	AddMessage(ctx context.Context, m *model.Message) error
	// ListMessages returns the messages of one ticket in insertion order.
	ListMessages(ctx context.Context, ticketID uint64) ([]model.Message, error)

	// InTx выполняет fn атомарно: если fn вернула ошибку, ни одна запись через tx не сохраняется.
	InTx(ctx context.Context, fn func(tx Repository) error) error
	// LockClient сериализует создание тикетов одного клиента до конца текущей транзакции,
	// в том числе между репликами сервиса. Вне InTx блокировка отпускается сразу.
	LockClient(ctx context.Context, clientID uint64) error
}
