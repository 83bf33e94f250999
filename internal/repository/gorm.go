package repository

import (
	"context"
	"errors"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm — реализация Repository поверх GORM (postgres или sqlite).
type Gorm struct {
	db *gorm.DB
	// inTx: GetTicket внутри InTx блокирует строку до конца транзакции (postgres).
	inTx bool
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// InTx открывает транзакцию GORM; fn получает репозиторий поверх неё.
// Внутри уже открытой транзакции GORM использует savepoint.
func (r *Gorm) InTx(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx, inTx: true})
	})
}

// LockClient берёт pg_advisory_xact_lock по id клиента, блокировка снимается с концом транзакции.
// В sqlite записи сериализует сама база.
func (r *Gorm) LockClient(ctx context.Context, clientID uint64) error {
	if !r.isPostgres() {
		return nil
	}
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", int64(clientID)).Error
}

func (r *Gorm) isPostgres() bool {
	return r.db.Dialector.Name() == "postgres"
}

func (r *Gorm) CreateTicket(ctx context.Context, t *model.Ticket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Gorm) GetTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	q := r.db.WithContext(ctx)
	if r.inTx && r.isPostgres() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Gorm) ListTickets(ctx context.Context, filter TicketFilter) ([]model.Ticket, error) {
	items := make([]model.Ticket, 0)
	tx := r.db.WithContext(ctx).Model(&model.Ticket{})
	if filter.ClientID != 0 {
		tx = tx.Where("client_id = ?", filter.ClientID)
	}
	if err := tx.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Gorm) UpdateTicket(ctx context.Context, t *model.Ticket) error {
	res := r.db.WithContext(ctx).Model(&model.Ticket{ID: t.ID}).Updates(map[string]interface{}{
		"subject":     t.Subject,
		"description": t.Description,
		"status":      string(t.Status),
		"agent_name":  t.AgentName,
		"updated_at":  t.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrTicketNotFound
	}
	return nil
}

func (r *Gorm) AddMessage(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Gorm) ListMessages(ctx context.Context, ticketID uint64) ([]model.Message, error) {
	items := make([]model.Message, 0)
	if err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
