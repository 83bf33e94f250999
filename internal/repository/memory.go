package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// Memory хранит данные в памяти процесса; всё теряется при рестарте.
type Memory struct {
	// txMu сериализует записи: одиночные и целые транзакции.
	txMu sync.Mutex
	mu   sync.RWMutex

	tickets      map[uint64]*model.Ticket
	ticketOrder  []uint64
	messages     []model.Message
	nextTicketID uint64
	nextMsgID    uint64
}

func NewMemory() *Memory {
	return &Memory{
		tickets:      make(map[uint64]*model.Ticket),
		nextTicketID: 1,
		nextMsgID:    1,
	}
}

func (r *Memory) CreateTicket(_ context.Context, t *model.Ticket) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	_, err := r.createTicket(t)
	return err
}

func (r *Memory) GetTicket(_ context.Context, id uint64) (*model.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	out := *t
	return &out, nil
}

func (r *Memory) ListTickets(_ context.Context, filter TicketFilter) ([]model.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Ticket, 0, len(r.ticketOrder))
	for _, id := range r.ticketOrder {
		t := r.tickets[id]
		if filter.ClientID != 0 && t.ClientID != filter.ClientID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *Memory) UpdateTicket(_ context.Context, t *model.Ticket) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	_, err := r.updateTicket(t)
	return err
}

func (r *Memory) AddMessage(_ context.Context, m *model.Message) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.addMessage(m)
	return nil
}

func (r *Memory) ListMessages(_ context.Context, ticketID uint64) ([]model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Message, 0)
	for _, m := range r.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

// InTx держит txMu всю транзакцию и при ошибке откатывает записи в обратном порядке.
func (r *Memory) InTx(ctx context.Context, fn func(tx Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	tx := &memoryTx{Memory: r}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// LockClient ничего не делает: InTx уже сериализует все записи процесса.
func (r *Memory) LockClient(context.Context, uint64) error {
	return nil
}

// Методы ниже вызываются под txMu и возвращают функцию отката.

func (r *Memory) createTicket(t *model.Ticket) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == 0 {
		t.ID = r.nextTicketID
	}
	if _, ok := r.tickets[t.ID]; ok {
		return nil, fmt.Errorf("memory: ticket %d already exists", t.ID)
	}
	prevNext, prevLen := r.nextTicketID, len(r.ticketOrder)
	if t.ID >= r.nextTicketID {
		r.nextTicketID = t.ID + 1
	}
	t.Number = model.FormatTicketNumber(t.ID)
	stored := *t
	r.tickets[t.ID] = &stored
	r.ticketOrder = append(r.ticketOrder, t.ID)
	id := t.ID
	return func() {
		delete(r.tickets, id)
		r.ticketOrder = r.ticketOrder[:prevLen]
		r.nextTicketID = prevNext
	}, nil
}

func (r *Memory) updateTicket(t *model.Ticket) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.tickets[t.ID]
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	stored := *t
	stored.Number = model.FormatTicketNumber(t.ID)
	r.tickets[t.ID] = &stored
	return func() { r.tickets[prev.ID] = prev }, nil
}

func (r *Memory) addMessage(m *model.Message) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	prevNext, prevLen := r.nextMsgID, len(r.messages)
	if m.ID == 0 {
		m.ID = r.nextMsgID
	}
	if m.ID >= r.nextMsgID {
		r.nextMsgID = m.ID + 1
	}
	r.messages = append(r.messages, *m)
	return func() {
		r.messages = r.messages[:prevLen]
		r.nextMsgID = prevNext
	}
}

// memoryTx пишет мимо txMu (его держит InTx) и копит журнал отката.
type memoryTx struct {
	*Memory
	undo []func()
}

func (tx *memoryTx) CreateTicket(_ context.Context, t *model.Ticket) error {
	undo, err := tx.createTicket(t)
	if err != nil {
		return err
	}
	tx.undo = append(tx.undo, undo)
	return nil
}

func (tx *memoryTx) UpdateTicket(_ context.Context, t *model.Ticket) error {
	undo, err := tx.updateTicket(t)
	if err != nil {
		return err
	}
	tx.undo = append(tx.undo, undo)
	return nil
}

func (tx *memoryTx) AddMessage(_ context.Context, m *model.Message) error {
	tx.undo = append(tx.undo, tx.addMessage(m))
	return nil
}

// InTx внутри транзакции: вложенная часть откатывается вместе с внешней.
func (tx *memoryTx) InTx(_ context.Context, fn func(tx Repository) error) error {
	mark := len(tx.undo)
	if err := fn(tx); err != nil {
		tx.rollbackTo(mark)
		return err
	}
	return nil
}

func (tx *memoryTx) rollback() {
	tx.rollbackTo(0)
}

func (tx *memoryTx) rollbackTo(mark int) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for i := len(tx.undo) - 1; i >= mark; i-- {
		tx.undo[i]()
	}
	tx.undo = tx.undo[:mark]
}
