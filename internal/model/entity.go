package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "Pendente"
	TicketStatusInProgress TicketStatus = "Em andamento"
	TicketStatusResolved   TicketStatus = "Resolvido"
	TicketStatusCancelled  TicketStatus = "Cancelado"
)

// IsOpen: тикет открыт, пока он в работе или ждёт агента.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusPending || s == TicketStatusInProgress
}

// IsClosed reports whether no further messages may be posted.
func (s TicketStatus) IsClosed() bool {
	return s == TicketStatusResolved || s == TicketStatusCancelled
}

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusCancelled:
		return true
	}
	return false
}

type Role string

const (
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
)

func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleClient
}

// UnassignedAgent пишется в agentName, пока тикет никто не взял.
const UnassignedAgent = "Não Atribuído"

const (
	DateLayout      = "02/01/2006"
	TimestampLayout = "02/01/2006 15:04"
)

// ticketNumberOffset: тикет 1 отображается как #00123.
const ticketNumberOffset = 122

// FormatTicketNumber возвращает отображаемый номер тикета по его id.
func FormatTicketNumber(id uint64) string {
	return fmt.Sprintf("#00%d", ticketNumberOffset+id)
}

type User struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type Ticket struct {
	ID          uint64       `gorm:"primaryKey" json:"id"`
	Number      string       `gorm:"-" json:"number"`
	Subject     string       `gorm:"type:varchar(255);not null" json:"subject"`
	Description string       `gorm:"type:text" json:"description"`
	Status      TicketStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	ClientID    uint64       `gorm:"index;not null" json:"clientId"`
	ClientName  string       `gorm:"type:varchar(255);not null" json:"clientName"`
	AgentName   string       `gorm:"type:varchar(255);not null" json:"agentName"`
	Date        string       `gorm:"type:varchar(16);not null" json:"date"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AfterFind заполняет Number: номер не хранится, а выводится из id.
func (t *Ticket) AfterFind(*gorm.DB) error {
	t.Number = FormatTicketNumber(t.ID)
	return nil
}

func (t *Ticket) AfterCreate(*gorm.DB) error {
	t.Number = FormatTicketNumber(t.ID)
	return nil
}

type Message struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	TicketID   uint64    `gorm:"index;not null" json:"ticketId"`
	Sender     string    `gorm:"type:varchar(255);not null" json:"sender"`
	SenderRole Role      `gorm:"type:varchar(16);not null" json:"senderRole"`
	Timestamp  string    `gorm:"type:varchar(32);not null" json:"timestamp"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TicketDetails — тикет вместе с историей сообщений.
type TicketDetails struct {
	Ticket
	History []Message `json:"history"`
}

// TicketClosure — результат resolve/cancel: обновлённый тикет и системное сообщение.
type TicketClosure struct {
	Ticket
	ClosureMessage Message `json:"closureMessage"`
}
