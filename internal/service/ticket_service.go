package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
)

const (
	openingPreviewRunes = 50
	openingPrefix       = "Abertura de Chamado: "
	resolvedText        = "Chamado concluído e resolvido pelo agente. O suporte foi encerrado."
	cancelledText       = "Chamado cancelado pelo cliente."
)

// TicketServicer — интерфейс для handler Deps (Dependency Inversion).
type TicketServicer interface {
	ListTickets(ctx context.Context, userID uint64, role model.Role) ([]model.Ticket, *ListMeta, error)
	CreateTicket(ctx context.Context, user model.User, subject, description string) (*model.Ticket, error)
	GetTicketDetails(ctx context.Context, id uint64) (*model.TicketDetails, error)
	PostMessage(ctx context.Context, ticketID uint64, sender string, role model.Role, text string) (*model.Message, error)
	ResolveTicket(ctx context.Context, id uint64, agentName string) (*model.TicketClosure, error)
	CancelTicket(ctx context.Context, id uint64, actorName string) (*model.TicketClosure, error)
}

// ListMeta возвращается только клиенту.
type ListMeta struct {
	HasOpenTicket bool `json:"hasOpenTicket"`
}

// Options — необязательные зависимости сервиса.
type Options struct {
	// Now подменяется в тестах; по умолчанию time.Now.
	Now func() time.Time
	// Latency включает искусственные задержки операций.
	Latency bool
	Metrics *metrics.Metrics
}

// TicketService применяет бизнес-правила поверх репозитория.
// Все изменяющие операции выполняются под одним мьютексом: один писатель на процесс.
type TicketService struct {
	repo    repository.Repository
	mu      sync.Mutex
	now     func() time.Time
	latency bool
	metrics *metrics.Metrics
}

func NewTicketService(repo repository.Repository, opts Options) *TicketService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		repo:    repo,
		now:     now,
		latency: opts.Latency,
		metrics: opts.Metrics,
	}
}

func (s *TicketService) ListTickets(ctx context.Context, userID uint64, role model.Role) ([]model.Ticket, *ListMeta, error) {
	if err := s.delay(ctx, delayList); err != nil {
		return nil, nil, err
	}
	switch role {
	case model.RoleAgent:
		items, err := s.repo.ListTickets(ctx, repository.TicketFilter{})
		if err != nil {
			return nil, nil, fmt.Errorf("list tickets: %w", err)
		}
		return items, nil, nil
	case model.RoleClient:
		if userID == 0 {
			return nil, nil, s.reject(fmt.Errorf("%w: userId is required", errs.ErrInvalidInput))
		}
		items, err := s.repo.ListTickets(ctx, repository.TicketFilter{ClientID: userID})
		if err != nil {
			return nil, nil, fmt.Errorf("list tickets: %w", err)
		}
		return items, &ListMeta{HasOpenTicket: hasOpenTicket(items)}, nil
	}
	return nil, nil, s.reject(fmt.Errorf("%w: unknown role %q", errs.ErrInvalidInput, role))
}

func (s *TicketService) CreateTicket(ctx context.Context, user model.User, subject, description string) (*model.Ticket, error) {
	if err := s.delay(ctx, delayCreate); err != nil {
		return nil, err
	}
	switch {
	case user.ID == 0 || strings.TrimSpace(user.Name) == "":
		return nil, s.reject(fmt.Errorf("%w: user id and name are required", errs.ErrInvalidInput))
	case user.Role == model.RoleAgent:
		return nil, s.reject(fmt.Errorf("%w: only clients open tickets", errs.ErrInvalidInput))
	case strings.TrimSpace(subject) == "":
		return nil, s.reject(fmt.Errorf("%w: subject is required", errs.ErrInvalidInput))
	case strings.TrimSpace(description) == "":
		return nil, s.reject(fmt.Errorf("%w: description is required", errs.ErrInvalidInput))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := &model.Ticket{
		Subject:     subject,
		Description: description,
		Status:      model.TicketStatusPending,
		ClientID:    user.ID,
		ClientName:  user.Name,
		AgentName:   model.UnassignedAgent,
		Date:        now.Format(model.DateLayout),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.repo.InTx(ctx, func(tx repository.Repository) error {
		if err := tx.LockClient(ctx, user.ID); err != nil {
			return fmt.Errorf("lock client %d: %w", user.ID, err)
		}
		own, err := tx.ListTickets(ctx, repository.TicketFilter{ClientID: user.ID})
		if err != nil {
			return fmt.Errorf("list client tickets: %w", err)
		}
		if hasOpenTicket(own) {
			return s.reject(errs.ErrOpenTicketExists)
		}
		if err := tx.CreateTicket(ctx, t); err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		opening := &model.Message{
			TicketID:   t.ID,
			Sender:     user.Name,
			SenderRole: model.RoleClient,
			Timestamp:  now.Format(model.TimestampLayout),
			Text:       openingPrefix + truncateRunes(description, openingPreviewRunes) + "...",
			CreatedAt:  now,
		}
		if err := tx.AddMessage(ctx, opening); err != nil {
			return fmt.Errorf("add opening message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.TicketCreated()
	s.metrics.MessagePosted(string(model.RoleClient))
	return t, nil
}

func (s *TicketService) GetTicketDetails(ctx context.Context, id uint64) (*model.TicketDetails, error) {
	if err := s.delay(ctx, delayDetails); err != nil {
		return nil, err
	}
	t, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get ticket %d: %w", id, err)
	}
	history, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &model.TicketDetails{Ticket: *t, History: history}, nil
}

// PostMessage добавляет сообщение в чат тикета. В закрытый (решённый или отменённый) тикет писать нельзя.
func (s *TicketService) PostMessage(ctx context.Context, ticketID uint64, sender string, role model.Role, text string) (*model.Message, error) {
	if err := s.delay(ctx, delayMessage); err != nil {
		return nil, err
	}
	switch {
	case !role.Valid():
		return nil, s.reject(fmt.Errorf("%w: unknown role %q", errs.ErrInvalidInput, role))
	case strings.TrimSpace(sender) == "":
		return nil, s.reject(fmt.Errorf("%w: sender is required", errs.ErrInvalidInput))
	case strings.TrimSpace(text) == "":
		return nil, s.reject(fmt.Errorf("%w: text is required", errs.ErrInvalidInput))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("get ticket %d: %w", ticketID, err)
	}
	if err := closedErr(t.Status); err != nil {
		return nil, s.reject(err)
	}
	now := s.now()
	m := &model.Message{
		TicketID:   ticketID,
		Sender:     sender,
		SenderRole: role,
		Timestamp:  now.Format(model.TimestampLayout),
		Text:       text,
		CreatedAt:  now,
	}
	if err := s.repo.AddMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	s.metrics.MessagePosted(string(role))
	return m, nil
}

func (s *TicketService) ResolveTicket(ctx context.Context, id uint64, agentName string) (*model.TicketClosure, error) {
	if err := s.delay(ctx, delayClose); err != nil {
		return nil, err
	}
	if strings.TrimSpace(agentName) == "" {
		return nil, s.reject(fmt.Errorf("%w: agentName is required", errs.ErrInvalidInput))
	}
	return s.close(ctx, id, model.TicketStatusResolved, agentName, model.RoleAgent, resolvedText)
}

// CancelTicket меняет статус на Cancelado, тикет не удаляется.
func (s *TicketService) CancelTicket(ctx context.Context, id uint64, actorName string) (*model.TicketClosure, error) {
	if err := s.delay(ctx, delayClose); err != nil {
		return nil, err
	}
	if strings.TrimSpace(actorName) == "" {
		return nil, s.reject(fmt.Errorf("%w: actorName is required", errs.ErrInvalidInput))
	}
	return s.close(ctx, id, model.TicketStatusCancelled, actorName, model.RoleClient, cancelledText)
}

func (s *TicketService) close(ctx context.Context, id uint64, status model.TicketStatus, actor string, role model.Role, text string) (*model.TicketClosure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closure model.TicketClosure
	err := s.repo.InTx(ctx, func(tx repository.Repository) error {
		t, err := tx.GetTicket(ctx, id)
		if err != nil {
			return fmt.Errorf("get ticket %d: %w", id, err)
		}
		if err := closedErr(t.Status); err != nil {
			return s.reject(err)
		}
		now := s.now()
		t.Status = status
		if status == model.TicketStatusResolved {
			t.AgentName = actor
		}
		t.UpdatedAt = now
		if err := tx.UpdateTicket(ctx, t); err != nil {
			return fmt.Errorf("update ticket %d: %w", id, err)
		}
		m := model.Message{
			TicketID:   id,
			Sender:     actor,
			SenderRole: role,
			Timestamp:  now.Format(model.TimestampLayout),
			Text:       text,
			CreatedAt:  now,
		}
		if err := tx.AddMessage(ctx, &m); err != nil {
			return fmt.Errorf("add closure message: %w", err)
		}
		closure = model.TicketClosure{Ticket: *t, ClosureMessage: m}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.TicketClosed(string(status))
	s.metrics.MessagePosted(string(role))
	return &closure, nil
}

// reject учитывает отказ в метриках и возвращает ошибку без изменений.
func (s *TicketService) reject(err error) error {
	s.metrics.Rejected(errs.Code(err))
	return err
}

func closedErr(status model.TicketStatus) error {
	switch status {
	case model.TicketStatusResolved:
		return errs.ErrTicketResolved
	case model.TicketStatusCancelled:
		return errs.ErrTicketCancelled
	}
	return nil
}

func hasOpenTicket(items []model.Ticket) bool {
	for i := range items {
		if items[i].Status.IsOpen() {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
