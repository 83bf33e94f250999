package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 7, 14, 5, 0, 0, time.UTC)

func newTestService(t *testing.T) (*TicketService, *repository.Memory) {
	t.Helper()
	repo := repository.NewMemory()
	svc := NewTicketService(repo, Options{Now: func() time.Time { return fixedNow }})
	return svc, repo
}

func clientUser(id uint64) model.User {
	return model.User{ID: id, Name: fmt.Sprintf("Cliente %d", id), Role: model.RoleClient}
}

func TestCreateTicket_StartsPendingWithOpeningMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, clientUser(2), "Sem acesso", "Não consigo acessar o painel desde ontem")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), ticket.ID)
	assert.Equal(t, "#00123", ticket.Number)
	assert.Equal(t, model.TicketStatusPending, ticket.Status)
	assert.Equal(t, model.UnassignedAgent, ticket.AgentName)
	assert.Equal(t, "07/03/2025", ticket.Date)

	details, err := svc.GetTicketDetails(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, details.History, 1)
	opening := details.History[0]
	assert.Equal(t, model.RoleClient, opening.SenderRole)
	assert.Equal(t, "Cliente 2", opening.Sender)
	assert.Equal(t, "07/03/2025 14:05", opening.Timestamp)
	assert.Equal(t, "Abertura de Chamado: Não consigo acessar o painel desde ontem...", opening.Text)
}

func TestCreateTicket_OpeningMessageTruncatesByRunes(t *testing.T) {
	svc, _ := newTestService(t)
	description := strings.Repeat("ç", 80)

	ticket, err := svc.CreateTicket(context.Background(), clientUser(2), "Longo", description)
	require.NoError(t, err)

	details, err := svc.GetTicketDetails(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Abertura de Chamado: "+strings.Repeat("ç", 50)+"...", details.History[0].Text)
}

func TestCreateTicket_RejectsClientWithOpenTicket(t *testing.T) {
	for _, status := range []model.TicketStatus{model.TicketStatusPending, model.TicketStatusInProgress} {
		t.Run(string(status), func(t *testing.T) {
			svc, repo := newTestService(t)
			ctx := context.Background()
			require.NoError(t, repo.CreateTicket(ctx, &model.Ticket{
				Subject: "Existente", Status: status, ClientID: 2, ClientName: "Cliente 2",
			}))

			_, err := svc.CreateTicket(ctx, clientUser(2), "Outro", "Mais um problema")
			assert.ErrorIs(t, err, errs.ErrOpenTicketExists)

			all, err := repo.ListTickets(ctx, repository.TicketFilter{})
			require.NoError(t, err)
			assert.Len(t, all, 1, "rejected ticket must not be stored")
		})
	}
}

func TestCreateTicket_ClosedTicketsDoNotBlock(t *testing.T) {
	for _, status := range []model.TicketStatus{model.TicketStatusResolved, model.TicketStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			svc, repo := newTestService(t)
			ctx := context.Background()
			require.NoError(t, repo.CreateTicket(ctx, &model.Ticket{
				Subject: "Antigo", Status: status, ClientID: 2, ClientName: "Cliente 2",
			}))

			_, err := svc.CreateTicket(ctx, clientUser(2), "Novo", "Outro problema")
			assert.NoError(t, err)
		})
	}
}

func TestCreateTicket_OpenTicketOfAnotherClientDoesNotBlock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateTicket(ctx, clientUser(2), "A", "desc")
	require.NoError(t, err)

	_, err = svc.CreateTicket(ctx, clientUser(3), "B", "desc")
	assert.NoError(t, err)
}

func TestCreateTicket_Validation(t *testing.T) {
	tests := []struct {
		name        string
		user        model.User
		subject     string
		description string
	}{
		{"missing user id", model.User{Name: "X"}, "s", "d"},
		{"missing user name", model.User{ID: 2}, "s", "d"},
		{"agent cannot open", model.User{ID: 1, Name: "Agente", Role: model.RoleAgent}, "s", "d"},
		{"blank subject", clientUser(2), "   ", "d"},
		{"blank description", clientUser(2), "s", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			_, err := svc.CreateTicket(context.Background(), tt.user, tt.subject, tt.description)
			assert.ErrorIs(t, err, errs.ErrInvalidInput)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
		})
	}
}

func TestListTickets_ClientSeesOnlyOwnTickets(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	for _, tk := range []model.Ticket{
		{Subject: "c2-a", Status: model.TicketStatusResolved, ClientID: 2},
		{Subject: "c3-a", Status: model.TicketStatusPending, ClientID: 3},
		{Subject: "c2-b", Status: model.TicketStatusResolved, ClientID: 2},
	} {
		tk := tk
		require.NoError(t, repo.CreateTicket(ctx, &tk))
	}

	items, meta, err := svc.ListTickets(ctx, 2, model.RoleClient)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, tk := range items {
		assert.Equal(t, uint64(2), tk.ClientID)
	}
	assert.Equal(t, "c2-a", items[0].Subject)
	assert.Equal(t, "c2-b", items[1].Subject)
	require.NotNil(t, meta)
	assert.False(t, meta.HasOpenTicket)

	items, meta, err = svc.ListTickets(ctx, 3, model.RoleClient)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, meta.HasOpenTicket)
}

func TestListTickets_AgentSeesAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateTicket(ctx, clientUser(2), "A", "d")
	require.NoError(t, err)
	_, err = svc.CreateTicket(ctx, clientUser(3), "B", "d")
	require.NoError(t, err)

	items, meta, err := svc.ListTickets(ctx, 1, model.RoleAgent)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Nil(t, meta)
}

func TestListTickets_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.ListTickets(context.Background(), 2, model.Role("admin"))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, _, err = svc.ListTickets(context.Background(), 0, model.RoleClient)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestGetTicketDetails_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetTicketDetails(context.Background(), 42)
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestGetTicketDetails_HistoryIsOwnMessagesInOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.CreateTicket(ctx, clientUser(2), "A", "da")
	require.NoError(t, err)
	b, err := svc.CreateTicket(ctx, clientUser(3), "B", "db")
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, a.ID, "Agente Silva", model.RoleAgent, "a-1")
	require.NoError(t, err)
	_, err = svc.PostMessage(ctx, b.ID, "Agente Silva", model.RoleAgent, "b-1")
	require.NoError(t, err)
	_, err = svc.PostMessage(ctx, a.ID, "Cliente 2", model.RoleClient, "a-2")
	require.NoError(t, err)

	details, err := svc.GetTicketDetails(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, details.History, 3)
	assert.Equal(t, "Abertura de Chamado: da...", details.History[0].Text)
	assert.Equal(t, "a-1", details.History[1].Text)
	assert.Equal(t, "a-2", details.History[2].Text)
	for i, m := range details.History {
		assert.Equal(t, a.ID, m.TicketID)
		if i > 0 {
			assert.Greater(t, m.ID, details.History[i-1].ID)
		}
	}
}

func TestPostMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ticket, err := svc.CreateTicket(ctx, clientUser(2), "A", "d")
	require.NoError(t, err)

	msg, err := svc.PostMessage(ctx, ticket.ID, "Agente Silva", model.RoleAgent, "Olá!")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), msg.ID, "ids are sequential across all messages")
	assert.Equal(t, ticket.ID, msg.TicketID)
	assert.Equal(t, model.RoleAgent, msg.SenderRole)
	assert.Equal(t, "07/03/2025 14:05", msg.Timestamp)

	_, err = svc.PostMessage(ctx, 99, "Agente Silva", model.RoleAgent, "Olá!")
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	_, err = svc.PostMessage(ctx, ticket.ID, "Agente Silva", model.RoleAgent, "  ")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = svc.PostMessage(ctx, ticket.ID, "Agente Silva", model.Role("bot"), "oi")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestPostMessage_RejectedOnClosedTicket(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resolved, err := svc.CreateTicket(ctx, clientUser(2), "A", "d")
	require.NoError(t, err)
	_, err = svc.ResolveTicket(ctx, resolved.ID, "Agente Silva")
	require.NoError(t, err)

	cancelled, err := svc.CreateTicket(ctx, clientUser(2), "B", "d")
	require.NoError(t, err)
	_, err = svc.CancelTicket(ctx, cancelled.ID, "Cliente 2")
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, resolved.ID, "Cliente 2", model.RoleClient, "ainda aí?")
	assert.ErrorIs(t, err, errs.ErrTicketResolved)
	_, err = svc.PostMessage(ctx, cancelled.ID, "Cliente 2", model.RoleClient, "ainda aí?")
	assert.ErrorIs(t, err, errs.ErrTicketCancelled)

	details, err := svc.GetTicketDetails(ctx, resolved.ID)
	require.NoError(t, err)
	assert.Len(t, details.History, 2, "opening + closure only")
}

func TestResolveTicket(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ticket, err := svc.CreateTicket(ctx, clientUser(2), "A", "d")
	require.NoError(t, err)

	closure, err := svc.ResolveTicket(ctx, ticket.ID, "Agente Silva")
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusResolved, closure.Status)
	assert.Equal(t, "Agente Silva", closure.AgentName)
	assert.Equal(t, "#00123", closure.Number)
	assert.Equal(t, model.RoleAgent, closure.ClosureMessage.SenderRole)
	assert.Equal(t, "Agente Silva", closure.ClosureMessage.Sender)
	assert.Equal(t, "Chamado concluído e resolvido pelo agente. O suporte foi encerrado.", closure.ClosureMessage.Text)

	details, err := svc.GetTicketDetails(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusResolved, details.Status)
	require.Len(t, details.History, 2)
	assert.Equal(t, closure.ClosureMessage, details.History[1])
}

func TestResolveTicket_AlreadyResolvedNeverDoubleApplies(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ticket, err := svc.CreateTicket(ctx, clientUser(2), "A", "d")
	require.NoError(t, err)
	_, err = svc.ResolveTicket(ctx, ticket.ID, "Agente Silva")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.ResolveTicket(ctx, ticket.ID, "Outro Agente")
		assert.ErrorIs(t, err, errs.ErrTicketResolved)
		assert.Equal(t, "Chamado já está resolvido.", errs.Message(err))
	}

	details, err := svc.GetTicketDetails(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, details.History, 2)
	assert.Equal(t, "Agente Silva", details.AgentName)
}

func TestResolveTicket_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ResolveTicket(ctx, 7, "Agente Silva")
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	ticket, err := svc.CreateTicket(ctx, clientUser(2), "A", "d")
	require.NoError(t, err)
	_, err = svc.ResolveTicket(ctx, ticket.ID, "")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = svc.CancelTicket(ctx, ticket.ID, "Cliente 2")
	require.NoError(t, err)
	_, err = svc.ResolveTicket(ctx, ticket.ID, "Agente Silva")
	assert.ErrorIs(t, err, errs.ErrTicketCancelled)
}

func TestCancelTicket(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ticket, err := svc.CreateTicket(ctx, clientUser(2), "A", "d")
	require.NoError(t, err)

	closure, err := svc.CancelTicket(ctx, ticket.ID, "Cliente 2")
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusCancelled, closure.Status)
	assert.Equal(t, model.UnassignedAgent, closure.AgentName)
	assert.Equal(t, model.RoleClient, closure.ClosureMessage.SenderRole)
	assert.Equal(t, "Cliente 2", closure.ClosureMessage.Sender)

	_, err = svc.CancelTicket(ctx, ticket.ID, "Cliente 2")
	assert.ErrorIs(t, err, errs.ErrTicketCancelled)

	_, err = svc.CancelTicket(ctx, 99, "Cliente 2")
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	resolved, err := svc.CreateTicket(ctx, clientUser(2), "B", "d")
	require.NoError(t, err, "cancelled ticket no longer counts as open")
	_, err = svc.ResolveTicket(ctx, resolved.ID, "Agente Silva")
	require.NoError(t, err)
	_, err = svc.CancelTicket(ctx, resolved.ID, "Cliente 2")
	assert.ErrorIs(t, err, errs.ErrTicketResolved)
}

func TestTicketLifecycle_EndToEnd(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	x := clientUser(5)

	first, err := svc.CreateTicket(ctx, x, "Primeiro", "d")
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusPending, first.Status)

	_, err = svc.CreateTicket(ctx, x, "Segundo", "d")
	require.ErrorIs(t, err, errs.ErrOpenTicketExists)

	closure, err := svc.ResolveTicket(ctx, first.ID, "Agente Silva")
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusResolved, closure.Status)
	assert.Equal(t, model.RoleAgent, closure.ClosureMessage.SenderRole)

	second, err := svc.CreateTicket(ctx, x, "Segundo", "d")
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusPending, second.Status)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateTicket_ConcurrentRequestsKeepOneOpenTicket(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.CreateTicket(ctx, clientUser(9), "Corrida", "d")
		}()
	}
	wg.Wait()

	items, err := repo.ListTickets(ctx, repository.TicketFilter{ClientID: 9})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSimulatedLatency_HonoursContext(t *testing.T) {
	svc := NewTicketService(repository.NewMemory(), Options{Latency: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetTicketDetails(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
