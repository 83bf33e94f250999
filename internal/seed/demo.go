// Package seed загружает демонстрационные тикеты и сообщения в пустое хранилище.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.November, day, hour, minute, 0, 0, time.Local)
}

func demoTickets() []model.Ticket {
	agent, client := service.DemoAgent, service.DemoClient
	mk := func(subject, description string, status model.TicketStatus, agentName string, created time.Time) model.Ticket {
		return model.Ticket{
			Subject:     subject,
			Description: description,
			Status:      status,
			ClientID:    client.ID,
			ClientName:  client.Name,
			AgentName:   agentName,
			Date:        created.Format(model.DateLayout),
			CreatedAt:   created,
			UpdatedAt:   created,
		}
	}
	return []model.Ticket{
		mk("Problema com login", "Descrição do problema 1", model.TicketStatusResolved, agent.Name, at(15, 9, 55)),
		mk("Dúvida sobre fatura", "Descrição do problema 2", model.TicketStatusInProgress, agent.Name, at(16, 13, 55)),
		mk("Solicitação de reembolso", "Descrição do problema 3", model.TicketStatusPending, model.UnassignedAgent, at(17, 8, 30)),
	}
}

// demoMessage ссылается на тикет по его индексу в demoTickets.
type demoMessage struct {
	ticket int
	msg    model.Message
}

func demoMessages() []demoMessage {
	agent, client := service.DemoAgent, service.DemoClient
	mk := func(ticket int, u model.User, created time.Time, text string) demoMessage {
		return demoMessage{ticket: ticket, msg: model.Message{
			Sender:     u.Name,
			SenderRole: u.Role,
			Timestamp:  created.Format(model.TimestampLayout),
			Text:       text,
			CreatedAt:  created,
		}}
	}
	return []demoMessage{
		mk(0, client, at(15, 10, 0), "Meu login parou de funcionar do nada. Preciso de ajuda urgente."),
		mk(0, agent, at(15, 10, 15), "Olá João! Recebemos seu chamado #00123. Você consegue me informar se o problema persiste em outro navegador?"),
		mk(1, agent, at(16, 14, 0), "Obrigado por nos contatar sobre a fatura. Qual o período em questão?"),
		mk(1, client, at(16, 14, 30), "É a fatura de Setembro/2024."),
	}
}

// Load кладёт демо-данные, только если хранилище пустое. Возвращает true, если данные загружены.
func Load(ctx context.Context, repo repository.Repository) (bool, error) {
	existing, err := repo.ListTickets(ctx, repository.TicketFilter{})
	if err != nil {
		return false, fmt.Errorf("seed: list tickets: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("seed: store already has %d tickets, skipping", len(existing))
		return false, nil
	}
	tickets := demoTickets()
	for i := range tickets {
		if err := repo.CreateTicket(ctx, &tickets[i]); err != nil {
			return false, fmt.Errorf("seed: create ticket %q: %w", tickets[i].Subject, err)
		}
	}
	msgs := demoMessages()
	for _, dm := range msgs {
		m := dm.msg
		m.TicketID = tickets[dm.ticket].ID
		if err := repo.AddMessage(ctx, &m); err != nil {
			return false, fmt.Errorf("seed: add message: %w", err)
		}
	}
	log.Printf("seed: loaded %d tickets and %d messages", len(tickets), len(msgs))
	return true, nil
}
