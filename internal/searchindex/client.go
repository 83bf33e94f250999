package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/model"
)

const indexTicketPath = "/search/index/ticket"

// Client пушит тикеты в search-service. Ошибки только логируются: поиск не должен ронять API.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient с пустым baseURL даёт выключенный клиент.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// IndexTicketPayload — тело POST /search/index/ticket.
type IndexTicketPayload struct {
	TicketID    uint64 `json:"ticket_id"`
	Number      string `json:"number"`
	ClientID    uint64 `json:"client_id"`
	ClientName  string `json:"client_name"`
	AgentName   string `json:"agent_name"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func newIndexTicketPayload(t *model.Ticket) IndexTicketPayload {
	return IndexTicketPayload{
		TicketID:    t.ID,
		Number:      t.Number,
		ClientID:    t.ClientID,
		ClientName:  t.ClientName,
		AgentName:   t.AgentName,
		Subject:     t.Subject,
		Description: t.Description,
		Status:      string(t.Status),
	}
}

// IndexTicket returns false when the ticket was not indexed, including when the client is disabled.
func (c *Client) IndexTicket(ctx context.Context, t *model.Ticket) bool {
	if !c.Enabled() {
		return false
	}
	if err := c.postJSON(ctx, indexTicketPath, newIndexTicketPayload(t)); err != nil {
		log.Printf("searchindex: ticket %d: %v", t.ID, err)
		return false
	}
	return true
}

// IndexTicketAsync indexes a copy of t in the background with its own timeout.
func (c *Client) IndexTicketAsync(t *model.Ticket) {
	if !c.Enabled() {
		return
	}
	snapshot := *t
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.IndexTicket(ctx, &snapshot)
	}()
}

func (c *Client) postJSON(ctx context.Context, path string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
