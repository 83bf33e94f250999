package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/searchindex"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// Deps — зависимости обработчиков тикетов.
type Deps struct {
	Ticket   service.TicketServicer
	Producer kafka.TicketEventProducer
	Search   *searchindex.Client
}

type TicketHandler struct {
	Deps
}

func NewTicketHandler(deps Deps) *TicketHandler {
	return &TicketHandler{Deps: deps}
}

// publish отправляет событие в фоне: оно должно уйти даже при отмене запроса, но с таймаутом.
func (h *TicketHandler) publish(event string, payload map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Producer.ProduceTicketEvent(ctx, event, payload)
	}()
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *TicketHandler) List(c *gin.Context) {
	var userID uint64
	if v := c.Query("userId"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			badRequest(c, "invalid userId")
			return
		}
		userID = parsed
	}
	items, meta, err := h.Ticket.ListTickets(c.Request.Context(), userID, model.Role(c.Query("role")))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"data": items}
	if meta != nil {
		resp["meta"] = meta
	}
	c.JSON(http.StatusOK, resp)
}

type createTicketRequest struct {
	User        model.User `json:"user"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	ticket, err := h.Ticket.CreateTicket(c.Request.Context(), req.User, req.Subject, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Search.IndexTicketAsync(ticket)
	h.publish(kafka.EventTicketCreated, kafka.TicketPayload(ticket))
	c.JSON(http.StatusCreated, gin.H{"data": ticket})
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	details, err := h.Ticket.GetTicketDetails(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": details})
}

type postMessageRequest struct {
	Sender     string     `json:"sender"`
	SenderRole model.Role `json:"senderRole"`
	Text       string     `json:"text"`
}

func (h *TicketHandler) PostMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	msg, err := h.Ticket.PostMessage(c.Request.Context(), id, req.Sender, req.SenderRole, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(kafka.EventMessageSent, kafka.MessagePayload(msg))
	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

type resolveTicketRequest struct {
	AgentName string `json:"agentName"`
}

func (h *TicketHandler) Resolve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req resolveTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	closure, err := h.Ticket.ResolveTicket(c.Request.Context(), id, req.AgentName)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Search.IndexTicketAsync(&closure.Ticket)
	h.publish(kafka.EventTicketResolved, kafka.TicketPayload(&closure.Ticket))
	c.JSON(http.StatusOK, gin.H{"data": closure})
}

type cancelTicketRequest struct {
	ActorName string `json:"actorName"`
}

func (h *TicketHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req cancelTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	closure, err := h.Ticket.CancelTicket(c.Request.Context(), id, req.ActorName)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Search.IndexTicketAsync(&closure.Ticket)
	h.publish(kafka.EventTicketCancelled, kafka.TicketPayload(&closure.Ticket))
	c.JSON(http.StatusOK, gin.H{"data": closure})
}
