package ticket

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/internal/service/ticket"
	"github.com/queuedesk/ticketero/pkg/errors"
	"github.com/queuedesk/ticketero/pkg/httputil"
)

type Handler struct {
	service *ticket.Service
}

func NewHandler(service *ticket.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tickets := r.Group("/tickets")
	{
		tickets.POST("", h.CreateTicket)
		tickets.GET("", h.ListTickets)
		tickets.GET("/:id", h.GetTicket)
		tickets.GET("/reference/:code", h.GetTicketByReference)
		tickets.GET("/number/:number", h.GetTicketByNumber)
	}

	r.GET("/queues/:type/tickets", h.ListQueueTickets)
}

func (h *Handler) CreateTicket(c *gin.Context) {
	var req model.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	t, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, t)
}

func (h *Handler) GetTicket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid ticket ID", err))
		return
	}

	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, t)
}

// GetTicketByReference resolves the opaque code printed on the
// customer's ticket receipt.
func (h *Handler) GetTicketByReference(c *gin.Context) {
	code, err := uuid.Parse(c.Param("code"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid reference code", err))
		return
	}

	t, err := h.service.GetByReferenceCode(c.Request.Context(), code)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, t)
}

func (h *Handler) GetTicketByNumber(c *gin.Context) {
	t, err := h.service.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, t)
}

func (h *Handler) ListTickets(c *gin.Context) {
	status := model.TicketStatus(c.Query("status"))
	if !status.Valid() {
		httputil.RespondWithError(c, errors.BadRequest(fmt.Sprintf("invalid ticket status: %q", c.Query("status")), nil))
		return
	}

	tickets, err := h.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, tickets)
}

func (h *Handler) ListQueueTickets(c *gin.Context) {
	queueType := model.QueueType(c.Param("type"))
	if !queueType.Valid() {
		httputil.RespondWithError(c, errors.BadRequest(fmt.Sprintf("invalid queue type: %q", c.Param("type")), nil))
		return
	}

	tickets, err := h.service.ListActiveByQueueType(c.Request.Context(), queueType)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, tickets)
}
