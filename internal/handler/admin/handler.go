package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/internal/service/advisor"
	"github.com/queuedesk/ticketero/internal/service/dashboard"
	"github.com/queuedesk/ticketero/internal/service/queue"
	"github.com/queuedesk/ticketero/pkg/errors"
	"github.com/queuedesk/ticketero/pkg/httputil"
)

type Handler struct {
	dashboard *dashboard.Service
	advisors  *advisor.Service
	queue     *queue.Service
}

func NewHandler(dashboard *dashboard.Service, advisors *advisor.Service, queue *queue.Service) *Handler {
	return &Handler{
		dashboard: dashboard,
		advisors:  advisors,
		queue:     queue,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.Dashboard)

	advisors := r.Group("/advisors")
	{
		advisors.GET("", h.ListAdvisors)
		advisors.GET("/available", h.ListAvailableAdvisors)
		advisors.GET("/:id", h.GetAdvisor)
		advisors.PUT("/:id/status", h.UpdateAdvisorStatus)
	}

	tickets := r.Group("/tickets")
	{
		tickets.POST("/:id/complete", h.CompleteTicket)
		tickets.POST("/:id/cancel", h.CancelTicket)
		tickets.POST("/:id/no-show", h.MarkTicketNoShow)
	}

	r.POST("/queues/process", h.ProcessQueues)
}

func (h *Handler) Dashboard(c *gin.Context) {
	metrics, err := h.dashboard.Metrics(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, metrics)
}

func (h *Handler) ListAdvisors(c *gin.Context) {
	ctx := c.Request.Context()

	if status := c.Query("status"); status != "" {
		advisorStatus := model.AdvisorStatus(status)
		if !advisorStatus.Valid() {
			httputil.RespondWithError(c, errors.BadRequest("invalid advisor status", nil))
			return
		}

		advisors, err := h.advisors.ListByStatus(ctx, advisorStatus)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, advisors)
		return
	}

	advisors, err := h.advisors.List(ctx)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, advisors)
}

// ListAvailableAdvisors returns available advisors least loaded first,
// the same order the assignment engine picks them in.
func (h *Handler) ListAvailableAdvisors(c *gin.Context) {
	advisors, err := h.advisors.ListAvailable(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, advisors)
}

func (h *Handler) GetAdvisor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid advisor ID", err))
		return
	}

	adv, err := h.advisors.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, adv)
}

func (h *Handler) UpdateAdvisorStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid advisor ID", err))
		return
	}

	var req model.UpdateAdvisorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid request body", err))
		return
	}

	adv, err := h.advisors.UpdateStatus(c.Request.Context(), id, model.AdvisorStatus(req.Status))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, adv)
}

func (h *Handler) CompleteTicket(c *gin.Context) {
	h.finishTicket(c, h.queue.Complete)
}

func (h *Handler) CancelTicket(c *gin.Context) {
	h.finishTicket(c, h.queue.Cancel)
}

func (h *Handler) MarkTicketNoShow(c *gin.Context) {
	h.finishTicket(c, h.queue.MarkNoShow)
}

func (h *Handler) finishTicket(c *gin.Context, op func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid ticket ID", err))
		return
	}

	if err := op(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, nil)
}

// ProcessQueues triggers an immediate reconciliation pass outside the
// worker's schedule.
func (h *Handler) ProcessQueues(c *gin.Context) {
	if err := h.queue.Reconcile(c.Request.Context()); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, nil)
}
