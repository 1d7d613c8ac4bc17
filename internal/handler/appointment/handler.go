package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/service/appointment"
)

type Handler struct {
	svc *appointment.Service
}

func NewHandler(svc *appointment.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts every appointment route on the authenticated group.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	appointments := protected.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.PATCH("/:id/consult", h.CompleteConsultation)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(err))
		return
	}

	appt, err := h.svc.Book(c.Request.Context(), actor, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, appt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	appointments, err := h.svc.List(c.Request.Context(), actor)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, appointments)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, err := handler.PathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	appt, err := h.svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, err := handler.PathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(err))
		return
	}

	appt, err := h.svc.SetStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

func (h *Handler) CompleteConsultation(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, err := handler.PathID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.ConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(err))
		return
	}

	appt, err := h.svc.CompleteConsultation(c.Request.Context(), actor, id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, appt)
}
