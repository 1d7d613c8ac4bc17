package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/service/stats"
)

type Handler struct {
	svc *stats.Service
}

func NewHandler(svc *stats.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes expects a group already restricted to administrators.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/stats", h.GetStats)
}

func (h *Handler) GetStats(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
