package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/service/auth"
	"github.com/jwalitptl/hospital-api/internal/service/user"
)

type Handler struct {
	svc   *auth.Service
	users *user.Service
}

func NewHandler(svc *auth.Service, users *user.Service) *Handler {
	return &Handler{svc: svc, users: users}
}

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	open := public.Group("/auth")
	{
		open.POST("/register", h.Register)
		open.POST("/login", h.Login)
	}

	session := protected.Group("/auth")
	{
		session.POST("/logout", h.Logout)
		session.GET("/me", h.Me)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(err))
		return
	}

	session, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(err))
		return
	}

	session, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) Logout(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.svc.Logout(c.Request.Context(), actor); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Me returns the caller joined with their profile.
func (h *Handler) Me(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	u, err := h.users.Get(c.Request.Context(), actor.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, u)
}
