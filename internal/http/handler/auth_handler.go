package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/fintrack-auth/internal/config"
	"github.com/smallbiznis/fintrack-auth/internal/http/middleware"
	"github.com/smallbiznis/fintrack-auth/internal/http/response"
	"github.com/smallbiznis/fintrack-auth/internal/service"
)

// AuthHandler serves the account endpoints.
type AuthHandler struct {
	Auth        *service.AuthService
	environment string
	startedAt   time.Time
	logger      *zap.Logger
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, cfg config.Config, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &AuthHandler{
		Auth:        auth,
		environment: cfg.Environment,
		startedAt:   time.Now(),
		logger:      logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and returns a token for it.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := h.Auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.OK(c, http.StatusCreated, "User registered successfully", result)
}

// Login exchanges credentials for a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.OK(c, http.StatusOK, "Login successful", result)
}

// Me returns the caller. Requires middleware.Auth.RequireIdentity.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "Authentication required.")
		return
	}

	user, err := h.Auth.GetCurrentUser(c.Request.Context(), identity.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.OK(c, http.StatusOK, "", gin.H{"user": user})
}

// Health reports liveness.
func (h *AuthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     fmt.Sprintf("Server is healthy - %s mode", h.environment),
		"environment": h.environment,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.startedAt).Seconds(),
	})
}

// NotFound answers unknown routes.
func (h *AuthHandler) NotFound(c *gin.Context) {
	response.Fail(c, http.StatusNotFound, "Route not found")
}

func (h *AuthHandler) respondError(c *gin.Context, err error) {
	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		response.Fail(c, authErr.Status, authErr.Message)
		return
	}
	_ = c.Error(err)
	middleware.Logger(c, h.logger).Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	response.Fail(c, http.StatusInternalServerError, "Internal server error")
}
