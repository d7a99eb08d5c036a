// Package http exposes the stored conversation history over a read-only
// HTTP API for the serve command.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gmartinez/chatcli/internal/domain"
	"github.com/gmartinez/chatcli/internal/store"
)

// Handler handles HTTP requests against the message store.
type Handler struct {
	store store.Store
}

// NewHandler creates a new handler.
func NewHandler(st store.Store) *Handler {
	return &Handler{store: st}
}

// RegisterRoutes registers the read-only history routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/messages", h.GetMessages)
	e.GET("/v1/conversations/current", h.GetCurrentConversation)
	e.GET("/v1/summary", h.GetSummary)
	e.GET("/health", h.Health)
}

// GetCurrentConversation returns the latest conversation epoch.
// GET /v1/conversations/current
func (h *Handler) GetCurrentConversation(c echo.Context) error {
	conv, err := h.store.CurrentConversation(c.Request().Context())
	if err != nil {
		return h.storeError(c, err)
	}
	if conv == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no conversation started"})
	}
	return c.JSON(http.StatusOK, conv)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// GetMessages returns one page of stored messages.
// GET /v1/messages?limit=&offset=&search=&role=&current=
func (h *Handler) GetMessages(c echo.Context) error {
	filter := domain.QueryFilter{
		Limit:  50,
		Search: c.QueryParam("search"),
		Role:   c.QueryParam("role"),
	}
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			filter.Limit = val
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil {
			filter.Offset = val
		}
	}
	if cur := c.QueryParam("current"); cur != "" {
		if val, err := strconv.ParseBool(cur); err == nil {
			filter.CurrentConversationOnly = val
		}
	}

	messages, total, err := h.store.Messages(c.Request().Context(), filter)
	if err != nil {
		return h.storeError(c, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
		"total":    total,
	})
}

// GetSummary returns aggregate history statistics.
// GET /v1/summary
func (h *Handler) GetSummary(c echo.Context) error {
	summary, err := h.store.Summary(c.Request().Context())
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// storeError maps store failures to HTTP statuses: validation errors are the
// caller's fault, storage errors are ours.
func (h *Handler) storeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	if errors.Is(err, store.ErrInvalidInput) {
		status = http.StatusBadRequest
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
