package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go-railway-reservation/internal/model"
	"go-railway-reservation/internal/service"
	apperrors "go-railway-reservation/pkg/app_errors"
	"go-railway-reservation/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WaitlistHandler struct {
	service service.WaitlistService
}

func NewWaitlistHandler(service service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{service: service}
}

func (h *WaitlistHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("waitlist", h.GetWaitlist)
		router.DELETE("waitlist/:id", h.CancelEntry)
	}
}

func (h *WaitlistHandler) GetWaitlist(c *gin.Context) {
	var query model.UsernameQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	entries, err := h.service.ListByUsername(c, query.Username)
	if err != nil {
		h.handleWaitlistError(c, err, "GetWaitlist")
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *WaitlistHandler) CancelEntry(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid waiting entry id",
		})
		return
	}

	if err := h.service.CancelEntry(c, id); err != nil {
		h.handleWaitlistError(c, err, "CancelEntry")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *WaitlistHandler) handleWaitlistError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrWaitingEntryNotFound):
		log.Warn("Waiting entry not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Waiting entry not found",
		})
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Ticket not found",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
