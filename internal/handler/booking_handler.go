package handler

import (
	"errors"
	"net/http"

	"go-railway-reservation/internal/model"
	"go-railway-reservation/internal/service"
	apperrors "go-railway-reservation/pkg/app_errors"
	"go-railway-reservation/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service service.BookingService
}

func NewBookingHandler(service service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) RegisterRoutes(r *gin.Engine, middlewares ...gin.HandlerFunc) {
	router := r.Group("/api/v1")
	router.Use(middlewares...)
	{
		router.POST("bookings", h.CreateBooking)
		router.GET("bookings", h.GetBookings)
		router.GET("bookings/:pnr", h.GetBooking)
		router.DELETE("bookings/:pnr", h.CancelBooking)
	}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingRequest

	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.CreateBooking(c, req)
	if err != nil {
		h.handleBookingError(c, err, "CreateBooking")
		return
	}

	h.handleBookingSuccess(c, result, http.StatusCreated)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	pnrNo := c.Param("pnr")

	ticket, err := h.service.GetTicketByPNR(c, pnrNo)
	if err != nil {
		h.handleBookingError(c, err, "GetBooking")
		return
	}

	h.handleBookingSuccess(c, ticket, http.StatusOK)
}

func (h *BookingHandler) GetBookings(c *gin.Context) {
	var query model.UsernameQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	tickets, err := h.service.ListByUsername(c, query.Username)
	if err != nil {
		h.handleBookingError(c, err, "GetBookings")
		return
	}

	h.handleBookingSuccess(c, tickets, http.StatusOK)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	pnrNo := c.Param("pnr")

	result, err := h.service.CancelBooking(c, pnrNo)
	if err != nil {
		h.handleBookingError(c, err, "CancelBooking")
		return
	}

	h.handleBookingSuccess(c, result, http.StatusOK)
}

// Helper functions

func (h *BookingHandler) handleBookingError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrConcurrentConflict):
		log.Warn("Seat taken by concurrent booking")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Seat was taken by another booking, please retry",
		})
	case errors.Is(err, apperrors.ErrDuplicateWaitlistRequest):
		log.Warn("Duplicate waitlist request")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Already waitlisted for this train and class",
		})
	case errors.Is(err, apperrors.ErrUserNotFound):
		log.Warn("User not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
	case errors.Is(err, apperrors.ErrTrainNotFound):
		log.Warn("Train not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Train not found",
		})
	case errors.Is(err, apperrors.ErrScheduleNotFound):
		log.Warn("Schedule not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Train does not run on the requested date",
		})
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Ticket not found",
		})
	case errors.Is(err, apperrors.ErrInvalidJourney), errors.Is(err, apperrors.ErrStationNotOnRoute):
		log.Warn("Invalid journey")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid journey for this train's route",
		})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid input",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

func (h *BookingHandler) handleBookingSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}
