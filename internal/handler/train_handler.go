package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go-railway-reservation/internal/service"
	apperrors "go-railway-reservation/pkg/app_errors"
	"go-railway-reservation/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TrainHandler struct {
	service service.TrainService
}

func NewTrainHandler(service service.TrainService) *TrainHandler {
	return &TrainHandler{service: service}
}

func (h *TrainHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("trains", h.GetTrains)
		router.GET("trains/search", h.SearchTrains)
		router.GET("trains/date/:date", h.GetTrainsByDate)
		router.GET("trains/:trainNo/available-dates", h.GetAvailableDates)
		router.GET("trains/:trainNo/seats", h.GetSeats)
		router.GET("stations", h.GetStations)
	}
}

func (h *TrainHandler) GetTrains(c *gin.Context) {
	trains, err := h.service.ListTrains(c)
	if err != nil {
		h.handleTrainError(c, err, "GetTrains")
		return
	}

	c.JSON(http.StatusOK, trains)
}

func (h *TrainHandler) GetTrainsByDate(c *gin.Context) {
	trains, err := h.service.ListTrainsByDate(c, c.Param("date"))
	if err != nil {
		h.handleTrainError(c, err, "GetTrainsByDate")
		return
	}

	c.JSON(http.StatusOK, trains)
}

func (h *TrainHandler) SearchTrains(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "from and to are required",
		})
		return
	}

	results, err := h.service.SearchTrains(c, from, to, c.Query("date"))
	if err != nil {
		h.handleTrainError(c, err, "SearchTrains")
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *TrainHandler) GetAvailableDates(c *gin.Context) {
	trainNo, err := strconv.Atoi(c.Param("trainNo"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid train number",
		})
		return
	}

	dates, err := h.service.AvailableDates(c, trainNo)
	if err != nil {
		h.handleTrainError(c, err, "GetAvailableDates")
		return
	}

	c.JSON(http.StatusOK, dates)
}

func (h *TrainHandler) GetSeats(c *gin.Context) {
	trainNo, err := strconv.Atoi(c.Param("trainNo"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid train number",
		})
		return
	}

	seats, err := h.service.ListSeats(c, trainNo, c.Query("date"))
	if err != nil {
		h.handleTrainError(c, err, "GetSeats")
		return
	}

	c.JSON(http.StatusOK, seats)
}

func (h *TrainHandler) GetStations(c *gin.Context) {
	stations, err := h.service.ListStations(c)
	if err != nil {
		h.handleTrainError(c, err, "GetStations")
		return
	}

	c.JSON(http.StatusOK, stations)
}

func (h *TrainHandler) handleTrainError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
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
