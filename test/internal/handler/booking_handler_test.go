package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go-railway-reservation/internal/handler"
	"go-railway-reservation/internal/model"
	apperrors "go-railway-reservation/pkg/app_errors"
	mocks "go-railway-reservation/test/internal/mocks/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupBookingTestRouter(mockService *mocks.BookingServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	bookingHandler := handler.NewBookingHandler(mockService)
	bookingHandler.RegisterRoutes(router)

	return router
}

func validBookingRequest() model.CreateBookingRequest {
	return model.CreateBookingRequest{
		TrainNo:     101,
		Username:    "alice",
		SeatCount:   2,
		CoachClass:  "SLEEPER",
		TravelDate:  "2026-09-15",
		FromStation: "Alpha",
		ToStation:   "Echo",
		QuotedFare:  800,
	}
}

func TestCreateBookingHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(&model.BookingResult{
			Ticket: &model.Ticket{
				PNRNo:          "PNRAAAA111",
				Username:       "alice",
				TrainNo:        101,
				SeatsBooked:    2,
				RequestedSeats: 2,
				Fare:           800,
			},
			Shortfall: 0,
		}, nil).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/bookings", validBookingRequest())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "PNRAAAA111")
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - ErrConcurrentConflict", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, apperrors.ErrConcurrentConflict).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/bookings", validBookingRequest())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - ErrDuplicateWaitlistRequest", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, apperrors.ErrDuplicateWaitlistRequest).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/bookings", validBookingRequest())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - ErrInvalidJourney", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, apperrors.ErrInvalidJourney).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/bookings", validBookingRequest())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - binding error short-circuits", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		// seat_count 缺失，request 不應打到 service
		req := createJSONHTTPRequest("POST", "/api/v1/bookings", gin.H{"train_no": 101})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "CreateBooking")
	})
}

func TestGetBookingHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		mockService.On("GetTicketByPNR", mock.Anything, "PNRAAAA111").Return(&model.Ticket{
			PNRNo:    "PNRAAAA111",
			Username: "alice",
		}, nil).Once()

		req, _ := http.NewRequest("GET", "/api/v1/bookings/PNRAAAA111", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - ErrTicketNotFound", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		mockService.On("GetTicketByPNR", mock.Anything, "PNRMISSING").Return(nil, apperrors.ErrTicketNotFound).Once()

		req, _ := http.NewRequest("GET", "/api/v1/bookings/PNRMISSING", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestGetBookingsHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		mockService.On("ListByUsername", mock.Anything, "alice").Return([]*model.Ticket{
			{PNRNo: "PNRAAAA111", Username: "alice", TrainNo: 101},
		}, nil)

		req, _ := http.NewRequest("GET", "/api/v1/bookings?username=alice", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "PNRAAAA111")
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - missing username", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		req, _ := http.NewRequest("GET", "/api/v1/bookings", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "ListByUsername")
	})
}

func TestCancelBookingHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		mockService.On("CancelBooking", mock.Anything, "PNRAAAA111").Return(&model.CancellationResult{
			PNRNo:         "PNRAAAA111",
			SeatsFreed:    2,
			PromotedCount: 1,
		}, nil).Once()

		req, _ := http.NewRequest("DELETE", "/api/v1/bookings/PNRAAAA111", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "seats_freed")
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - ErrTicketNotFound", func(t *testing.T) {
		mockService := mocks.NewBookingServiceMock()
		router := setupBookingTestRouter(mockService)

		mockService.On("CancelBooking", mock.Anything, "PNRMISSING").Return(nil, apperrors.ErrTicketNotFound).Once()

		req, _ := http.NewRequest("DELETE", "/api/v1/bookings/PNRMISSING", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})
}
