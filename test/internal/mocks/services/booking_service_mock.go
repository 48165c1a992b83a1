package services

import (
	"context"

	"go-railway-reservation/internal/model"

	"github.com/stretchr/testify/mock"
)

type BookingServiceMock struct {
	mock.Mock
}

func NewBookingServiceMock() *BookingServiceMock {
	return &BookingServiceMock{}
}

func (m *BookingServiceMock) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.BookingResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingResult), args.Error(1)
}

func (m *BookingServiceMock) CancelBooking(ctx context.Context, pnrNo string) (*model.CancellationResult, error) {
	args := m.Called(ctx, pnrNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CancellationResult), args.Error(1)
}

func (m *BookingServiceMock) GetTicketByPNR(ctx context.Context, pnrNo string) (*model.Ticket, error) {
	args := m.Called(ctx, pnrNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *BookingServiceMock) ListByUsername(ctx context.Context, username string) ([]*model.Ticket, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}
