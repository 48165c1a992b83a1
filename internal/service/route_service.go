package service

import (
	"context"

	"go-railway-reservation/internal/model"
	"go-railway-reservation/internal/repository"
	apperrors "go-railway-reservation/pkg/app_errors"
)

// RouteService 把停靠順序當成一維區間座標：行程佔用 [fromOrder, toOrder)，
// 重疊判定不需要真實時刻，時刻表漂移也不影響正確性
type RouteService interface {
	StopOrder(ctx context.Context, trainNo int, station string) (int, error)
	StopOrders(ctx context.Context, trainNo int) (map[string]int, error)
	JourneyInterval(ctx context.Context, trainNo int, fromStation, toStation string) (model.Interval, error)
}

type RouteServiceImpl struct {
	trainRepo repository.TrainRepository
}

func NewRouteService(trainRepo repository.TrainRepository) RouteService {
	return &RouteServiceImpl{trainRepo: trainRepo}
}

func (s *RouteServiceImpl) StopOrder(ctx context.Context, trainNo int, station string) (int, error) {
	orders, err := s.trainRepo.StopOrders(ctx, trainNo)
	if err != nil {
		return 0, err
	}

	order, ok := orders[station]
	if !ok {
		return 0, apperrors.ErrStationNotOnRoute
	}
	return order, nil
}

func (s *RouteServiceImpl) StopOrders(ctx context.Context, trainNo int) (map[string]int, error) {
	return s.trainRepo.StopOrders(ctx, trainNo)
}

func (s *RouteServiceImpl) JourneyInterval(ctx context.Context, trainNo int, fromStation, toStation string) (model.Interval, error) {
	orders, err := s.trainRepo.StopOrders(ctx, trainNo)
	if err != nil {
		return model.Interval{}, err
	}
	return IntervalFromOrders(orders, fromStation, toStation)
}

// IntervalFromOrders 從停靠順序表解出行程區間。
// 兩站任一不在路線上，或目的站未嚴格晚於出發站（反向、零長度行程），都是無效行程。
func IntervalFromOrders(orders map[string]int, fromStation, toStation string) (model.Interval, error) {
	fromOrder, ok := orders[fromStation]
	if !ok {
		return model.Interval{}, apperrors.ErrInvalidJourney
	}
	toOrder, ok := orders[toStation]
	if !ok {
		return model.Interval{}, apperrors.ErrInvalidJourney
	}
	if fromOrder >= toOrder {
		return model.Interval{}, apperrors.ErrInvalidJourney
	}
	return model.Interval{From: fromOrder, To: toOrder}, nil
}
