package service

import (
	"context"
	"errors"
	"time"

	"go-railway-reservation/internal/cache"
	"go-railway-reservation/internal/model"
	"go-railway-reservation/internal/repository"
	apperrors "go-railway-reservation/pkg/app_errors"
	"go-railway-reservation/pkg/logger"

	"go.uber.org/zap"
)

// 每公里票價（盧比）；AC 艙等為一般艙等的兩倍
const (
	BaseFarePerKm = 2
	ACFarePerKm   = 4

	// 路段距離缺漏時的估算值：每一站距 100 公里
	FallbackHopDistance = 100
)

type TrainService interface {
	ListTrains(ctx context.Context) ([]*model.TrainSummary, error)
	// ListTrainsByDate 某日有班表的車次
	ListTrainsByDate(ctx context.Context, date string) ([]*model.TrainSummary, error)
	// SearchTrains 起訖站查詢；date 非空時只留該日有班表的車次
	SearchTrains(ctx context.Context, fromStation, toStation, date string) ([]*model.TrainSearchResult, error)
	AvailableDates(ctx context.Context, trainNo int) ([]*model.ScheduleDate, error)
	// ListSeats 某車次某日的空位；該日無班表回 ErrScheduleNotFound
	ListSeats(ctx context.Context, trainNo int, date string) ([]*model.Seat, error)
	ListStations(ctx context.Context) ([]string, error)
	// FreeSeatCount 讀 Redis 計數，未預熱時回退資料庫並順手預熱
	FreeSeatCount(ctx context.Context, trainNo int, coachClass string) (int, error)
}

type TrainServiceImpl struct {
	trainRepo    repository.TrainRepository
	seatRepo     repository.SeatRepository
	availability cache.SeatAvailabilityManager
}

func NewTrainService(trainRepo repository.TrainRepository, seatRepo repository.SeatRepository, availability cache.SeatAvailabilityManager) TrainService {
	return &TrainServiceImpl{
		trainRepo:    trainRepo,
		seatRepo:     seatRepo,
		availability: availability,
	}
}

func (s *TrainServiceImpl) ListTrains(ctx context.Context) ([]*model.TrainSummary, error) {
	trains, err := s.trainRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	return s.summarize(ctx, trains)
}

func (s *TrainServiceImpl) ListTrainsByDate(ctx context.Context, date string) ([]*model.TrainSummary, error) {
	travelDate, err := time.Parse(travelDateLayout, date)
	if err != nil {
		return nil, apperrors.ErrInvalidInput
	}

	trains, err := s.trainRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	running := make([]*model.Train, 0, len(trains))
	for _, t := range trains {
		scheduled, err := s.trainRepo.ScheduleExists(ctx, t.TrainNo, travelDate)
		if err != nil {
			return nil, err
		}
		if scheduled {
			running = append(running, t)
		}
	}

	return s.summarize(ctx, running)
}

// summarize 組車次總覽：起訖站、距離與票價、各艙等可用數；沒有停靠站的車次略過
func (s *TrainServiceImpl) summarize(ctx context.Context, trains []*model.Train) ([]*model.TrainSummary, error) {
	summaries := make([]*model.TrainSummary, 0, len(trains))
	for _, t := range trains {
		stations, err := s.trainRepo.ListRouteStations(ctx, t.TrainNo)
		if err != nil {
			return nil, err
		}
		if len(stations) == 0 {
			continue
		}

		distance, err := s.trainRepo.RouteDistance(ctx, t.TrainNo)
		if err != nil && !errors.Is(err, apperrors.ErrTrainNotFound) {
			return nil, err
		}
		if distance == 0 {
			distance = FallbackHopDistance * (len(stations) - 1)
		}

		total, available, acAvailable, err := s.seatRepo.AvailabilitySummary(ctx, t.TrainNo)
		if err != nil {
			return nil, err
		}

		status := "AVAILABLE"
		if available == 0 {
			status = "WAITLIST"
		}

		summaries = append(summaries, &model.TrainSummary{
			TrainNo:            t.TrainNo,
			TrainName:          t.TrainName,
			SourceStation:      stations[0].StationName,
			DestinationStation: stations[len(stations)-1].StationName,
			TotalSeats:         total,
			AvailableSeats:     available,
			ACSeatsAvailable:   acAvailable,
			BaseFare:           distance * BaseFarePerKm,
			ACFare:             distance * ACFarePerKm,
			Distance:           distance,
			Status:             status,
		})
	}

	return summaries, nil
}

func (s *TrainServiceImpl) SearchTrains(ctx context.Context, fromStation, toStation, date string) ([]*model.TrainSearchResult, error) {
	var travelDate time.Time
	if date != "" {
		var err error
		travelDate, err = time.Parse(travelDateLayout, date)
		if err != nil {
			return nil, apperrors.ErrInvalidInput
		}
	}

	trains, err := s.trainRepo.FindServing(ctx, fromStation, toStation)
	if err != nil {
		return nil, err
	}

	results := make([]*model.TrainSearchResult, 0, len(trains))
	for _, t := range trains {
		if !travelDate.IsZero() {
			scheduled, err := s.trainRepo.ScheduleExists(ctx, t.TrainNo, travelDate)
			if err != nil {
				return nil, err
			}
			if !scheduled {
				continue
			}
		}

		orders, err := s.trainRepo.StopOrders(ctx, t.TrainNo)
		if err != nil {
			return nil, err
		}
		journey, err := IntervalFromOrders(orders, fromStation, toStation)
		if err != nil {
			// FindServing 已驗過站序，走到這裡屬路線資料異常
			logger.WithComponent("train").Warn("route data inconsistent",
				zap.Int("train_no", t.TrainNo), zap.Error(err))
			continue
		}

		edges, err := s.trainRepo.ListRouteEdges(ctx, t.TrainNo)
		if err != nil {
			return nil, err
		}
		distance := segmentDistance(edges, orders, journey)

		_, available, acAvailable, err := s.seatRepo.AvailabilitySummary(ctx, t.TrainNo)
		if err != nil {
			return nil, err
		}

		results = append(results, &model.TrainSearchResult{
			TrainNo:          t.TrainNo,
			TrainName:        t.TrainName,
			FromStation:      fromStation,
			ToStation:        toStation,
			Distance:         distance,
			BaseFare:         distance * BaseFarePerKm,
			ACFare:           distance * ACFarePerKm,
			AvailableSeats:   available,
			ACSeatsAvailable: acAvailable,
		})
	}

	return results, nil
}

func (s *TrainServiceImpl) AvailableDates(ctx context.Context, trainNo int) ([]*model.ScheduleDate, error) {
	if _, err := s.trainRepo.FindByTrainNo(ctx, trainNo); err != nil {
		return nil, err
	}

	schedules, err := s.trainRepo.ListSchedules(ctx, trainNo)
	if err != nil {
		return nil, err
	}

	dates := make([]*model.ScheduleDate, 0, len(schedules))
	for _, sc := range schedules {
		dates = append(dates, &model.ScheduleDate{
			Date: sc.TravelDate.Format(travelDateLayout),
			Day:  sc.WeekDay,
		})
	}

	return dates, nil
}

func (s *TrainServiceImpl) ListSeats(ctx context.Context, trainNo int, date string) ([]*model.Seat, error) {
	travelDate, err := time.Parse(travelDateLayout, date)
	if err != nil {
		return nil, apperrors.ErrInvalidInput
	}

	if _, err := s.trainRepo.FindByTrainNo(ctx, trainNo); err != nil {
		return nil, err
	}

	scheduled, err := s.trainRepo.ScheduleExists(ctx, trainNo, travelDate)
	if err != nil {
		return nil, err
	}
	if !scheduled {
		return nil, apperrors.ErrScheduleNotFound
	}

	return s.seatRepo.ListFreeByTrain(ctx, trainNo)
}

func (s *TrainServiceImpl) ListStations(ctx context.Context) ([]string, error) {
	return s.trainRepo.ListStations(ctx)
}

func (s *TrainServiceImpl) FreeSeatCount(ctx context.Context, trainNo int, coachClass string) (int, error) {
	if s.availability != nil {
		count, err := s.availability.GetFree(ctx, trainNo, coachClass)
		if err == nil {
			return count, nil
		}
		if !errors.Is(err, cache.ErrNotWarmed) {
			logger.WithComponent("train").Warn("availability cache read failed",
				zap.Int("train_no", trainNo), zap.Error(err))
		}
	}

	count, err := s.seatRepo.CountFreeByTrainClass(ctx, trainNo, coachClass)
	if err != nil {
		return 0, err
	}

	if s.availability != nil {
		if err := s.availability.WarmUp(ctx, trainNo, coachClass, count); err != nil {
			logger.WithComponent("train").Warn("availability cache warm-up failed",
				zap.Int("train_no", trainNo), zap.Error(err))
		}
	}

	return count, nil
}

// segmentDistance 兩站間距離 = 落在行程區間內的路段距離總和；
// 路段資料缺漏時以每站距 FallbackHopDistance 估算
func segmentDistance(edges []*model.RouteEdge, orders map[string]int, journey model.Interval) int {
	total := 0
	covered := 0

	for _, e := range edges {
		fromOrder, okFrom := orders[e.FromStation]
		toOrder, okTo := orders[e.ToStation]
		if !okFrom || !okTo {
			continue
		}
		if fromOrder >= journey.From && toOrder <= journey.To {
			total += e.SegmentDistance
			covered++
		}
	}

	hops := journey.To - journey.From
	if covered < hops {
		total += (hops - covered) * FallbackHopDistance
	}

	return total
}
