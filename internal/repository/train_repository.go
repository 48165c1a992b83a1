package repository

import (
	"context"
	"go-railway-reservation/internal/model"
	apperrors "go-railway-reservation/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TrainRepository interface {
	List(ctx context.Context) ([]*model.Train, error)
	FindByTrainNo(ctx context.Context, trainNo int) (*model.Train, error)
	FindServing(ctx context.Context, fromStation, toStation string) ([]*model.Train, error)

	ListRouteStations(ctx context.Context, trainNo int) ([]*model.RouteStation, error)
	StopOrders(ctx context.Context, trainNo int) (map[string]int, error)
	ListRouteEdges(ctx context.Context, trainNo int) ([]*model.RouteEdge, error)
	RouteDistance(ctx context.Context, trainNo int) (int, error)
	ListStations(ctx context.Context) ([]string, error)

	ScheduleExists(ctx context.Context, trainNo int, travelDate time.Time) (bool, error)
	ListSchedules(ctx context.Context, trainNo int) ([]*model.Schedule, error)
}

type TrainRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTrainRepository(pool *pgxpool.Pool) TrainRepository {
	return &TrainRepositoryImpl{
		pool: pool,
	}
}

func (r *TrainRepositoryImpl) List(ctx context.Context) ([]*model.Train, error) {
	query := `
		SELECT train_no, train_name, route_id
		FROM trains
		ORDER BY train_no
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trains := make([]*model.Train, 0)

	for rows.Next() {
		var train model.Train
		err := rows.Scan(&train.TrainNo, &train.TrainName, &train.RouteID)
		if err != nil {
			return nil, err
		}
		trains = append(trains, &train)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return trains, nil
}

func (r *TrainRepositoryImpl) FindByTrainNo(ctx context.Context, trainNo int) (*model.Train, error) {
	query := `
		SELECT train_no, train_name, route_id
		FROM trains
		WHERE train_no = $1
	`

	var train model.Train
	err := r.pool.QueryRow(ctx, query, trainNo).Scan(&train.TrainNo, &train.TrainName, &train.RouteID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTrainNotFound
		}
		return nil, err
	}

	return &train, nil
}

// FindServing 回傳路線同時停靠兩站的車次；方向是否正確由 StopOrders 另行判斷
func (r *TrainRepositoryImpl) FindServing(ctx context.Context, fromStation, toStation string) ([]*model.Train, error) {
	query := `
		SELECT t.train_no, t.train_name, t.route_id
		FROM trains t
		WHERE EXISTS (
			SELECT 1 FROM route_stations rs
			WHERE rs.route_id = t.route_id AND rs.station_name = $1
		)
		AND EXISTS (
			SELECT 1 FROM route_stations rs
			WHERE rs.route_id = t.route_id AND rs.station_name = $2
		)
		ORDER BY t.train_no
	`

	rows, err := r.pool.Query(ctx, query, fromStation, toStation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trains := make([]*model.Train, 0)

	for rows.Next() {
		var train model.Train
		err := rows.Scan(&train.TrainNo, &train.TrainName, &train.RouteID)
		if err != nil {
			return nil, err
		}
		trains = append(trains, &train)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return trains, nil
}

func (r *TrainRepositoryImpl) ListRouteStations(ctx context.Context, trainNo int) ([]*model.RouteStation, error) {
	query := `
		SELECT rs.route_id, rs.station_name, rs.stop_order, rs.arrival_time, rs.departure_time
		FROM route_stations rs
		JOIN trains t ON t.route_id = rs.route_id
		WHERE t.train_no = $1
		ORDER BY rs.stop_order
	`

	rows, err := r.pool.Query(ctx, query, trainNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]*model.RouteStation, 0)

	for rows.Next() {
		var rs model.RouteStation
		err := rows.Scan(&rs.RouteID, &rs.StationName, &rs.StopOrder, &rs.ArrivalTime, &rs.DepartureTime)
		if err != nil {
			return nil, err
		}
		stations = append(stations, &rs)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stations, nil
}

// StopOrders 一次撈出車次路線的全部停靠順序，供重疊判定查表
func (r *TrainRepositoryImpl) StopOrders(ctx context.Context, trainNo int) (map[string]int, error) {
	stations, err := r.ListRouteStations(ctx, trainNo)
	if err != nil {
		return nil, err
	}

	orders := make(map[string]int, len(stations))
	for _, rs := range stations {
		orders[rs.StationName] = rs.StopOrder
	}

	return orders, nil
}

func (r *TrainRepositoryImpl) ListRouteEdges(ctx context.Context, trainNo int) ([]*model.RouteEdge, error) {
	query := `
		SELECT re.route_id, re.from_station, re.to_station, re.segment_distance
		FROM route_edges re
		JOIN trains t ON t.route_id = re.route_id
		WHERE t.train_no = $1
	`

	rows, err := r.pool.Query(ctx, query, trainNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make([]*model.RouteEdge, 0)

	for rows.Next() {
		var edge model.RouteEdge
		err := rows.Scan(&edge.RouteID, &edge.FromStation, &edge.ToStation, &edge.SegmentDistance)
		if err != nil {
			return nil, err
		}
		edges = append(edges, &edge)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return edges, nil
}

func (r *TrainRepositoryImpl) RouteDistance(ctx context.Context, trainNo int) (int, error) {
	query := `
		SELECT r.distance
		FROM routes r
		JOIN trains t ON t.route_id = r.route_id
		WHERE t.train_no = $1
	`

	var distance int
	err := r.pool.QueryRow(ctx, query, trainNo).Scan(&distance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, apperrors.ErrTrainNotFound
		}
		return 0, err
	}

	return distance, nil
}

func (r *TrainRepositoryImpl) ListStations(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT station_name
		FROM route_stations
		ORDER BY station_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]string, 0)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		stations = append(stations, name)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stations, nil
}

func (r *TrainRepositoryImpl) ScheduleExists(ctx context.Context, trainNo int, travelDate time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM schedules
			WHERE train_no = $1 AND travel_date = $2
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, trainNo, travelDate).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *TrainRepositoryImpl) ListSchedules(ctx context.Context, trainNo int) ([]*model.Schedule, error) {
	query := `
		SELECT train_no, travel_date, week_day, start_time, end_time
		FROM schedules
		WHERE train_no = $1
		ORDER BY travel_date
	`

	rows, err := r.pool.Query(ctx, query, trainNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]*model.Schedule, 0)

	for rows.Next() {
		var s model.Schedule
		err := rows.Scan(&s.TrainNo, &s.TravelDate, &s.WeekDay, &s.StartTime, &s.EndTime)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schedules, nil
}
