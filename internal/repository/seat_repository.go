package repository

import (
	"context"
	"go-railway-reservation/internal/model"
	apperrors "go-railway-reservation/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SeatRepository interface {
	ListFreeByTrain(ctx context.Context, trainNo int) ([]*model.Seat, error)
	CountFreeByTrainClass(ctx context.Context, trainNo int, coachClass string) (int, error)
	AvailabilitySummary(ctx context.Context, trainNo int) (total int, available int, acAvailable int, err error)

	// Transaction methods
	ListByTrainClass(ctx context.Context, tx pgx.Tx, trainNo int, coachClass string) ([]*model.Seat, error)
	ListFreeByTrainClass(ctx context.Context, tx pgx.Tx, trainNo int, coachClass string) ([]*model.Seat, error)
	Claim(ctx context.Context, tx pgx.Tx, ref model.SeatRef, expectedVersion int) error
	Release(ctx context.Context, tx pgx.Tx, ref model.SeatRef) error
}

type SeatRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewSeatRepository(pool *pgxpool.Pool) SeatRepository {
	return &SeatRepositoryImpl{
		pool: pool,
	}
}

// ListByTrainClass 回傳該車次該艙等的全部座位，依 (車廂, 座號) 排序使分配順序可重現。
// 每個座位帶出現有 TicketSeat 佔用及其訂票的起訖站，供呼叫端做區間重疊過濾。
func (r *SeatRepositoryImpl) ListByTrainClass(ctx context.Context, tx pgx.Tx, trainNo int, coachClass string) ([]*model.Seat, error) {
	query := `
		SELECT s.train_no, s.coach_no, s.coach_class, s.seat_no, s.available, s.claim_version,
		       ts.pnr_no, t.from_station, t.to_station
		FROM seats s
		LEFT JOIN ticket_seats ts
			ON ts.train_no = s.train_no
			AND ts.coach_no = s.coach_no
			AND ts.coach_class = s.coach_class
			AND ts.seat_no = s.seat_no
		LEFT JOIN tickets t ON t.pnr_no = ts.pnr_no
		WHERE s.train_no = $1 AND s.coach_class = $2
		ORDER BY s.coach_no, s.seat_no
	`

	rows, err := tx.Query(ctx, query, trainNo, coachClass)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]*model.Seat, 0)
	var current *model.Seat

	for rows.Next() {
		var seat model.Seat
		var pnr, from, to *string
		err := rows.Scan(
			&seat.TrainNo,
			&seat.CoachNo,
			&seat.CoachClass,
			&seat.SeatNo,
			&seat.Available,
			&seat.ClaimVersion,
			&pnr,
			&from,
			&to,
		)
		if err != nil {
			return nil, err
		}

		if current == nil || current.CoachNo != seat.CoachNo || current.SeatNo != seat.SeatNo {
			s := seat
			seats = append(seats, &s)
			current = &s
		}
		if pnr != nil && from != nil && to != nil {
			current.Assignments = append(current.Assignments, model.SeatAssignment{
				PNRNo:       *pnr,
				FromStation: *from,
				ToStation:   *to,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

// ListFreeByTrainClass 回傳可用旗標為真的座位，遞補時的候選清單
func (r *SeatRepositoryImpl) ListFreeByTrainClass(ctx context.Context, tx pgx.Tx, trainNo int, coachClass string) ([]*model.Seat, error) {
	query := `
		SELECT train_no, coach_no, coach_class, seat_no, available, claim_version
		FROM seats
		WHERE train_no = $1 AND coach_class = $2 AND available = TRUE
		ORDER BY coach_no, seat_no
	`

	rows, err := tx.Query(ctx, query, trainNo, coachClass)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeats(rows)
}

func (r *SeatRepositoryImpl) ListFreeByTrain(ctx context.Context, trainNo int) ([]*model.Seat, error) {
	query := `
		SELECT train_no, coach_no, coach_class, seat_no, available, claim_version
		FROM seats
		WHERE train_no = $1 AND available = TRUE
		ORDER BY coach_class, coach_no, seat_no
	`

	rows, err := r.pool.Query(ctx, query, trainNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeats(rows)
}

// Claim 有條件佔位：以 claim_version 做 compare-and-swap，絕不拆成先讀後寫。
// 版本號自候選查詢後被動過，表示座位被並發交易搶走，回報衝突讓整筆訂票回滾；
// available 旗標在同一條 UPDATE 裡一併壓成 FALSE（悲觀快取）。
func (r *SeatRepositoryImpl) Claim(ctx context.Context, tx pgx.Tx, ref model.SeatRef, expectedVersion int) error {
	query := `
		UPDATE seats
		SET available = FALSE, claim_version = claim_version + 1
		WHERE train_no = $1 AND coach_no = $2 AND coach_class = $3 AND seat_no = $4
			AND claim_version = $5
	`

	result, err := tx.Exec(ctx, query, ref.TrainNo, ref.CoachNo, ref.CoachClass, ref.SeatNo, expectedVersion)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrConcurrentConflict
	}

	return nil
}

func (r *SeatRepositoryImpl) Release(ctx context.Context, tx pgx.Tx, ref model.SeatRef) error {
	query := `
		UPDATE seats
		SET available = TRUE, claim_version = claim_version + 1
		WHERE train_no = $1 AND coach_no = $2 AND coach_class = $3 AND seat_no = $4
			AND available = FALSE
	`

	_, err := tx.Exec(ctx, query, ref.TrainNo, ref.CoachNo, ref.CoachClass, ref.SeatNo)
	return err
}

func (r *SeatRepositoryImpl) CountFreeByTrainClass(ctx context.Context, trainNo int, coachClass string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM seats
		WHERE train_no = $1 AND coach_class = $2 AND available = TRUE
	`

	var count int
	err := r.pool.QueryRow(ctx, query, trainNo, coachClass).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *SeatRepositoryImpl) AvailabilitySummary(ctx context.Context, trainNo int) (int, int, int, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE available),
		       COUNT(*) FILTER (WHERE available AND coach_class ILIKE '%AC%')
		FROM seats
		WHERE train_no = $1
	`

	var total, available, acAvailable int
	err := r.pool.QueryRow(ctx, query, trainNo).Scan(&total, &available, &acAvailable)
	if err != nil {
		return 0, 0, 0, err
	}

	return total, available, acAvailable, nil
}

func scanSeats(rows pgx.Rows) ([]*model.Seat, error) {
	seats := make([]*model.Seat, 0)

	for rows.Next() {
		var seat model.Seat
		err := rows.Scan(&seat.TrainNo, &seat.CoachNo, &seat.CoachClass, &seat.SeatNo, &seat.Available, &seat.ClaimVersion)
		if err != nil {
			return nil, err
		}
		seats = append(seats, &seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
