package repository

import (
	"context"
	"fmt"
	"go-railway-reservation/internal/model"
	apperrors "go-railway-reservation/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WaitingListRepository interface {
	ListByUsername(ctx context.Context, username string) ([]*model.WaitingListEntry, error)
	FindByID(ctx context.Context, id int) (*model.WaitingListEntry, error)

	// Transaction methods
	Enqueue(ctx context.Context, tx pgx.Tx, entry *model.WaitingListEntry) (*model.WaitingListEntry, error)
	ListByTrainClass(ctx context.Context, tx pgx.Tx, trainNo int, coachClass string) ([]*model.WaitingListEntry, error)
	HasStanding(ctx context.Context, tx pgx.Tx, username string, trainNo int, coachClass string, travelDate time.Time) (bool, error)
	Reduce(ctx context.Context, tx pgx.Tx, id int, newCount int) error
	Delete(ctx context.Context, tx pgx.Tx, id int) error
	DeleteByPNR(ctx context.Context, tx pgx.Tx, pnr string) error
	FindByPNR(ctx context.Context, tx pgx.Tx, pnr string) (*model.WaitingListEntry, error)
}

type WaitingListRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewWaitingListRepository(pool *pgxpool.Pool) WaitingListRepository {
	return &WaitingListRepositoryImpl{
		pool: pool,
	}
}

// Enqueue 取 (車次, 艙等) 範圍內的下一個 FIFO 序號寫入候補。
// 序號只在同車次同艙等內有意義；呼叫端需已持有該 (車次, 艙等) 的 advisory lock，
// 否則併發寫入會撞 UNIQUE(train_no, coach_class, seq_no)。
func (r *WaitingListRepositoryImpl) Enqueue(ctx context.Context, tx pgx.Tx, entry *model.WaitingListEntry) (*model.WaitingListEntry, error) {
	query := `
		INSERT INTO waiting_list (seq_no, pnr_no, username, train_no, coach_class, seat_count, travel_date)
		SELECT COALESCE(MAX(seq_no), 0) + 1, $1, $2, $3, $4, $5, $6
		FROM waiting_list
		WHERE train_no = $3 AND coach_class = $4
		RETURNING id, seq_no
	`

	err := tx.QueryRow(ctx, query,
		entry.PNRNo, entry.Username, entry.TrainNo, entry.CoachClass,
		entry.SeatCount, entry.TravelDate,
	).Scan(&entry.ID, &entry.SeqNo)

	if err != nil {
		return nil, fmt.Errorf("failed to enqueue waiting list entry: %w", err)
	}

	return entry, nil
}

func (r *WaitingListRepositoryImpl) ListByTrainClass(ctx context.Context, tx pgx.Tx, trainNo int, coachClass string) ([]*model.WaitingListEntry, error) {
	query := `
		SELECT id, seq_no, pnr_no, username, train_no, coach_class, seat_count, travel_date
		FROM waiting_list
		WHERE train_no = $1 AND coach_class = $2
		ORDER BY seq_no
	`

	rows, err := tx.Query(ctx, query, trainNo, coachClass)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWaitingEntries(rows)
}

func (r *WaitingListRepositoryImpl) ListByUsername(ctx context.Context, username string) ([]*model.WaitingListEntry, error) {
	query := `
		SELECT id, seq_no, pnr_no, username, train_no, coach_class, seat_count, travel_date
		FROM waiting_list
		WHERE username = $1
		ORDER BY train_no, coach_class, seq_no
	`

	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWaitingEntries(rows)
}

func (r *WaitingListRepositoryImpl) FindByID(ctx context.Context, id int) (*model.WaitingListEntry, error) {
	query := `
		SELECT id, seq_no, pnr_no, username, train_no, coach_class, seat_count, travel_date
		FROM waiting_list
		WHERE id = $1
	`

	var entry model.WaitingListEntry
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&entry.ID,
		&entry.SeqNo,
		&entry.PNRNo,
		&entry.Username,
		&entry.TrainNo,
		&entry.CoachClass,
		&entry.SeatCount,
		&entry.TravelDate,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrWaitingEntryNotFound
		}
		return nil, err
	}

	return &entry, nil
}

func (r *WaitingListRepositoryImpl) FindByPNR(ctx context.Context, tx pgx.Tx, pnr string) (*model.WaitingListEntry, error) {
	query := `
		SELECT id, seq_no, pnr_no, username, train_no, coach_class, seat_count, travel_date
		FROM waiting_list
		WHERE pnr_no = $1
	`

	var entry model.WaitingListEntry
	err := tx.QueryRow(ctx, query, pnr).Scan(
		&entry.ID,
		&entry.SeqNo,
		&entry.PNRNo,
		&entry.Username,
		&entry.TrainNo,
		&entry.CoachClass,
		&entry.SeatCount,
		&entry.TravelDate,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrWaitingEntryNotFound
		}
		return nil, err
	}

	return &entry, nil
}

func (r *WaitingListRepositoryImpl) HasStanding(ctx context.Context, tx pgx.Tx, username string, trainNo int, coachClass string, travelDate time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM waiting_list
			WHERE username = $1 AND train_no = $2 AND coach_class = $3 AND travel_date = $4
		)
	`

	var exists bool
	err := tx.QueryRow(ctx, query, username, trainNo, coachClass, travelDate).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Reduce 部分遞補後調低未滿足座位數；只減不增，降到零應改呼叫 Delete
func (r *WaitingListRepositoryImpl) Reduce(ctx context.Context, tx pgx.Tx, id int, newCount int) error {
	if newCount <= 0 {
		return apperrors.ErrInvalidInput
	}

	query := `
		UPDATE waiting_list
		SET seat_count = $1
		WHERE id = $2 AND seat_count > $1
	`

	result, err := tx.Exec(ctx, query, newCount, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrWaitingEntryNotFound
	}

	return nil
}

func (r *WaitingListRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, id int) error {
	query := `
		DELETE FROM waiting_list
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrWaitingEntryNotFound
	}

	return nil
}

func (r *WaitingListRepositoryImpl) DeleteByPNR(ctx context.Context, tx pgx.Tx, pnr string) error {
	query := `
		DELETE FROM waiting_list
		WHERE pnr_no = $1
	`

	// 多數訂票沒有候補餘額，刪到零列是正常情況
	_, err := tx.Exec(ctx, query, pnr)
	return err
}

func scanWaitingEntries(rows pgx.Rows) ([]*model.WaitingListEntry, error) {
	entries := make([]*model.WaitingListEntry, 0)

	for rows.Next() {
		var entry model.WaitingListEntry
		err := rows.Scan(
			&entry.ID,
			&entry.SeqNo,
			&entry.PNRNo,
			&entry.Username,
			&entry.TrainNo,
			&entry.CoachClass,
			&entry.SeatCount,
			&entry.TravelDate,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
