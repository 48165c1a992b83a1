package repository

import (
	"context"
	"fmt"
	"go-railway-reservation/internal/model"
	apperrors "go-railway-reservation/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketRepository interface {
	FindByPNR(ctx context.Context, pnr string) (*model.Ticket, error)
	ListByUsername(ctx context.Context, username string) ([]*model.Ticket, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) (*model.Ticket, error)
	FindByPNRForUpdate(ctx context.Context, tx pgx.Tx, pnr string) (*model.Ticket, error)
	UpdateAllocation(ctx context.Context, tx pgx.Tx, pnr string, seatsBooked int, fare int) error
	Delete(ctx context.Context, tx pgx.Tx, pnr string) error

	CreateTicketSeat(ctx context.Context, tx pgx.Tx, seat *model.TicketSeat) error
	ListTicketSeats(ctx context.Context, tx pgx.Tx, pnr string) ([]model.TicketSeat, error)
	DeleteTicketSeats(ctx context.Context, tx pgx.Tx, pnr string) ([]model.SeatRef, error)
	CountOtherAssignments(ctx context.Context, tx pgx.Tx, ref model.SeatRef, excludePNR string) (int, error)
}

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) (*model.Ticket, error) {
	query := `
		INSERT INTO tickets (
			pnr_no, username, train_no, from_station, to_station,
			seats_booked, requested_seats, quoted_fare, fare
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query,
		ticket.PNRNo, ticket.Username, ticket.TrainNo,
		ticket.FromStation, ticket.ToStation,
		ticket.SeatsBooked, ticket.RequestedSeats, ticket.QuotedFare, ticket.Fare,
	).Scan(&ticket.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	return ticket, nil
}

func (r *TicketRepositoryImpl) FindByPNR(ctx context.Context, pnr string) (*model.Ticket, error) {
	query := `
		SELECT pnr_no, username, train_no, from_station, to_station,
		       seats_booked, requested_seats, quoted_fare, fare, created_at
		FROM tickets
		WHERE pnr_no = $1
	`

	var ticket model.Ticket
	err := r.pool.QueryRow(ctx, query, pnr).Scan(
		&ticket.PNRNo,
		&ticket.Username,
		&ticket.TrainNo,
		&ticket.FromStation,
		&ticket.ToStation,
		&ticket.SeatsBooked,
		&ticket.RequestedSeats,
		&ticket.QuotedFare,
		&ticket.Fare,
		&ticket.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}

	seats, err := r.listSeats(ctx, r.pool, pnr)
	if err != nil {
		return nil, err
	}
	ticket.Seats = seats

	return &ticket, nil
}

func (r *TicketRepositoryImpl) FindByPNRForUpdate(ctx context.Context, tx pgx.Tx, pnr string) (*model.Ticket, error) {
	query := `
		SELECT pnr_no, username, train_no, from_station, to_station,
		       seats_booked, requested_seats, quoted_fare, fare, created_at
		FROM tickets
		WHERE pnr_no = $1
		FOR UPDATE
	`

	var ticket model.Ticket
	err := tx.QueryRow(ctx, query, pnr).Scan(
		&ticket.PNRNo,
		&ticket.Username,
		&ticket.TrainNo,
		&ticket.FromStation,
		&ticket.ToStation,
		&ticket.SeatsBooked,
		&ticket.RequestedSeats,
		&ticket.QuotedFare,
		&ticket.Fare,
		&ticket.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}

	return &ticket, nil
}

func (r *TicketRepositoryImpl) ListByUsername(ctx context.Context, username string) ([]*model.Ticket, error) {
	query := `
		SELECT pnr_no, username, train_no, from_station, to_station,
		       seats_booked, requested_seats, quoted_fare, fare, created_at
		FROM tickets
		WHERE username = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*model.Ticket, 0)

	for rows.Next() {
		var ticket model.Ticket
		err := rows.Scan(
			&ticket.PNRNo,
			&ticket.Username,
			&ticket.TrainNo,
			&ticket.FromStation,
			&ticket.ToStation,
			&ticket.SeatsBooked,
			&ticket.RequestedSeats,
			&ticket.QuotedFare,
			&ticket.Fare,
			&ticket.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, &ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ticket := range tickets {
		seats, err := r.listSeats(ctx, r.pool, ticket.PNRNo)
		if err != nil {
			return nil, err
		}
		ticket.Seats = seats
	}

	return tickets, nil
}

// UpdateAllocation 遞補後更新已確認座位數與按比例重算的票價
func (r *TicketRepositoryImpl) UpdateAllocation(ctx context.Context, tx pgx.Tx, pnr string, seatsBooked int, fare int) error {
	query := `
		UPDATE tickets
		SET seats_booked = $1, fare = $2
		WHERE pnr_no = $3
	`

	result, err := tx.Exec(ctx, query, seatsBooked, fare, pnr)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}

	return nil
}

func (r *TicketRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, pnr string) error {
	query := `
		DELETE FROM tickets
		WHERE pnr_no = $1
	`

	result, err := tx.Exec(ctx, query, pnr)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}

	return nil
}

func (r *TicketRepositoryImpl) CreateTicketSeat(ctx context.Context, tx pgx.Tx, seat *model.TicketSeat) error {
	query := `
		INSERT INTO ticket_seats (pnr_no, train_no, coach_no, coach_class, seat_no)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, query,
		seat.PNRNo, seat.TrainNo, seat.CoachNo, seat.CoachClass, seat.SeatNo,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket seat: %w", err)
	}

	return nil
}

func (r *TicketRepositoryImpl) ListTicketSeats(ctx context.Context, tx pgx.Tx, pnr string) ([]model.TicketSeat, error) {
	return r.listSeats(ctx, tx, pnr)
}

// DeleteTicketSeats 刪除該 PNR 的所有座位指派並回傳被釋出的座位識別
func (r *TicketRepositoryImpl) DeleteTicketSeats(ctx context.Context, tx pgx.Tx, pnr string) ([]model.SeatRef, error) {
	query := `
		DELETE FROM ticket_seats
		WHERE pnr_no = $1
		RETURNING train_no, coach_no, coach_class, seat_no
	`

	rows, err := tx.Query(ctx, query, pnr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]model.SeatRef, 0)

	for rows.Next() {
		var ref model.SeatRef
		err := rows.Scan(&ref.TrainNo, &ref.CoachNo, &ref.CoachClass, &ref.SeatNo)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return refs, nil
}

// CountOtherAssignments 計算其他訂票仍引用同一實體座位的指派數；
// 為零才能把座位標回可用（重疊不變式下正常不會有共用，這裡是保險）
func (r *TicketRepositoryImpl) CountOtherAssignments(ctx context.Context, tx pgx.Tx, ref model.SeatRef, excludePNR string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM ticket_seats
		WHERE train_no = $1 AND coach_no = $2 AND coach_class = $3 AND seat_no = $4
			AND pnr_no != $5
	`

	var count int
	err := tx.QueryRow(ctx, query, ref.TrainNo, ref.CoachNo, ref.CoachClass, ref.SeatNo, excludePNR).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *TicketRepositoryImpl) listSeats(ctx context.Context, q queryer, pnr string) ([]model.TicketSeat, error) {
	query := `
		SELECT pnr_no, train_no, coach_no, coach_class, seat_no
		FROM ticket_seats
		WHERE pnr_no = $1
		ORDER BY coach_no, seat_no
	`

	rows, err := q.Query(ctx, query, pnr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]model.TicketSeat, 0)

	for rows.Next() {
		var ts model.TicketSeat
		err := rows.Scan(&ts.PNRNo, &ts.TrainNo, &ts.CoachNo, &ts.CoachClass, &ts.SeatNo)
		if err != nil {
			return nil, err
		}
		seats = append(seats, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
