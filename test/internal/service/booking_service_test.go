package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-railway-reservation/internal/model"
	"go-railway-reservation/internal/repository"
	"go-railway-reservation/internal/service"
	apperrors "go-railway-reservation/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingRequest(trainNo int, username, from, to, date string, seatCount, quotedFare int) model.CreateBookingRequest {
	return model.CreateBookingRequest{
		TrainNo:     trainNo,
		Username:    username,
		SeatCount:   seatCount,
		CoachClass:  "SLEEPER",
		TravelDate:  date,
		FromStation: from,
		ToStation:   to,
		QuotedFare:  quotedFare,
	}
}

func TestCreateBooking(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		defer setupTestWithTruncate(t)()
		svc := newBookingService()
		ctx := context.Background()

		stations, date := seedTrain(t, 101, 5)
		createTestUser(t, "alice")

		result, err := svc.CreateBooking(ctx, bookingRequest(101, "alice", stations[0], stations[4], date, 2, 800))
		require.NoError(t, err)

		assert.Equal(t, 2, result.Ticket.SeatsBooked)
		assert.Equal(t, 0, result.Shortfall)
		assert.Nil(t, result.WaitingEntryID)
		assert.Len(t, result.ClaimedSeats, 2)
		assert.Equal(t, 800, result.Ticket.Fare)
		assert.NotEmpty(t, result.Ticket.PNRNo)

		assert.Equal(t, 2, countRows(t, "SELECT COUNT(*) FROM ticket_seats WHERE pnr_no = $1", result.Ticket.PNRNo))
		assert.Equal(t, 2, countRows(t, "SELECT COUNT(*) FROM seats WHERE train_no = 101 AND available = FALSE"))
	})

	t.Run("TouchPointSharing", func(t *testing.T) {
		defer setupTestWithTruncate(t)()
		svc := newBookingService()
		ctx := context.Background()

		stations, date := seedTrain(t, 102, 1)
		createTestUser(t, "alice")
		createTestUser(t, "bob")
		createTestUser(t, "carol")

		// alice 佔 Alpha→Charlie；bob 訂 Charlie→Echo 應共用同一座位
		first, err := svc.CreateBooking(ctx, bookingRequest(102, "alice", stations[0], stations[2], date, 1, 400))
		require.NoError(t, err)
		require.Equal(t, 1, first.Ticket.SeatsBooked)

		second, err := svc.CreateBooking(ctx, bookingRequest(102, "bob", stations[2], stations[4], date, 1, 400))
		require.NoError(t, err)
		assert.Equal(t, 1, second.Ticket.SeatsBooked)
		assert.Equal(t, first.ClaimedSeats[0].SeatNo, second.ClaimedSeats[0].SeatNo)

		// carol 的 Bravo→Delta 跟兩段都重疊，只能候補
		third, err := svc.CreateBooking(ctx, bookingRequest(102, "carol", stations[1], stations[3], date, 1, 200))
		require.NoError(t, err)
		assert.Equal(t, 0, third.Ticket.SeatsBooked)
		assert.Equal(t, 1, third.Shortfall)
		require.NotNil(t, third.WaitingEntryID)
	})

	t.Run("ShortfallGoesToWaitlist", func(t *testing.T) {
		defer setupTestWithTruncate(t)()
		svc := newBookingService()
		ctx := context.Background()

		stations, date := seedTrain(t, 103, 1)
		createTestUser(t, "alice")

		result, err := svc.CreateBooking(ctx, bookingRequest(103, "alice", stations[0], stations[4], date, 3, 900))
		require.NoError(t, err)

		assert.Equal(t, 1, result.Ticket.SeatsBooked)
		assert.Equal(t, 2, result.Shortfall)
		require.NotNil(t, result.WaitingEntryID)
		// 票價按已確認比例折算：round(900 * 1/3)
		assert.Equal(t, 300, result.Ticket.Fare)

		assert.Equal(t, 1, countRows(t, "SELECT COUNT(*) FROM waiting_list WHERE pnr_no = $1 AND seat_count = 2", result.Ticket.PNRNo))
	})

	t.Run("DuplicateWaitlistRejected", func(t *testing.T) {
		defer setupTestWithTruncate(t)()
		svc := newBookingService()
		ctx := context.Background()

		stations, date := seedTrain(t, 104, 1)
		createTestUser(t, "alice")

		_, err := svc.CreateBooking(ctx, bookingRequest(104, "alice", stations[0], stations[4], date, 2, 800))
		require.NoError(t, err)

		// 同人同 (車次, 艙等, 日期) 已有候補，不得再排
		_, err = svc.CreateBooking(ctx, bookingRequest(104, "alice", stations[0], stations[4], date, 2, 800))
		assert.ErrorIs(t, err, apperrors.ErrDuplicateWaitlistRequest)

		assert.Equal(t, 1, countRows(t, "SELECT COUNT(*) FROM waiting_list"))
		assert.Equal(t, 1, countRows(t, "SELECT COUNT(*) FROM tickets"))
	})

	t.Run("Validation", func(t *testing.T) {
		defer setupTestWithTruncate(t)()
		svc := newBookingService()
		ctx := context.Background()

		stations, date := seedTrain(t, 105, 2)
		createTestUser(t, "alice")

		_, err := svc.CreateBooking(ctx, bookingRequest(105, "ghost", stations[0], stations[1], date, 1, 100))
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

		_, err = svc.CreateBooking(ctx, bookingRequest(999, "alice", stations[0], stations[1], date, 1, 100))
		assert.ErrorIs(t, err, apperrors.ErrTrainNotFound)

		_, err = svc.CreateBooking(ctx, bookingRequest(105, "alice", stations[0], stations[1], "2026-12-25", 1, 100))
		assert.ErrorIs(t, err, apperrors.ErrScheduleNotFound)

		_, err = svc.CreateBooking(ctx, bookingRequest(105, "alice", stations[0], stations[1], "not-a-date", 1, 100))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		// 逆行程與不在路線上的站都不合法
		_, err = svc.CreateBooking(ctx, bookingRequest(105, "alice", stations[3], stations[1], date, 1, 100))
		assert.ErrorIs(t, err, apperrors.ErrInvalidJourney)

		_, err = svc.CreateBooking(ctx, bookingRequest(105, "alice", "Nowhere", stations[1], date, 1, 100))
		assert.ErrorIs(t, err, apperrors.ErrInvalidJourney)

		// 驗證失敗不留任何寫入
		assert.Equal(t, 0, countRows(t, "SELECT COUNT(*) FROM tickets"))
		assert.Equal(t, 0, countRows(t, "SELECT COUNT(*) FROM waiting_list"))
	})
}

// 搶最後一個座位：恰好一個確認。輸家看讀取時機，候選清單過期就吃
// ErrConcurrentConflict，讀到新快照則進候補；座位絕不會被配出兩次
func TestCreateBookingConcurrentLastSeat(t *testing.T) {
	defer setupTestWithTruncate(t)()
	svc := newBookingService()
	ctx := context.Background()

	stations, date := seedTrain(t, 106, 1)
	createTestUser(t, "alice")
	createTestUser(t, "bob")

	var wg sync.WaitGroup
	results := make([]*model.BookingResult, 2)
	errs := make([]error, 2)

	for i, username := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, username string) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateBooking(ctx, bookingRequest(106, username, stations[0], stations[4], date, 1, 400))
		}(i, username)
	}
	wg.Wait()

	confirmed := 0
	waitlisted := 0
	conflicts := 0
	for i := range results {
		if errs[i] != nil {
			require.ErrorIs(t, errs[i], apperrors.ErrConcurrentConflict)
			conflicts++
			continue
		}
		confirmed += results[i].Ticket.SeatsBooked
		waitlisted += results[i].Shortfall
	}

	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, waitlisted+conflicts)
	assert.Equal(t, 1, countRows(t, "SELECT COUNT(*) FROM ticket_seats"))
	assert.Equal(t, waitlisted, countRows(t, "SELECT COUNT(*) FROM waiting_list"))
}

// 對手先佔走最後一個座位但尚未提交：輸家的快照還看得到空位，
// 佔位的 UPDATE 會等對手的列鎖，對手提交後版本號已走，CAS 落空整筆回滾
func TestCreateBookingStaleClaimConflicts(t *testing.T) {
	defer setupTestWithTruncate(t)()
	svc := newBookingService()
	ctx := context.Background()

	stations, date := seedTrain(t, 107, 1)
	createTestUser(t, "alice")
	createTestUser(t, "bob")

	rival, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer rival.Rollback(ctx)

	seatRepo := repository.NewSeatRepository(testDB)
	free, err := seatRepo.ListFreeByTrainClass(ctx, rival, 107, "SLEEPER")
	require.NoError(t, err)
	require.Len(t, free, 1)

	_, err = rival.Exec(ctx, `
		INSERT INTO tickets (pnr_no, username, train_no, from_station, to_station,
		                     seats_booked, requested_seats, quoted_fare, fare)
		VALUES ('PNRRIVAL0001', 'alice', 107, $1, $2, 1, 1, 400, 400)
	`, stations[0], stations[4])
	require.NoError(t, err)
	require.NoError(t, seatRepo.Claim(ctx, rival, free[0].Ref(), free[0].ClaimVersion))
	_, err = rival.Exec(ctx, `
		INSERT INTO ticket_seats (pnr_no, train_no, coach_no, coach_class, seat_no)
		VALUES ('PNRRIVAL0001', $1, $2, $3, $4)
	`, free[0].TrainNo, free[0].CoachNo, free[0].CoachClass, free[0].SeatNo)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.CreateBooking(ctx, bookingRequest(107, "bob", stations[0], stations[4], date, 1, 400))
		done <- err
	}()

	// 等 bob 真的卡在座位列鎖上再提交對手，結果才不受排程影響
	require.Eventually(t, func() bool {
		var waiting int
		err := testDB.QueryRow(ctx, `
			SELECT COUNT(*) FROM pg_stat_activity
			WHERE wait_event_type = 'Lock' AND datname = current_database()
		`).Scan(&waiting)
		return err == nil && waiting > 0
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, rival.Commit(ctx))

	assert.ErrorIs(t, <-done, apperrors.ErrConcurrentConflict)

	// 輸家不留任何寫入，座位只配出一次
	assert.Equal(t, 0, countRows(t, "SELECT COUNT(*) FROM tickets WHERE username = 'bob'"))
	assert.Equal(t, 0, countRows(t, "SELECT COUNT(*) FROM waiting_list"))
	assert.Equal(t, 1, countRows(t, "SELECT COUNT(*) FROM ticket_seats"))
	assert.Equal(t, 1, countRows(t, "SELECT COUNT(*) FROM seats WHERE available = FALSE AND claim_version = 1"))
}

func TestProportionalFare(t *testing.T) {
	tests := []struct {
		name      string
		quoted    int
		confirmed int
		requested int
		want      int
	}{
		{"全數確認", 900, 3, 3, 900},
		{"確認三分之一", 900, 1, 3, 300},
		{"四捨五入", 500, 1, 3, 167},
		{"整筆候補", 900, 0, 3, 0},
		{"非法請求數", 900, 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.ProportionalFare(tt.quoted, tt.confirmed, tt.requested))
		})
	}
}
