package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go-railway-reservation/internal/cache"
	"go-railway-reservation/internal/model"
	"go-railway-reservation/internal/queue"
	"go-railway-reservation/internal/repository"
	apperrors "go-railway-reservation/pkg/app_errors"
	"go-railway-reservation/pkg/logger"
	"go-railway-reservation/pkg/pnr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const travelDateLayout = "2006-01-02"

type BookingService interface {
	// CreateBooking 訂票：選位、原子佔位、建立訂票紀錄，缺額進候補
	CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.BookingResult, error)
	// CancelBooking 退票：釋出座位、刪除訂票，再依 FIFO 遞補候補
	CancelBooking(ctx context.Context, pnrNo string) (*model.CancellationResult, error)
	GetTicketByPNR(ctx context.Context, pnrNo string) (*model.Ticket, error)
	ListByUsername(ctx context.Context, username string) ([]*model.Ticket, error)
}

type BookingServiceImpl struct {
	pool         *pgxpool.Pool
	ticketRepo   repository.TicketRepository
	seatRepo     repository.SeatRepository
	trainRepo    repository.TrainRepository
	userRepo     repository.UserRepository
	waitingRepo  repository.WaitingListRepository
	routeService RouteService
	events       queue.BookingEventQueue
	availability cache.SeatAvailabilityManager
}

func NewBookingService(
	pool *pgxpool.Pool,
	ticketRepo repository.TicketRepository,
	seatRepo repository.SeatRepository,
	trainRepo repository.TrainRepository,
	userRepo repository.UserRepository,
	waitingRepo repository.WaitingListRepository,
	routeService RouteService,
	events queue.BookingEventQueue,
	availability cache.SeatAvailabilityManager,
) BookingService {
	return &BookingServiceImpl{
		pool:         pool,
		ticketRepo:   ticketRepo,
		seatRepo:     seatRepo,
		trainRepo:    trainRepo,
		userRepo:     userRepo,
		waitingRepo:  waitingRepo,
		routeService: routeService,
		events:       events,
		availability: availability,
	}
}

func (s *BookingServiceImpl) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.BookingResult, error) {
	travelDate, err := time.Parse(travelDateLayout, req.TravelDate)
	if err != nil {
		return nil, apperrors.ErrInvalidInput
	}

	// 前置檢查都在交易外：失敗不留任何寫入
	exists, err := s.userRepo.Exists(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrUserNotFound
	}

	if _, err := s.trainRepo.FindByTrainNo(ctx, req.TrainNo); err != nil {
		return nil, err
	}

	scheduled, err := s.trainRepo.ScheduleExists(ctx, req.TrainNo, travelDate)
	if err != nil {
		return nil, err
	}
	if !scheduled {
		return nil, apperrors.ErrScheduleNotFound
	}

	orders, err := s.routeService.StopOrders(ctx, req.TrainNo)
	if err != nil {
		return nil, err
	}
	requested, err := IntervalFromOrders(orders, req.FromStation, req.ToStation)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	candidates, err := s.seatRepo.ListByTrainClass(ctx, tx, req.TrainNo, req.CoachClass)
	if err != nil {
		return nil, err
	}

	selected := selectAvailableSeats(candidates, orders, requested, req.SeatCount)

	confirmed := len(selected)
	shortfall := req.SeatCount - confirmed

	if shortfall > 0 {
		// 只有要寫候補才拿 (車次, 艙等) 鎖：序號配發與遞補靠它序列化。
		// 純訂位路徑不上鎖，併發者在 claim_version 上對決，輸家拿 ErrConcurrentConflict。
		// 鎖要在佔位之前拿，和退票端「先鎖再動座位列」的順序一致
		if err := repository.AcquireTrainClassLock(ctx, tx, req.TrainNo, req.CoachClass); err != nil {
			return nil, err
		}

		standing, err := s.waitingRepo.HasStanding(ctx, tx, req.Username, req.TrainNo, req.CoachClass, travelDate)
		if err != nil {
			return nil, err
		}
		if standing {
			return nil, apperrors.ErrDuplicateWaitlistRequest
		}
	}

	ticket := &model.Ticket{
		PNRNo:          pnr.New(),
		Username:       req.Username,
		TrainNo:        req.TrainNo,
		FromStation:    req.FromStation,
		ToStation:      req.ToStation,
		SeatsBooked:    confirmed,
		RequestedSeats: req.SeatCount,
		QuotedFare:     req.QuotedFare,
		Fare:           ProportionalFare(req.QuotedFare, confirmed, req.SeatCount),
	}

	if _, err := s.ticketRepo.Create(ctx, tx, ticket); err != nil {
		return nil, err
	}

	claimed := make([]model.TicketSeat, 0, confirmed)
	for _, seat := range selected {
		// 佔位失敗表示座位剛被別的交易搶走；整筆回滾，過期的候選清單不能將就著用
		if err := s.seatRepo.Claim(ctx, tx, seat.Ref(), seat.ClaimVersion); err != nil {
			return nil, err
		}

		ts := model.TicketSeat{
			PNRNo:      ticket.PNRNo,
			TrainNo:    seat.TrainNo,
			CoachNo:    seat.CoachNo,
			CoachClass: seat.CoachClass,
			SeatNo:     seat.SeatNo,
		}
		if err := s.ticketRepo.CreateTicketSeat(ctx, tx, &ts); err != nil {
			return nil, err
		}
		claimed = append(claimed, ts)
	}

	var waitingEntryID *int
	if shortfall > 0 {
		entry := &model.WaitingListEntry{
			PNRNo:      ticket.PNRNo,
			Username:   req.Username,
			TrainNo:    req.TrainNo,
			CoachClass: req.CoachClass,
			SeatCount:  shortfall,
			TravelDate: travelDate,
		}
		if _, err := s.waitingRepo.Enqueue(ctx, tx, entry); err != nil {
			return nil, err
		}
		waitingEntryID = &entry.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	ticket.Seats = claimed
	s.afterBooking(ticket, shortfall)

	return &model.BookingResult{
		Ticket:         ticket,
		ClaimedSeats:   claimed,
		Shortfall:      shortfall,
		WaitingEntryID: waitingEntryID,
	}, nil
}

func (s *BookingServiceImpl) CancelBooking(ctx context.Context, pnrNo string) (*model.CancellationResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ticket, err := s.ticketRepo.FindByPNRForUpdate(ctx, tx, pnrNo)
	if err != nil {
		return nil, err
	}

	// 艙等不存在 Ticket 上：從座位指派推得，整筆候補中的訂票則看它的候補項目
	coachClass, err := s.resolveCoachClass(ctx, tx, ticket)
	if err != nil {
		return nil, err
	}

	if coachClass != "" {
		if err := repository.AcquireTrainClassLock(ctx, tx, ticket.TrainNo, coachClass); err != nil {
			return nil, err
		}
	}

	removed, err := s.ticketRepo.DeleteTicketSeats(ctx, tx, pnrNo)
	if err != nil {
		return nil, err
	}

	// 只有沒有其他訂票引用的座位才標回可用
	freed := make([]model.SeatRef, 0, len(removed))
	for _, ref := range removed {
		others, err := s.ticketRepo.CountOtherAssignments(ctx, tx, ref, pnrNo)
		if err != nil {
			return nil, err
		}
		if others > 0 {
			continue
		}
		if err := s.seatRepo.Release(ctx, tx, ref); err != nil {
			return nil, err
		}
		freed = append(freed, ref)
	}

	// 候補餘額先於訂票本體刪除（外鍵回指 tickets）
	if err := s.waitingRepo.DeleteByPNR(ctx, tx, pnrNo); err != nil {
		return nil, err
	}
	if err := s.ticketRepo.Delete(ctx, tx, pnrNo); err != nil {
		return nil, err
	}

	sort.Slice(freed, func(i, j int) bool {
		if freed[i].CoachNo != freed[j].CoachNo {
			return freed[i].CoachNo < freed[j].CoachNo
		}
		return freed[i].SeatNo < freed[j].SeatNo
	})

	promoted := 0
	var promotions []promotion
	if coachClass != "" && len(freed) > 0 {
		promotions, err = s.promote(ctx, tx, ticket.TrainNo, coachClass, freed)
		if err != nil {
			return nil, err
		}
		for _, p := range promotions {
			promoted += p.seats
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.afterCancellation(ticket, coachClass, len(freed), promotions)

	return &model.CancellationResult{
		PNRNo:         pnrNo,
		SeatsFreed:    len(freed),
		PromotedCount: promoted,
	}, nil
}

func (s *BookingServiceImpl) GetTicketByPNR(ctx context.Context, pnrNo string) (*model.Ticket, error) {
	return s.ticketRepo.FindByPNR(ctx, pnrNo)
}

func (s *BookingServiceImpl) ListByUsername(ctx context.Context, username string) ([]*model.Ticket, error) {
	return s.ticketRepo.ListByUsername(ctx, username)
}

type promotion struct {
	pnrNo    string
	username string
	seats    int
}

// promote 嚴格 FIFO 遞補：依序號走訪候補，部分滿足就遞減後停止，
// 絕不跳過前面的項目去滿足後面較小的請求；隊頭吃不完的釋出座位就留著可用
func (s *BookingServiceImpl) promote(ctx context.Context, tx pgx.Tx, trainNo int, coachClass string, freed []model.SeatRef) ([]promotion, error) {
	entries, err := s.waitingRepo.ListByTrainClass(ctx, tx, trainNo, coachClass)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	// 釋出集合要重新讀一次才有佔位用的版本號
	available, err := s.seatRepo.ListFreeByTrainClass(ctx, tx, trainNo, coachClass)
	if err != nil {
		return nil, err
	}
	pool := make([]*model.Seat, 0, len(freed))
	freedSet := make(map[model.SeatRef]bool, len(freed))
	for _, ref := range freed {
		freedSet[ref] = true
	}
	for _, seat := range available {
		if freedSet[seat.Ref()] {
			pool = append(pool, seat)
		}
	}

	promotions := make([]promotion, 0)
	next := 0

	for _, entry := range entries {
		remaining := len(pool) - next
		if remaining == 0 {
			break
		}

		take := entry.SeatCount
		if take > remaining {
			take = remaining
		}

		ticket, err := s.ticketRepo.FindByPNRForUpdate(ctx, tx, entry.PNRNo)
		if err != nil {
			return nil, err
		}

		for i := 0; i < take; i++ {
			seat := pool[next]
			next++

			if err := s.seatRepo.Claim(ctx, tx, seat.Ref(), seat.ClaimVersion); err != nil {
				return nil, err
			}
			ts := model.TicketSeat{
				PNRNo:      entry.PNRNo,
				TrainNo:    seat.TrainNo,
				CoachNo:    seat.CoachNo,
				CoachClass: seat.CoachClass,
				SeatNo:     seat.SeatNo,
			}
			if err := s.ticketRepo.CreateTicketSeat(ctx, tx, &ts); err != nil {
				return nil, err
			}
		}

		seatsBooked := ticket.SeatsBooked + take
		fare := ProportionalFare(ticket.QuotedFare, seatsBooked, ticket.RequestedSeats)
		if err := s.ticketRepo.UpdateAllocation(ctx, tx, entry.PNRNo, seatsBooked, fare); err != nil {
			return nil, err
		}

		promotions = append(promotions, promotion{pnrNo: entry.PNRNo, username: entry.Username, seats: take})

		if take == entry.SeatCount {
			if err := s.waitingRepo.Delete(ctx, tx, entry.ID); err != nil {
				return nil, err
			}
			continue
		}

		// 部分滿足：遞減後就停，剩下的項目等下一批釋出
		if err := s.waitingRepo.Reduce(ctx, tx, entry.ID, entry.SeatCount-take); err != nil {
			return nil, err
		}
		break
	}

	return promotions, nil
}

func (s *BookingServiceImpl) resolveCoachClass(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) (string, error) {
	seats, err := s.ticketRepo.ListTicketSeats(ctx, tx, ticket.PNRNo)
	if err != nil {
		return "", err
	}
	if len(seats) > 0 {
		return seats[0].CoachClass, nil
	}

	entry, err := s.waitingRepo.FindByPNR(ctx, tx, ticket.PNRNo)
	if err != nil {
		if err == apperrors.ErrWaitingEntryNotFound {
			return "", nil
		}
		return "", err
	}
	return entry.CoachClass, nil
}

// afterBooking 提交後的善後：發佈事件、調整快取。都是 best effort，不影響已成立的訂票
func (s *BookingServiceImpl) afterBooking(ticket *model.Ticket, shortfall int) {
	log := logger.WithComponent("booking")
	ctx := context.Background()

	if s.events != nil {
		event := queue.NewBookingEvent(queue.EventBookingCreated, ticket.PNRNo, ticket.Username, ticket.TrainNo, ticket.SeatsBooked)
		if len(ticket.Seats) > 0 {
			event.CoachClass = ticket.Seats[0].CoachClass
		}
		if err := s.events.Publish(ctx, event); err != nil {
			log.Warn("failed to publish booking event", zap.String("pnr", ticket.PNRNo), zap.Error(err))
		}
	}

	if s.availability != nil && len(ticket.Seats) > 0 {
		coachClass := ticket.Seats[0].CoachClass
		if err := s.availability.DecrFree(ctx, ticket.TrainNo, coachClass, ticket.SeatsBooked); err != nil {
			log.Warn("failed to update availability cache", zap.Int("train_no", ticket.TrainNo), zap.Error(err))
		}
	}

	log.Info("booking created",
		zap.String("pnr", ticket.PNRNo),
		zap.Int("train_no", ticket.TrainNo),
		zap.Int("confirmed", ticket.SeatsBooked),
		zap.Int("shortfall", shortfall),
	)
}

func (s *BookingServiceImpl) afterCancellation(ticket *model.Ticket, coachClass string, seatsFreed int, promotions []promotion) {
	log := logger.WithComponent("booking")
	ctx := context.Background()

	promoted := 0
	for _, p := range promotions {
		promoted += p.seats
	}

	if s.events != nil {
		event := queue.NewBookingEvent(queue.EventBookingCancelled, ticket.PNRNo, ticket.Username, ticket.TrainNo, seatsFreed)
		event.CoachClass = coachClass
		if err := s.events.Publish(ctx, event); err != nil {
			log.Warn("failed to publish cancellation event", zap.String("pnr", ticket.PNRNo), zap.Error(err))
		}
		for _, p := range promotions {
			promotedEvent := queue.NewBookingEvent(queue.EventWaitlistPromoted, p.pnrNo, p.username, ticket.TrainNo, p.seats)
			promotedEvent.CoachClass = coachClass
			if err := s.events.Publish(ctx, promotedEvent); err != nil {
				log.Warn("failed to publish promotion event", zap.String("pnr", p.pnrNo), zap.Error(err))
			}
		}
	}

	if s.availability != nil && coachClass != "" && seatsFreed > promoted {
		if err := s.availability.IncrFree(ctx, ticket.TrainNo, coachClass, seatsFreed-promoted); err != nil {
			log.Warn("failed to update availability cache", zap.Int("train_no", ticket.TrainNo), zap.Error(err))
		}
	}

	log.Info("booking cancelled",
		zap.String("pnr", ticket.PNRNo),
		zap.Int("seats_freed", seatsFreed),
		zap.Int("promoted", promoted),
	)
}

// selectAvailableSeats 依儲存順序 (車廂, 座號) 累積候選：
// 座位可用 iff 沒有任何既有指派與本次行程區間重疊，湊滿需求數或掃完即止
func selectAvailableSeats(candidates []*model.Seat, orders map[string]int, requested model.Interval, want int) []*model.Seat {
	selected := make([]*model.Seat, 0, want)

	for _, seat := range candidates {
		if hasConflict(seat, orders, requested) {
			continue
		}
		selected = append(selected, seat)
		if len(selected) == want {
			break
		}
	}

	return selected
}

func hasConflict(seat *model.Seat, orders map[string]int, requested model.Interval) bool {
	for _, a := range seat.Assignments {
		existing, err := IntervalFromOrders(orders, a.FromStation, a.ToStation)
		if err != nil {
			// 指派的站名不在路線上屬資料異常，保守視為衝突
			return true
		}
		if requested.Overlaps(existing) {
			return true
		}
	}
	return false
}

// ProportionalFare 票價隨已確認座位數線性折算；整筆候補時為 0
func ProportionalFare(quoted int, confirmed int, requested int) int {
	if requested <= 0 {
		return 0
	}
	return int(math.Round(float64(quoted) * float64(confirmed) / float64(requested)))
}
