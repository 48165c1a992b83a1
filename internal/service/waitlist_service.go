package service

import (
	"context"

	"go-railway-reservation/internal/model"
	"go-railway-reservation/internal/repository"
	"go-railway-reservation/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type WaitlistService interface {
	ListByUsername(ctx context.Context, username string) ([]*model.WaitingListEntry, error)
	// CancelEntry 取消候補：刪除候補項目，若其訂票沒有任何已確認座位則一併刪除
	CancelEntry(ctx context.Context, id int) error
}

type WaitlistServiceImpl struct {
	pool        *pgxpool.Pool
	waitingRepo repository.WaitingListRepository
	ticketRepo  repository.TicketRepository
}

func NewWaitlistService(pool *pgxpool.Pool, waitingRepo repository.WaitingListRepository, ticketRepo repository.TicketRepository) WaitlistService {
	return &WaitlistServiceImpl{
		pool:        pool,
		waitingRepo: waitingRepo,
		ticketRepo:  ticketRepo,
	}
}

func (s *WaitlistServiceImpl) ListByUsername(ctx context.Context, username string) ([]*model.WaitingListEntry, error) {
	return s.waitingRepo.ListByUsername(ctx, username)
}

func (s *WaitlistServiceImpl) CancelEntry(ctx context.Context, id int) error {
	entry, err := s.waitingRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// 與遞補共用同一把鎖，避免遞補正在讀隊列時項目被抽走
	if err := repository.AcquireTrainClassLock(ctx, tx, entry.TrainNo, entry.CoachClass); err != nil {
		return err
	}

	ticket, err := s.ticketRepo.FindByPNRForUpdate(ctx, tx, entry.PNRNo)
	if err != nil {
		return err
	}

	if err := s.waitingRepo.Delete(ctx, tx, entry.ID); err != nil {
		return err
	}

	// 整筆候補中的訂票只是隊列的錨點，候補取消後不留空殼
	if ticket.SeatsBooked == 0 {
		if err := s.ticketRepo.Delete(ctx, tx, entry.PNRNo); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.WithComponent("waitlist").Info("waiting entry cancelled",
		zap.Int("entry_id", id),
		zap.String("pnr", entry.PNRNo),
		zap.Int("train_no", entry.TrainNo),
	)
	return nil
}
