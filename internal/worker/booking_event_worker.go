package worker

import (
	"context"

	"go-railway-reservation/internal/cache"
	"go-railway-reservation/internal/queue"
	"go-railway-reservation/internal/repository"
	"go-railway-reservation/pkg/logger"

	"go.uber.org/zap"
)

type BookingEventWorker interface {
	// 訂閱事件隊列
	Start(ctx context.Context) error
}

type BookingEventWorkerImpl struct {
	queue        queue.BookingEventQueue
	seatRepo     repository.SeatRepository
	availability cache.SeatAvailabilityManager
}

func NewBookingEventWorker(queue queue.BookingEventQueue, seatRepo repository.SeatRepository, availability cache.SeatAvailabilityManager) BookingEventWorker {
	return &BookingEventWorkerImpl{
		queue:        queue,
		seatRepo:     seatRepo,
		availability: availability,
	}
}

func (w *BookingEventWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			if err := w.handle(ctx, msg.Data); err != nil {
				// 快取同步失敗多半是 Redis 暫時連不上，留給下一輪重試
				msg.Nack(true)
			} else {
				msg.Ack()
			}
		}
	}()
	return nil
}

// handle 記錄旅客通知並用資料庫的真值校正空位快取
func (w *BookingEventWorkerImpl) handle(ctx context.Context, event *queue.BookingEvent) error {
	log := logger.WithComponent("worker")

	switch event.Type {
	case queue.EventBookingCreated:
		log.Info("notify: booking confirmed",
			zap.String("pnr", event.PNRNo),
			zap.String("username", event.Username),
			zap.Int("train_no", event.TrainNo),
			zap.Int("seats", event.Seats),
		)
	case queue.EventBookingCancelled:
		log.Info("notify: booking cancelled",
			zap.String("pnr", event.PNRNo),
			zap.String("username", event.Username),
			zap.Int("train_no", event.TrainNo),
		)
	case queue.EventWaitlistPromoted:
		log.Info("notify: waiting list promoted",
			zap.String("pnr", event.PNRNo),
			zap.String("username", event.Username),
			zap.Int("train_no", event.TrainNo),
			zap.Int("seats", event.Seats),
		)
	default:
		log.Warn("unknown event type, discarding", zap.String("type", event.Type))
		return nil
	}

	if w.availability == nil || event.CoachClass == "" {
		return nil
	}

	count, err := w.seatRepo.CountFreeByTrainClass(ctx, event.TrainNo, event.CoachClass)
	if err != nil {
		return err
	}
	return w.availability.WarmUp(ctx, event.TrainNo, event.CoachClass, count)
}
