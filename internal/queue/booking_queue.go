package queue

import (
	"context"
	"time"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
	EventWaitlistPromoted = "waitlist_promoted"
)

// BookingEvent 訂票生命週期事件，提交後發佈給背景 Worker 處理通知與快取
type BookingEvent struct {
	Type       string    `json:"type"`
	PNRNo      string    `json:"pnr_no"`
	Username   string    `json:"username"`
	TrainNo    int       `json:"train_no"`
	CoachClass string    `json:"coach_class,omitempty"`
	Seats      int       `json:"seats"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType, pnrNo, username string, trainNo, seats int) *BookingEvent {
	return &BookingEvent{
		Type:       eventType,
		PNRNo:      pnrNo,
		Username:   username,
		TrainNo:    trainNo,
		Seats:      seats,
		OccurredAt: time.Now(),
	}
}

type Delivery struct {
	Data *BookingEvent
	Ack  func()
	Nack func(requeue bool)
}

type BookingEventQueue interface {
	// 發送事件到隊列
	Publish(ctx context.Context, event *BookingEvent) error
	// 訂閱事件隊列
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type BookingEventQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *BookingEvent
}

func NewBookingEventQueue(bufferSize int) BookingEventQueue {
	return &BookingEventQueueImpl{
		ch: make(chan *BookingEvent, bufferSize),
	}
}

func (q *BookingEventQueueImpl) Publish(ctx context.Context, event *BookingEvent) error {
	q.ch <- event
	return nil
}

func (q *BookingEventQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: event,
					Ack:  func() { /* 記憶體版不用做特別動作 */ },
					Nack: func(requeue bool) {
						if requeue {
							q.ch <- event // 簡單模擬重回隊列
						}
					},
				}
			}
		}
	}()

	return out, nil
}
