package queue_test

import (
	"context"
	"testing"
	"time"

	"go-railway-reservation/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanupStream(ctx context.Context, t *testing.T) {
	t.Helper()
	_ = testRdb.Del(ctx, queue.StreamKey).Err()
}

func TestNewRedisStreamBookingEventQueue(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	t.Run("success", func(t *testing.T) {
		q, err := queue.NewRedisStreamBookingEventQueue(testRdb, "test-consumer", nil)
		require.NoError(t, err)
		require.NotNil(t, q)
	})

	t.Run("empty_consumer_id_generates_uuid", func(t *testing.T) {
		cleanupStream(ctx, t)
		q, err := queue.NewRedisStreamBookingEventQueue(testRdb, "", nil)
		require.NoError(t, err)
		require.NotNil(t, q)
	})
}

func TestRedisStreamBookingEventQueue_Publish(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	q, err := queue.NewRedisStreamBookingEventQueue(testRdb, "pub-test", nil)
	require.NoError(t, err)

	event := queue.NewBookingEvent(queue.EventBookingCreated, "PNRPUB0001", "alice", 101, 2)
	require.NoError(t, q.Publish(ctx, event))
}

// 驗證「發出去的內容」與「收進來的內容」一致
func TestRedisStreamBookingEventQueue_Subscribe_deliversPublishedMessage(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	q, err := queue.NewRedisStreamBookingEventQueue(testRdb, "deliver-test", nil)
	require.NoError(t, err)

	event := queue.NewBookingEvent(queue.EventWaitlistPromoted, "PNRDLV0001", "bob", 102, 1)
	event.CoachClass = "SLEEPER"
	require.NoError(t, q.Publish(ctx, event))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok, "應收到一筆")
		require.NotNil(t, d.Data)
		assert.Equal(t, event.Type, d.Data.Type)
		assert.Equal(t, event.PNRNo, d.Data.PNRNo)
		assert.Equal(t, event.Username, d.Data.Username)
		assert.Equal(t, event.TrainNo, d.Data.TrainNo)
		assert.Equal(t, event.CoachClass, d.Data.CoachClass)
		assert.Equal(t, event.Seats, d.Data.Seats)
	case <-subCtx.Done():
		t.Fatal("timeout 未收到訊息")
	}
}

// Ack 後該訊息不應再被投遞
func TestRedisStreamBookingEventQueue_Ack_preventsRedelivery(t *testing.T) {
	ctx := context.Background()
	cleanupStream(ctx, t)

	q, err := queue.NewRedisStreamBookingEventQueue(testRdb, "ack-test", nil)
	require.NoError(t, err)

	event := queue.NewBookingEvent(queue.EventBookingCancelled, "PNRACK0001", "alice", 103, 1)
	require.NoError(t, q.Publish(ctx, event))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.Subscribe(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		require.NotNil(t, d.Data)
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout 未收到第一筆")
	}

	cancel()
	_, ok := <-delCh
	assert.False(t, ok, "Ack 後不應再投遞；下一讀應為 channel 關閉")

	// PEL 應該已清空
	pending, err := testRdb.XPending(context.Background(), queue.StreamKey, queue.ConsumerGroupName).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestMemoryBookingEventQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewBookingEventQueue(4)
	event := queue.NewBookingEvent(queue.EventBookingCreated, "PNRMEM0001", "alice", 104, 1)
	require.NoError(t, q.Publish(ctx, event))

	delCh, err := q.Subscribe(ctx)
	require.NoError(t, err)

	select {
	case d := <-delCh:
		require.NotNil(t, d.Data)
		assert.Equal(t, "PNRMEM0001", d.Data.PNRNo)
		d.Ack()
	case <-ctx.Done():
		t.Fatal("timeout 未收到訊息")
	}
}
