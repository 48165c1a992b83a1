package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotWarmed Redis 中沒有該 (車次, 艙等) 的計數，呼叫端應回退查資料庫
var ErrNotWarmed = redis.Nil

// SeatAvailabilityManager 以 Redis 快取各 (車次, 艙等) 的剩餘空位數，
// 只是查詢加速用的近似值，交易內的判斷一律以資料庫為準
type SeatAvailabilityManager interface {
	// 預熱：把資料庫算出的空位數寫進 Redis
	WarmUp(ctx context.Context, trainNo int, coachClass string, freeCount int) error
	// 獲取：讀取快取空位數，未預熱回傳 ErrNotWarmed
	GetFree(ctx context.Context, trainNo int, coachClass string) (int, error)
	// 減少：訂票提交後扣減 (使用Lua腳本確保原子性且不會減成負數)
	DecrFree(ctx context.Context, trainNo int, coachClass string, quantity int) error
	// 增加：退票提交後補回
	IncrFree(ctx context.Context, trainNo int, coachClass string, quantity int) error
}

type SeatAvailabilityManagerImpl struct {
	client *redis.Client
}

func NewSeatAvailabilityManager(client *redis.Client) SeatAvailabilityManager {
	return &SeatAvailabilityManagerImpl{
		client: client,
	}
}

// 空位計數 key
func (m *SeatAvailabilityManagerImpl) getFreeKey(trainNo int, coachClass string) string {
	return fmt.Sprintf("train:%d:class:%s:free", trainNo, coachClass)
}

func (m *SeatAvailabilityManagerImpl) WarmUp(ctx context.Context, trainNo int, coachClass string, freeCount int) error {
	return m.client.Set(ctx, m.getFreeKey(trainNo, coachClass), freeCount, 0).Err()
}

func (m *SeatAvailabilityManagerImpl) GetFree(ctx context.Context, trainNo int, coachClass string) (int, error) {
	val, err := m.client.Get(ctx, m.getFreeKey(trainNo, coachClass)).Int()
	if err == redis.Nil {
		return 0, ErrNotWarmed
	}
	return val, err
}

func (m *SeatAvailabilityManagerImpl) DecrFree(ctx context.Context, trainNo int, coachClass string, quantity int) error {
	// 未預熱的 key 不動它；扣到底就停在 0，負數的空位數沒有意義
	script := `
		local key = KEYS[1]
		local qty = tonumber(ARGV[1])

		local free = redis.call('GET', key)
		if not free then
			return -1 -- 未預熱，跳過
		end

		free = tonumber(free) - qty
		if free < 0 then
			free = 0
		end
		redis.call('SET', key, free)

		return free
	`

	return m.client.Eval(ctx, script, []string{m.getFreeKey(trainNo, coachClass)}, quantity).Err()
}

func (m *SeatAvailabilityManagerImpl) IncrFree(ctx context.Context, trainNo int, coachClass string, quantity int) error {
	script := `
		local key = KEYS[1]
		local qty = tonumber(ARGV[1])

		local free = redis.call('GET', key)
		if not free then
			return -1 -- 未預熱，跳過
		end

		return redis.call('INCRBY', key, qty)
	`

	return m.client.Eval(ctx, script, []string{m.getFreeKey(trainNo, coachClass)}, quantity).Err()
}
