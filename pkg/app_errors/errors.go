package apperrors

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTrainNotFound        = errors.New("train not found")
	ErrScheduleNotFound     = errors.New("train not scheduled for this date")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrWaitingEntryNotFound = errors.New("waiting list entry not found")
	ErrStationNotOnRoute    = errors.New("station not on route")

	// ErrInvalidJourney 無效行程：站點不在路線上或順序顛倒
	ErrInvalidJourney = errors.New("invalid journey: stations missing or out of order")
	// ErrConcurrentConflict 座位被並發交易搶走，整筆訂票回滾，呼叫端需重新查詢後重試
	ErrConcurrentConflict = errors.New("seat claimed by a concurrent booking, retry with a fresh search")
	// ErrDuplicateWaitlistRequest 同一 (使用者, 車次, 艙等, 日期) 已有候補中的請求
	ErrDuplicateWaitlistRequest = errors.New("a standing waiting list request already exists")

	ErrInvalidInput        = errors.New("invalid input")
	ErrInternalServerError = errors.New("internal server error")
)
