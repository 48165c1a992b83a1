package model

import "time"

// Ticket 訂票紀錄，以 PNR 唯一識別。
// SeatsBooked 可以是 0（整筆候補），此時 Ticket 仍是候補項目回指的錨點。
// RequestedSeats / QuotedFare 在建立時寫定，候補遞補時按比例重算 Fare 用。
type Ticket struct {
	PNRNo          string    `json:"pnr_no" db:"pnr_no"`
	Username       string    `json:"username" db:"username"`
	TrainNo        int       `json:"train_no" db:"train_no"`
	FromStation    string    `json:"from_station" db:"from_station"`
	ToStation      string    `json:"to_station" db:"to_station"`
	SeatsBooked    int       `json:"seats_booked" db:"seats_booked"`
	RequestedSeats int       `json:"requested_seats" db:"requested_seats"`
	QuotedFare     int       `json:"quoted_fare" db:"quoted_fare"`
	Fare           int       `json:"fare" db:"fare"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	Seats []TicketSeat `json:"seats,omitempty" db:"-"`
}

// IsFullyWaitlisted 檢查是否整筆都在候補
func (t *Ticket) IsFullyWaitlisted() bool {
	return t.SeatsBooked == 0
}

// TicketSeat 訂票與實體座位的對應，一列一個已確認座位。
// 冗餘帶上座位識別欄位，是「此座位於哪段行程被佔用」的權威來源。
type TicketSeat struct {
	PNRNo      string `json:"pnr_no" db:"pnr_no"`
	TrainNo    int    `json:"train_no" db:"train_no"`
	CoachNo    int    `json:"coach_no" db:"coach_no"`
	CoachClass string `json:"coach_class" db:"coach_class"`
	SeatNo     int    `json:"seat_no" db:"seat_no"`
}

// CreateBookingRequest 訂票請求
type CreateBookingRequest struct {
	TrainNo     int    `json:"train_no" binding:"required"`
	Username    string `json:"username" binding:"required"`
	SeatCount   int    `json:"seat_count" binding:"required,min=1"`
	CoachClass  string `json:"coach_class" binding:"required"`
	TravelDate  string `json:"travel_date" binding:"required"`
	FromStation string `json:"from_station" binding:"required"`
	ToStation   string `json:"to_station" binding:"required"`
	QuotedFare  int    `json:"quoted_fare" binding:"required,min=0"`
}

// UsernameQuery 依使用者列訂票與候補的查詢參數
type UsernameQuery struct {
	Username string `form:"username" binding:"required"`
}

// BookingResult 訂票結果：確認的座位與候補缺額
type BookingResult struct {
	Ticket         *Ticket      `json:"ticket"`
	ClaimedSeats   []TicketSeat `json:"claimed_seats"`
	Shortfall      int          `json:"shortfall"`
	WaitingEntryID *int         `json:"waiting_entry_id,omitempty"`
}

// CancellationResult 退票結果：釋出的座位數與遞補掉的座位數
type CancellationResult struct {
	PNRNo         string `json:"pnr_no"`
	SeatsFreed    int    `json:"seats_freed"`
	PromotedCount int    `json:"promoted_count"`
}
