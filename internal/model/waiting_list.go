package model

import "time"

// WaitingListEntry 候補項目。
// SeqNo 是 (車次, 艙等) 範圍內遞增的 FIFO 序號，不是全域流水號；
// SeatCount 是尚未滿足的座位數，存在期間恆 > 0，遞補只會遞減或整筆刪除。
type WaitingListEntry struct {
	ID         int       `json:"id" db:"id"`
	SeqNo      int       `json:"seq_no" db:"seq_no"`
	PNRNo      string    `json:"pnr_no" db:"pnr_no"`
	Username   string    `json:"username" db:"username"`
	TrainNo    int       `json:"train_no" db:"train_no"`
	CoachClass string    `json:"coach_class" db:"coach_class"`
	SeatCount  int       `json:"seat_count" db:"seat_count"`
	TravelDate time.Time `json:"travel_date" db:"travel_date"`
}
