package model

// Seat 實體座位，由 (車次, 車廂, 艙等, 座號) 唯一識別。
// Available 是悲觀的粗粒度旗標：只要有任一有效訂票佔用就是 0；
// 部分路段能否共乘，以該座位所有 TicketSeat 的區間重疊檢查為準。
type Seat struct {
	TrainNo    int    `json:"train_no" db:"train_no"`
	CoachNo    int    `json:"coach_no" db:"coach_no"`
	CoachClass string `json:"coach_class" db:"coach_class"`
	SeatNo     int    `json:"seat_no" db:"seat_no"`
	Available  bool   `json:"available" db:"available"`
	// ClaimVersion 樂觀並發版本號，佔位/釋出各加一；佔位以「版本號未變」為成功條件。
	// 只比對 Available 旗標會誤擋同站接續共乘（旗標為 0 但區間不重疊的座位仍可再訂）。
	ClaimVersion int `json:"-" db:"claim_version"`

	// Assignments 此座位目前的訂票佔用（含各訂票的起訖站），查詢時一併帶出
	Assignments []SeatAssignment `json:"assignments,omitempty" db:"-"`
}

// SeatAssignment 座位上既有訂票的行程，用來做區間重疊判定
type SeatAssignment struct {
	PNRNo       string `json:"pnr_no" db:"pnr_no"`
	FromStation string `json:"from_station" db:"from_station"`
	ToStation   string `json:"to_station" db:"to_station"`
}

// SeatRef 座位識別（不含狀態），TicketSeat 與釋出清單共用
type SeatRef struct {
	TrainNo    int    `json:"train_no" db:"train_no"`
	CoachNo    int    `json:"coach_no" db:"coach_no"`
	CoachClass string `json:"coach_class" db:"coach_class"`
	SeatNo     int    `json:"seat_no" db:"seat_no"`
}

func (s *Seat) Ref() SeatRef {
	return SeatRef{
		TrainNo:    s.TrainNo,
		CoachNo:    s.CoachNo,
		CoachClass: s.CoachClass,
		SeatNo:     s.SeatNo,
	}
}
