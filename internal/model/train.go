package model

import "time"

// Train 車次模型，路線排定後即不再變動
type Train struct {
	TrainNo   int    `json:"train_no" db:"train_no"`
	TrainName string `json:"train_name" db:"train_name"`
	RouteID   int    `json:"route_id" db:"route_id"`
}

// Schedule (車次, 日期) 的發車確認；訂票只能訂在有 Schedule 的日期
type Schedule struct {
	TrainNo    int       `json:"train_no" db:"train_no"`
	TravelDate time.Time `json:"travel_date" db:"travel_date"`
	WeekDay    string    `json:"week_day" db:"week_day"`
	StartTime  *string   `json:"start_time,omitempty" db:"start_time"`
	EndTime    *string   `json:"end_time,omitempty" db:"end_time"`
}

// TrainSummary 車次查詢結果
type TrainSummary struct {
	TrainNo            int    `json:"train_no"`
	TrainName          string `json:"train_name"`
	SourceStation      string `json:"source_station"`
	DestinationStation string `json:"destination_station"`
	TotalSeats         int    `json:"total_seats"`
	AvailableSeats     int    `json:"available_seats"`
	ACSeatsAvailable   int    `json:"ac_seats_available"`
	BaseFare           int    `json:"base_fare"`
	ACFare             int    `json:"ac_fare"`
	Distance           int    `json:"distance"`
	Status             string `json:"status"`
}

// TrainSearchResult 起訖站查詢結果，票價依兩站間路段距離計算
type TrainSearchResult struct {
	TrainNo          int    `json:"train_no"`
	TrainName        string `json:"train_name"`
	FromStation      string `json:"from_station"`
	ToStation        string `json:"to_station"`
	Distance         int    `json:"distance"`
	BaseFare         int    `json:"base_fare"`
	ACFare           int    `json:"ac_fare"`
	AvailableSeats   int    `json:"available_seats"`
	ACSeatsAvailable int    `json:"ac_seats_available"`
}

// ScheduleDate 某車次的可訂日期
type ScheduleDate struct {
	Date string `json:"date"`
	Day  string `json:"day"`
}
