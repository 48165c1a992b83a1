package model

// Interval 行程區間：以停靠順序為座標的半開區間 [From, To)
type Interval struct {
	From int
	To   int
}

// Overlaps 判斷兩段行程是否共用任一路段。
// 半開區間相交測試：To == From 只是同站上下車，合法共用同一座位。
func (a Interval) Overlaps(b Interval) bool {
	return !(a.To <= b.From || b.To <= a.From)
}

// RouteStation 路線停靠站，Stop_Order 沿路線嚴格遞增且不重複
type RouteStation struct {
	RouteID       int     `json:"route_id" db:"route_id"`
	StationName   string  `json:"station_name" db:"station_name"`
	StopOrder     int     `json:"stop_order" db:"stop_order"`
	ArrivalTime   *string `json:"arrival_time,omitempty" db:"arrival_time"`
	DepartureTime *string `json:"departure_time,omitempty" db:"departure_time"`
}

// RouteEdge 相鄰兩站的路段距離，票價試算用
type RouteEdge struct {
	RouteID         int    `json:"route_id" db:"route_id"`
	FromStation     string `json:"from_station" db:"from_station"`
	ToStation       string `json:"to_station" db:"to_station"`
	SegmentDistance int    `json:"segment_distance" db:"segment_distance"`
}
