package model

import "time"

// User 乘客帳號。認證與個資管理不在本服務範圍，這裡只消費「使用者是否存在」
type User struct {
	Username  string    `json:"username" db:"username"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
