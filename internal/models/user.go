package models

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CompanyID    *int64
	CreatedAt    time.Time
}
