package domain

import "time"

type User struct {
	TelegramID int64
	FullName   string
	Department string
	Phone      string
	IsAdmin    bool
	CreatedAt  time.Time
}
