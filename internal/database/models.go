package database

import "time"

type User struct {
	Id           int64
	Username     string
	EmailAddress string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Event struct {
	Id        int64
	Title     string
	OwnerId   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
