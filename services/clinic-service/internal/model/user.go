package model

import "time"

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Role         string
	CreatedAt    time.Time
}
