package model

import "time"

type Service struct {
	ID              int64
	Name            string
	Description     string
	DurationMinutes int
	Price           float64
	Available       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
