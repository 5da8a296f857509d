package domain

import "time"

type TableStatus string

const (
	TableStatusAvailable   TableStatus = "available"
	TableStatusUnavailable TableStatus = "unavailable"
)

type Table struct {
	ID          int64
	TableNumber string
	TableType   string
	Capacity    int
	Description string
	Status      TableStatus
}

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID              int64
	TableID         int64
	CustomerID      int64
	CustomerName    string
	Phone           string
	Email           string
	ReservationDate string // YYYY-MM-DD
	ReservationTime string // HH:MM
	Guests          int
	SpecialRequests string
	Status          ReservationStatus
	CreatedAt       time.Time
}
