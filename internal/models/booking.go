package models

import "time"

// BookingStatus is the lifecycle state of a lesson booking
type BookingStatus string

// BookingStatus constants
const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking represents a lesson booked between a student and a tutor
type Booking struct {
	ID              string        `json:"id"`
	TutorID         string        `json:"tutor_id"`
	TutorName       string        `json:"tutor_name"`
	StudentID       string        `json:"student_id"`
	StudentName     string        `json:"student_name"`
	Subject         string        `json:"subject"`
	StartsAt        time.Time     `json:"starts_at"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          BookingStatus `json:"status"`
}

// Upcoming reports whether the booking starts after now and is still active.
func (b Booking) Upcoming(now time.Time) bool {
	if b.Status == BookingCancelled || b.Status == BookingCompleted {
		return false
	}
	return b.StartsAt.After(now)
}
