// Package habit defines the habit and completion-mark models shared by the
// tracker services and stores.
package habit

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar days.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time component, formatted YYYY-MM-DD.
// The ISO ordering means lexicographic comparison matches chronological order.
type Date string

// ParseDate validates and normalizes a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf truncates a time to its calendar day.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Today returns the current calendar day in local time.
func Today() Date {
	return DateOf(time.Now())
}

// Time returns the day at midnight UTC.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return DateOf(d.Time().AddDate(0, 0, 1))
}

// After reports whether d falls after other.
func (d Date) After(other Date) bool {
	return string(d) > string(other)
}

func (d Date) String() string {
	return string(d)
}

// Habit is a user-owned daily habit. Only active habits count toward the
// daily completion rate; removal deactivates the row instead of deleting it.
type Habit struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompletionMark records that a habit was completed on a given day. At most
// one mark exists per (habit, day); unmarking deletes the row.
type CompletionMark struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	HabitID     string    `json:"habit_id"`
	CompletedOn Date      `json:"completed_on"`
	CreatedAt   time.Time `json:"created_at"`
}

// Status pairs a habit with its completion flag for one day.
type Status struct {
	Habit     Habit `json:"habit"`
	Completed bool  `json:"completed"`
}
