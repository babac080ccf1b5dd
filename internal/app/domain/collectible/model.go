// Package collectible defines the reward-ledger models: awards earned by
// hitting the daily completion threshold, heatmap samples, and the public
// profile view.
package collectible

import (
	"time"

	"github.com/habitloop/habitd/internal/app/domain/habit"
)

// Award records one collectible granted to a user for one day. At most one
// award exists per (user, day); awards are immutable once written.
type Award struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	CollectibleID string     `json:"collectible_id"`
	EarnedOn      habit.Date `json:"earned_on"`
	Percentage    int        `json:"percentage"`
	CreatedAt     time.Time  `json:"created_at"`
}

// DaySample is one heatmap cell: the completion picture for a single day.
// ActiveHabits is the current active-habit count, not a historical value.
type DaySample struct {
	Date         habit.Date `json:"date"`
	Completed    int        `json:"completed"`
	ActiveHabits int        `json:"active_habits"`
	Percentage   int        `json:"percentage"`
}

// ProfileStats carries headline numbers for the public profile. Streaks are
// not computed yet and stay zero.
type ProfileStats struct {
	TotalCollectibles int `json:"total_collectibles"`
	CurrentStreak     int `json:"current_streak"`
	LongestStreak     int `json:"longest_streak"`
}

// Profile is the public view of a user: owned collectibles plus a recent
// heatmap window. No private fields appear here.
type Profile struct {
	Username    string       `json:"username"`
	MemberSince time.Time    `json:"member_since"`
	Awards      []Award      `json:"awards"`
	Heatmap     []DaySample  `json:"heatmap"`
	Stats       ProfileStats `json:"stats"`
}
