// Package storage declares the persistence interfaces the services depend on
// and the sentinel errors every implementation maps its failures onto.
package storage

import (
	"context"
	"errors"

	"github.com/habitloop/habitd/internal/app/domain/collectible"
	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/domain/user"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a write violated a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
}

// HabitStore persists habits.
type HabitStore interface {
	CreateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error)
	UpdateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error)
	GetHabit(ctx context.Context, id string) (habit.Habit, error)
	ListActiveHabits(ctx context.Context, userID string) ([]habit.Habit, error)
	CountActiveHabits(ctx context.Context, userID string) (int, error)
}

// CompletionStore persists per-day completion marks. Mark writes are
// idempotent: creating an existing (habit, day) mark or deleting an absent
// one is a no-op.
type CompletionStore interface {
	CreateMark(ctx context.Context, m habit.CompletionMark) error
	DeleteMark(ctx context.Context, habitID string, day habit.Date) error
	DeleteMarksForHabit(ctx context.Context, habitID string) error
	ListMarkedHabitIDs(ctx context.Context, userID string, day habit.Date) ([]string, error)
	CountMarks(ctx context.Context, userID string, day habit.Date) (int, error)
	CountMarksByDay(ctx context.Context, userID string, start, end habit.Date) (map[habit.Date]int, error)
}

// AwardStore persists the collectible ledger. CreateAward returns ErrConflict
// when an award already exists for the (user, day) pair.
type AwardStore interface {
	CreateAward(ctx context.Context, a collectible.Award) (collectible.Award, error)
	HasAwardOn(ctx context.Context, userID string, day habit.Date) (bool, error)
	ListAwards(ctx context.Context, userID string) ([]collectible.Award, error)
	ListOwnedCollectibleIDs(ctx context.Context, userID string) ([]string, error)
}
