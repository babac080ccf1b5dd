// Package habits implements habit lifecycle: creation under the per-user cap,
// renaming, removal, and listing.
package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/pkg/logger"
)

// MaxHabitsPerUser caps how many active habits one account may have at once.
// Removing a habit frees its slot.
const MaxHabitsPerUser = 20

var (
	// ErrLimit indicates the account reached MaxHabitsPerUser.
	ErrLimit = errors.New("habit limit reached")
	// ErrName indicates an empty or over-long habit name.
	ErrName = errors.New("invalid habit name")
)

const maxNameLen = 100

// Service handles habit lifecycle.
type Service struct {
	habits      storage.HabitStore
	completions storage.CompletionStore
	log         *logger.Logger
}

// New creates the habits service.
func New(habits storage.HabitStore, completions storage.CompletionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("habits")
	}
	return &Service{habits: habits, completions: completions, log: log}
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return "", ErrName
	}
	return name, nil
}

// Create adds a habit for the user, enforcing the per-user cap.
func (s *Service) Create(ctx context.Context, userID, name string) (habit.Habit, error) {
	name, err := validName(name)
	if err != nil {
		return habit.Habit{}, err
	}

	count, err := s.habits.CountActiveHabits(ctx, userID)
	if err != nil {
		return habit.Habit{}, err
	}
	if count >= MaxHabitsPerUser {
		return habit.Habit{}, fmt.Errorf("%w (%d)", ErrLimit, MaxHabitsPerUser)
	}

	created, err := s.habits.CreateHabit(ctx, habit.Habit{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		Active: true,
	})
	if err != nil {
		return habit.Habit{}, err
	}

	s.log.WithField("habit_id", created.ID).WithField("user_id", userID).Info("habit created")
	return created, nil
}

// Rename changes a habit's name. The habit must belong to the user.
func (s *Service) Rename(ctx context.Context, userID, habitID, name string) (habit.Habit, error) {
	name, err := validName(name)
	if err != nil {
		return habit.Habit{}, err
	}

	h, err := s.owned(ctx, userID, habitID)
	if err != nil {
		return habit.Habit{}, err
	}

	h.Name = name
	return s.habits.UpdateHabit(ctx, h)
}

// Remove deactivates a habit and deletes its completion marks. The habit row
// stays behind so issued awards keep their history; the marks go so the habit
// stops influencing rates entirely.
func (s *Service) Remove(ctx context.Context, userID, habitID string) error {
	h, err := s.owned(ctx, userID, habitID)
	if err != nil {
		return err
	}

	h.Active = false
	if _, err := s.habits.UpdateHabit(ctx, h); err != nil {
		return err
	}
	if err := s.completions.DeleteMarksForHabit(ctx, habitID); err != nil {
		return err
	}

	s.log.WithField("habit_id", habitID).WithField("user_id", userID).Info("habit removed")
	return nil
}

// ListActive returns the user's active habits, oldest first.
func (s *Service) ListActive(ctx context.Context, userID string) ([]habit.Habit, error) {
	return s.habits.ListActiveHabits(ctx, userID)
}

// owned fetches a habit and hides it behind ErrNotFound when it belongs to a
// different user.
func (s *Service) owned(ctx context.Context, userID, habitID string) (habit.Habit, error) {
	h, err := s.habits.GetHabit(ctx, habitID)
	if err != nil {
		return habit.Habit{}, err
	}
	if h.UserID != userID {
		return habit.Habit{}, fmt.Errorf("habit %s: %w", habitID, storage.ErrNotFound)
	}
	return h, nil
}
