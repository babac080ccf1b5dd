package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/habitloop/habitd/internal/app/domain/collectible"
	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/domain/user"
	"github.com/habitloop/habitd/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu              sync.RWMutex
	nextID          int64
	users           map[string]user.User
	usersByUsername map[string]string
	usersByEmail    map[string]string
	habits          map[string]habit.Habit
	marks           map[string]habit.CompletionMark // keyed habitID|day
	awards          map[string]collectible.Award
	awardsByUserDay map[string]string // userID|day -> award ID
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.HabitStore = (*Store)(nil)
var _ storage.CompletionStore = (*Store)(nil)
var _ storage.AwardStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:          1,
		users:           make(map[string]user.User),
		usersByUsername: make(map[string]string),
		usersByEmail:    make(map[string]string),
		habits:          make(map[string]habit.Habit),
		marks:           make(map[string]habit.CompletionMark),
		awards:          make(map[string]collectible.Award),
		awardsByUserDay: make(map[string]string),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func markKey(habitID string, day habit.Date) string {
	return habitID + "|" + string(day)
}

func awardKey(userID string, day habit.Date) string {
	return userID + "|" + string(day)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByUsername[u.Username]; taken {
		return user.User{}, fmt.Errorf("username %s: %w", u.Username, storage.ErrConflict)
	}
	if _, taken := s.usersByEmail[u.Email]; taken {
		return user.User{}, fmt.Errorf("email %s: %w", u.Email, storage.ErrConflict)
	}

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	u.CreatedAt = time.Now().UTC()

	s.users[u.ID] = u
	s.usersByUsername[u.Username] = u.ID
	s.usersByEmail[u.Email] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByUsername[username]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
	}
	return s.users[id], nil
}

// HabitStore implementation ---------------------------------------------------

func (s *Store) CreateHabit(_ context.Context, h habit.Habit) (habit.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = s.nextIDLocked()
	} else if _, exists := s.habits[h.ID]; exists {
		return habit.Habit{}, fmt.Errorf("habit %s: %w", h.ID, storage.ErrConflict)
	}

	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	s.habits[h.ID] = h
	return h, nil
}

func (s *Store) UpdateHabit(_ context.Context, h habit.Habit) (habit.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.habits[h.ID]
	if !ok {
		return habit.Habit{}, fmt.Errorf("habit %s: %w", h.ID, storage.ErrNotFound)
	}

	h.CreatedAt = original.CreatedAt
	h.UpdatedAt = time.Now().UTC()

	s.habits[h.ID] = h
	return h, nil
}

func (s *Store) GetHabit(_ context.Context, id string) (habit.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.habits[id]
	if !ok {
		return habit.Habit{}, fmt.Errorf("habit %s: %w", id, storage.ErrNotFound)
	}
	return h, nil
}

func (s *Store) ListActiveHabits(_ context.Context, userID string) ([]habit.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]habit.Habit, 0)
	for _, h := range s.habits {
		if h.UserID == userID && h.Active {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) CountActiveHabits(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, h := range s.habits {
		if h.UserID == userID && h.Active {
			count++
		}
	}
	return count, nil
}

// CompletionStore implementation ----------------------------------------------

func (s *Store) CreateMark(_ context.Context, m habit.CompletionMark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := markKey(m.HabitID, m.CompletedOn)
	if _, exists := s.marks[key]; exists {
		return nil
	}
	if m.ID == "" {
		m.ID = s.nextIDLocked()
	}
	m.CreatedAt = time.Now().UTC()
	s.marks[key] = m
	return nil
}

func (s *Store) DeleteMark(_ context.Context, habitID string, day habit.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.marks, markKey(habitID, day))
	return nil
}

func (s *Store) DeleteMarksForHabit(_ context.Context, habitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, m := range s.marks {
		if m.HabitID == habitID {
			delete(s.marks, key)
		}
	}
	return nil
}

func (s *Store) ListMarkedHabitIDs(_ context.Context, userID string, day habit.Date) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for _, m := range s.marks {
		if m.UserID == userID && m.CompletedOn == day {
			ids = append(ids, m.HabitID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) CountMarks(_ context.Context, userID string, day habit.Date) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.marks {
		if m.UserID == userID && m.CompletedOn == day {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountMarksByDay(_ context.Context, userID string, start, end habit.Date) (map[habit.Date]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[habit.Date]int)
	for _, m := range s.marks {
		if m.UserID != userID {
			continue
		}
		if start.After(m.CompletedOn) || m.CompletedOn.After(end) {
			continue
		}
		counts[m.CompletedOn]++
	}
	return counts, nil
}

// AwardStore implementation ---------------------------------------------------

func (s *Store) CreateAward(_ context.Context, a collectible.Award) (collectible.Award, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := awardKey(a.UserID, a.EarnedOn)
	if _, exists := s.awardsByUserDay[key]; exists {
		return collectible.Award{}, fmt.Errorf("award for %s on %s: %w", a.UserID, a.EarnedOn, storage.ErrConflict)
	}

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	}
	a.CreatedAt = time.Now().UTC()

	s.awards[a.ID] = a
	s.awardsByUserDay[key] = a.ID
	return a, nil
}

func (s *Store) HasAwardOn(_ context.Context, userID string, day habit.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.awardsByUserDay[awardKey(userID, day)]
	return ok, nil
}

func (s *Store) ListAwards(_ context.Context, userID string) ([]collectible.Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]collectible.Award, 0)
	for _, a := range s.awards {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EarnedOn == result[j].EarnedOn {
			return result[i].ID > result[j].ID
		}
		return result[i].EarnedOn.After(result[j].EarnedOn)
	})
	return result, nil
}

func (s *Store) ListOwnedCollectibleIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, a := range s.awards {
		if a.UserID == userID && !seen[a.CollectibleID] {
			seen[a.CollectibleID] = true
			ids = append(ids, a.CollectibleID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
