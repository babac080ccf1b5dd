// Package postgres implements the storage interfaces on PostgreSQL via
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/habitloop/habitd/internal/app/domain/collectible"
	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/domain/user"
	"github.com/habitloop/habitd/internal/app/storage"
)

// Store is the production implementation of the storage interfaces.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.HabitStore = (*Store)(nil)
var _ storage.CompletionStore = (*Store)(nil)
var _ storage.AwardStore = (*Store)(nil)

// New wraps an open database handle. The caller owns the handle's lifecycle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	const q = `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := s.db.QueryRowContext(ctx, q, u.ID, u.Username, u.Email, u.PasswordHash).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return user.User{}, fmt.Errorf("user %s: %w", u.Username, storage.ErrConflict)
	}
	if err != nil {
		return user.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	const q = `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, q, id), id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	const q = `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, q, username), username)
}

func (s *Store) scanUser(row *sql.Row, key string) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, fmt.Errorf("user %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// HabitStore implementation ---------------------------------------------------

func (s *Store) CreateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	const q = `
		INSERT INTO habits (id, user_id, name, active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowContext(ctx, q, h.ID, h.UserID, h.Name, h.Active).Scan(&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("create habit: %w", err)
	}
	return h, nil
}

func (s *Store) UpdateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	const q = `
		UPDATE habits SET name = $2, active = $3, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := s.db.QueryRowContext(ctx, q, h.ID, h.Name, h.Active).Scan(&h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.Habit{}, fmt.Errorf("habit %s: %w", h.ID, storage.ErrNotFound)
	}
	if err != nil {
		return habit.Habit{}, fmt.Errorf("update habit: %w", err)
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, id string) (habit.Habit, error) {
	const q = `
		SELECT id, user_id, name, active, created_at, updated_at
		FROM habits WHERE id = $1`

	var h habit.Habit
	err := s.db.QueryRowContext(ctx, q, id).Scan(&h.ID, &h.UserID, &h.Name, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.Habit{}, fmt.Errorf("habit %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return habit.Habit{}, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

func (s *Store) ListActiveHabits(ctx context.Context, userID string) ([]habit.Habit, error) {
	const q = `
		SELECT id, user_id, name, active, created_at, updated_at
		FROM habits
		WHERE user_id = $1 AND active
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	result := make([]habit.Habit, 0)
	for rows.Next() {
		var h habit.Habit
		if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &h.Active, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (s *Store) CountActiveHabits(ctx context.Context, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM habits WHERE user_id = $1 AND active`

	var count int
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count habits: %w", err)
	}
	return count, nil
}

// CompletionStore implementation ----------------------------------------------

func (s *Store) CreateMark(ctx context.Context, m habit.CompletionMark) error {
	const q = `
		INSERT INTO habit_completions (id, user_id, habit_id, completed_on)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (habit_id, completed_on) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, q, m.ID, m.UserID, m.HabitID, string(m.CompletedOn)); err != nil {
		return fmt.Errorf("create completion mark: %w", err)
	}
	return nil
}

func (s *Store) DeleteMark(ctx context.Context, habitID string, day habit.Date) error {
	const q = `DELETE FROM habit_completions WHERE habit_id = $1 AND completed_on = $2`
	if _, err := s.db.ExecContext(ctx, q, habitID, string(day)); err != nil {
		return fmt.Errorf("delete completion mark: %w", err)
	}
	return nil
}

func (s *Store) DeleteMarksForHabit(ctx context.Context, habitID string) error {
	const q = `DELETE FROM habit_completions WHERE habit_id = $1`
	if _, err := s.db.ExecContext(ctx, q, habitID); err != nil {
		return fmt.Errorf("delete completion marks: %w", err)
	}
	return nil
}

func (s *Store) ListMarkedHabitIDs(ctx context.Context, userID string, day habit.Date) ([]string, error) {
	const q = `
		SELECT habit_id FROM habit_completions
		WHERE user_id = $1 AND completed_on = $2
		ORDER BY habit_id`

	rows, err := s.db.QueryContext(ctx, q, userID, string(day))
	if err != nil {
		return nil, fmt.Errorf("list completion marks: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completion mark: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) CountMarks(ctx context.Context, userID string, day habit.Date) (int, error) {
	const q = `SELECT COUNT(*) FROM habit_completions WHERE user_id = $1 AND completed_on = $2`

	var count int
	if err := s.db.QueryRowContext(ctx, q, userID, string(day)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count completion marks: %w", err)
	}
	return count, nil
}

func (s *Store) CountMarksByDay(ctx context.Context, userID string, start, end habit.Date) (map[habit.Date]int, error) {
	const q = `
		SELECT completed_on, COUNT(*) FROM habit_completions
		WHERE user_id = $1 AND completed_on BETWEEN $2 AND $3
		GROUP BY completed_on`

	rows, err := s.db.QueryContext(ctx, q, userID, string(start), string(end))
	if err != nil {
		return nil, fmt.Errorf("count completion marks by day: %w", err)
	}
	defer rows.Close()

	counts := make(map[habit.Date]int)
	for rows.Next() {
		var (
			day   time.Time
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan completion count: %w", err)
		}
		counts[habit.DateOf(day)] = count
	}
	return counts, rows.Err()
}

// AwardStore implementation ---------------------------------------------------

func (s *Store) CreateAward(ctx context.Context, a collectible.Award) (collectible.Award, error) {
	const q = `
		INSERT INTO collectible_awards (id, user_id, collectible_id, earned_on, percentage)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := s.db.QueryRowContext(ctx, q, a.ID, a.UserID, a.CollectibleID, string(a.EarnedOn), a.Percentage).Scan(&a.CreatedAt)
	if isUniqueViolation(err) {
		return collectible.Award{}, fmt.Errorf("award for %s on %s: %w", a.UserID, a.EarnedOn, storage.ErrConflict)
	}
	if err != nil {
		return collectible.Award{}, fmt.Errorf("create award: %w", err)
	}
	return a, nil
}

func (s *Store) HasAwardOn(ctx context.Context, userID string, day habit.Date) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM collectible_awards WHERE user_id = $1 AND earned_on = $2)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, q, userID, string(day)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check award: %w", err)
	}
	return exists, nil
}

func (s *Store) ListAwards(ctx context.Context, userID string) ([]collectible.Award, error) {
	const q = `
		SELECT id, user_id, collectible_id, earned_on, percentage, created_at
		FROM collectible_awards
		WHERE user_id = $1
		ORDER BY earned_on DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	defer rows.Close()

	result := make([]collectible.Award, 0)
	for rows.Next() {
		var (
			a   collectible.Award
			day time.Time
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.CollectibleID, &day, &a.Percentage, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		a.EarnedOn = habit.DateOf(day)
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) ListOwnedCollectibleIDs(ctx context.Context, userID string) ([]string, error) {
	const q = `
		SELECT DISTINCT collectible_id FROM collectible_awards
		WHERE user_id = $1
		ORDER BY collectible_id`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned collectibles: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan collectible id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
