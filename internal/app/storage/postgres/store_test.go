package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/habitloop/habitd/internal/app/domain/collectible"
	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/domain/user"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/internal/platform/database"
	"github.com/habitloop/habitd/internal/platform/migrations"
)

// Integration test; runs only when a database is provided:
//
//	HABITD_TEST_POSTGRES_DSN=postgres://... go test ./internal/app/storage/postgres/
func testStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("HABITD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HABITD_TEST_POSTGRES_DSN not set")
	}

	db, err := database.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.Apply(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE collectible_awards, habit_completions, habits, users`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return New(db)
}

func seedUser(t *testing.T, store *Store) user.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), user.User{
		ID:           uuid.NewString(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestStore_Users(t *testing.T) {
	store := testStore(t)
	u := seedUser(t, store)

	_, err := store.CreateUser(context.Background(), user.User{
		ID:           uuid.NewString(),
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	byName, err := store.GetUserByUsername(context.Background(), "alice")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("get by username: %v", err)
	}
	if _, err := store.GetUser(context.Background(), uuid.NewString()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_HabitsAndMarks(t *testing.T) {
	store := testStore(t)
	u := seedUser(t, store)

	h, err := store.CreateHabit(context.Background(), habit.Habit{
		ID:     uuid.NewString(),
		UserID: u.ID,
		Name:   "exercise",
		Active: true,
	})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}

	mark := habit.CompletionMark{
		ID:          uuid.NewString(),
		UserID:      u.ID,
		HabitID:     h.ID,
		CompletedOn: "2024-03-15",
	}
	if err := store.CreateMark(context.Background(), mark); err != nil {
		t.Fatalf("create mark: %v", err)
	}
	// The unique index turns a repeat into a no-op.
	mark.ID = uuid.NewString()
	if err := store.CreateMark(context.Background(), mark); err != nil {
		t.Fatalf("repeat create mark: %v", err)
	}

	count, err := store.CountMarks(context.Background(), u.ID, "2024-03-15")
	if err != nil {
		t.Fatalf("count marks: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one mark, got %d", count)
	}

	counts, err := store.CountMarksByDay(context.Background(), u.ID, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("count by day: %v", err)
	}
	if counts["2024-03-15"] != 1 {
		t.Fatalf("expected grouped count, got %v", counts)
	}

	if err := store.DeleteMarksForHabit(context.Background(), h.ID); err != nil {
		t.Fatalf("delete marks: %v", err)
	}
	h.Active = false
	if _, err := store.UpdateHabit(context.Background(), h); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, err := store.CountActiveHabits(context.Background(), u.ID)
	if err != nil || active != 0 {
		t.Fatalf("expected no active habits, got %d (%v)", active, err)
	}
}

func TestStore_AwardConflict(t *testing.T) {
	store := testStore(t)
	u := seedUser(t, store)

	first := collectible.Award{
		ID:            uuid.NewString(),
		UserID:        u.ID,
		CollectibleID: "gold.svg",
		EarnedOn:      "2024-03-15",
		Percentage:    100,
	}
	if _, err := store.CreateAward(context.Background(), first); err != nil {
		t.Fatalf("create award: %v", err)
	}

	second := first
	second.ID = uuid.NewString()
	second.CollectibleID = "silver.svg"
	if _, err := store.CreateAward(context.Background(), second); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict for same day, got %v", err)
	}

	has, err := store.HasAwardOn(context.Background(), u.ID, "2024-03-15")
	if err != nil || !has {
		t.Fatalf("expected award present: %v", err)
	}

	owned, err := store.ListOwnedCollectibleIDs(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("list owned: %v", err)
	}
	if len(owned) != 1 || owned[0] != "gold.svg" {
		t.Fatalf("expected [gold.svg], got %v", owned)
	}
}
