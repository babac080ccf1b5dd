package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/habitloop/habitd/internal/app/collectibles"
	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/domain/user"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/internal/app/storage/memory"
)

const day = habit.Date("2024-03-15")

func setup(t *testing.T, habitCount int, pool []string) (*Service, *memory.Store, string, []string) {
	t.Helper()
	store := memory.New()

	u, err := store.CreateUser(context.Background(), user.User{Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	habitIDs := make([]string, 0, habitCount)
	for i := 0; i < habitCount; i++ {
		h, err := store.CreateHabit(context.Background(), habit.Habit{UserID: u.ID, Name: "habit", Active: true})
		if err != nil {
			t.Fatalf("create habit: %v", err)
		}
		habitIDs = append(habitIDs, h.ID)
	}

	svc := New(store, store, store, store, collectibles.StaticPool(pool), nil)
	return svc, store, u.ID, habitIDs
}

func complete(t *testing.T, svc *Service, userID string, habitIDs []string, n int) ToggleResult {
	t.Helper()
	var last ToggleResult
	for i := 0; i < n; i++ {
		result, err := svc.ToggleCompletion(context.Background(), userID, habitIDs[i], day, true)
		if err != nil {
			t.Fatalf("toggle habit %d: %v", i, err)
		}
		last = result
	}
	return last
}

func TestRate_NoActiveHabits(t *testing.T) {
	svc, _, userID, _ := setup(t, 0, nil)

	rate, err := svc.Rate(context.Background(), userID, day)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rate != 0 {
		t.Fatalf("expected rate 0 for user with no habits, got %v", rate)
	}
}

func TestRate_PartialCompletion(t *testing.T) {
	svc, _, userID, habitIDs := setup(t, 4, nil)
	complete(t, svc, userID, habitIDs, 3)

	rate, err := svc.Rate(context.Background(), userID, day)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rate != 0.75 {
		t.Fatalf("expected rate 0.75, got %v", rate)
	}
}

func TestToggleCompletion_Idempotent(t *testing.T) {
	svc, store, userID, habitIDs := setup(t, 2, nil)

	first, err := svc.ToggleCompletion(context.Background(), userID, habitIDs[0], day, true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	second, err := svc.ToggleCompletion(context.Background(), userID, habitIDs[0], day, true)
	if err != nil {
		t.Fatalf("repeat toggle: %v", err)
	}
	if first.Rate != 0.5 || second.Rate != 0.5 {
		t.Fatalf("expected rate 0.5 after both toggles, got %v then %v", first.Rate, second.Rate)
	}

	count, err := store.CountMarks(context.Background(), userID, day)
	if err != nil {
		t.Fatalf("count marks: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one mark after repeated toggle, got %d", count)
	}
}

func TestToggleCompletion_Unmark(t *testing.T) {
	svc, _, userID, habitIDs := setup(t, 2, nil)
	complete(t, svc, userID, habitIDs, 1)

	result, err := svc.ToggleCompletion(context.Background(), userID, habitIDs[0], day, false)
	if err != nil {
		t.Fatalf("unmark: %v", err)
	}
	if result.Rate != 0 {
		t.Fatalf("expected rate 0 after unmark, got %v", result.Rate)
	}
	if result.Award != nil {
		t.Fatalf("unexpected award on unmark")
	}

	// Unmarking an already-unmarked habit is a no-op.
	if _, err := svc.ToggleCompletion(context.Background(), userID, habitIDs[0], day, false); err != nil {
		t.Fatalf("repeat unmark: %v", err)
	}
}

func TestToggleCompletion_UnknownHabit(t *testing.T) {
	svc, _, userID, _ := setup(t, 1, nil)

	_, err := svc.ToggleCompletion(context.Background(), userID, "missing", day, true)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleCompletion_ForeignHabit(t *testing.T) {
	svc, store, userID, _ := setup(t, 1, nil)

	other, err := store.CreateUser(context.Background(), user.User{Username: "bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	foreign, err := store.CreateHabit(context.Background(), habit.Habit{UserID: other.ID, Name: "theirs", Active: true})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}

	_, err = svc.ToggleCompletion(context.Background(), userID, foreign.ID, day, true)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign habit, got %v", err)
	}
}

func TestToggleCompletion_InactiveHabit(t *testing.T) {
	svc, store, userID, habitIDs := setup(t, 1, nil)

	h, err := store.GetHabit(context.Background(), habitIDs[0])
	if err != nil {
		t.Fatalf("get habit: %v", err)
	}
	h.Active = false
	if _, err := store.UpdateHabit(context.Background(), h); err != nil {
		t.Fatalf("deactivate habit: %v", err)
	}

	_, err = svc.ToggleCompletion(context.Background(), userID, habitIDs[0], day, true)
	if !errors.Is(err, ErrInactiveHabit) {
		t.Fatalf("expected ErrInactiveHabit, got %v", err)
	}
}

func TestMaybeAward_ThresholdBoundary(t *testing.T) {
	// 9 of 10 is exactly the threshold and must award.
	svc, _, userID, habitIDs := setup(t, 10, []string{"gold.svg"})
	result := complete(t, svc, userID, habitIDs, 9)
	if result.Award == nil {
		t.Fatalf("expected award at 9/10")
	}
	if result.Award.Percentage != 90 {
		t.Fatalf("expected percentage 90, got %d", result.Award.Percentage)
	}

	// 8 of 9 is just below and must not.
	svc, _, userID, habitIDs = setup(t, 9, []string{"gold.svg"})
	result = complete(t, svc, userID, habitIDs, 8)
	if result.Award != nil {
		t.Fatalf("unexpected award at 8/9")
	}
}

func TestMaybeAward_FullCompletion(t *testing.T) {
	svc, _, userID, habitIDs := setup(t, 4, []string{"gold.svg", "silver.svg"})

	result := complete(t, svc, userID, habitIDs, 4)
	if result.Award == nil {
		t.Fatalf("expected award at 4/4")
	}
	if result.Award.Percentage != 100 {
		t.Fatalf("expected percentage 100, got %d", result.Award.Percentage)
	}
	if result.Award.EarnedOn != day {
		t.Fatalf("expected award earned on %s, got %s", day, result.Award.EarnedOn)
	}
}

func TestMaybeAward_BelowThreshold(t *testing.T) {
	svc, store, userID, habitIDs := setup(t, 4, []string{"gold.svg"})
	complete(t, svc, userID, habitIDs, 3)

	awards, err := store.ListAwards(context.Background(), userID)
	if err != nil {
		t.Fatalf("list awards: %v", err)
	}
	if len(awards) != 0 {
		t.Fatalf("expected no awards at 3/4, got %d", len(awards))
	}
}

func TestMaybeAward_OncePerDay(t *testing.T) {
	svc, store, userID, habitIDs := setup(t, 2, []string{"a.svg", "b.svg", "c.svg"})

	result := complete(t, svc, userID, habitIDs, 2)
	if result.Award == nil {
		t.Fatalf("expected award at 2/2")
	}

	// Re-qualifying on the same day must not produce a second award.
	if _, err := svc.ToggleCompletion(context.Background(), userID, habitIDs[0], day, false); err != nil {
		t.Fatalf("unmark: %v", err)
	}
	again, err := svc.ToggleCompletion(context.Background(), userID, habitIDs[0], day, true)
	if err != nil {
		t.Fatalf("re-toggle: %v", err)
	}
	if again.Award != nil {
		t.Fatalf("expected no second award on the same day")
	}

	awards, err := store.ListAwards(context.Background(), userID)
	if err != nil {
		t.Fatalf("list awards: %v", err)
	}
	if len(awards) != 1 {
		t.Fatalf("expected exactly one award, got %d", len(awards))
	}
}

func TestMaybeAward_DirectCallAfterToggleIsNoop(t *testing.T) {
	svc, store, userID, habitIDs := setup(t, 1, []string{"a.svg", "b.svg"})
	complete(t, svc, userID, habitIDs, 1)

	award, err := svc.MaybeAward(context.Background(), userID, day)
	if err != nil {
		t.Fatalf("maybe award: %v", err)
	}
	if award != nil {
		t.Fatalf("expected nil award on second allocation for the day")
	}

	awards, err := store.ListAwards(context.Background(), userID)
	if err != nil {
		t.Fatalf("list awards: %v", err)
	}
	if len(awards) != 1 {
		t.Fatalf("expected one award, got %d", len(awards))
	}
}

func TestMaybeAward_EmptyPool(t *testing.T) {
	svc, store, userID, habitIDs := setup(t, 1, nil)

	result := complete(t, svc, userID, habitIDs, 1)
	if result.Award != nil {
		t.Fatalf("unexpected award from empty pool")
	}

	awards, err := store.ListAwards(context.Background(), userID)
	if err != nil {
		t.Fatalf("list awards: %v", err)
	}
	if len(awards) != 0 {
		t.Fatalf("expected no awards, got %d", len(awards))
	}
}

func TestMaybeAward_NoRepeatWhileUnownedRemain(t *testing.T) {
	svc, _, userID, habitIDs := setup(t, 1, []string{"gold.svg", "silver.svg"})

	first := complete(t, svc, userID, habitIDs, 1)
	if first.Award == nil {
		t.Fatalf("expected award on first day")
	}

	second, err := svc.MaybeAward(context.Background(), userID, habit.Date("2024-03-16"))
	if err != nil {
		t.Fatalf("maybe award day two: %v", err)
	}
	if second == nil {
		t.Fatalf("expected award on second day")
	}
	if second.CollectibleID == first.Award.CollectibleID {
		t.Fatalf("expected a different collectible while unowned ones remain")
	}
}

func TestMaybeAward_ExhaustedPoolFallsBack(t *testing.T) {
	svc, _, userID, habitIDs := setup(t, 1, []string{"only.svg"})

	first := complete(t, svc, userID, habitIDs, 1)
	if first.Award == nil || first.Award.CollectibleID != "only.svg" {
		t.Fatalf("expected only.svg awarded, got %+v", first.Award)
	}

	// The pool is exhausted; a later qualifying day still earns a repeat.
	if _, err := svc.ToggleCompletion(context.Background(), userID, habitIDs[0], "2024-03-16", true); err != nil {
		t.Fatalf("toggle day two: %v", err)
	}
	second, err := svc.MaybeAward(context.Background(), userID, "2024-03-16")
	if err != nil {
		t.Fatalf("maybe award day two: %v", err)
	}
	if second != nil {
		t.Fatalf("toggle already awarded; direct call should be a no-op, got %+v", second)
	}

	awards, err := svc.CollectiblesOwned(context.Background(), userID)
	if err != nil {
		t.Fatalf("list awards: %v", err)
	}
	if len(awards) != 2 {
		t.Fatalf("expected two awards after pool exhaustion, got %d", len(awards))
	}
	if awards[0].CollectibleID != "only.svg" || awards[1].CollectibleID != "only.svg" {
		t.Fatalf("expected repeat collectible after exhaustion")
	}
}

type growingPool struct {
	members []string
}

func (p *growingPool) Members(context.Context) ([]string, error) {
	return append([]string(nil), p.members...), nil
}

func TestMaybeAward_RunsOnUnmark(t *testing.T) {
	store := memory.New()
	u, err := store.CreateUser(context.Background(), user.User{Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	habitIDs := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		h, err := store.CreateHabit(context.Background(), habit.Habit{UserID: u.ID, Name: "habit", Active: true})
		if err != nil {
			t.Fatalf("create habit: %v", err)
		}
		habitIDs = append(habitIDs, h.ID)
	}

	pool := &growingPool{}
	svc := New(store, store, store, store, pool, nil)

	// Qualify while the pool is empty: no award can be issued.
	for _, id := range habitIDs {
		result, err := svc.ToggleCompletion(context.Background(), u.ID, id, day, true)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if result.Award != nil {
			t.Fatalf("unexpected award from empty pool")
		}
	}

	// The pool gains a member; an unmark that keeps the day at 19/20 still
	// qualifies and the allocator must run.
	pool.members = []string{"late.svg"}
	result, err := svc.ToggleCompletion(context.Background(), u.ID, habitIDs[0], day, false)
	if err != nil {
		t.Fatalf("unmark: %v", err)
	}
	if result.Rate != 0.95 {
		t.Fatalf("expected rate 0.95 after unmark, got %v", result.Rate)
	}
	if result.Award == nil {
		t.Fatalf("expected award on unmark that stays above the threshold")
	}
	if result.Award.Percentage != 95 {
		t.Fatalf("expected percentage 95, got %d", result.Award.Percentage)
	}
}

func TestHeatmap_FullMonth(t *testing.T) {
	svc, _, userID, habitIDs := setup(t, 4, nil)

	// Three completions on a single January day.
	for i := 0; i < 3; i++ {
		if _, err := svc.ToggleCompletion(context.Background(), userID, habitIDs[i], "2024-01-10", true); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	samples, err := svc.Heatmap(context.Background(), userID, "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	if len(samples) != 31 {
		t.Fatalf("expected 31 samples for January, got %d", len(samples))
	}
	for i, sample := range samples {
		want := habit.DateOf(time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC))
		if sample.Date != want {
			t.Fatalf("sample %d: expected %s, got %s", i, want, sample.Date)
		}
		if sample.ActiveHabits != 4 {
			t.Fatalf("sample %d: expected 4 active habits, got %d", i, sample.ActiveHabits)
		}
	}
	if samples[9].Completed != 3 || samples[9].Percentage != 75 {
		t.Fatalf("expected 3/4 = 75%% on Jan 10, got %d/%d", samples[9].Completed, samples[9].Percentage)
	}
	if samples[0].Completed != 0 || samples[0].Percentage != 0 {
		t.Fatalf("expected empty sample on Jan 1")
	}
}

func TestHeatmap_SingleDayAndInvalidRange(t *testing.T) {
	svc, _, userID, _ := setup(t, 1, nil)

	samples, err := svc.Heatmap(context.Background(), userID, day, day)
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected one sample for a single-day range, got %d", len(samples))
	}

	_, err = svc.Heatmap(context.Background(), userID, "2024-03-16", "2024-03-15")
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestHeatmap_NoHabits(t *testing.T) {
	svc, _, userID, _ := setup(t, 0, nil)

	samples, err := svc.Heatmap(context.Background(), userID, "2024-01-01", "2024-01-03")
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	for _, sample := range samples {
		if sample.Percentage != 0 || sample.ActiveHabits != 0 {
			t.Fatalf("expected zero samples without habits, got %+v", sample)
		}
	}
}

func TestDailySnapshot(t *testing.T) {
	svc, _, userID, habitIDs := setup(t, 3, nil)
	complete(t, svc, userID, habitIDs, 2)

	snapshot, err := svc.DailySnapshot(context.Background(), userID, day)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Habits) != 3 {
		t.Fatalf("expected 3 habits, got %d", len(snapshot.Habits))
	}

	completed := 0
	for _, status := range snapshot.Habits {
		if status.Completed {
			completed++
		}
	}
	if completed != 2 {
		t.Fatalf("expected 2 completed flags, got %d", completed)
	}
	if snapshot.Rate < 0.66 || snapshot.Rate > 0.67 {
		t.Fatalf("expected rate 2/3, got %v", snapshot.Rate)
	}
}

func TestPublicProfile(t *testing.T) {
	svc, _, userID, habitIDs := setup(t, 1, []string{"gold.svg"})
	complete(t, svc, userID, habitIDs, 1)

	profile, err := svc.PublicProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Username != "alice" {
		t.Fatalf("expected username alice, got %s", profile.Username)
	}
	if len(profile.Awards) != 1 || profile.Stats.TotalCollectibles != 1 {
		t.Fatalf("expected one award in profile, got %+v", profile)
	}
	if len(profile.Heatmap) == 0 {
		t.Fatalf("expected a default heatmap window")
	}

	if _, err := svc.PublicProfile(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown username, got %v", err)
	}
}

func TestDefaultWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	start, end := DefaultWindow(now)
	if start != "2024-02-01" {
		t.Fatalf("expected window start 2024-02-01, got %s", start)
	}
	if end != "2024-03-31" {
		t.Fatalf("expected window end 2024-03-31, got %s", end)
	}

	// Year boundary.
	now = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	start, end = DefaultWindow(now)
	if start != "2023-12-01" || end != "2024-01-31" {
		t.Fatalf("expected 2023-12-01..2024-01-31, got %s..%s", start, end)
	}
}
