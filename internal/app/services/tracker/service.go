// Package tracker implements the completion and reward engine: daily rate
// computation, completion toggling with collectible allocation, heatmap
// aggregation, and the public profile view.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/habitloop/habitd/internal/app/collectibles"
	"github.com/habitloop/habitd/internal/app/domain/collectible"
	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/pkg/logger"
)

// RewardThreshold is the daily completion rate at which a collectible is
// awarded.
const RewardThreshold = 0.90

var (
	// ErrInvalidRange indicates a heatmap range whose start falls after its end.
	ErrInvalidRange = errors.New("invalid range: start after end")
	// ErrInactiveHabit indicates a toggle against a removed habit.
	ErrInactiveHabit = errors.New("habit is inactive")
)

// Service is the completion and reward engine. It holds no state of its own;
// every computation re-reads the stores.
type Service struct {
	users       storage.UserStore
	habits      storage.HabitStore
	completions storage.CompletionStore
	awards      storage.AwardStore
	pool        collectibles.PoolProvider
	log         *logger.Logger
}

// New creates the tracker service.
func New(users storage.UserStore, habits storage.HabitStore, completions storage.CompletionStore, awards storage.AwardStore, pool collectibles.PoolProvider, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tracker")
	}
	return &Service{
		users:       users,
		habits:      habits,
		completions: completions,
		awards:      awards,
		pool:        pool,
		log:         log,
	}
}

// Rate returns completions(day) / active-habit count as an exact float in
// [0, 1]. A user with no active habits has rate 0.
func (s *Service) Rate(ctx context.Context, userID string, day habit.Date) (float64, error) {
	active, err := s.habits.CountActiveHabits(ctx, userID)
	if err != nil {
		return 0, err
	}
	if active == 0 {
		return 0, nil
	}

	completed, err := s.completions.CountMarks(ctx, userID, day)
	if err != nil {
		return 0, err
	}
	return float64(completed) / float64(active), nil
}

// ToggleResult is the outcome of a completion toggle.
type ToggleResult struct {
	Rate  float64            `json:"rate"`
	Award *collectible.Award `json:"award,omitempty"`
}

// ToggleCompletion marks or unmarks a habit for the day, then recomputes the
// rate and runs the allocator. The allocator runs for both directions: an
// unmark can still leave the day at or above the threshold, and the pool may
// have gained members since the qualifying toggle. Both directions are
// idempotent at the store.
func (s *Service) ToggleCompletion(ctx context.Context, userID, habitID string, day habit.Date, completed bool) (ToggleResult, error) {
	h, err := s.habits.GetHabit(ctx, habitID)
	if err != nil {
		return ToggleResult{}, err
	}
	if h.UserID != userID {
		return ToggleResult{}, fmt.Errorf("habit %s: %w", habitID, storage.ErrNotFound)
	}
	if !h.Active {
		return ToggleResult{}, ErrInactiveHabit
	}

	if completed {
		err = s.completions.CreateMark(ctx, habit.CompletionMark{
			ID:          uuid.NewString(),
			UserID:      userID,
			HabitID:     habitID,
			CompletedOn: day,
		})
	} else {
		err = s.completions.DeleteMark(ctx, habitID, day)
	}
	if err != nil {
		return ToggleResult{}, err
	}

	rate, err := s.Rate(ctx, userID, day)
	if err != nil {
		return ToggleResult{}, err
	}

	award, err := s.MaybeAward(ctx, userID, day)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Rate: rate, Award: award}, nil
}

// MaybeAward issues at most one collectible for the (user, day) pair when the
// day's rate has reached RewardThreshold. The pick is uniform over the
// unowned remainder of the pool; once the user owns the whole pool the full
// pool becomes eligible again. A concurrent toggle that wins the insert race
// is detected via the store's conflict error and treated as already awarded.
func (s *Service) MaybeAward(ctx context.Context, userID string, day habit.Date) (*collectible.Award, error) {
	already, err := s.awards.HasAwardOn(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, nil
	}

	rate, err := s.Rate(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if rate < RewardThreshold {
		return nil, nil
	}

	pool, err := s.pool.Members(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	owned, err := s.awards.ListOwnedCollectibleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	candidates := subtract(pool, owned)
	if len(candidates) == 0 {
		candidates = pool
	}

	pick := candidates[rand.Intn(len(candidates))]
	award, err := s.awards.CreateAward(ctx, collectible.Award{
		ID:            uuid.NewString(),
		UserID:        userID,
		CollectibleID: pick,
		EarnedOn:      day,
		Percentage:    percent(rate),
	})
	if errors.Is(err, storage.ErrConflict) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", userID).WithField("collectible_id", pick).Infof("award issued for %s", day)
	return &award, nil
}

// Heatmap returns one sample per day in the inclusive range, ascending and
// gap-free. The denominator is the current active-habit count.
func (s *Service) Heatmap(ctx context.Context, userID string, start, end habit.Date) ([]collectible.DaySample, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	active, err := s.habits.CountActiveHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.completions.CountMarksByDay(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	samples := make([]collectible.DaySample, 0)
	for day := start; !day.After(end); day = day.Next() {
		completed := counts[day]
		samples = append(samples, collectible.DaySample{
			Date:         day,
			Completed:    completed,
			ActiveHabits: active,
			Percentage:   percentOf(completed, active),
		})
	}
	return samples, nil
}

// Snapshot is the "today" view: each active habit with its completion flag,
// plus the day's rate.
type Snapshot struct {
	Date   habit.Date     `json:"date"`
	Habits []habit.Status `json:"habits"`
	Rate   float64        `json:"rate"`
}

// DailySnapshot builds the per-day status list for the user.
func (s *Service) DailySnapshot(ctx context.Context, userID string, day habit.Date) (Snapshot, error) {
	active, err := s.habits.ListActiveHabits(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	markedIDs, err := s.completions.ListMarkedHabitIDs(ctx, userID, day)
	if err != nil {
		return Snapshot{}, err
	}

	marked := make(map[string]bool, len(markedIDs))
	for _, id := range markedIDs {
		marked[id] = true
	}

	statuses := make([]habit.Status, 0, len(active))
	completed := 0
	for _, h := range active {
		done := marked[h.ID]
		if done {
			completed++
		}
		statuses = append(statuses, habit.Status{Habit: h, Completed: done})
	}

	rate := 0.0
	if len(active) > 0 {
		rate = float64(completed) / float64(len(active))
	}
	return Snapshot{Date: day, Habits: statuses, Rate: rate}, nil
}

// CollectiblesOwned lists the user's awards, most recent day first.
func (s *Service) CollectiblesOwned(ctx context.Context, userID string) ([]collectible.Award, error) {
	return s.awards.ListAwards(ctx, userID)
}

// PublicProfile builds the unauthenticated view of a user: awards plus a
// heatmap over the default recent window. Streak stats are placeholders.
func (s *Service) PublicProfile(ctx context.Context, username string) (collectible.Profile, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return collectible.Profile{}, err
	}

	awards, err := s.awards.ListAwards(ctx, u.ID)
	if err != nil {
		return collectible.Profile{}, err
	}

	start, end := DefaultWindow(time.Now())
	heatmap, err := s.Heatmap(ctx, u.ID, start, end)
	if err != nil {
		return collectible.Profile{}, err
	}

	return collectible.Profile{
		Username:    u.Username,
		MemberSince: u.CreatedAt,
		Awards:      awards,
		Heatmap:     heatmap,
		Stats:       collectible.ProfileStats{TotalCollectibles: len(awards)},
	}, nil
}

// DefaultWindow is the heatmap range used when none is requested: the first
// day of the previous month through the last day of the current month.
func DefaultWindow(now time.Time) (habit.Date, habit.Date) {
	year, month, _ := now.Date()
	start := time.Date(year, month-1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return habit.DateOf(start), habit.DateOf(end)
}

func percent(rate float64) int {
	return int(math.Round(rate * 100))
}

func percentOf(completed, active int) int {
	if active == 0 {
		return 0
	}
	return percent(float64(completed) / float64(active))
}

func subtract(pool, owned []string) []string {
	ownedSet := make(map[string]bool, len(owned))
	for _, id := range owned {
		ownedSet[id] = true
	}
	out := make([]string, 0, len(pool))
	for _, id := range pool {
		if !ownedSet[id] {
			out = append(out, id)
		}
	}
	return out
}
