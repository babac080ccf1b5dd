package app

import (
	"context"
	"fmt"

	"github.com/habitloop/habitd/internal/app/collectibles"
	"github.com/habitloop/habitd/internal/app/services/habits"
	"github.com/habitloop/habitd/internal/app/services/tracker"
	"github.com/habitloop/habitd/internal/app/services/users"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/internal/app/storage/memory"
	"github.com/habitloop/habitd/internal/app/system"
	"github.com/habitloop/habitd/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users       storage.UserStore
	Habits      storage.HabitStore
	Completions storage.CompletionStore
	Awards      storage.AwardStore
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Users   *users.Service
	Habits  *habits.Service
	Tracker *tracker.Service
}

// New builds a fully initialised application with the provided stores and
// collectible pool. A nil pool means no collectibles are ever awarded.
func New(stores Stores, pool collectibles.PoolProvider, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if pool == nil {
		pool = collectibles.StaticPool(nil)
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Habits == nil {
		stores.Habits = mem
	}
	if stores.Completions == nil {
		stores.Completions = mem
	}
	if stores.Awards == nil {
		stores.Awards = mem
	}

	manager := system.NewManager()

	userService := users.New(stores.Users, log)
	habitService := habits.New(stores.Habits, stores.Completions, log)
	trackerService := tracker.New(stores.Users, stores.Habits, stores.Completions, stores.Awards, pool, log)

	for _, name := range []string{"users", "habits", "tracker"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager: manager,
		log:     log,
		Users:   userService,
		Habits:  habitService,
		Tracker: trackerService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
