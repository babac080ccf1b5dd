// Package app provides the application composition layer for habitd.
//
// # Architecture Role
//
// The app package composes the domain services, storage, and HTTP surface
// into a running application. It is NOT a business logic layer - business
// logic belongs in internal/app/services/.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Main application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── user/           # Account model
//	│   ├── habit/          # Habit, completion mark, and calendar-day types
//	│   └── collectible/    # Award ledger, heatmap samples, public profile
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces and sentinel errors
//	│   ├── memory/         # In-memory implementation for testing
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business logic
//	│   ├── users/          # Registration and login
//	│   ├── habits/         # Habit lifecycle under the per-user cap
//	│   └── tracker/        # Completion and reward engine
//	├── collectibles/       # Read-only collectible pool providers
//	├── httpapi/            # HTTP handlers, routing, and middleware
//	├── system/             # Lifecycle management
//	└── metrics/            # Application metrics
//
// # Responsibilities
//
// The app package is responsible for:
//
//   - Composing services with their storage dependencies
//   - Defining the storage interfaces services depend on
//   - Providing domain models shared across services
//   - Exposing HTTP API endpoints for external access
//   - Managing application-level concerns (auth, metrics, lifecycle)
//
// # Dependency Direction
//
//	cmd/habitd/
//	      │
//	      ▼
//	internal/app/ (composition)
//	      │
//	      ├──► internal/app/services/ (business logic)
//	      │
//	      ├──► internal/app/storage/ (persistence)
//	      │
//	      └──► internal/platform/ (database, migrations)
//
// # Example: Adding a New Domain
//
// When adding a new domain (e.g., "streaks"):
//
//  1. Create domain models in internal/app/domain/streaks/
//  2. Add a storage interface to internal/app/storage/interfaces.go
//  3. Implement storage in internal/app/storage/postgres/ and memory/
//  4. Create the service in internal/app/services/streaks/service.go
//  5. Wire the service in internal/app/application.go
//  6. Add HTTP handlers in internal/app/httpapi/
package app
