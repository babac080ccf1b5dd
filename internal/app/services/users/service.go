// Package users implements account registration and login.
package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/habitloop/habitd/internal/app/domain/user"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/pkg/logger"
)

var (
	// ErrValidation indicates a malformed registration or login request.
	ErrValidation = errors.New("validation failed")
	// ErrCredentials indicates an unknown username or a wrong password.
	ErrCredentials = errors.New("invalid credentials")
	// ErrTaken indicates the username or email is already registered.
	ErrTaken = errors.New("username or email already taken")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 8
)

// Service handles account lifecycle.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New creates the users service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
}

func (in RegisterInput) validate() error {
	if len(in.Username) < minUsernameLen || len(in.Username) > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d-%d characters", ErrValidation, minUsernameLen, maxUsernameLen)
	}
	if !emailPattern.MatchString(in.Email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if in.Password != in.Confirm {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	return nil
}

// Register creates a new account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return user.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, storage.ErrConflict) {
		return user.User{}, ErrTaken
	}
	if err != nil {
		return user.User{}, err
	}

	s.log.WithField("user_id", created.ID).Infof("registered user %s", created.Username)
	return created, nil
}

// Login verifies credentials and returns the account.
func (s *Service) Login(ctx context.Context, username, password string) (user.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, ErrCredentials
	}
	if err != nil {
		return user.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return user.User{}, ErrCredentials
	}
	return u, nil
}

// Get returns the account for an ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}
