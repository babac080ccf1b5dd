// Package httpapi exposes the application services over REST.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/habitloop/habitd/internal/app"
	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/metrics"
	"github.com/habitloop/habitd/internal/app/services/habits"
	"github.com/habitloop/habitd/internal/app/services/tracker"
	"github.com/habitloop/habitd/internal/app/services/users"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/pkg/logger"
)

// Config carries the HTTP-layer settings.
type Config struct {
	JWTSecret      []byte
	TokenTTL       time.Duration
	CORSOrigins    []string
	RateLimitRPS   int
	RateLimitBurst int
}

const defaultTokenTTL = 7 * 24 * time.Hour

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app       *app.Application
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *logger.Logger
}

// NewHandler returns the fully wired REST API: router, auth, CORS, rate
// limiting, and metrics instrumentation.
func NewHandler(application *app.Application, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	h := &handler{
		app:       application,
		jwtSecret: cfg.JWTSecret,
		tokenTTL:  cfg.TokenTTL,
		log:       log,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/profile/{username}", h.profile).Methods(http.MethodGet)

	authed := r.PathPrefix("/").Subrouter()
	authed.Use(h.requireAuth)
	authed.HandleFunc("/me", h.me).Methods(http.MethodGet)
	authed.HandleFunc("/habits", h.listHabits).Methods(http.MethodGet)
	authed.HandleFunc("/habits", h.createHabit).Methods(http.MethodPost)
	authed.HandleFunc("/habits/{id}", h.renameHabit).Methods(http.MethodPut)
	authed.HandleFunc("/habits/{id}", h.removeHabit).Methods(http.MethodDelete)
	authed.HandleFunc("/today", h.today).Methods(http.MethodGet)
	authed.HandleFunc("/completions", h.toggleCompletion).Methods(http.MethodPost)
	authed.HandleFunc("/heatmap", h.heatmap).Methods(http.MethodGet)
	authed.HandleFunc("/collectibles", h.collectibles).Methods(http.MethodGet)

	limiter := newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	return corsMiddleware(cfg.CORSOrigins, limiter.wrap(metrics.InstrumentHandler(r)))
}

// Auth -------------------------------------------------------------------------

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Confirm  string `json:"confirm"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.app.Users.Register(r.Context(), users.RegisterInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Confirm:  payload.Confirm,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	token, err := h.generateJWT(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"token": token, "user": u})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.app.Users.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	token, err := h.generateJWT(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": u})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Users.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Habits -----------------------------------------------------------------------

func (h *handler) listHabits(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Habits.ListActive(r.Context(), userID(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) createHabit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Habits.Create(r.Context(), userID(r), payload.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) renameHabit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	renamed, err := h.app.Habits.Rename(r.Context(), userID(r), mux.Vars(r)["id"], payload.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, renamed)
}

func (h *handler) removeHabit(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Habits.Remove(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tracking ---------------------------------------------------------------------

func (h *handler) today(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.app.Tracker.DailySnapshot(r.Context(), userID(r), habit.Today())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *handler) toggleCompletion(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		HabitID   string `json:"habit_id"`
		Completed bool   `json:"completed"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.app.Tracker.ToggleCompletion(r.Context(), userID(r), payload.HabitID, habit.Today(), payload.Completed)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	metrics.RecordToggle(payload.Completed)
	if result.Award != nil {
		metrics.RecordAward()
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) heatmap(w http.ResponseWriter, r *http.Request) {
	start, end := tracker.DefaultWindow(time.Now())

	var err error
	if raw := r.URL.Query().Get("start"); raw != "" {
		if start, err = habit.ParseDate(raw); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		if end, err = habit.ParseDate(raw); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	samples, err := h.app.Tracker.Heatmap(r.Context(), userID(r), start, end)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

func (h *handler) collectibles(w http.ResponseWriter, r *http.Request) {
	awards, err := h.app.Tracker.CollectiblesOwned(r.Context(), userID(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, awards)
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Tracker.PublicProfile(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helpers ----------------------------------------------------------------------

func statusFor(err error) int {
	switch {
	case errors.Is(err, users.ErrValidation),
		errors.Is(err, habits.ErrName),
		errors.Is(err, tracker.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, users.ErrCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, tracker.ErrInactiveHabit):
		return http.StatusNotFound
	case errors.Is(err, users.ErrTaken),
		errors.Is(err, habits.ErrLimit):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
