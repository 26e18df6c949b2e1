// Package httpapi exposes the services over a JSON REST API routed with
// gorilla/mux.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/metrics"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/services"
	"github.com/gorilla/mux"
)

// Authenticator is implemented by *services.AuthService.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Authenticate(header string) (models.ActorContext, error)
}

// EntryService is implemented by *services.EntryService.
type EntryService interface {
	Create(ctx context.Context, actor models.ActorContext, raw map[string]any, image []byte) (*models.Entry, error)
	List(ctx context.Context, actor models.ActorContext) ([]*models.Entry, error)
	Get(ctx context.Context, actor models.ActorContext, id int64) (*models.Entry, error)
	Update(ctx context.Context, actor models.ActorContext, id int64, raw map[string]any, image []byte) error
	Delete(ctx context.Context, actor models.ActorContext, id int64) error
}

// UserService is implemented by *services.UserService.
type UserService interface {
	CreateAccount(ctx context.Context, actor models.ActorContext, in services.NewAccount) (*models.Account, error)
	ToggleActive(ctx context.Context, actor models.ActorContext, targetID int64) (bool, error)
}

// AuditLog is implemented by *services.AuditService.
type AuditLog interface {
	List(ctx context.Context, actor models.ActorContext) ([]*models.AuditLogEntry, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	auth    Authenticator
	entries EntryService
	users   UserService
	audit   AuditLog
	checks  map[string]HealthCheck
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewHandler(a Authenticator, e EntryService, u UserService, al AuditLog, checks map[string]HealthCheck,
	m *metrics.Metrics, logger logging.Logger) *Handler {
	return &Handler{
		auth:    a,
		entries: e,
		users:   u,
		audit:   al,
		checks:  checks,
		metrics: m,
		logger:  logger.With("module", "http"),
	}
}

// Router builds the route table.
//
//	POST   /api/auth/login
//	GET    /api/entries
//	POST   /api/entries
//	GET    /api/entries/{id}
//	POST   /api/entries/{id}      read alias
//	PUT    /api/entries/{id}
//	DELETE /api/entries/{id}
//	GET    /api/logs
//	POST   /api/users
//	PATCH  /api/users/{id}/toggle-active
//	GET    /healthz
//	GET    /metrics
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.Use(h.recoverPanics, h.accessLog, h.instrument)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(h.requireAuth)

	protected.HandleFunc("/entries", h.listEntries).Methods(http.MethodGet)
	protected.HandleFunc("/entries", h.createEntry).Methods(http.MethodPost)
	protected.HandleFunc("/entries/{id:[0-9]+}", h.getEntry).Methods(http.MethodGet, http.MethodPost)
	protected.HandleFunc("/entries/{id:[0-9]+}", h.updateEntry).Methods(http.MethodPut)
	protected.HandleFunc("/entries/{id:[0-9]+}", h.deleteEntry).Methods(http.MethodDelete)

	protected.HandleFunc("/logs", h.listLogs).Methods(http.MethodGet)

	protected.HandleFunc("/users", h.createUser).Methods(http.MethodPost)
	protected.HandleFunc("/users/{id:[0-9]+}/toggle-active", h.toggleUser).Methods(http.MethodPatch)

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	report := map[string]string{}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "check", name, "err", err)
			report[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": report})
}
