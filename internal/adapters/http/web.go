package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"clubhouse/internal/adapters/email"
	"clubhouse/internal/adapters/http/middleware"
	accountStore "clubhouse/internal/adapters/storage/account"
	activityStore "clubhouse/internal/adapters/storage/activity"
	applicationStore "clubhouse/internal/adapters/storage/application"
	athleteStore "clubhouse/internal/adapters/storage/athlete"
	auditStore "clubhouse/internal/adapters/storage/audit"
	checkinStore "clubhouse/internal/adapters/storage/checkin"
	clubStore "clubhouse/internal/adapters/storage/club"
	outboxStore "clubhouse/internal/adapters/storage/outbox"
	registrationStore "clubhouse/internal/adapters/storage/registration"
	"clubhouse/internal/application/dispatch"
	"clubhouse/internal/application/guard"
	"clubhouse/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore      accountStore.Store
	ClubStore         clubStore.Store
	AthleteStore      athleteStore.Store
	ApplicationStore  applicationStore.Store
	ActivityStore     activityStore.Store
	RegistrationStore registrationStore.Store
	CheckInStore      checkinStore.Store
	AuditStore        auditStore.Store
	OutboxStore       outboxStore.Store
}

// Config carries the HTTP layer settings.
type Config struct {
	CSRFKey        []byte // 32 bytes
	SecureCookies  bool
	TrustedOrigins []string
	SessionTTL     time.Duration
	RateLimit      middleware.RateLimiterConfig
	SlowRequest    time.Duration
	Location       *time.Location // club clock for check-in classification
	Requests       middleware.RequestObserver
	Metrics        http.Handler // served at /metrics when set
}

// Deps holds the application collaborators the handlers call into.
type Deps struct {
	Stores      Stores
	Tx          orchestrators.TxRunner
	Guard       guard.Checker
	Notifier    dispatch.Notifier
	Revalidator *dispatch.Revalidator
	Sender      email.Sender
	Deliveries  orchestrators.DeliveryRecorder
	Now         func() time.Time
	GenerateID  func() string
}

// Server serves the JSON API.
type Server struct {
	cfg      Config
	deps     Deps
	sessions *middleware.SessionStore
	limiter  *middleware.RateLimiter
	router   chi.Router
}

// NewServer wires handlers and middleware.
// PRE: deps.Stores, deps.Tx and deps.Guard are set
// POST: call Close to stop background work owned by the server
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.GenerateID == nil {
		deps.GenerateID = generateID
	}
	if deps.Sender == nil {
		deps.Sender = email.NewNoopSender()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RateLimit.Rate == 0 {
		cfg.RateLimit = middleware.DefaultRateLimiterConfig()
	}

	s := &Server{
		cfg:      cfg,
		deps:     deps,
		sessions: middleware.NewSessionStore(cfg.SessionTTL).WithClock(deps.Now),
		limiter:  middleware.NewRateLimiter(cfg.RateLimit),
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sessions exposes the session store.
func (s *Server) Sessions() *middleware.SessionStore {
	return s.sessions
}

// Close stops the rate limiter cleanup loop.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timing(s.cfg.Requests, s.cfg.SlowRequest))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimit(s.limiter))
	r.Use(middleware.CSRF(s.cfg.CSRFKey, s.cfg.SecureCookies, s.cfg.TrustedOrigins))
	r.Use(middleware.Auth(s.sessions))

	r.Get("/healthz", handleHealth)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}
	r.Post("/signup", s.handleSignup)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/account", s.handleGetAccount)
		r.Post("/account/password", s.handleChangePassword)

		r.Route("/applications", func(r chi.Router) {
			r.Post("/", s.handleSubmitApplication)
			r.Get("/", s.handleListApplications)
			r.Get("/{id}", s.handleGetApplication)
			r.Put("/{id}", s.handleUpdateApplication)
			r.Post("/{id}/review", s.handleReviewApplication)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Post("/", s.handleCreateActivity)
			r.Get("/", s.handleListActivities)
			r.Post("/{id}/token", s.handleRotateToken)
			r.Post("/{id}/registrations", s.handleRegister)
			r.Get("/{id}/registrations", s.handleListRegistrations)
			r.Post("/{id}/checkins", s.handleCheckIn)
			r.Get("/{id}/checkins", s.handleListCheckIns)
		})

		r.Route("/registrations/{id}", func(r chi.Router) {
			r.Post("/cancel", s.handleCancelRegistration)
			r.Post("/approve", s.handleReviewRegistration("approve"))
			r.Post("/reject", s.handleReviewRegistration("reject"))
			r.Delete("/", s.handleRemoveRegistration)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/accounts", s.handleAdminCreateAccount)
			r.Get("/accounts", s.handleAdminListAccounts)
			r.Post("/clubs", s.handleCreateClub)
			r.Post("/clubs/{id}/coaches", s.handleAssignCoach)
			r.Delete("/applications/{id}", s.handleDeleteApplication)
			r.Get("/audit", s.handleAdminAudit)
			r.Get("/outbox", s.handleAdminOutbox)
			r.Post("/outbox/{id}/retry", s.handleAdminOutboxRetry)
			r.Post("/outbox/{id}/abandon", s.handleAdminOutboxAbandon)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSONError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func generateID() string {
	return uuid.New().String()
}

func (s *Server) scopes() orchestrators.ResolveScopeDeps {
	return orchestrators.ResolveScopeDeps{
		AccountStore: s.deps.Stores.AccountStore,
		CoachStore:   s.deps.Stores.ClubStore,
	}
}
