package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"choretracker/internal/delivery/http/controllers"
	"choretracker/internal/delivery/http/helpers"
	"choretracker/internal/delivery/http/middleware"
	"choretracker/internal/domain"
)

// Pinger reports whether a backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// RouterDeps holds everything the router wires into routes.
type RouterDeps struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	Users          *controllers.UserController
	Families       *controllers.FamilyController
	Invitations    *controllers.InvitationController
	Chores         *controllers.ChoreController
	ChoreLogs      *controllers.ChoreLogController
	Metrics        *middleware.Metrics
	DB             Pinger
	AllowedOrigins []string
	StrictLimit    middleware.RateLimitConfig
	PublicLimit    middleware.RateLimitConfig
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(d RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(d.Verifier, d.Logger)
	strict := middleware.NewRateLimiter(d.StrictLimit, d.Logger).Wrap
	public := middleware.NewRateLimiter(d.PublicLimit, d.Logger).Wrap

	// Security
	mux.HandleFunc("POST /security/register", strict(d.Users.Register))
	mux.HandleFunc("POST /security/login", strict(d.Users.Login))

	// Users
	mux.HandleFunc("GET /users/me", auth(d.Users.GetMe))
	mux.HandleFunc("PATCH /users/me", auth(d.Users.UpdateMe))

	// Family
	mux.HandleFunc("POST /family/add", auth(d.Families.Create))
	mux.HandleFunc("GET /family/getall", auth(d.Families.ListAll))
	mux.HandleFunc("GET /family/{id}", auth(d.Families.Get))
	mux.HandleFunc("PUT /family/{id}", auth(d.Families.Rename))
	mux.HandleFunc("DELETE /family/{id}", auth(d.Families.Delete))
	mux.HandleFunc("GET /family/{id}/users", auth(d.Families.ListMembers))
	mux.HandleFunc("GET /family/{id}/invitations", auth(d.Invitations.ListForFamily))

	// Invitations
	mux.HandleFunc("POST /invitation/create", auth(d.Invitations.Create))
	mux.HandleFunc("GET /invitation/{token}", public(d.Invitations.Get))
	mux.HandleFunc("POST /invitation/{token}/accept", strict(d.Invitations.Accept))
	mux.HandleFunc("POST /invitation/{token}/reject", strict(d.Invitations.Reject))
	mux.HandleFunc("POST /invitation/{id}/resend", auth(d.Invitations.Resend))
	mux.HandleFunc("DELETE /invitation/{id}", auth(d.Invitations.Delete))

	// Chores
	mux.HandleFunc("POST /chore/add", auth(d.Chores.Create))
	mux.HandleFunc("GET /chore/getall", auth(d.Chores.List))
	mux.HandleFunc("POST /chore/deletemany", auth(d.Chores.DeleteMany))
	mux.HandleFunc("GET /chore/{id}", auth(d.Chores.Get))
	mux.HandleFunc("PUT /chore/{id}", auth(d.Chores.Update))
	mux.HandleFunc("DELETE /chore/delete/{id}", auth(d.Chores.Delete))

	// Chore logs
	mux.HandleFunc("POST /chorelog/add", auth(d.ChoreLogs.Create))
	mux.HandleFunc("GET /chorelog/family", auth(d.ChoreLogs.ListForFamily))
	mux.HandleFunc("GET /chorelog/family/week", auth(d.ChoreLogs.ListForWeek))
	mux.HandleFunc("GET /chorelog/user/{userID}", auth(d.ChoreLogs.ListForUser))
	mux.HandleFunc("GET /chorelog/chore/{choreID}", auth(d.ChoreLogs.ListForChore))
	mux.HandleFunc("POST /chorelog/deletemany", auth(d.ChoreLogs.DeleteMany))
	mux.HandleFunc("PUT /chorelog/{id}", auth(d.ChoreLogs.Update))
	mux.HandleFunc("DELETE /chorelog/{id}", auth(d.ChoreLogs.Delete))

	// Operations
	mux.HandleFunc("GET /healthz", healthz(d.DB, d.Logger))
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with the cross-cutting middleware, outermost first:
// request id, panic recovery, request logging, metrics, CORS.
func NewHandler(d RouterDeps) http.Handler {
	var h http.Handler = NewRouter(d)
	h = middleware.CORS(d.AllowedOrigins, h)
	if d.Metrics != nil {
		h = d.Metrics.Middleware(h)
	}
	h = middleware.LoggingMiddleware(d.Logger, h)
	h = middleware.Recovery(d.Logger, h)
	return middleware.RequestID(h)
}

// healthz godoc
// @Summary Health check
// @Description Reports whether the database is reachable.
// @Tags operations
// @Produce json
// @Success 200 {object} helpers.APIResponse "data.status: ok"
// @Failure 503 {object} helpers.APIResponse "error.code: internal_error"
// @Router /healthz [get]
func healthz(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.ErrorContext(r.Context(), "health check failed", "err", err)
				helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeInternalError, "database unavailable")
				return
			}
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
