package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/msomdec/shift-clock/internal/service"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Auth         *service.AuthService
	Entries      *service.EntryService
	EventTypes   *service.EventTypeService
	TZ           *tzconv.Resolver
	AuthLimiter  *service.TokenBucket
	CookieSecure bool
	AppOrigin    string
	AppEnv       string
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	bind := newBinder(d.TZ)
	auth := NewAuthHandler(d.Auth, bind, d.CookieSecure)
	entries := NewEntryHandler(d.Entries, bind)
	eventTypes := NewEventTypeHandler(d.EventTypes, bind)
	times := NewTimeHandler(d.TZ, bind)
	requireAuth := RequireAuth(d.Auth)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	if d.AppOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{d.AppOrigin},
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/health", HandleHealth(d.AppEnv))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if d.AuthLimiter != nil {
					r.Use(RateLimit(d.AuthLimiter))
				}
				r.Post("/register", auth.HandleRegister)
				r.Post("/login", auth.HandleLogin)
			})
			r.Post("/logout", auth.HandleLogout)
			r.With(requireAuth).Get("/me", auth.HandleMe)
			r.With(requireAuth).Patch("/me", auth.HandleUpdateMe)
		})

		r.Route("/event-types", func(r chi.Router) {
			r.Get("/", eventTypes.HandleList)
			r.With(requireAuth, RequireAdmin).Post("/", eventTypes.HandleCreate)
			r.With(requireAuth, RequireAdmin).Patch("/{id}", eventTypes.HandleUpdate)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/time/convert", times.HandleConvert)

			r.Route("/entries", func(r chi.Router) {
				r.Get("/", entries.HandleList)
				r.Post("/", entries.HandleCreate)
				r.Post("/start", entries.HandleStart)
				r.Post("/stop", entries.HandleStop)
				r.Get("/active", entries.HandleActive)
				r.Post("/duration", entries.HandleCreateDuration)
				r.Get("/recent", entries.HandleRecent)
				r.Get("/search", entries.HandleSearch)
				r.Get("/{id}", entries.HandleGet)
				r.Patch("/{id}", entries.HandleUpdate)
				r.Delete("/{id}", entries.HandleDelete)
			})
		})
	})

	return r
}
