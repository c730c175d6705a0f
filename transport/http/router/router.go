package router

import (
	"hotelier/config"
	"hotelier/internal/handlers/auth"
	"hotelier/internal/handlers/booking"
	"hotelier/internal/handlers/customer"
	"hotelier/internal/handlers/room"
	"hotelier/internal/handlers/user"
	"hotelier/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type DomainHandlers struct {
	Auth     auth.Handler
	User     user.Handler
	Customer customer.Handler
	Room     room.Handler
	Booking  booking.Handler
}

type Router struct {
	Config         *config.Config
	DomainHandlers DomainHandlers
	AppMiddleware  middleware.AppMiddleware
	AuthMiddleware middleware.Auth
}

func New(cfg *config.Config, domainHandlers DomainHandlers, appMiddleware middleware.AppMiddleware, authMiddleware middleware.Auth) Router {
	return Router{
		Config:         cfg,
		DomainHandlers: domainHandlers,
		AppMiddleware:  appMiddleware,
		AuthMiddleware: authMiddleware,
	}
}

// SetupRoutes mounts the versioned API. Login, refresh, and user registration
// stay outside the auth gate; every other resource route requires credentials.
func (r *Router) SetupRoutes(router chi.Router) {
	router.Use(r.AppMiddleware.Tracing)

	if r.Config.App.CORS.Enable {
		router.Use(cors.Handler(cors.Options{
			AllowCredentials: r.Config.App.CORS.AllowCredentials,
			AllowedHeaders:   r.Config.App.CORS.AllowedHeaders,
			AllowedMethods:   r.Config.App.CORS.AllowedMethods,
			AllowedOrigins:   r.Config.App.CORS.AllowedOrigins,
			MaxAge:           r.Config.App.CORS.MaxAgeSeconds,
		}))
	}

	if r.Config.App.RateLimiter.Enable {
		router.Use(r.AppMiddleware.RateLimit)
	}

	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Auth.Router(routerGroup)
		r.DomainHandlers.User.Router(routerGroup)

		routerGroup.Group(func(authed chi.Router) {
			authed.Use(r.AuthMiddleware.Authenticate)
			r.DomainHandlers.Customer.Router(authed)
			r.DomainHandlers.Room.Router(authed)
			r.DomainHandlers.Booking.Router(authed)
		})
	})
}
