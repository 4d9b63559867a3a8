package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/geekheaven/identity/internal/auth"
	"github.com/geekheaven/identity/internal/handlers"
	"github.com/geekheaven/identity/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
) {
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	resetLimit := middleware.RateLimitByIP(middleware.DefaultResetRateLimit())

	// Public routes - no authentication required
	router.With(authLimit).Post("/auth/register", authHandler.Register)
	router.With(authLimit).Post("/auth/signin", authHandler.SignIn)
	router.With(authLimit).Post("/auth/google", authHandler.GoogleSignIn)
	router.With(authLimit).Post("/auth/refresh", authHandler.RefreshToken)
	router.With(resetLimit).Post("/auth/password-reset/request", authHandler.RequestPasswordReset)
	router.With(authLimit).Post("/auth/password-reset/validate", authHandler.ValidateResetToken)
	router.With(authLimit).Post("/auth/password-reset/confirm", authHandler.ResetPassword)
	router.With(authLimit).Post("/auth/verify-email/confirm", authHandler.VerifyEmail)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/change-password", authHandler.ChangePassword)
		r.With(resetLimit).Post("/auth/verify-email/request", authHandler.RequestEmailVerification)
	})
}
