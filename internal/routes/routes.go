package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/ssorath/centsible/internal/auth"
	"github.com/ssorath/centsible/internal/handlers"
	"github.com/ssorath/centsible/internal/middleware"
)

// RegisterRoutes registers all application routes.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	transactionHandler *handlers.TransactionHandler,
	tokenManager *auth.TokenManager,
	users auth.UserResolver,
) {
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	apiLimit := middleware.RateLimitByIP(middleware.DefaultAPIRateLimit())

	// Public routes. Credential endpoints get the tight rate limit.
	router.Group(func(r chi.Router) {
		r.Use(authLimit)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/guest", authHandler.Guest)
		r.Post("/auth/refresh", authHandler.Refresh)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/reset-password", authHandler.ResetPassword)
		r.Get("/auth/verify-email", authHandler.VerifyEmail)
		r.Get("/auth/oauth/{provider}", authHandler.OAuthRedirect)
		r.Get("/auth/oauth/{provider}/callback", authHandler.OAuthCallback)
	})

	// Protected routes.
	router.Group(func(r chi.Router) {
		r.Use(apiLimit)
		r.Use(auth.RequireAuth(tokenManager, users))

		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/logout", authHandler.Logout)

		// Guest upgrade only applies to guest sessions.
		r.With(auth.RequireGuest()).Post("/auth/upgrade", authHandler.Upgrade)

		r.Get("/users/me", userHandler.GetProfile)
		r.Patch("/users/me", userHandler.UpdateProfile)
		r.Delete("/users/me", userHandler.DeactivateAccount)

		r.Get("/transactions", transactionHandler.List)
		r.Post("/transactions", transactionHandler.Create)
		r.Get("/transactions/summary", transactionHandler.Summary)
		r.Get("/transactions/{id}", transactionHandler.Get)
		r.Put("/transactions/{id}", transactionHandler.Update)
		r.Delete("/transactions/{id}", transactionHandler.Delete)

		r.Get("/categories", transactionHandler.ListCategories)
		r.Post("/categories", transactionHandler.CreateCategory)
		r.Delete("/categories/{id}", transactionHandler.DeleteCategory)
	})
}
