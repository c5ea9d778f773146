package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dpereira/expensely/internal/auth"
	adminhandler "github.com/dpereira/expensely/internal/http/admin"
	authhandler "github.com/dpereira/expensely/internal/http/auth"
	expensehandler "github.com/dpereira/expensely/internal/http/expense"
)

func New(
	authH *authhandler.Handler,
	expensesH *expensehandler.Handler,
	adminH *adminhandler.Handler,
	authenticator func(http.Handler) http.Handler,
	uploadsDir string,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.Route("/auth", func(r chi.Router) {
		authH.PublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			authH.ProtectedRoutes(r)
		})
	})

	router.Route("/expenses", func(r chi.Router) {
		r.Use(authenticator)
		expensesH.Routes(r)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(auth.RequireAdmin)
		adminH.Routes(r)
	})

	router.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(uploadsDir))))

	return router
}
