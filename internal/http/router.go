package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fiado-app/fiado/internal/http/agreement"
	"github.com/fiado-app/fiado/internal/http/debtor"
	"github.com/fiado-app/fiado/internal/http/profile"
)

func New(
	debtorsV1 *debtor.Handler,
	agreementsV1 *agreement.Handler,
	profilesV1 *profile.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/ping"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/debtors", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			debtorsV1.Routes(r)
			profilesV1.Routes(r)
			agreementsV1.DebtorRoutes(r)
		})

		r.Route("/agreements", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			agreementsV1.Routes(r)
		})

		r.Route("/installments", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			agreementsV1.InstallmentRoutes(r)
		})
	})

	return router
}
