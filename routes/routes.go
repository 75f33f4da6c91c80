package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joehsn/formify/app"
	"github.com/joehsn/formify/httpx"
	"github.com/joehsn/formify/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, httpx.AccessLog, middleware.Recoverer)

	root.Method(http.MethodGet, "/metrics", promhttp.Handler())
	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()
	api.Use(middlewares.CookieAuth(app.BearerServer, app.Config.TokenSecret))

	authenticated := middlewares.Authenticated(app.Config.TokenSecret)

	api.Route("/users", func(r chi.Router) {
		r.Post("/register", Register(app))
		r.Post("/login", Login(app))
		r.Post("/refresh", Refresh(app))
		r.Post("/forgot-password", ForgotPassword(app))
		r.Post("/reset-password", ResetPassword(app))

		r.With(authenticated).Post("/logout", Logout(app))
		r.With(authenticated).Get("/me", Me(app))
	})

	api.Route("/forms", func(r chi.Router) {
		r.With(middlewares.OptionalAuth(app.Config.TokenSecret)).Get("/{id}", GetForm(app))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			// CRUD form
			r.Post("/", CreateForm(app))
			r.Get("/", ListForms(app))
			r.Put("/{id}", UpdateForm(app))
			r.Delete("/{id}", DeleteForm(app))
		})
	})

	api.Route("/responses", func(r chi.Router) {
		r.With(middlewares.RateLimit(app.Config.SubmitRate, app.Config.SubmitBurst)).
			Post("/{formId}", SubmitResponse(app))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Get("/{formId}", ListResponses(app))
			r.Get("/{formId}/{responseId}", GetResponse(app))
			r.Delete("/{formId}/{responseId}", DeleteResponse(app))
		})
	})

	return api
}
