package main

import (
	"expvar"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(app.metrics, app.recoverPanic, app.enableCORS(), app.rateLimit)

	// 要在Route之前设置，子路由会继承
	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Get("/v1/healthcheck", app.healthcheckHandler)

	// chi里静态段优先于参数段，/popular等不会被{id}吞掉
	r.Route("/v1/films", func(r chi.Router) {
		r.Get("/", app.listFilmsHandler)
		r.Post("/", app.createFilmHandler)

		r.Get("/popular", app.popularFilmsHandler)
		r.Get("/common", app.commonFilmsHandler)
		r.Get("/search", app.searchFilmsHandler)
		r.Get("/director/{directorId}", app.directorFilmsHandler)

		r.Get("/{id}", app.showFilmHandler)
		r.Put("/{id}", app.updateFilmHandler)
		r.Delete("/{id}", app.deleteFilmHandler)
		r.Put("/{id}/like/{userId}", app.addLikeHandler)
		r.Delete("/{id}/like/{userId}", app.removeLikeHandler)
	})

	r.Get("/v1/genres", app.listGenresHandler)
	r.Get("/v1/genres/{id}", app.showGenreHandler)
	r.Get("/v1/mpa", app.listRatingsHandler)
	r.Get("/v1/mpa/{id}", app.showRatingHandler)

	r.Route("/v1/directors", func(r chi.Router) {
		r.Get("/", app.listDirectorsHandler)
		r.Post("/", app.createDirectorHandler)
		r.Get("/{id}", app.showDirectorHandler)
		r.Put("/{id}", app.updateDirectorHandler)
		r.Delete("/{id}", app.deleteDirectorHandler)
	})

	r.Post("/v1/users", app.registerUserHandler)
	r.Get("/v1/users/{id}", app.showUserHandler)
	r.Get("/v1/users/{id}/feed", app.userFeedHandler)

	// metric
	r.Handle("/debug/vars", expvar.Handler())
	r.Handle("/metrics", promhttp.Handler())

	return r
}
