package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexusdata/nexusdata/internal/api/middleware"
	"github.com/nexusdata/nexusdata/internal/api/shared"
)

// newRouter assembles the HTTP surface of the process.
func (app *application) newRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Trace)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/mask", app.tasks.SubmitMask)
		r.Get("/mask/{taskID}", app.tasks.GetMask)

		r.Post("/embedding", app.tasks.SubmitEmbedding)
		r.Get("/embedding/{taskID}", app.tasks.GetEmbedding)

		r.Post("/rerank", app.tasks.SubmitRerank)
		r.Get("/rerank/{taskID}", app.tasks.GetRerank)

		r.Get("/queue/status", app.tasks.QueueStatus)

		r.Post("/ocr/image", app.ocr.RecognizeImage)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
