package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Post("/ask", app.AskHandler)

	r.Get("/zones", app.ListZonesHandler)
	r.Put("/zones", app.ReplaceZonesHandler)

	r.Post("/detections", app.IngestDetectionsHandler)
	r.Get("/sightings", app.SightingsByLabelHandler)
	r.Get("/sightings/recent", app.RecentSightingsHandler)
	r.Get("/sightings/search", app.SearchByZoneHandler)

	r.Get("/status", app.StatusHandler)
	r.Get("/ws", app.LiveFeedHandler)

	return r
}
