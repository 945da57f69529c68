package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kdimtricp/zonewatch/internal/ai"
	"github.com/kdimtricp/zonewatch/internal/assistant"
	"github.com/kdimtricp/zonewatch/internal/database"
	"github.com/kdimtricp/zonewatch/internal/models"
	"github.com/kdimtricp/zonewatch/internal/pipeline"
	"github.com/kdimtricp/zonewatch/internal/zones"
)

type App struct {
	ZoneStore *zones.Store
	Repo      *database.SightingRepo
	Assistant *assistant.Service
	Processor *pipeline.Processor
	Hub       *pipeline.Hub
	LM        ai.LanguageModel
}

// probeTimeout bounds the LLM availability check on the status endpoint so
// an unreachable Ollama does not hang the response.
const probeTimeout = 2 * time.Second

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (app *App) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := app.Assistant.Answer(r.Context(), req.Question)
	if err != nil {
		log.Printf("Error answering question: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (app *App) ListZonesHandler(w http.ResponseWriter, r *http.Request) {
	zoneList, err := app.ZoneStore.Load()
	if err != nil {
		// A corrupt file reads as an empty list rather than an outage.
		log.Printf("Warning: failed to load zones, serving empty list: %v", err)
		zoneList = nil
	}
	if zoneList == nil {
		zoneList = []models.Zone{}
	}
	writeJSON(w, http.StatusOK, zoneList)
}

func (app *App) ReplaceZonesHandler(w http.ResponseWriter, r *http.Request) {
	var zoneList []models.Zone
	if err := json.NewDecoder(r.Body).Decode(&zoneList); err != nil {
		writeError(w, http.StatusBadRequest, "invalid zone list: "+err.Error())
		return
	}

	if err := app.ZoneStore.Save(zoneList); err != nil {
		if errors.Is(err, zones.ErrDuplicateZoneName) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error saving zones: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save zones")
		return
	}

	if app.Processor != nil {
		app.Processor.UpdateZones(zoneList)
	}
	writeJSON(w, http.StatusOK, zoneList)
}

// IngestDetectionsHandler accepts a batch of detections from the external
// detector and runs each through the match-record pipeline.
func (app *App) IngestDetectionsHandler(w http.ResponseWriter, r *http.Request) {
	var detections []models.Detection
	if err := json.NewDecoder(r.Body).Decode(&detections); err != nil {
		writeError(w, http.StatusBadRequest, "invalid detection list: "+err.Error())
		return
	}

	var recorded []models.Sighting
	for _, det := range detections {
		sightings, err := app.Processor.Process(r.Context(), det)
		if err != nil {
			log.Printf("Error processing detection %q: %v", det.Label, err)
			continue
		}
		recorded = append(recorded, sightings...)
	}
	if recorded == nil {
		recorded = []models.Sighting{}
	}
	writeJSON(w, http.StatusOK, recorded)
}

func (app *App) SightingsByLabelHandler(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	if label == "" {
		writeError(w, http.StatusBadRequest, "label query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sightings, err := app.Repo.QueryByLabel(r.Context(), label, limit)
	if err != nil {
		log.Printf("Error querying sightings: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to query sightings")
		return
	}
	if sightings == nil {
		sightings = []models.Sighting{}
	}
	writeJSON(w, http.StatusOK, sightings)
}

func (app *App) RecentSightingsHandler(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	if n <= 0 {
		n = 20
	}

	var (
		sightings []models.Sighting
		err       error
	)
	if since := r.URL.Query().Get("since"); since != "" {
		window, perr := time.ParseDuration(since)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid since duration: "+perr.Error())
			return
		}
		sightings, err = app.Repo.RecentSince(r.Context(), time.Now().Add(-window), n)
	} else {
		sightings, err = app.Repo.Recent(r.Context(), n)
	}
	if err != nil {
		log.Printf("Error querying recent sightings: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to query sightings")
		return
	}
	if sightings == nil {
		sightings = []models.Sighting{}
	}
	writeJSON(w, http.StatusOK, sightings)
}

func (app *App) SearchByZoneHandler(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		writeError(w, http.StatusBadRequest, "zone query parameter is required")
		return
	}

	sightings, err := app.Repo.SearchByZone(r.Context(), zone)
	if err != nil {
		log.Printf("Error searching sightings: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to search sightings")
		return
	}
	if sightings == nil {
		sightings = []models.Sighting{}
	}
	writeJSON(w, http.StatusOK, sightings)
}

func (app *App) StatusHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := app.Assistant.Summary(r.Context())
	if err != nil {
		log.Printf("Error building status: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to build status")
		return
	}

	zoneList, err := app.ZoneStore.Load()
	if err != nil {
		log.Printf("Warning: failed to load zones for status: %v", err)
	}
	zoneNames := make([]string, 0, len(zoneList))
	for _, z := range zoneList {
		zoneNames = append(zoneNames, z.Name)
	}

	status := struct {
		*assistant.Summary
		ZoneNames    []string `json:"zone_names"`
		LiveClients  int      `json:"live_clients"`
		LLMAvailable bool     `json:"llm_available"`
	}{
		Summary:   summary,
		ZoneNames: zoneNames,
	}
	if app.Hub != nil {
		status.LiveClients = app.Hub.ClientCount()
	}
	if app.LM != nil {
		probeCtx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		status.LLMAvailable = app.LM.IsAvailable(probeCtx)
	}
	writeJSON(w, http.StatusOK, status)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveFeedHandler upgrades the connection and subscribes it to the sighting
// broadcast hub. The read loop only exists to notice the client going away.
func (app *App) LiveFeedHandler(w http.ResponseWriter, r *http.Request) {
	if app.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "live feed not enabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading websocket: %v", err)
		return
	}

	app.Hub.Register(conn)
	go func() {
		defer app.Hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
