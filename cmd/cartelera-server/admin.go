package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cartelera-backend/services/catalog"
	"cartelera-backend/services/ingest"
)

func adminMux(r *runner, service catalog.Service) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /scrape", func(w http.ResponseWriter, req *http.Request) {
		report, skipped := r.Run(req.Context())
		if skipped {
			http.Error(w, "a run is already in flight", http.StatusConflict)
			return
		}
		// partial ingestion is normal operation; only a run where every
		// source failed is reported as a server-side failure
		if report.AllSourcesFailed() {
			w.WriteHeader(http.StatusBadGateway)
		}
		writeJson(w, report)
	})

	mux.HandleFunc("GET /events", func(w http.ResponseWriter, req *http.Request) {
		events, err := service.ListEvents(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJson(w, events)
	})

	mux.HandleFunc("DELETE /events/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseInt(req.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid event id", http.StatusBadRequest)
			return
		}
		reason := req.URL.Query().Get("reason")
		if reason == "" {
			reason = "removed by admin"
		}
		if err := service.Remove(req.Context(), id, reason); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /preferences", func(w http.ResponseWriter, req *http.Request) {
		prefs, err := service.Snapshot(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJson(w, prefs)
	})

	mux.HandleFunc("PUT /preferences", func(w http.ResponseWriter, req *http.Request) {
		var prefs ingest.PreferencesSnapshot
		if err := json.NewDecoder(req.Body).Decode(&prefs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := service.UpdatePreferences(req.Context(), prefs); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func writeJson(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(value)
}
