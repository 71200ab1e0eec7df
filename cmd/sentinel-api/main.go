package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"NetSentinel/internal/config"
	"NetSentinel/internal/query"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	listenAddr := flag.String("listen", ":8081", "Address for the query API server.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.History.Enabled {
		log.Fatalf("Verdict history is disabled in config. API server cannot start.")
	}

	querier, err := query.NewClickHouseQuerier(cfg.History.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	r := mux.NewRouter()
	apiHandler := &APIHandler{querier: querier}
	r.HandleFunc("/healthz", apiHandler.healthzHandler).Methods("GET")
	r.HandleFunc("/api/v1/verdicts", apiHandler.verdictsHandler).Methods("GET")
	r.HandleFunc("/api/v1/verdicts/summary", apiHandler.summaryHandler).Methods("GET")

	server := &http.Server{
		Addr:    *listenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("Query API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Query API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Query API server exited.")
}

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	querier query.Querier
}

func (h *APIHandler) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// verdictsHandler returns recent verdict records, optionally filtered by
// source IP and threat status.
func (h *APIHandler) verdictsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid limit: %v", err), http.StatusBadRequest)
			return
		}
		limit = n
	}
	threatsOnly := false
	if raw := q.Get("threats_only"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid threats_only: %v", err), http.StatusBadRequest)
			return
		}
		threatsOnly = b
	}

	records, err := h.querier.RecentVerdicts(r.Context(), q.Get("src_ip"), threatsOnly, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query verdicts: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

// summaryHandler returns per-source attack summaries since a given time.
// The since parameter accepts either RFC3339 or a relative duration like "1h".
func (h *APIHandler) summaryHandler(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			since = time.Now().Add(-d)
		} else if t, err := time.Parse(time.RFC3339, raw); err == nil {
			since = t
		} else {
			http.Error(w, fmt.Sprintf("invalid since value %q", raw), http.StatusBadRequest)
			return
		}
	}

	summaries, err := h.querier.Summarize(r.Context(), since)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query summary: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, summaries)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}
