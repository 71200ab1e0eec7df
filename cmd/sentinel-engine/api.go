package main

import (
	"encoding/json"
	"log"
	"net/http"

	"NetSentinel/internal/engine"
	"NetSentinel/internal/rules"
)

type adminHandler struct {
	engine *engine.Engine
	store  *rules.Store
}

func (h *adminHandler) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *adminHandler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *adminHandler) listRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Current().Rules())
}

func (h *adminHandler) reloadRules(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(); err != nil {
		log.Printf("Rule reload failed: %v", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	catalog := h.store.Current()
	log.Printf("Rule catalog reloaded with %d rules.", catalog.Len())
	writeJSON(w, http.StatusOK, map[string]int{"rules": catalog.Len()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}
