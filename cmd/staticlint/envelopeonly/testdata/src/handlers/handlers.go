package handlers

import (
	"encoding/json"
	"net/http"
)

func plain(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "boom", http.StatusInternalServerError) // want "http.Error writes text/plain"
}

func envelope(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "invalid_json"})
}

var _ = []http.HandlerFunc{plain, envelope}
