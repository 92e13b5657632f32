package handlers

import (
	"net/http"
	"net/http/httptest"
)

var upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "bad gateway", http.StatusBadGateway)
}))
