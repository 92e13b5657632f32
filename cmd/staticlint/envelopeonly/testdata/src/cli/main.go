package main

import "net/http"

func main() {
	http.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "debug server", http.StatusTeapot)
	})
}
