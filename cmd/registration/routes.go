package main

import "net/http"

func (app *application) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", authMiddleware(app.createRegistrationHandler))
	mux.HandleFunc("GET /registrations/{id}", app.getRegistrationHandler)
	mux.HandleFunc("GET /healthz", app.healthzHandler)
	mux.HandleFunc("GET /readyz", app.readyzHandler)

	return mux
}
