package main

import "net/http"

func (app *application) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "available"}, nil)
}

// readyzHandler reports ready only if the database answers; the broker is not
// checked because the intake must keep accepting registrations through a
// broker outage.
func (app *application) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.db.PingContext(r.Context()); err != nil {
		errorResponse(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "ready"}, nil)
}
