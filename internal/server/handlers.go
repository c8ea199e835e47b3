package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/BioHazard786/classcast/internal/conference"
	"github.com/BioHazard786/classcast/internal/signaling"
)

type API struct {
	Hub       *signaling.Hub
	Log       *slog.Logger
	StaticDir string
}

type errorResp struct {
	Error string `json:"error"`
}

// CreateConference registers a conference for ?teacherName= and redirects
// to its page.
func (a *API) CreateConference(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("teacherName"))
	id, err := a.Hub.CreateConference(r.Context(), name)
	if err != nil {
		a.writeError(w, err)
		return
	}
	http.Redirect(w, r, "/conference/"+url.PathEscape(id), http.StatusFound)
}

// JoinConference checks ?confId= exists and redirects a student to its page
// with their name in the query.
func (a *API) JoinConference(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	confID := strings.TrimSpace(q.Get("confId"))
	name := strings.TrimSpace(q.Get("studentName"))
	if confID == "" || name == "" {
		a.writeError(w, conference.NewError("join conference", conference.ErrInvalidInput, "Conference ID and student name are required"))
		return
	}

	ok, err := a.Hub.ConferenceExists(r.Context(), confID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !ok {
		a.writeError(w, conference.NewError("join conference", conference.ErrNotFound, "Conference does not exist"))
		return
	}

	target := "/conference/" + url.PathEscape(confID) + "?studentName=" + url.QueryEscape(name)
	http.Redirect(w, r, target, http.StatusFound)
}

func (a *API) ConferencePage(w http.ResponseWriter, r *http.Request) {
	if a.StaticDir == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(a.StaticDir, "conference", "index.html"))
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Hub.Stats(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		signaling.Stats
	}{Status: "ok", Stats: stats})
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, conference.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, conference.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, signaling.ErrHubStopped):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		a.Log.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResp{Error: conference.Message(err)})
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
