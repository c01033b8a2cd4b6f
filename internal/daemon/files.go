package daemon

import (
	"errors"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"clipforge/internal/api"
	"clipforge/internal/storage"
)

// handleFile serves a job output behind a signed, expiring URL.
func (s *apiServer) handleFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID, name := vars["jobID"], vars["name"]
	query := r.URL.Query()

	if err := s.daemon.files.Verify(jobID, name, query.Get("expires"), query.Get("sig")); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, storage.ErrExpired) {
			status = http.StatusGone
		}
		s.writeError(w, status, api.ErrorResponse{Error: err.Error()})
		return
	}
	path, err := s.daemon.files.OutputPath(jobID, name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, api.ErrorResponse{Error: "file not found"})
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, http.StatusNotFound, api.ErrorResponse{Error: "file not found"})
		return
	}
	http.ServeFile(w, r, path)
}
