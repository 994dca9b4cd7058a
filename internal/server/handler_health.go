package server

import (
	"net/http"
	"runtime"
)

type healthResponse struct {
	Status    string `json:"status"`
	GoVersion string `json:"go_version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		GoVersion: runtime.Version(),
	})
}
