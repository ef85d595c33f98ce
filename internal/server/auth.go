package server

import (
	"net/http"
	"strings"
)

// authorized checks the write-endpoint token: either an
// "Authorization: Bearer <token>" header (collector, cron) or a
// ?token= query param (manual curl).
func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ") == s.token
	}

	if queryToken := r.URL.Query().Get("token"); queryToken != "" {
		return queryToken == s.token
	}

	return false
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if s.authorized(r) {
		return true
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
	return false
}
