package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/store"
)

// Server exposes the experiment store and engine over a small JSON API:
// read endpoints for dashboards, token-protected write endpoints for the
// external metrics collector and the daily rotation trigger.
type Server struct {
	store     *store.SQLiteStore
	scoring   engine.ScoringConfig
	port      int
	token     string
	tokenFile string
	router    *http.ServeMux
	startTime time.Time
}

func New(s *store.SQLiteStore, scoring engine.ScoringConfig, port int, tokenFile string) *Server {
	srv := &Server{
		store:     s,
		scoring:   scoring,
		port:      port,
		token:     generateToken(),
		tokenFile: tokenFile,
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/api/tests", s.handleListTests)
	s.router.HandleFunc("/api/tests/", s.handleTestRoutes)
	s.router.HandleFunc("/api/summary", s.handleSummary)
}

func (s *Server) Start() error {
	// Write token to file for the token command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			fmt.Printf("Warning: failed to write token file: %v\n", err)
		}
	}

	fmt.Println()
	fmt.Printf("splitreel running on http://localhost:%d\n", s.port)
	fmt.Printf("API token: %s\n", s.token)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.Handler())
}

func (s *Server) Token() string {
	return s.token
}

// Handler returns the router wrapped with CORS so browser dashboards on
// other origins can read the API.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

func generateToken() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a simple token if crypto/rand fails
		return "a1b2c3d4"
	}
	return hex.EncodeToString(bytes)
}
