package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/stats"
	"github.com/splitreel/splitreel/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	TestsCount    int    `json:"tests_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	tests, err := s.store.ListTests(ctx)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var dbSize int64
	row := s.store.DB().QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	row.Scan(&dbSize)

	writeJSON(w, HealthResponse{
		Status:        "ok",
		TestsCount:    len(tests),
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

type testSummary struct {
	*store.Test
	CurrentState engine.CurrentState `json:"current_state"`
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	tests, err := s.store.ListTests(ctx)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	summaries := make([]testSummary, 0, len(tests))
	for _, test := range tests {
		events, err := s.store.GetVariantEvents(ctx, test.ID)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		summaries = append(summaries, testSummary{
			Test:         test,
			CurrentState: engine.ResolveCurrentState(test, events),
		})
	}

	writeJSON(w, summaries)
}

// handleTestRoutes dispatches /api/tests/{name}[/results|/timeline|/metrics|/rotate].
func (s *Server) handleTestRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tests/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	name := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	if len(parts) > 2 {
		http.NotFound(w, r)
		return
	}

	test, err := s.store.GetTest(r.Context(), name)
	if err == store.ErrNotFound {
		http.Error(w, "Test not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	switch action {
	case "":
		s.handleGetTest(w, r, test)
	case "results":
		s.handleResults(w, r, test)
	case "timeline":
		s.handleTimeline(w, r, test)
	case "metrics":
		s.handleIngestMetrics(w, r, test)
	case "rotate":
		s.handleRotate(w, r, test)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request, test *store.Test) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events, err := s.store.GetVariantEvents(r.Context(), test.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, testSummary{Test: test, CurrentState: engine.ResolveCurrentState(test, events)})
}

type confidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type resultsResponse struct {
	Test        *store.Test                   `json:"test"`
	Performance engine.PerformancePair        `json:"performance"`
	Decision    engine.WinnerDecision         `json:"decision"`
	CtrCI       map[string]confidenceInterval `json:"ctr_ci"`
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request, test *store.Test) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	evaluation, err := s.evaluate(r.Context(), test)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	ci := make(map[string]confidenceInterval, 2)
	for _, perf := range []engine.VariantPerformance{evaluation.Performance.A, evaluation.Performance.B} {
		lower, upper := stats.WilsonInterval(perf.EstimatedClicks, perf.Impressions, 0.95)
		ci[string(perf.Variant)] = confidenceInterval{Lower: lower, Upper: upper}
	}

	writeJSON(w, resultsResponse{
		Test:        test,
		Performance: evaluation.Performance,
		Decision:    evaluation.Decision,
		CtrCI:       ci,
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request, test *store.Test) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	evaluation, err := s.evaluate(r.Context(), test)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, evaluation.Days)
}

// MetricRequest is one daily metric row pushed by the collector.
// Estimated clicks may be omitted; they are derived from impressions
// and the reported CTR.
type MetricRequest struct {
	Date                       string  `json:"date"`
	Impressions                int64   `json:"impressions"`
	EstimatedClicks            float64 `json:"estimated_clicks"`
	Views                      int64   `json:"views"`
	EstimatedMinutesWatched    float64 `json:"estimated_minutes_watched"`
	AverageViewDurationSeconds float64 `json:"average_view_duration_seconds"`
	ImpressionsCTR             float64 `json:"impressions_ctr"`
}

func (s *Server) handleIngestMetrics(w http.ResponseWriter, r *http.Request, test *store.Test) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAuth(w, r) {
		return
	}

	var rows []MetricRequest
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	for _, row := range rows {
		date, err := time.ParseInLocation("2006-01-02", row.Date, time.UTC)
		if err != nil {
			http.Error(w, "Invalid date: "+row.Date, http.StatusBadRequest)
			return
		}

		clicks := row.EstimatedClicks
		if clicks == 0 {
			clicks = engine.EstimateClicks(row.Impressions, row.ImpressionsCTR)
		}

		err = s.store.UpsertDailyMetric(r.Context(), store.DailyMetric{
			TestID:                     test.ID,
			Date:                       date,
			Impressions:                row.Impressions,
			EstimatedClicks:            clicks,
			Views:                      row.Views,
			EstimatedMinutesWatched:    row.EstimatedMinutesWatched,
			AverageViewDurationSeconds: row.AverageViewDurationSeconds,
			ImpressionsCTR:             row.ImpressionsCTR,
		})
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, map[string]int{"ingested": len(rows)})
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request, test *store.Test) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAuth(w, r) {
		return
	}

	if test.State != store.StateRunning {
		http.Error(w, "Test is not running", http.StatusConflict)
		return
	}

	ctx := r.Context()

	events, err := s.store.GetVariantEvents(ctx, test.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	next := engine.ResolveCurrentState(test, events).Variant.Other()
	now := time.Now().UTC()

	if err := s.store.RecordVariantEvent(ctx, test.ID, next, store.SourceDailyRotation, now); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := s.store.SetCurrentVariant(ctx, test.Name, next); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{
		"variant":   string(next),
		"title":     test.Title(next),
		"thumbnail": test.Thumbnail(next),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	tests, err := s.store.ListTestsByState(ctx, store.StateCompleted)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	outcomes := make([]engine.TestOutcome, 0, len(tests))
	for _, test := range tests {
		evaluation, err := s.evaluate(ctx, test)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		outcomes = append(outcomes, engine.TestOutcome{
			WinnerVariant:  test.WinnerVariant,
			WinnerMode:     test.WinnerMode,
			ReviewRequired: test.ReviewRequired,
			Performance:    evaluation.Performance,
		})
	}

	writeJSON(w, engine.SummarizePortfolio(outcomes))
}

func (s *Server) evaluate(ctx context.Context, test *store.Test) (engine.Evaluation, error) {
	rows, err := s.store.GetDailyMetrics(ctx, test.ID)
	if err != nil {
		return engine.Evaluation{}, err
	}
	events, err := s.store.GetVariantEvents(ctx, test.ID)
	if err != nil {
		return engine.Evaluation{}, err
	}
	completed := engine.TestCompleted(test, time.Now())
	return engine.Evaluate(test, rows, events, s.scoring, completed), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
