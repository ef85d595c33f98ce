package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tests (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    video_id TEXT NOT NULL,
    title_a TEXT NOT NULL,
    thumbnail_a TEXT,
    title_b TEXT NOT NULL,
    thumbnail_b TEXT,
    start_date TEXT NOT NULL,
    duration_days INTEGER NOT NULL,
    initial_variant TEXT NOT NULL DEFAULT 'A',
    current_variant TEXT NOT NULL DEFAULT 'A',
    state TEXT NOT NULL DEFAULT 'running',
    winner_variant TEXT,
    winner_mode TEXT NOT NULL DEFAULT 'pending',
    review_required INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_tests_name ON tests(name);
CREATE INDEX IF NOT EXISTS idx_tests_state ON tests(state);

CREATE TABLE IF NOT EXISTS daily_metrics (
    test_id TEXT NOT NULL,
    date TEXT NOT NULL,
    impressions INTEGER NOT NULL DEFAULT 0,
    estimated_clicks REAL NOT NULL DEFAULT 0,
    views INTEGER NOT NULL DEFAULT 0,
    estimated_minutes_watched REAL NOT NULL DEFAULT 0,
    average_view_duration_seconds REAL NOT NULL DEFAULT 0,
    impressions_ctr REAL NOT NULL DEFAULT 0,
    FOREIGN KEY (test_id) REFERENCES tests(id),
    PRIMARY KEY (test_id, date)
);

CREATE TABLE IF NOT EXISTS variant_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    test_id TEXT NOT NULL,
    variant TEXT NOT NULL,
    source TEXT NOT NULL,
    occurred_at INTEGER NOT NULL,
    FOREIGN KEY (test_id) REFERENCES tests(id)
);

CREATE INDEX IF NOT EXISTS idx_events_test ON variant_events(test_id, occurred_at);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTest inserts the test row and its opening test_created event in a
// single transaction, so the event log never starts empty.
func (s *SQLiteStore) CreateTest(ctx context.Context, p CreateTestParams) (*Test, error) {
	if !p.InitialVariant.Valid() {
		p.InitialVariant = VariantA
	}

	startDate := p.StartDate.UTC().Truncate(24 * time.Hour)
	now := time.Now().Unix()
	id := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tests (id, name, video_id, title_a, thumbnail_a, title_b, thumbnail_b,
		                    start_date, duration_days, initial_variant, current_variant, state,
		                    winner_mode, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'running', 'pending', ?, ?)`,
		id, p.Name, p.VideoID, p.TitleA, p.ThumbnailA, p.TitleB, p.ThumbnailB,
		startDate.Format(dateLayout), p.DurationDays, string(p.InitialVariant), string(p.InitialVariant), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert test: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO variant_events (test_id, variant, source, occurred_at) VALUES (?, ?, ?, ?)`,
		id, string(p.InitialVariant), string(SourceTestCreated), startDate.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert creation event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit test: %w", err)
	}

	return &Test{
		ID:             id,
		Name:           p.Name,
		VideoID:        p.VideoID,
		TitleA:         p.TitleA,
		ThumbnailA:     p.ThumbnailA,
		TitleB:         p.TitleB,
		ThumbnailB:     p.ThumbnailB,
		StartDate:      startDate,
		DurationDays:   p.DurationDays,
		InitialVariant: p.InitialVariant,
		CurrentVariant: p.InitialVariant,
		State:          StateRunning,
		WinnerMode:     WinnerModePending,
		CreatedAt:      time.Unix(now, 0),
		UpdatedAt:      time.Unix(now, 0),
	}, nil
}

const testColumns = `id, name, video_id, title_a, thumbnail_a, title_b, thumbnail_b,
       start_date, duration_days, initial_variant, current_variant, state,
       winner_variant, winner_mode, review_required, created_at, updated_at`

func scanTest(row interface{ Scan(...any) error }) (*Test, error) {
	var test Test
	var startDate string
	var initialVariant, currentVariant, winnerMode string
	var winnerVariant sql.NullString
	var thumbA, thumbB sql.NullString
	var reviewRequired int
	var createdAt, updatedAt int64

	err := row.Scan(&test.ID, &test.Name, &test.VideoID, &test.TitleA, &thumbA, &test.TitleB, &thumbB,
		&startDate, &test.DurationDays, &initialVariant, &currentVariant, &test.State,
		&winnerVariant, &winnerMode, &reviewRequired, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	parsed, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start date: %w", err)
	}

	test.ThumbnailA = thumbA.String
	test.ThumbnailB = thumbB.String
	test.StartDate = parsed
	test.InitialVariant = Variant(initialVariant)
	test.CurrentVariant = Variant(currentVariant)
	test.WinnerMode = WinnerMode(winnerMode)
	test.ReviewRequired = reviewRequired != 0
	if winnerVariant.Valid {
		w := Variant(winnerVariant.String)
		test.WinnerVariant = &w
	}
	test.CreatedAt = time.Unix(createdAt, 0)
	test.UpdatedAt = time.Unix(updatedAt, 0)

	return &test, nil
}

func (s *SQLiteStore) GetTest(ctx context.Context, name string) (*Test, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM tests WHERE name = ?`, name)

	test, err := scanTest(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (s *SQLiteStore) ListTests(ctx context.Context) ([]*Test, error) {
	return s.listTests(ctx, `SELECT `+testColumns+` FROM tests ORDER BY created_at DESC`)
}

func (s *SQLiteStore) ListTestsByState(ctx context.Context, state TestState) ([]*Test, error) {
	return s.listTests(ctx,
		`SELECT `+testColumns+` FROM tests WHERE state = ? ORDER BY created_at DESC`, string(state))
}

func (s *SQLiteStore) listTests(ctx context.Context, query string, args ...any) ([]*Test, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var tests []*Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, test)
	}

	return tests, rows.Err()
}

func (s *SQLiteStore) UpdateTestState(ctx context.Context, name string, state TestState) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tests SET state = ?, updated_at = ? WHERE name = ?`,
		string(state), time.Now().Unix(), name,
	)
	if err != nil {
		return fmt.Errorf("failed to update test state: %w", err)
	}
	return requireRow(result)
}

func (s *SQLiteStore) SetCurrentVariant(ctx context.Context, name string, v Variant) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tests SET current_variant = ?, updated_at = ? WHERE name = ?`,
		string(v), time.Now().Unix(), name,
	)
	if err != nil {
		return fmt.Errorf("failed to update current variant: %w", err)
	}
	return requireRow(result)
}

func (s *SQLiteStore) SetWinner(ctx context.Context, name string, winner *Variant, mode WinnerMode, reviewRequired bool) error {
	var winnerVal sql.NullString
	if winner != nil {
		winnerVal = sql.NullString{String: string(*winner), Valid: true}
	}

	review := 0
	if reviewRequired {
		review = 1
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE tests SET winner_variant = ?, winner_mode = ?, review_required = ?, updated_at = ? WHERE name = ?`,
		winnerVal, string(mode), review, time.Now().Unix(), name,
	)
	if err != nil {
		return fmt.Errorf("failed to set winner: %w", err)
	}
	return requireRow(result)
}

func (s *SQLiteStore) DeleteTest(ctx context.Context, name string) error {
	test, err := s.GetTest(ctx, name)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM daily_metrics WHERE test_id = ?`, test.ID); err != nil {
		return fmt.Errorf("failed to delete metrics: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM variant_events WHERE test_id = ?`, test.ID); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id = ?`, test.ID)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	return requireRow(result)
}

// UpsertDailyMetric inserts or replaces the single row for (test, date).
// Re-ingesting a day overwrites it; a day never appears twice.
func (s *SQLiteStore) UpsertDailyMetric(ctx context.Context, m DailyMetric) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_metrics (test_id, date, impressions, estimated_clicks, views,
		                            estimated_minutes_watched, average_view_duration_seconds, impressions_ctr)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(test_id, date) DO UPDATE SET
		     impressions = excluded.impressions,
		     estimated_clicks = excluded.estimated_clicks,
		     views = excluded.views,
		     estimated_minutes_watched = excluded.estimated_minutes_watched,
		     average_view_duration_seconds = excluded.average_view_duration_seconds,
		     impressions_ctr = excluded.impressions_ctr`,
		m.TestID, m.Date.UTC().Format(dateLayout), m.Impressions, m.EstimatedClicks, m.Views,
		m.EstimatedMinutesWatched, m.AverageViewDurationSeconds, m.ImpressionsCTR,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily metric: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDailyMetrics(ctx context.Context, testID string) ([]DailyMetric, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT test_id, date, impressions, estimated_clicks, views,
		        estimated_minutes_watched, average_view_duration_seconds, impressions_ctr
		 FROM daily_metrics WHERE test_id = ? ORDER BY date ASC`,
		testID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily metrics: %w", err)
	}
	defer rows.Close()

	var metrics []DailyMetric
	for rows.Next() {
		var m DailyMetric
		var date string
		if err := rows.Scan(&m.TestID, &date, &m.Impressions, &m.EstimatedClicks, &m.Views,
			&m.EstimatedMinutesWatched, &m.AverageViewDurationSeconds, &m.ImpressionsCTR); err != nil {
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		parsed, err := time.ParseInLocation(dateLayout, date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse metric date: %w", err)
		}
		m.Date = parsed
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

func (s *SQLiteStore) RecordVariantEvent(ctx context.Context, testID string, v Variant, source EventSource, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO variant_events (test_id, variant, source, occurred_at) VALUES (?, ?, ?, ?)`,
		testID, string(v), string(source), at.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record variant event: %w", err)
	}
	return nil
}

// GetVariantEvents returns the event log in insertion order. Duplicate
// timestamps keep their insertion order, which is the tie-break the
// timeline resolver relies on.
func (s *SQLiteStore) GetVariantEvents(ctx context.Context, testID string) ([]VariantEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, test_id, variant, source, occurred_at
		 FROM variant_events WHERE test_id = ? ORDER BY id ASC`,
		testID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant events: %w", err)
	}
	defer rows.Close()

	var events []VariantEvent
	for rows.Next() {
		var e VariantEvent
		var occurredAt int64
		if err := rows.Scan(&e.ID, &e.TestID, &e.Variant, &e.Source, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan variant event: %w", err)
		}
		e.OccurredAt = time.Unix(occurredAt, 0).UTC()
		events = append(events, e)
	}

	return events, rows.Err()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
