// Package history persists completed analyses in SQLite and answers the
// history and leaderboard queries.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/sitelens/internal/logging"
	"github.com/raysh454/sitelens/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// Entry is one recorded analysis.
type Entry struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Domain        string    `json:"domain"`
	OverallScore  *int      `json:"overallScore,omitempty"`
	SecurityScore *int      `json:"securityScore,omitempty"`
	Partial       bool      `json:"partial"`
	CreatedAt     time.Time `json:"createdAt"`
}

// LeaderboardRow is one domain's best showing.
type LeaderboardRow struct {
	Domain    string `json:"domain"`
	BestScore int    `json:"bestScore"`
	Analyses  int    `json:"analyses"`
}

// Store is the SQLite-backed history store.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// NewStore applies the schema and pragmas to db and returns the store. The
// caller owns the db handle.
func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if err := applySchema(db); err != nil {
		return nil, fmt.Errorf("applying history schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "history"}),
	}, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Record inserts one completed analysis.
func (s *Store) Record(ctx context.Context, report *model.AnalysisResult) error {
	if report == nil {
		return fmt.Errorf("nil report")
	}

	id := report.ID
	if id == "" {
		id = uuid.New().String()
	}

	var securityScore *int
	if report.Security != nil {
		securityScore = report.Security.SecurityScore
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analyses
		  (id, url, domain, overall_score, security_score, partial, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		report.Overview.URL,
		report.Overview.Domain,
		report.OverallScore,
		securityScore,
		boolToInt(report.Partial),
		report.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	s.logger.Debug("recorded analysis",
		logging.Field{Key: "url", Value: report.Overview.URL})
	return nil
}

// Recent returns the latest analyses, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, domain, overall_score, security_score, partial, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var overall, security sql.NullInt64
		var partial int
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.URL, &e.Domain, &overall, &security, &partial, &createdAt); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		if overall.Valid {
			v := int(overall.Int64)
			e.OverallScore = &v
		}
		if security.Valid {
			v := int(security.Int64)
			e.SecurityScore = &v
		}
		e.Partial = partial != 0
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Leaderboard ranks domains by their best overall score.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, MAX(overall_score) AS best, COUNT(*) AS analyses
		FROM analyses
		WHERE overall_score IS NOT NULL
		GROUP BY domain
		ORDER BY best DESC, analyses DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.Domain, &row.BestScore, &row.Analyses); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
