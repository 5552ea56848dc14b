package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Database wraps the connection pool for the optional check-history store.
// The application runs fully stateless when DATABASE_URL is unset.
type Database struct {
	Pool *pgxpool.Pool
}

// DomainCheck is one saved check result.
type DomainCheck struct {
	ID             int             `json:"id"`
	Domain         string          `json:"domain"`
	ASCIIDomain    string          `json:"ascii_domain"`
	SPFStatus      *string         `json:"spf_status"`
	DMARCStatus    *string         `json:"dmarc_status"`
	DMARCPolicy    *string         `json:"dmarc_policy"`
	DNSSECStatus   *string         `json:"dnssec_status"`
	FullResults    json.RawMessage `json:"full_results"`
	CheckSuccess   bool            `json:"check_success"`
	CheckDuration  *float64        `json:"check_duration"`
	CreatedAt      time.Time       `json:"created_at"`
}

func statusOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (c DomainCheck) SPFBadge() string    { return statusOrEmpty(c.SPFStatus) }
func (c DomainCheck) DMARCBadge() string  { return statusOrEmpty(c.DMARCStatus) }
func (c DomainCheck) DNSSECBadge() string { return statusOrEmpty(c.DNSSECStatus) }

// DailyStat aggregates check volume for one day.
type DailyStat struct {
	Date          time.Time `json:"date"`
	TotalChecks   int       `json:"total_checks"`
	UniqueDomains int       `json:"unique_domains"`
	AvgDuration   float64   `json:"avg_duration"`
}

const schema = `
CREATE TABLE IF NOT EXISTS domain_checks (
	id             SERIAL PRIMARY KEY,
	domain         TEXT NOT NULL,
	ascii_domain   TEXT NOT NULL,
	spf_status     TEXT,
	dmarc_status   TEXT,
	dmarc_policy   TEXT,
	dnssec_status  TEXT,
	full_results   JSONB NOT NULL,
	check_success  BOOLEAN NOT NULL DEFAULT TRUE,
	check_duration DOUBLE PRECISION,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_domain_checks_domain ON domain_checks (domain);
CREATE INDEX IF NOT EXISTS idx_domain_checks_created_at ON domain_checks (created_at DESC);
`

func Connect(databaseURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 2 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	slog.Info("Database connected successfully")
	return &Database{Pool: pool}, nil
}

func (d *Database) Close() {
	if d.Pool != nil {
		d.Pool.Close()
		slog.Info("Database connection closed")
	}
}

func (d *Database) HealthCheck(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// SaveCheck persists a completed check. Failures are logged, not fatal,
// so a storage outage never breaks the check flow.
func (d *Database) SaveCheck(ctx context.Context, check DomainCheck) {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO domain_checks
			(domain, ascii_domain, spf_status, dmarc_status, dmarc_policy,
			 dnssec_status, full_results, check_success, check_duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		check.Domain, check.ASCIIDomain, check.SPFStatus, check.DMARCStatus,
		check.DMARCPolicy, check.DNSSECStatus, check.FullResults,
		check.CheckSuccess, check.CheckDuration,
	)
	if err != nil {
		slog.Error("Failed to save check", "domain", check.Domain, "error", err)
	}
}

// RecentChecks returns the newest successful checks, newest first.
func (d *Database) RecentChecks(ctx context.Context, limit int) ([]DomainCheck, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, domain, ascii_domain, spf_status, dmarc_status, dmarc_policy,
		       dnssec_status, check_success, check_duration, created_at
		FROM domain_checks
		WHERE check_success = TRUE
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent checks: %w", err)
	}
	defer rows.Close()

	var checks []DomainCheck
	for rows.Next() {
		var c DomainCheck
		if err := rows.Scan(&c.ID, &c.Domain, &c.ASCIIDomain, &c.SPFStatus,
			&c.DMARCStatus, &c.DMARCPolicy, &c.DNSSECStatus,
			&c.CheckSuccess, &c.CheckDuration, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan check row: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// DailyStats aggregates check counts for the last N days.
func (d *Database) DailyStats(ctx context.Context, days int) ([]DailyStat, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
		       COUNT(*),
		       COUNT(DISTINCT domain),
		       COALESCE(AVG(check_duration), 0)
		FROM domain_checks
		WHERE created_at > NOW() - make_interval(days => $1)
		GROUP BY day
		ORDER BY day DESC`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var s DailyStat
		if err := rows.Scan(&s.Date, &s.TotalChecks, &s.UniqueDomains, &s.AvgDuration); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
