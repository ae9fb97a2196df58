// Package sqlite keeps analysis reports in a single SQLite file, for
// deployments that run without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const reportColumns = `id, work_id, status, has_plagiarism, plagiarism_details, word_frequency, created_at, completed_at, archive_path, error_message`

const schema = `
CREATE TABLE IF NOT EXISTS analysis_reports (
	id TEXT PRIMARY KEY,
	work_id TEXT NOT NULL,
	status TEXT NOT NULL,
	has_plagiarism INTEGER NOT NULL DEFAULT 0,
	plagiarism_details TEXT,
	word_frequency TEXT,
	created_at TEXT NOT NULL,
	completed_at TEXT,
	archive_path TEXT,
	error_message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_analysis_reports_work_id ON analysis_reports(work_id, created_at DESC);
`

type ReportRepository struct {
	db *sql.DB
}

// Open creates the database file and its directory when missing.
func Open(path string) (*ReportRepository, error) {
	if path == "" {
		path = "./data/reports.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY out of the request path.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &ReportRepository{db: db}, nil
}

func (r *ReportRepository) Close() error {
	return r.db.Close()
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.AnalysisReport) error {
	args, err := reportArgs(report)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO analysis_reports (`+reportColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, args...)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisReport, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM analysis_reports WHERE id = ?`, id)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrReportNotFound, "get report", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return &report, nil
}

func (r *ReportRepository) Update(ctx context.Context, report *domain.AnalysisReport) error {
	args, err := reportArgs(report)
	if err != nil {
		return err
	}
	// Same column order as reportArgs, id moved last for the WHERE clause.
	result, err := r.db.ExecContext(ctx, `
UPDATE analysis_reports
SET status = ?, has_plagiarism = ?, plagiarism_details = ?, word_frequency = ?,
	completed_at = ?, archive_path = ?, error_message = ?
WHERE id = ?
`, args[2], args[3], args[4], args[5], args[7], args[8], args[9], args[0])
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrReportNotFound, "update report", fmt.Errorf("id=%s", report.ID))
	}
	return nil
}

func (r *ReportRepository) ListByWorkID(ctx context.Context, workID string) ([]domain.AnalysisReport, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+reportColumns+`
FROM analysis_reports
WHERE work_id = ?
ORDER BY created_at DESC, id
`, workID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AnalysisReport, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

func reportArgs(report *domain.AnalysisReport) ([]interface{}, error) {
	var freq interface{}
	if report.WordFrequency != nil {
		raw, err := json.Marshal([]domain.WordCount(report.WordFrequency))
		if err != nil {
			return nil, fmt.Errorf("marshal word frequency: %w", err)
		}
		freq = string(raw)
	}
	var completedAt interface{}
	if report.CompletedAt != nil {
		completedAt = report.CompletedAt.UTC().Format(timeLayout)
	}
	hasPlagiarism := 0
	if report.HasPlagiarism {
		hasPlagiarism = 1
	}
	return []interface{}{
		report.ID,
		report.WorkID,
		string(report.Status),
		hasPlagiarism,
		nullableString(report.PlagiarismDetails),
		freq,
		report.CreatedAt.UTC().Format(timeLayout),
		completedAt,
		nullableString(report.ArchivePath),
		report.Error,
	}, nil
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

type reportScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row reportScanner) (domain.AnalysisReport, error) {
	var (
		report        domain.AnalysisReport
		status        string
		hasPlagiarism int
		details       sql.NullString
		freq          sql.NullString
		createdAt     string
		completedAt   sql.NullString
		archivePath   sql.NullString
	)
	if err := row.Scan(
		&report.ID, &report.WorkID, &status, &hasPlagiarism, &details, &freq,
		&createdAt, &completedAt, &archivePath, &report.Error,
	); err != nil {
		return domain.AnalysisReport{}, err
	}

	report.Status = domain.ReportStatus(status)
	report.HasPlagiarism = hasPlagiarism != 0
	if details.Valid {
		report.PlagiarismDetails = &details.String
	}
	if archivePath.Valid {
		report.ArchivePath = &archivePath.String
	}

	var err error
	if report.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("parse created_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return domain.AnalysisReport{}, fmt.Errorf("parse completed_at: %w", err)
		}
		report.CompletedAt = &t
	}
	if freq.Valid {
		var entries []domain.WordCount
		if err := json.Unmarshal([]byte(freq.String), &entries); err != nil {
			return domain.AnalysisReport{}, fmt.Errorf("unmarshal word frequency: %w", err)
		}
		report.WordFrequency = domain.WordFrequency(entries)
	}
	return report, nil
}
