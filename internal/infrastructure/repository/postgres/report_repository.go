package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

const reportColumns = `id, work_id, status, has_plagiarism, plagiarism_details, word_frequency, created_at, completed_at, archive_path, error_message`

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026031501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	// word_frequency is a JSON array, not an object: JSONB does not keep key order.
	const query = `
CREATE TABLE IF NOT EXISTS analysis_reports (
	id TEXT PRIMARY KEY,
	work_id TEXT NOT NULL,
	status TEXT NOT NULL,
	has_plagiarism BOOLEAN NOT NULL DEFAULT FALSE,
	plagiarism_details TEXT,
	word_frequency JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	archive_path TEXT,
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_analysis_reports_work_id ON analysis_reports(work_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analysis_reports_status ON analysis_reports(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.AnalysisReport) error {
	freqJSON, err := encodeFrequency(report.WordFrequency)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analysis_reports (`+reportColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		report.ID, report.WorkID, string(report.Status), report.HasPlagiarism, report.PlagiarismDetails,
		freqJSON, report.CreatedAt, report.CompletedAt, report.ArchivePath, report.Error,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisReport, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+reportColumns+`
FROM analysis_reports
WHERE id = $1
`, id)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrReportNotFound, "get report", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return &report, nil
}

// Update replaces every mutable column in one statement.
func (r *ReportRepository) Update(ctx context.Context, report *domain.AnalysisReport) error {
	freqJSON, err := encodeFrequency(report.WordFrequency)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE analysis_reports
SET status = $2, has_plagiarism = $3, plagiarism_details = $4, word_frequency = $5,
	completed_at = $6, archive_path = $7, error_message = $8
WHERE id = $1
`,
		report.ID, string(report.Status), report.HasPlagiarism, report.PlagiarismDetails, freqJSON,
		report.CompletedAt, report.ArchivePath, report.Error,
	)
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
WHERE work_id = $1
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

type reportScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row reportScanner) (domain.AnalysisReport, error) {
	var (
		report      domain.AnalysisReport
		status      string
		details     sql.NullString
		freqRaw     []byte
		completedAt sql.NullTime
		archivePath sql.NullString
	)
	err := row.Scan(
		&report.ID,
		&report.WorkID,
		&status,
		&report.HasPlagiarism,
		&details,
		&freqRaw,
		&report.CreatedAt,
		&completedAt,
		&archivePath,
		&report.Error,
	)
	if err != nil {
		return domain.AnalysisReport{}, err
	}

	report.Status = domain.ReportStatus(status)
	if details.Valid {
		report.PlagiarismDetails = &details.String
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		report.CompletedAt = &t
	}
	if archivePath.Valid {
		report.ArchivePath = &archivePath.String
	}
	report.CreatedAt = report.CreatedAt.UTC()
	freq, err := decodeFrequency(freqRaw)
	if err != nil {
		return domain.AnalysisReport{}, err
	}
	report.WordFrequency = freq
	return report, nil
}

func encodeFrequency(freq domain.WordFrequency) (interface{}, error) {
	if freq == nil {
		return nil, nil
	}
	raw, err := json.Marshal([]domain.WordCount(freq))
	if err != nil {
		return nil, fmt.Errorf("marshal word frequency: %w", err)
	}
	return raw, nil
}

func decodeFrequency(raw []byte) (domain.WordFrequency, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []domain.WordCount
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal word frequency: %w", err)
	}
	if entries == nil {
		return nil, nil
	}
	return domain.WordFrequency(entries), nil
}
