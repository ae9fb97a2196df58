package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

var reportColumnNames = []string{
	"id", "work_id", "status", "has_plagiarism", "plagiarism_details", "word_frequency",
	"created_at", "completed_at", "archive_path", "error_message",
}

func newRepoWithMock(t *testing.T) (*ReportRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewReportRepository(db), mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM analysis_reports").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesNullableColumnsAndRankOrder(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completedAt := createdAt.Add(time.Second)
	rows := sqlmock.NewRows(reportColumnNames).
		AddRow("r-1", "w-1", "Completed", true, "Plagiarism detected", []byte(`[{"word":"zebra","count":3},{"word":"apple","count":1}]`),
			createdAt, completedAt, "/data/reports/r-1.json", "")

	mock.ExpectQuery("FROM analysis_reports").
		WithArgs("r-1").
		WillReturnRows(rows)

	report, err := repo.GetByID(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if report.Status != domain.StatusCompleted || !report.HasPlagiarism {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.PlagiarismDetails == nil || report.ArchivePath == nil || report.CompletedAt == nil {
		t.Fatalf("expected nullable columns to be set: %+v", report)
	}
	if len(report.WordFrequency) != 2 || report.WordFrequency[0].Word != "zebra" {
		t.Fatalf("rank order lost: %+v", report.WordFrequency)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE analysis_reports").
		WithArgs("missing", string(domain.StatusProcessing), false, nil, nil, nil, nil, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.AnalysisReport{ID: "missing", Status: domain.StatusProcessing})
	if !domain.IsKind(err, domain.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateStoresFrequencyAsArray(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO analysis_reports").
		WithArgs("r-1", "w-1", "Pending", false, nil, []byte(`[{"word":"cat","count":2}]`), createdAt, nil, nil, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.AnalysisReport{
		ID:            "r-1",
		WorkID:        "w-1",
		Status:        domain.StatusPending,
		WordFrequency: domain.WordFrequency{{Word: "cat", Count: 2}},
		CreatedAt:     createdAt,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListByWorkIDReturnsEmptySlice(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("WHERE work_id = \\$1").
		WithArgs("w-none").
		WillReturnRows(sqlmock.NewRows(reportColumnNames))

	reports, err := repo.ListByWorkID(context.Background(), "w-none")
	if err != nil {
		t.Fatalf("ListByWorkID() error = %v", err)
	}
	if reports == nil || len(reports) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", reports)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
