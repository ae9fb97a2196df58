package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

const (
	reportsSheet   = "Reports"
	frequencySheet = "Word Frequency"
	exportTimeFmt  = "2006-01-02 15:04:05"
	topWordsInCell = 10
)

var reportsHeader = []interface{}{
	"Report ID", "Status", "Has Plagiarism", "Plagiarism Details", "Created At", "Completed At", "Archive Path", "Error", "Top Words",
}

var frequencyHeader = []interface{}{"Report ID", "Rank", "Word", "Count"}

// ExportWorkReports writes the work's report history as an XLSX workbook:
// one row per report, plus the full ranked frequency table.
func (uc *ReportQueryUseCase) ExportWorkReports(ctx context.Context, workID string, w io.Writer) error {
	reports, err := uc.ListReportsForWork(ctx, workID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(frequencySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := f.SetSheetRow(reportsSheet, "A1", &reportsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetSheetRow(frequencySheet, "A1", &frequencyHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	freqRow := 2
	for i, r := range reports {
		row := reportRow(r)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(reportsSheet, cell, &row); err != nil {
			return fmt.Errorf("write report %s: %w", r.ID, err)
		}

		for rank, wc := range r.WordFrequency {
			cell, err := excelize.CoordinatesToCellName(1, freqRow)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			values := []interface{}{r.ID, rank + 1, wc.Word, wc.Count}
			if err := f.SetSheetRow(frequencySheet, cell, &values); err != nil {
				return fmt.Errorf("write frequency for %s: %w", r.ID, err)
			}
			freqRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func reportRow(r domain.AnalysisReport) []interface{} {
	return []interface{}{
		r.ID,
		string(r.Status),
		r.HasPlagiarism,
		derefString(r.PlagiarismDetails),
		r.CreatedAt.UTC().Format(exportTimeFmt),
		formatOptionalTime(r.CompletedAt),
		derefString(r.ArchivePath),
		r.Error,
		topWords(r.WordFrequency, topWordsInCell),
	}
}

func topWords(freq domain.WordFrequency, n int) string {
	if len(freq) > n {
		freq = freq[:n]
	}
	parts := make([]string, 0, len(freq))
	for _, wc := range freq {
		parts = append(parts, fmt.Sprintf("%s (%d)", wc.Word, wc.Count))
	}
	return strings.Join(parts, ", ")
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(exportTimeFmt)
}
