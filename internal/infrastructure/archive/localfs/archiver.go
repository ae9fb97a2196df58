package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/archive"
)

// Archiver writes report snapshots under basePath as <reportID>.<ext>.
type Archiver struct {
	basePath string
	format   archive.Format
}

func New(basePath string, format archive.Format) (*Archiver, error) {
	if basePath == "" {
		basePath = "./reports"
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve archive dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	if format == "" {
		format = archive.FormatJSON
	}
	return &Archiver{basePath: abs, format: format}, nil
}

// Archive writes through a temp file and a rename, so readers never see a
// half-written snapshot. An existing snapshot for the same id is replaced.
func (a *Archiver) Archive(ctx context.Context, report *domain.AnalysisReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := archive.Encode(report, a.format)
	if err != nil {
		return "", err
	}
	name, err := archive.ObjectName(report.ID, a.format)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(a.basePath, ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}

	path := filepath.Join(a.basePath, name)
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("publish snapshot: %w", err)
	}
	return path, nil
}
