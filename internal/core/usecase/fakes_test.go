package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type reportRepoFake struct {
	mu        sync.Mutex
	reports   map[string]*domain.AnalysisReport
	updates   []domain.AnalysisReport
	createErr error
	getErr    error
	// updateErrs is consumed one entry per Update call; nil entries succeed.
	updateErrs []error
}

func newReportRepoFake(reports ...*domain.AnalysisReport) *reportRepoFake {
	f := &reportRepoFake{reports: make(map[string]*domain.AnalysisReport)}
	for _, r := range reports {
		f.reports[r.ID] = r.Clone()
	}
	return f
}

func (f *reportRepoFake) Create(_ context.Context, report *domain.AnalysisReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.reports[report.ID] = report.Clone()
	return nil
}

func (f *reportRepoFake) GetByID(_ context.Context, id string) (*domain.AnalysisReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.reports[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrReportNotFound, "get report", fmt.Errorf("id=%s", id))
	}
	return r.Clone(), nil
}

func (f *reportRepoFake) Update(_ context.Context, report *domain.AnalysisReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, *report.Clone())
	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	f.reports[report.ID] = report.Clone()
	return nil
}

func (f *reportRepoFake) ListByWorkID(_ context.Context, workID string) ([]domain.AnalysisReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AnalysisReport, 0)
	for _, r := range f.reports {
		if r.WorkID == workID {
			out = append(out, *r.Clone())
		}
	}
	// Map order is random; callers must not rely on the repository order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *reportRepoFake) stored(id string) *domain.AnalysisReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports[id].Clone()
}

type sourceFake struct {
	submissions []domain.Submission
	listErr     error
	listCalls   int
	content     []byte
	fetchErr    error
	fetchPanic  bool
}

func (f *sourceFake) ListByAssignment(context.Context, string) ([]domain.Submission, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.submissions, nil
}

func (f *sourceFake) FetchContent(context.Context, string) ([]byte, error) {
	if f.fetchPanic {
		panic("storage client exploded")
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.content, nil
}

type decoderFake struct{}

func (decoderFake) DecodeText(raw []byte) (string, bool) {
	for _, b := range raw {
		if b == 0 {
			return "", false
		}
	}
	return string(raw), true
}

type extractorFake struct {
	freq domain.WordFrequency
}

func (f extractorFake) Extract(string) domain.WordFrequency {
	return f.freq.Clone()
}

type detectorFake struct {
	verdict domain.PlagiarismVerdict
	calls   int
}

func (f *detectorFake) Detect(context.Context, string, string, string) domain.PlagiarismVerdict {
	f.calls++
	return f.verdict
}

type archiverFake struct {
	err      error
	archived []domain.AnalysisReport
}

func (f *archiverFake) Archive(_ context.Context, report *domain.AnalysisReport) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, *report.Clone())
	return "/archive/" + report.ID + ".json", nil
}

type dispatcherFake struct {
	err   error
	tasks []domain.AnalysisTask
}

func (f *dispatcherFake) Dispatch(_ context.Context, task domain.AnalysisTask) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type rendererFake struct {
	url string
	err error
}

func (f *rendererFake) Render(_ context.Context, freq domain.WordFrequency) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if len(freq) == 0 {
		return "", errors.New("renderer called without data")
	}
	return f.url, nil
}
