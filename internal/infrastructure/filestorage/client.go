package filestorage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/resilience"
)

const defaultMaxContentBytes = 10 << 20

// Client talks to the file storing service.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	executor        *resilience.Executor
	maxContentBytes int64
}

type Options struct {
	Timeout         time.Duration
	MaxContentBytes int64
	Executor        *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxContent := options.MaxContentBytes
	if maxContent <= 0 {
		maxContent = defaultMaxContentBytes
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
		executor:        options.Executor,
		maxContentBytes: maxContent,
	}
}

type submissionDTO struct {
	ID           string `json:"id"`
	StudentName  string `json:"studentName"`
	AssignmentID string `json:"assignmentId"`
	FileName     string `json:"fileName"`
	FileHash     string `json:"fileHash"`
	SubmittedAt  string `json:"submittedAt"`
}

func (c *Client) ListByAssignment(ctx context.Context, assignmentID string) ([]domain.Submission, error) {
	path := "/filestorage/assignment/" + url.PathEscape(assignmentID)
	body, err := resilience.Call(ctx, c.executor, "filestorage.list_by_assignment", func(callCtx context.Context) ([]byte, error) {
		return c.get(callCtx, path, "list submissions", c.maxContentBytes)
	}, classifyStorageError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("list submissions", err)
	}

	var dtos []submissionDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}

	out := make([]domain.Submission, 0, len(dtos))
	for _, dto := range dtos {
		submittedAt, err := parseTimestamp(dto.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("decode submission %s: %w", dto.ID, err)
		}
		out = append(out, domain.Submission{
			ID:           dto.ID,
			StudentName:  dto.StudentName,
			AssignmentID: dto.AssignmentID,
			FileName:     dto.FileName,
			FileHash:     dto.FileHash,
			SubmittedAt:  submittedAt,
		})
	}
	return out, nil
}

func (c *Client) FetchContent(ctx context.Context, workID string) ([]byte, error) {
	path := "/filestorage/" + url.PathEscape(workID) + "/file"
	body, err := resilience.Call(ctx, c.executor, "filestorage.fetch_content", func(callCtx context.Context) ([]byte, error) {
		return c.get(callCtx, path, "fetch content", c.maxContentBytes)
	}, classifyStorageError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("fetch content", err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path, operation string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file storage %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newHTTPStatusError(operation, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%s response exceeds %d bytes", operation, limit)
	}
	return body, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 and zone-less timestamps; the latter are UTC.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", raw)
}
