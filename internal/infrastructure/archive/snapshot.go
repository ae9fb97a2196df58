package archive

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported archive format %q", raw)
	}
}

func (f Format) Extension() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// ObjectName is the file name of a report snapshot: "<reportID>.<ext>".
func ObjectName(reportID string, format Format) (string, error) {
	id := strings.TrimSpace(reportID)
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", domain.WrapError(domain.ErrInvalidInput, "archive object name", fmt.Errorf("bad report id %q", reportID))
	}
	return id + format.Extension(), nil
}

// Encode renders the snapshot of report. The archive locator is not part of
// the snapshot since it is only known after the write.
func Encode(report *domain.AnalysisReport, format Format) ([]byte, error) {
	if report == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode snapshot", fmt.Errorf("nil report"))
	}
	snapshot := report.Clone()
	snapshot.ArchivePath = nil

	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(newYAMLSnapshot(snapshot))
		if err != nil {
			return nil, fmt.Errorf("encode yaml snapshot: %w", err)
		}
		return out, nil
	default:
		out, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json snapshot: %w", err)
		}
		return append(out, '\n'), nil
	}
}

type yamlSnapshot struct {
	ID                string        `yaml:"id"`
	WorkID            string        `yaml:"workId"`
	Status            string        `yaml:"status"`
	HasPlagiarism     bool          `yaml:"hasPlagiarism"`
	PlagiarismDetails *string       `yaml:"plagiarismDetails,omitempty"`
	WordFrequency     yamlFrequency `yaml:"wordFrequency,omitempty"`
	CreatedAt         time.Time     `yaml:"createdAt"`
	CompletedAt       *time.Time    `yaml:"completedAt,omitempty"`
	Error             string        `yaml:"error,omitempty"`
}

func newYAMLSnapshot(r *domain.AnalysisReport) yamlSnapshot {
	return yamlSnapshot{
		ID:                r.ID,
		WorkID:            r.WorkID,
		Status:            string(r.Status),
		HasPlagiarism:     r.HasPlagiarism,
		PlagiarismDetails: r.PlagiarismDetails,
		WordFrequency:     yamlFrequency(r.WordFrequency),
		CreatedAt:         r.CreatedAt,
		CompletedAt:       r.CompletedAt,
		Error:             r.Error,
	}
}

// yamlFrequency keeps rank order in the mapping, which a Go map would lose.
type yamlFrequency domain.WordFrequency

func (f yamlFrequency) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, wc := range f {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: wc.Word},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(wc.Count)},
		)
	}
	return node, nil
}
