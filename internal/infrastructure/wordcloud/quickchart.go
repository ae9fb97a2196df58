package wordcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

const DefaultBaseURL = "https://quickchart.io"

// QuickChart renders word clouds through the QuickChart chart API. The URL is
// self-contained, so no request is made until a client opens it.
type QuickChart struct {
	baseURL string
	width   int
	height  int
}

func NewQuickChart(baseURL string, width, height int) *QuickChart {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if width <= 0 {
		width = 1000
	}
	if height <= 0 {
		height = 1000
	}
	return &QuickChart{
		baseURL: strings.TrimRight(baseURL, "/"),
		width:   width,
		height:  height,
	}
}

type chartConfig struct {
	Type    string       `json:"type"`
	Data    chartData    `json:"data"`
	Options chartOptions `json:"options"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type chartDataset struct {
	Label string `json:"label"`
	Data  []int  `json:"data"`
}

type chartOptions struct {
	Title   chartTitle   `json:"title"`
	Plugins chartPlugins `json:"plugins"`
}

type chartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type chartPlugins struct {
	WordCloud wordCloudPlugin `json:"wordcloud"`
}

type wordCloudPlugin struct {
	Color    string   `json:"color"`
	MinSize  int      `json:"minSize"`
	Rotation rotation `json:"rotation"`
}

type rotation struct {
	From              int `json:"from"`
	To                int `json:"to"`
	NumOfOrientations int `json:"numOfOrientation"`
}

func (q *QuickChart) Render(_ context.Context, freq domain.WordFrequency) (string, error) {
	if len(freq) == 0 {
		return "", domain.WrapError(domain.ErrNoFrequencyData, "render word cloud", errors.New("empty frequency map"))
	}

	cfg := chartConfig{
		Type: "wordCloud",
		Data: chartData{
			Labels:   make([]string, 0, len(freq)),
			Datasets: []chartDataset{{Label: "Word Frequency", Data: make([]int, 0, len(freq))}},
		},
		Options: chartOptions{
			Title: chartTitle{Display: true, Text: "Word Cloud"},
			Plugins: chartPlugins{WordCloud: wordCloudPlugin{
				Color:    "#000000",
				MinSize:  10,
				Rotation: rotation{From: 0, To: 0, NumOfOrientations: 1},
			}},
		},
	}
	for _, wc := range freq {
		cfg.Data.Labels = append(cfg.Data.Labels, wc.Word)
		cfg.Data.Datasets[0].Data = append(cfg.Data.Datasets[0].Data, wc.Count)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal chart config: %w", err)
	}

	params := url.Values{}
	params.Set("c", string(raw))
	params.Set("width", fmt.Sprint(q.width))
	params.Set("height", fmt.Sprint(q.height))
	params.Set("format", "png")
	return q.baseURL + "/chart?" + params.Encode(), nil
}
