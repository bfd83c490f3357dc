package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"encore/internal/language"
	"encore/internal/runner"
)

// Defaults for the whisper CLI.
const (
	DefaultBinary = "whisper"
	DefaultModel  = "medium"
	OutputFormat  = "json"
	CPUDevice     = "cpu"
	CUDADevice    = "cuda"
)

// Config captures runtime settings for whisper.
type Config struct {
	Model    string
	Language string
	Device   string
}

// Client invokes whisper.
type Client struct {
	binary string
	cfg    Config
}

// New constructs a client. Empty binary and model fall back to the defaults.
func New(binary string, cfg Config) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	return &Client{binary: binary, cfg: cfg}
}

// Binary returns the executable name or path.
func (c *Client) Binary() string { return c.binary }

// Model returns the configured model name for logging.
func (c *Client) Model() string { return c.cfg.Model }

// Args builds the transcription argument list.
func (c *Client) Args(source, outputDir string) []string {
	args := []string{
		source,
		"--model", c.cfg.Model,
		"--output_format", OutputFormat,
		"--output_dir", outputDir,
		"--verbose", "False",
	}
	if lang := language.ToISO2(c.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	switch strings.ToLower(strings.TrimSpace(c.cfg.Device)) {
	case CUDADevice:
		args = append(args, "--device", CUDADevice)
	case CPUDevice:
		args = append(args, "--device", CPUDevice, "--fp16", "False")
	}
	return args
}

// TranscriptPath returns where whisper writes the JSON transcript for source.
func TranscriptPath(source, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outputDir, base+".json")
}

// Transcribe runs whisper against source, writing into outputDir. onLine
// receives every output line.
func (c *Client) Transcribe(ctx context.Context, source, outputDir string, onLine func(string)) (string, runner.Outcome) {
	outcome := runner.Run(ctx, c.binary, c.Args(source, outputDir), outputDir, onLine)
	return TranscriptPath(source, outputDir), outcome
}

// Segment is one transcribed span from whisper JSON output.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type payload struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a whisper JSON file in file order.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse whisper json: %w", err)
	}
	return p.Segments, nil
}
