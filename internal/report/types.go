package report

import (
	"io"
	"time"

	"github.com/ppiankov/shotspectre/internal/analyzer"
	"github.com/ppiankov/shotspectre/internal/screenshot"
)

// Reporter is the interface for output formatters.
type Reporter interface {
	Generate(data Data) error
}

// Data holds all information needed to generate a report.
// Reporters treat it as read-only.
type Data struct {
	Tool      string                `json:"tool"`
	Version   string                `json:"version"`
	RunID     string                `json:"run_id"`
	Timestamp time.Time             `json:"timestamp"`
	Target    Target                `json:"target"`
	Config    ReportConfig          `json:"config"`
	Results   *screenshot.ResultSet `json:"results"`
	Summary   analyzer.Summary      `json:"summary"`
}

// Target identifies the screenshot directory that was analyzed.
type Target struct {
	Directory string `json:"directory"`
	DirHash   string `json:"dir_hash"`
}

// ReportConfig captures the run configuration used.
type ReportConfig struct {
	Model   string `json:"model"`
	Workers int    `json:"workers"`
}

// JSONReporter writes the per-file results as a JSON object keyed by filename.
type JSONReporter struct {
	Writer io.Writer
}

// EnvelopeReporter writes a spectre/v1 envelope with run metadata, results,
// and summary.
type EnvelopeReporter struct {
	Writer io.Writer
}

// TableReporter generates a human-readable table.
type TableReporter struct {
	Writer io.Writer
}

// SARIFReporter generates SARIF v2.1.0 output.
type SARIFReporter struct {
	Writer io.Writer
}
