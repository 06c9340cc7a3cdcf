package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/shotspectre/internal/analyzer"
	"github.com/ppiankov/shotspectre/internal/screenshot"
)

// Generate writes the results object. Successful entries carry the backend
// payload as received; failed entries carry only error and error_kind.
func (r *JSONReporter) Generate(data Data) error {
	if err := encodeJSON(r.Writer, resultsOrEmpty(data.Results)); err != nil {
		return fmt.Errorf("encode JSON report: %w", err)
	}
	return nil
}

type envelope struct {
	Schema    string                `json:"$schema"`
	Tool      string                `json:"tool"`
	Version   string                `json:"version"`
	RunID     string                `json:"run_id"`
	Timestamp string                `json:"timestamp"`
	Target    Target                `json:"target"`
	Config    ReportConfig          `json:"config"`
	Results   *screenshot.ResultSet `json:"results"`
	Summary   analyzer.Summary      `json:"summary"`
}

// Generate writes the spectre/v1 envelope.
func (r *EnvelopeReporter) Generate(data Data) error {
	env := envelope{
		Schema:    "spectre/v1",
		Tool:      data.Tool,
		Version:   data.Version,
		RunID:     data.RunID,
		Timestamp: data.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		Target:    data.Target,
		Config:    data.Config,
		Results:   resultsOrEmpty(data.Results),
		Summary:   data.Summary,
	}
	if err := encodeJSON(r.Writer, env); err != nil {
		return fmt.Errorf("encode envelope report: %w", err)
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func resultsOrEmpty(rs *screenshot.ResultSet) *screenshot.ResultSet {
	if rs != nil {
		return rs
	}
	empty, _ := screenshot.NewResultSet(nil)
	return empty
}
