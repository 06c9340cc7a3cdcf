package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/shotspectre/internal/screenshot"
)

const (
	glyphDetected    = "✓"
	glyphNotDetected = "✗"

	// techWidth is the widest technologies cell before truncation.
	techWidth = 30

	// maxTechSummary caps the technologies listed in the summary block.
	maxTechSummary = 10
)

var featureHeaders = map[screenshot.FeatureName]string{
	screenshot.FeatureOldLooking:   "OLD LOOKING",
	screenshot.FeatureLoginPage:    "LOGIN PAGE",
	screenshot.FeatureWebapp:       "WEBAPP",
	screenshot.FeatureCustom404:    "CUSTOM 404",
	screenshot.FeatureParkedDomain: "PARKED",
}

// Generate writes one row per screenshot followed by a summary block.
func (r *TableReporter) Generate(data Data) error {
	w := &errWriter{w: r.Writer}

	w.println("shotspectre: Screenshot Analysis Report")
	w.println(strings.Repeat("=", 39))
	w.println("")

	rs := resultsOrEmpty(data.Results)
	if rs.Len() == 0 {
		w.println("No screenshots analyzed.")
		w.println("")
		writeTableSummary(w, data)
		return w.err
	}

	tw := tabwriter.NewWriter(r.Writer, 0, 4, 2, ' ', 0)
	tw2 := &errWriter{w: tw}

	headers := []string{"FILENAME"}
	for _, name := range screenshot.Features {
		headers = append(headers, featureHeaders[name])
	}
	headers = append(headers, "TECHNOLOGIES")
	tw2.printf("%s\n", strings.Join(headers, "\t"))

	rs.Each(func(name string, o screenshot.Outcome) {
		tw2.printf("%s\n", strings.Join(tableRow(name, o), "\t"))
	})
	if tw2.err != nil {
		return tw2.err
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	w.println("")
	writeTableSummary(w, data)
	return w.err
}

// tableRow renders the cells for one screenshot. Failures put the message in
// the first feature column and leave the others blank.
func tableRow(name string, o screenshot.Outcome) []string {
	cells := make([]string, 0, len(screenshot.Features)+2)
	cells = append(cells, cellText(name))

	f, ok := o.Findings()
	if !ok {
		msg := o.Message()
		if o.IsZero() {
			msg = "no result"
		}
		cells = append(cells, "ERROR: "+cellText(msg))
		for i := 0; i < len(screenshot.Features); i++ {
			cells = append(cells, "")
		}
		return cells
	}

	for _, feat := range screenshot.Features {
		cells = append(cells, featureCell(f.Feature(feat)))
	}
	return append(cells, truncate(cellText(strings.Join(f.Technologies, ", ")), techWidth))
}

// cellText keeps s inside a single tabwriter cell.
func cellText(s string) string {
	return screenshot.SingleLine(s)
}

func featureCell(f screenshot.Feature) string {
	glyph := glyphNotDetected
	if f.Detected {
		glyph = glyphDetected
	}
	return fmt.Sprintf("%s (%.2f)", glyph, f.Confidence)
}

// truncate shortens s to n characters plus "..." when it is longer than n.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func writeTableSummary(w *errWriter, data Data) {
	s := data.Summary
	w.println("Summary")
	w.println("-------")
	w.printf("Screenshots:       %d\n", s.TotalImages)
	w.printf("Analyzed:          %d\n", s.Succeeded)
	w.printf("Failed:            %d\n", s.Failed)

	if len(s.ByFeature) > 0 {
		parts := make([]string, 0, len(screenshot.Features))
		for _, name := range screenshot.Features {
			parts = append(parts, fmt.Sprintf("%s=%d", name, s.ByFeature[string(name)]))
		}
		w.printf("Detected:          %s\n", strings.Join(parts, ", "))
	}
	if len(s.ByFailureKind) > 0 {
		w.printf("Failures by kind:  %s\n", strings.Join(formatMapSorted(s.ByFailureKind), ", "))
	}
	if len(s.Technologies) > 0 {
		top := s.Technologies
		if len(top) > maxTechSummary {
			top = top[:maxTechSummary]
		}
		parts := make([]string, 0, len(top))
		for _, t := range top {
			parts = append(parts, fmt.Sprintf("%s=%d", t.Name, t.Count))
		}
		w.printf("Technologies:      %s\n", strings.Join(parts, ", "))
	}
	if s.SecurityIssues > 0 {
		w.printf("Security issues:   %d across %d screenshots\n", s.SecurityIssues, s.ImagesWithIssues)
	}
	if s.TotalTokens > 0 {
		w.printf("Tokens used:       %d (prompt %d, completion %d)\n", s.TotalTokens, s.PromptTokens, s.CompletionTokens)
		if s.CostKnown {
			w.printf("Estimated cost:    $%.4f (%s)\n", s.EstimatedCost, s.Model)
		}
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func formatMapSorted(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return parts
}
