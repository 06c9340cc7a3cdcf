package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/shotspectre/internal/analyzer"
	"github.com/ppiankov/shotspectre/internal/screenshot"
)

const fullRaw = `{"old_looking":{"detected":false,"confidence":0.1},"login_page":{"detected":true,"confidence":0.95},"webapp":{"detected":true,"confidence":0.8},"custom_404":{"detected":false,"confidence":0},"parked_domain":{"detected":false,"confidence":0.02},"technologies":["WordPress","PHP","jQuery","Apache HTTP Server"],"security_issues":["Admin login exposed"]}`

const partialRaw = `{"webapp":{"detected":true,"confidence":0.6}}`

func sampleResults(t *testing.T) *screenshot.ResultSet {
	t.Helper()
	rs, err := screenshot.NewResultSet([]screenshot.ImageFile{
		{Name: "admin.png", Path: "/shots/admin.png"},
		{Name: "app.jpg", Path: "/shots/app.jpg"},
		{Name: "broken.webp", Path: "/shots/broken.webp"},
	})
	if err != nil {
		t.Fatal(err)
	}

	full := screenshot.Findings{
		OldLooking:     screenshot.Feature{Confidence: 0.1},
		LoginPage:      screenshot.Feature{Detected: true, Confidence: 0.95},
		Webapp:         screenshot.Feature{Detected: true, Confidence: 0.8},
		ParkedDomain:   screenshot.Feature{Confidence: 0.02},
		Technologies:   []string{"WordPress", "PHP", "jQuery", "Apache HTTP Server"},
		SecurityIssues: []string{"Admin login exposed"},
	}
	partial := screenshot.Findings{Webapp: screenshot.Feature{Detected: true, Confidence: 0.6}}

	records := []struct {
		name string
		o    screenshot.Outcome
	}{
		{"broken.webp", screenshot.Failure(screenshot.FailureBackend, "malformed response: unexpected end of JSON input")},
		{"admin.png", screenshot.Success(full, json.RawMessage(fullRaw), screenshot.Usage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100})},
		{"app.jpg", screenshot.Success(partial, json.RawMessage(partialRaw), screenshot.Usage{PromptTokens: 900, CompletionTokens: 20, TotalTokens: 920})},
	}
	for _, rec := range records {
		if err := rs.Record(rec.name, rec.o); err != nil {
			t.Fatal(err)
		}
	}
	return rs
}

func sampleData(t *testing.T) Data {
	rs := sampleResults(t)
	return Data{
		Tool:      "shotspectre",
		Version:   "0.1.0",
		RunID:     "6f1c2a7e-3b7d-4f7a-9a51-0c2d9b3e8f10",
		Timestamp: time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
		Target:    Target{Directory: "/shots", DirHash: "sha256:abc123"},
		Config:    ReportConfig{Model: "gpt-4o-mini", Workers: 4},
		Results:   rs,
		Summary:   analyzer.Summarize(rs, "gpt-4o-mini"),
	}
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &JSONReporter{Writer: &buf}

	if err := r.Generate(sampleData(t)); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	var parsed map[string]map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(parsed) != 3 {
		t.Fatalf("entries = %d, want 3", len(parsed))
	}

	if _, ok := parsed["app.jpg"]["login_page"]; ok {
		t.Error("partial payload should be emitted as received, without defaults")
	}
	broken := parsed["broken.webp"]
	if broken["error_kind"] != "backend_error" || !strings.Contains(broken["error"].(string), "malformed") {
		t.Errorf("broken.webp = %v", broken)
	}
	if _, ok := broken["webapp"]; ok {
		t.Error("failed entry should not carry feature fields")
	}
	if tech, _ := parsed["admin.png"]["technologies"].([]any); len(tech) != 4 {
		t.Errorf("admin.png technologies = %v", parsed["admin.png"]["technologies"])
	}

	output := buf.String()
	if !strings.HasPrefix(output, "{\n  \"admin.png\": {") {
		t.Errorf("output should be 2-space indented in discovery order:\n%s", output)
	}
	if strings.Index(output, `"admin.png"`) > strings.Index(output, `"app.jpg"`) ||
		strings.Index(output, `"app.jpg"`) > strings.Index(output, `"broken.webp"`) {
		t.Error("keys should follow discovery order")
	}
}

func TestJSONReporterNoResults(t *testing.T) {
	var buf bytes.Buffer
	r := &JSONReporter{Writer: &buf}

	if err := r.Generate(Data{Tool: "shotspectre"}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "{}" {
		t.Errorf("output = %q, want {}", buf.String())
	}
}

func TestEnvelopeReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &EnvelopeReporter{Writer: &buf}

	if err := r.Generate(sampleData(t)); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		`"$schema": "spectre/v1"`,
		`"tool": "shotspectre"`,
		`"run_id": "6f1c2a7e-3b7d-4f7a-9a51-0c2d9b3e8f10"`,
		`"timestamp": "2026-02-28T12:00:00Z"`,
		`"dir_hash": "sha256:abc123"`,
		`"model": "gpt-4o-mini"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %s", want)
		}
	}

	var parsed struct {
		Results map[string]json.RawMessage `json:"results"`
		Summary analyzer.Summary           `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(parsed.Results) != 3 {
		t.Errorf("results = %d, want 3", len(parsed.Results))
	}
	if parsed.Summary.Succeeded != 2 || parsed.Summary.Failed != 1 {
		t.Errorf("summary = %+v", parsed.Summary)
	}
}

func TestTableReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &TableReporter{Writer: &buf}

	if err := r.Generate(sampleData(t)); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"FILENAME", "OLD LOOKING", "LOGIN PAGE", "WEBAPP", "CUSTOM 404", "PARKED", "TECHNOLOGIES",
		"Summary",
		"Failed:            1",
		"Failures by kind:  backend_error=1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q in output:\n%s", want, output)
		}
	}

	admin := lineFor(output, "admin.png")
	if !strings.Contains(admin, "✓ (0.95)") || !strings.Contains(admin, "✗ (0.10)") {
		t.Errorf("admin.png row = %q", admin)
	}
	if !strings.Contains(admin, "WordPress, PHP, jQuery, Apache...") {
		t.Errorf("admin.png technologies not truncated: %q", admin)
	}

	app := lineFor(output, "app.jpg")
	if strings.Count(app, "✗ (0.00)") != 4 || !strings.Contains(app, "✓ (0.60)") {
		t.Errorf("app.jpg row should default missing features: %q", app)
	}

	broken := lineFor(output, "broken.webp")
	if !strings.Contains(broken, "ERROR: malformed response") {
		t.Errorf("broken.webp row = %q", broken)
	}
	if strings.Contains(broken, "✓") || strings.Contains(broken, "✗") {
		t.Errorf("failed row should leave feature cells blank: %q", broken)
	}
}

func TestTableReporterOneLinePerFile(t *testing.T) {
	rs, err := screenshot.NewResultSet([]screenshot.ImageFile{
		{Name: "a.png", Path: "/shots/a.png"},
		{Name: "b.png", Path: "/shots/b.png"},
	})
	if err != nil {
		t.Fatal(err)
	}
	msg := "field login_page: expected object, got [\n    true,\n    0.9\n  ]"
	if err := rs.Record("a.png", screenshot.Failure(screenshot.FailureBackend, msg)); err != nil {
		t.Fatal(err)
	}
	findings := screenshot.Findings{
		Webapp:       screenshot.Feature{Detected: true, Confidence: 0.9},
		Technologies: []string{"Next.js\tVercel"},
	}
	if err := rs.Record("b.png", screenshot.Success(findings, nil, screenshot.Usage{})); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	data := Data{Results: rs, Summary: analyzer.Summarize(rs, "gpt-4o-mini")}
	if err := (&TableReporter{Writer: &buf}).Generate(data); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	output := buf.String()

	lines := strings.Split(output, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "FILENAME") {
			start = i
			break
		}
	}
	if start < 0 {
		t.Fatalf("no header in output:\n%s", output)
	}
	var rows []string
	for _, line := range lines[start:] {
		if line == "" {
			break
		}
		rows = append(rows, line)
	}
	if len(rows) != 3 {
		t.Fatalf("table has %d lines, want header + 2 files:\n%s", len(rows), output)
	}

	failed := lineFor(output, "a.png")
	if !strings.Contains(failed, "ERROR: field login_page: expected object, got [     true,     0.9   ]") {
		t.Errorf("a.png row = %q", failed)
	}

	ok := lineFor(output, "b.png")
	if strings.Contains(ok, "\t") {
		t.Errorf("b.png row contains a tab: %q", ok)
	}
	header := rows[0]
	techCol := utf8.RuneCountInString(header[:strings.Index(header, "TECHNOLOGIES")])
	idx := strings.Index(ok, "Next.js Vercel")
	if idx < 0 {
		t.Fatalf("b.png row = %q", ok)
	}
	if got := utf8.RuneCountInString(ok[:idx]); got != techCol {
		t.Errorf("technologies start at column %d, header at %d:\n%s", got, techCol, output)
	}
}

func TestTableReporterIdempotent(t *testing.T) {
	data := sampleData(t)
	var first, second bytes.Buffer
	if err := (&TableReporter{Writer: &first}).Generate(data); err != nil {
		t.Fatal(err)
	}
	if err := (&TableReporter{Writer: &second}).Generate(data); err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Error("table output should be identical across runs")
	}

	var j1, j2 bytes.Buffer
	if err := (&JSONReporter{Writer: &j1}).Generate(data); err != nil {
		t.Fatal(err)
	}
	if err := (&JSONReporter{Writer: &j2}).Generate(data); err != nil {
		t.Fatal(err)
	}
	if j1.String() != j2.String() {
		t.Error("JSON output should be identical across runs")
	}
}

func TestTableReporterNoResults(t *testing.T) {
	var buf bytes.Buffer
	rs, _ := screenshot.NewResultSet(nil)
	data := Data{Tool: "shotspectre", Results: rs, Summary: analyzer.Summarize(rs, "gpt-4o-mini")}

	if err := (&TableReporter{Writer: &buf}).Generate(data); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.Contains(buf.String(), "No screenshots analyzed.") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	exact := strings.Repeat("a", 30)
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"nginx", "nginx"},
		{exact, exact},
		{exact + "b", exact + "..."},
		{strings.Repeat("é", 31), strings.Repeat("é", 30) + "..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, techWidth); got != tt.want {
			t.Errorf("truncate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFeatureCell(t *testing.T) {
	tests := []struct {
		f    screenshot.Feature
		want string
	}{
		{screenshot.Feature{Detected: true, Confidence: 0.874}, "✓ (0.87)"},
		{screenshot.Feature{}, "✗ (0.00)"},
		{screenshot.Feature{Detected: false, Confidence: 1}, "✗ (1.00)"},
	}
	for _, tt := range tests {
		if got := featureCell(tt.f); got != tt.want {
			t.Errorf("featureCell(%+v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestSARIFReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &SARIFReporter{Writer: &buf}

	if err := r.Generate(sampleData(t)); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	var parsed sarifReport
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid SARIF JSON: %v", err)
	}
	if parsed.Version != "2.1.0" {
		t.Errorf("version = %q, want 2.1.0", parsed.Version)
	}
	if len(parsed.Runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(parsed.Runs))
	}
	run := parsed.Runs[0]
	if run.Tool.Driver.Name != "shotspectre" {
		t.Errorf("driver name = %q", run.Tool.Driver.Name)
	}

	counts := make(map[string]int)
	for _, res := range run.Results {
		counts[res.RuleID]++
	}
	// admin.png: login page, webapp, one issue; app.jpg: webapp; broken.webp: failure
	want := map[string]int{"LOGIN_PAGE": 1, "WEBAPP": 2, RuleSecurityIssue: 1, RuleAnalysisFailed: 1}
	for id, n := range want {
		if counts[id] != n {
			t.Errorf("results[%s] = %d, want %d", id, counts[id], n)
		}
	}
	if len(run.Results) != 5 {
		t.Errorf("results = %d, want 5", len(run.Results))
	}
	uri := run.Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI
	if uri != "/shots/admin.png" {
		t.Errorf("first result uri = %q", uri)
	}
}

func TestBuildSARIFRules(t *testing.T) {
	rules := buildSARIFRules()
	if len(rules) != 7 {
		t.Fatalf("rules = %d, want 7", len(rules))
	}
	seen := make(map[string]bool)
	for _, r := range rules {
		if seen[r.ID] {
			t.Errorf("duplicate rule %s", r.ID)
		}
		seen[r.ID] = true
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestReportersPropagateWriteErrors(t *testing.T) {
	data := sampleData(t)
	reporters := map[string]Reporter{
		"json":     &JSONReporter{Writer: failWriter{}},
		"envelope": &EnvelopeReporter{Writer: failWriter{}},
		"table":    &TableReporter{Writer: failWriter{}},
		"sarif":    &SARIFReporter{Writer: failWriter{}},
	}
	for name, r := range reporters {
		if err := r.Generate(data); err == nil {
			t.Errorf("%s: expected write error", name)
		}
	}
}

func lineFor(output, name string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, name) {
			return line
		}
	}
	return ""
}
