package screenshot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FeatureName identifies a boolean feature reported for a screenshot.
type FeatureName string

const (
	FeatureOldLooking   FeatureName = "old_looking"
	FeatureLoginPage    FeatureName = "login_page"
	FeatureWebapp       FeatureName = "webapp"
	FeatureCustom404    FeatureName = "custom_404"
	FeatureParkedDomain FeatureName = "parked_domain"
)

// Features lists the boolean features in report column order.
var Features = []FeatureName{
	FeatureOldLooking,
	FeatureLoginPage,
	FeatureWebapp,
	FeatureCustom404,
	FeatureParkedDomain,
}

// ImageFile is a discovered screenshot. It is never mutated after discovery.
type ImageFile struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Ext  string `json:"ext"`
}

// Feature is a yes/no detection with a confidence in [0,1].
type Feature struct {
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
}

// Findings is the structured result of a successful analysis.
// Absent fields keep their zero value: not detected, confidence 0, empty list.
type Findings struct {
	OldLooking     Feature  `json:"old_looking"`
	LoginPage      Feature  `json:"login_page"`
	Webapp         Feature  `json:"webapp"`
	Custom404      Feature  `json:"custom_404"`
	ParkedDomain   Feature  `json:"parked_domain"`
	Technologies   []string `json:"technologies"`
	SecurityIssues []string `json:"security_issues"`
}

// Feature returns the named feature, or the zero Feature for unknown names.
func (f Findings) Feature(name FeatureName) Feature {
	switch name {
	case FeatureOldLooking:
		return f.OldLooking
	case FeatureLoginPage:
		return f.LoginPage
	case FeatureWebapp:
		return f.Webapp
	case FeatureCustom404:
		return f.Custom404
	case FeatureParkedDomain:
		return f.ParkedDomain
	default:
		return Feature{}
	}
}

// FailureKind classifies a per-item failure.
type FailureKind string

const (
	FailureIO       FailureKind = "io_error"
	FailureBackend  FailureKind = "backend_error"
	FailureCanceled FailureKind = "canceled"
	FailureInternal FailureKind = "internal"
)

// Usage holds token accounting for one backend call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Outcome is the terminal result of one analysis task: either a success
// carrying findings or a failure carrying a kind and message.
// The zero Outcome is unset.
type Outcome struct {
	findings *Findings
	raw      json.RawMessage
	usage    Usage
	kind     FailureKind
	message  string
}

// Success builds a successful outcome. raw is the backend payload as received
// and is copied.
func Success(f Findings, raw json.RawMessage, usage Usage) Outcome {
	o := Outcome{findings: &f, usage: usage}
	if len(raw) > 0 {
		o.raw = append(json.RawMessage(nil), raw...)
	}
	return o
}

// Failure builds a failed outcome.
func Failure(kind FailureKind, message string) Outcome {
	return Outcome{kind: kind, message: message}
}

// Failuref builds a failed outcome with a formatted message.
func Failuref(kind FailureKind, format string, args ...any) Outcome {
	return Failure(kind, fmt.Sprintf(format, args...))
}

// IsZero reports whether the outcome is unset.
func (o Outcome) IsZero() bool {
	return o.findings == nil && o.kind == ""
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.findings != nil
}

// Findings returns the findings of a successful outcome. Failures return the
// zero Findings and false.
func (o Outcome) Findings() (Findings, bool) {
	if o.findings == nil {
		return Findings{}, false
	}
	return *o.findings, true
}

// Raw returns the backend payload of a successful outcome.
func (o Outcome) Raw() json.RawMessage {
	return o.raw
}

// Usage returns token usage of a successful outcome.
func (o Outcome) Usage() Usage {
	return o.usage
}

// Kind returns the failure kind, or "" for a success.
func (o Outcome) Kind() FailureKind {
	return o.kind
}

// Message returns the failure message, or "" for a success.
func (o Outcome) Message() string {
	return o.message
}

type failureJSON struct {
	Error     string      `json:"error"`
	ErrorKind FailureKind `json:"error_kind"`
}

// MarshalJSON writes successes as the backend payload verbatim and failures
// as an object with only error fields.
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch {
	case o.findings != nil && len(o.raw) > 0:
		return o.raw, nil
	case o.findings != nil:
		return json.Marshal(o.findings)
	case o.kind != "":
		return json.Marshal(failureJSON{Error: o.message, ErrorKind: o.kind})
	default:
		return []byte("null"), nil
	}
}

// Progress reports completion of one task to callers.
type Progress struct {
	Completed int
	Total     int
	File      string
	Outcome   Outcome
}

func (p Progress) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d/%d] %s", p.Completed, p.Total, SingleLine(p.File))
	if p.Outcome.OK() {
		b.WriteString(": ok")
	} else {
		fmt.Fprintf(&b, ": %s: %s", p.Outcome.Kind(), SingleLine(p.Outcome.Message()))
	}
	return b.String()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\t", " ")

// SingleLine replaces line breaks and tabs in s with spaces so that it
// prints as one line.
func SingleLine(s string) string {
	return lineBreaks.Replace(s)
}
