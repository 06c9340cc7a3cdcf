package vision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/shotspectre/internal/screenshot"
)

// errNotObject is returned when the payload is not a JSON object.
var errNotObject = errors.New("response is not a JSON object")

type featureJSON struct {
	Detected   *bool    `json:"detected"`
	Confidence *float64 `json:"confidence"`
}

// decodeFindings parses a backend payload into Findings. Absent or null
// fields take their defaults; present fields must have the expected type.
// The trimmed payload is returned for verbatim rendering.
func decodeFindings(content string) (screenshot.Findings, json.RawMessage, error) {
	var f screenshot.Findings

	raw := bytes.TrimSpace([]byte(content))
	if len(raw) == 0 || raw[0] != '{' {
		return f, nil, errNotObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return f, nil, fmt.Errorf("decode response: %w", err)
	}

	for _, name := range screenshot.Features {
		feat, err := decodeFeature(fields[string(name)])
		if err != nil {
			return f, nil, fmt.Errorf("field %s: %w", name, err)
		}
		setFeature(&f, name, feat)
	}

	var err error
	if f.Technologies, err = decodeStringList(fields["technologies"]); err != nil {
		return f, nil, fmt.Errorf("field technologies: %w", err)
	}
	if f.SecurityIssues, err = decodeStringList(fields["security_issues"]); err != nil {
		return f, nil, fmt.Errorf("field security_issues: %w", err)
	}

	return f, raw, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// maxEcho caps how much of an unexpected value is quoted in an error.
const maxEcho = 64

// echoRaw renders raw as compact single-line JSON for error messages.
func echoRaw(raw json.RawMessage) string {
	var buf bytes.Buffer
	s := string(raw)
	if err := json.Compact(&buf, raw); err == nil {
		s = buf.String()
	}
	if r := []rune(s); len(r) > maxEcho {
		s = string(r[:maxEcho]) + "..."
	}
	return s
}

func decodeFeature(raw json.RawMessage) (screenshot.Feature, error) {
	if isNull(raw) {
		return screenshot.Feature{}, nil
	}
	if raw[0] != '{' {
		return screenshot.Feature{}, fmt.Errorf("expected object, got %s", echoRaw(raw))
	}

	var fj featureJSON
	if err := json.Unmarshal(raw, &fj); err != nil {
		return screenshot.Feature{}, err
	}

	var feat screenshot.Feature
	if fj.Detected != nil {
		feat.Detected = *fj.Detected
	}
	if fj.Confidence != nil {
		c := *fj.Confidence
		if c < 0 || c > 1 {
			return screenshot.Feature{}, fmt.Errorf("confidence %v outside [0,1]", c)
		}
		feat.Confidence = c
	}
	return feat, nil
}

// decodeStringList accepts a list of strings, a bare string, or null.
// Non-string list elements are kept as compact JSON text.
func decodeStringList(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, err
		}
		out := make([]string, 0, len(elems))
		for _, e := range elems {
			var s string
			if err := json.Unmarshal(e, &s); err == nil {
				out = append(out, s)
				continue
			}
			var buf bytes.Buffer
			if err := json.Compact(&buf, e); err != nil {
				return nil, err
			}
			out = append(out, buf.String())
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %s", echoRaw(raw))
	}
}

func setFeature(f *screenshot.Findings, name screenshot.FeatureName, feat screenshot.Feature) {
	switch name {
	case screenshot.FeatureOldLooking:
		f.OldLooking = feat
	case screenshot.FeatureLoginPage:
		f.LoginPage = feat
	case screenshot.FeatureWebapp:
		f.Webapp = feat
	case screenshot.FeatureCustom404:
		f.Custom404 = feat
	case screenshot.FeatureParkedDomain:
		f.ParkedDomain = feat
	}
}
