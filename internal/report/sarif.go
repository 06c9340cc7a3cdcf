package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/ppiankov/shotspectre/internal/screenshot"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

// Rule IDs beyond the per-feature rules.
const (
	RuleSecurityIssue  = "SECURITY_ISSUE"
	RuleAnalysisFailed = "ANALYSIS_FAILED"
)

// sarifReport is the top-level SARIF v2.1.0 structure.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifDefaultLevel `json:"defaultConfiguration"`
}

type sarifDefaultLevel struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string         `json:"ruleId"`
	Level     string         `json:"level"`
	Message   sarifMessage   `json:"message"`
	Locations []sarifLoc     `json:"locations,omitempty"`
	Props     map[string]any `json:"properties,omitempty"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type featureRule struct {
	id    string
	title string
	level string
}

var featureRules = map[screenshot.FeatureName]featureRule{
	screenshot.FeatureOldLooking:   {"OLD_LOOKING", "Outdated-looking site", "note"},
	screenshot.FeatureLoginPage:    {"LOGIN_PAGE", "Login page", "warning"},
	screenshot.FeatureWebapp:       {"WEBAPP", "Full web application", "note"},
	screenshot.FeatureCustom404:    {"CUSTOM_404", "Custom 404 page", "note"},
	screenshot.FeatureParkedDomain: {"PARKED_DOMAIN", "Parked domain", "note"},
}

// Generate writes SARIF v2.1.0 output with one result per detected feature,
// reported security issue, and failed analysis.
func (r *SARIFReporter) Generate(data Data) error {
	results := make([]sarifResult, 0)

	resultsOrEmpty(data.Results).Each(func(name string, o screenshot.Outcome) {
		loc := []sarifLoc{{
			PhysicalLocation: sarifPhysical{
				ArtifactLocation: sarifArtifact{URI: artifactURI(data.Target.Directory, name)},
			},
		}}

		f, ok := o.Findings()
		if !ok {
			results = append(results, sarifResult{
				RuleID:    RuleAnalysisFailed,
				Level:     "warning",
				Message:   sarifMessage{Text: fmt.Sprintf("Analysis of %s failed: %s", name, o.Message())},
				Locations: loc,
				Props:     map[string]any{"errorKind": string(o.Kind())},
			})
			return
		}

		for _, feat := range screenshot.Features {
			v := f.Feature(feat)
			if !v.Detected {
				continue
			}
			rule := featureRules[feat]
			results = append(results, sarifResult{
				RuleID:    rule.id,
				Level:     rule.level,
				Message:   sarifMessage{Text: fmt.Sprintf("%s detected in %s (confidence %.2f)", rule.title, name, v.Confidence)},
				Locations: loc,
				Props:     map[string]any{"confidence": v.Confidence, "technologies": f.Technologies},
			})
		}
		for _, issue := range f.SecurityIssues {
			results = append(results, sarifResult{
				RuleID:    RuleSecurityIssue,
				Level:     "error",
				Message:   sarifMessage{Text: issue},
				Locations: loc,
			})
		}
	})

	report := sarifReport{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    data.Tool,
						Version: data.Version,
						Rules:   buildSARIFRules(),
					},
				},
				Results: results,
			},
		},
	}

	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode SARIF report: %w", err)
	}
	return nil
}

func artifactURI(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.ToSlash(filepath.Join(dir, name))
}

func buildSARIFRules() []sarifRule {
	rules := make([]sarifRule, 0, len(featureRules)+2)
	for _, feat := range screenshot.Features {
		fr := featureRules[feat]
		rules = append(rules, sarifRule{ID: fr.id, ShortDescription: sarifMessage{Text: fr.title}, DefaultConfig: sarifDefaultLevel{Level: fr.level}})
	}
	return append(rules,
		sarifRule{ID: RuleSecurityIssue, ShortDescription: sarifMessage{Text: "Visible security issue"}, DefaultConfig: sarifDefaultLevel{Level: "error"}},
		sarifRule{ID: RuleAnalysisFailed, ShortDescription: sarifMessage{Text: "Screenshot could not be analyzed"}, DefaultConfig: sarifDefaultLevel{Level: "warning"}},
	)
}
