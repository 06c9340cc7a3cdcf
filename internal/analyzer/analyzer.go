package analyzer

import (
	"sort"
	"strings"

	"github.com/ppiankov/shotspectre/internal/pricing"
	"github.com/ppiankov/shotspectre/internal/screenshot"
)

// Summarize computes aggregate statistics over a completed result set.
// Technologies are counted once per screenshot, case-insensitively, keeping
// the first spelling seen in discovery order.
func Summarize(rs *screenshot.ResultSet, model string) Summary {
	summary := Summary{
		Model:         model,
		TotalImages:   rs.Len(),
		ByFeature:     make(map[string]int, len(screenshot.Features)),
		ByFailureKind: make(map[string]int),
	}
	for _, name := range screenshot.Features {
		summary.ByFeature[string(name)] = 0
	}

	techCounts := make(map[string]int)
	techNames := make(map[string]string)

	rs.Each(func(_ string, o screenshot.Outcome) {
		f, ok := o.Findings()
		if !ok {
			if !o.IsZero() {
				summary.Failed++
				summary.ByFailureKind[string(o.Kind())]++
			}
			return
		}

		summary.Succeeded++
		for _, name := range screenshot.Features {
			if f.Feature(name).Detected {
				summary.ByFeature[string(name)]++
			}
		}

		seen := make(map[string]bool)
		for _, tech := range f.Technologies {
			tech = strings.TrimSpace(tech)
			key := strings.ToLower(tech)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if _, ok := techNames[key]; !ok {
				techNames[key] = tech
			}
			techCounts[key]++
		}

		if len(f.SecurityIssues) > 0 {
			summary.ImagesWithIssues++
			summary.SecurityIssues += len(f.SecurityIssues)
		}

		u := o.Usage()
		summary.PromptTokens += u.PromptTokens
		summary.CompletionTokens += u.CompletionTokens
		summary.TotalTokens += u.TotalTokens
	})

	for key, n := range techCounts {
		summary.Technologies = append(summary.Technologies, TechCount{Name: techNames[key], Count: n})
	}
	sort.Slice(summary.Technologies, func(i, j int) bool {
		a, b := summary.Technologies[i], summary.Technologies[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	summary.EstimatedCost, summary.CostKnown = pricing.ChatCost(model, summary.PromptTokens, summary.CompletionTokens)
	return summary
}
