package pricing

import "strings"

// Rates are USD prices per one million tokens.
type Rates struct {
	Input  float64
	Output float64
}

// ChatCost estimates the USD cost of a chat completion. The second result is
// false when the model has no known rates, in which case the cost is 0.
func ChatCost(model string, promptTokens, completionTokens int) (float64, bool) {
	rates, ok := Lookup(model)
	if !ok {
		return 0, false
	}
	cost := float64(promptTokens)*rates.Input/1e6 + float64(completionTokens)*rates.Output/1e6
	return cost, true
}

// Lookup returns the rates for model, matching the exact name first and then
// the longest known family prefix.
func Lookup(model string) (Rates, bool) {
	if r, ok := ChatRates[model]; ok {
		return r, true
	}

	best := ""
	for family := range ChatRates {
		if strings.HasPrefix(model, family+"-") && len(family) > len(best) {
			best = family
		}
	}
	if best == "" {
		return Rates{}, false
	}
	return ChatRates[best], true
}
