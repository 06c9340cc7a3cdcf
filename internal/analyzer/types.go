package analyzer

// TechCount is how many screenshots mention a technology.
type TechCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary holds aggregated statistics about a batch run.
type Summary struct {
	Model            string         `json:"model"`
	TotalImages      int            `json:"total_images"`
	Succeeded        int            `json:"succeeded"`
	Failed           int            `json:"failed"`
	ByFeature        map[string]int `json:"by_feature"`
	ByFailureKind    map[string]int `json:"by_failure_kind,omitempty"`
	Technologies     []TechCount    `json:"technologies,omitempty"`
	SecurityIssues   int            `json:"security_issues"`
	ImagesWithIssues int            `json:"images_with_issues"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	EstimatedCost    float64        `json:"estimated_cost_usd"`
	CostKnown        bool           `json:"cost_known"`
}
