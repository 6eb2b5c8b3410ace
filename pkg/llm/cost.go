package llm

import "strings"

// EstimateOpenAICostCents estimates the cost of a chat call in cents from the
// total token count. Rates are rough per-1K-token estimates per model family.
func EstimateOpenAICostCents(totalTokens int, model string) int {
	m := strings.ToLower(model)

	var ratePer1K float64
	switch {
	case strings.Contains(m, "gpt-4o-mini"):
		ratePer1K = 0.015
	case strings.Contains(m, "gpt-4o"):
		ratePer1K = 0.25
	case strings.Contains(m, "gpt-4"):
		ratePer1K = 3.0
	case strings.Contains(m, "gpt-3.5"):
		ratePer1K = 0.1
	default:
		ratePer1K = 0.01
	}

	return int(float64(totalTokens) / 1000.0 * ratePer1K * 100)
}
