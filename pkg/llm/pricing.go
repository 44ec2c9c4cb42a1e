package llm

// price computes USD cost from token counts and a per-1K price table, as
// configured per-provider in pkg/config.ProviderConfig.
func price(promptTokens, completionTokens int, promptPricePer1K, completionPricePer1K float64) float64 {
	return float64(promptTokens)/1000*promptPricePer1K + float64(completionTokens)/1000*completionPricePer1K
}
