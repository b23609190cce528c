package ai

// Static per-model price table, USD per million tokens. Unrecognized models
// fall back to the default rate so usage logging never fails on a new model.
type modelRate struct {
	inputPerMillion  float64
	outputPerMillion float64
}

var priceTable = map[string]modelRate{
	"gpt-4o":            {inputPerMillion: 2.50, outputPerMillion: 10.00},
	"gpt-4o-mini":       {inputPerMillion: 0.15, outputPerMillion: 0.60},
	"gpt-4.1":           {inputPerMillion: 2.00, outputPerMillion: 8.00},
	"claude-sonnet-4-0": {inputPerMillion: 3.00, outputPerMillion: 15.00},
	"claude-3-5-haiku":  {inputPerMillion: 0.80, outputPerMillion: 4.00},
	"gemini-2.0-flash":  {inputPerMillion: 0.10, outputPerMillion: 0.40},
}

var fallbackRate = modelRate{inputPerMillion: 2.00, outputPerMillion: 8.00}

// EstimateCost prices a call from the static table.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	rate, ok := priceTable[model]
	if !ok {
		rate = fallbackRate
	}

	return float64(inputTokens)/1e6*rate.inputPerMillion +
		float64(outputTokens)/1e6*rate.outputPerMillion
}
