package llm

type rateCard struct {
	inPer1K  float64
	outPer1K float64
}

// rates is an approximate per-1k-token price table, USD, before any
// hosted markup. Unknown models fall back to the Haiku-class rate, the
// model the RelationshipEvidence agent runs on.
var rates = map[string]rateCard{
	"claude-haiku-4-5":  {inPer1K: 0.001, outPer1K: 0.005},
	"claude-sonnet-4-5": {inPer1K: 0.003, outPer1K: 0.015},
	"claude-opus-4-5":   {inPer1K: 0.015, outPer1K: 0.075},
}

func rateFor(model string) rateCard {
	if r, ok := rates[model]; ok {
		return r
	}
	return rates["claude-haiku-4-5"]
}
