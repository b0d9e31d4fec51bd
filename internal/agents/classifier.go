package agents

import (
	"strings"

	"agent-trader/internal/types"
)

// Classification of the judge's prose is deliberately a pure function
// over an explicit vocabulary so it can be tested without a provider.
// Rules are ordered; the first token whose keyword appears wins, and
// the fallback is the stage's neutral token.

type rule struct {
	token    string
	keywords []string
}

type vocabulary struct {
	rules    []rule
	fallback string
}

var vocabularies = map[types.AgentType]vocabulary{
	types.AgentSentiment: {
		rules: []rule{
			{token: types.RecBullish, keywords: []string{"positive"}},
			{token: types.RecBearish, keywords: []string{"negative"}},
		},
		fallback: types.RecNeutral,
	},
	types.AgentFundamentals: {
		rules: []rule{
			{token: types.RecBuy, keywords: []string{"buy"}},
			{token: types.RecSell, keywords: []string{"sell"}},
		},
		fallback: types.RecHold,
	},
	types.AgentQuant: {
		rules: []rule{
			{token: types.RecBuy, keywords: []string{"bullish", "uptrend"}},
			{token: types.RecSell, keywords: []string{"bearish", "downtrend"}},
		},
		fallback: types.RecHold,
	},
	// The risk stage's contract is to always approve; the veto keywords
	// are a deliberate widening of that contract, a narrow escape hatch
	// for text that literally names a rejection.
	types.AgentRisk: {
		rules: []rule{
			{token: types.RecHold, keywords: []string{"reject", "do not trade"}},
		},
		fallback: types.RecApproved,
	},
	types.AgentPortfolio: {
		rules: []rule{
			{token: types.RecBuy, keywords: []string{"buy", "purchase"}},
			{token: types.RecSell, keywords: []string{"sell"}},
		},
		fallback: types.RecHold,
	},
}

// Classify maps the judge's free-text response to the stage's
// recommendation token.
func Classify(stage types.AgentType, reasoning string) string {
	vocab, ok := vocabularies[stage]
	if !ok {
		return types.RecHold
	}
	text := strings.ToLower(reasoning)
	for _, r := range vocab.rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.token
			}
		}
	}
	return vocab.fallback
}
