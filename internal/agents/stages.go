package agents

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"agent-trader/internal/ta"
	"agent-trader/internal/types"
)

// Stage is one node of the orchestration graph.
type Stage struct {
	Type      types.AgentType
	DependsOn []types.AgentType
}

// pipeline is the full dependency graph: three independent analysts,
// then risk over their tokens, then the final portfolio decision.
var pipeline = []Stage{
	{Type: types.AgentSentiment},
	{Type: types.AgentFundamentals},
	{Type: types.AgentQuant},
	{Type: types.AgentRisk, DependsOn: []types.AgentType{types.AgentSentiment, types.AgentFundamentals, types.AgentQuant}},
	{Type: types.AgentPortfolio, DependsOn: []types.AgentType{types.AgentSentiment, types.AgentFundamentals, types.AgentQuant, types.AgentRisk}},
}

// tiers levels the graph: every stage lands one tier after its deepest
// dependency, so a tier may start only when all earlier tiers settled.
func tiers(stages []Stage) [][]Stage {
	level := map[types.AgentType]int{}
	remaining := append([]Stage(nil), stages...)
	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0]
		for _, st := range remaining {
			depth, ready := 0, true
			for _, dep := range st.DependsOn {
				l, ok := level[dep]
				if !ok {
					ready = false
					break
				}
				if l+1 > depth {
					depth = l + 1
				}
			}
			if ready {
				level[st.Type] = depth
				progressed = true
			} else {
				next = append(next, st)
			}
		}
		if !progressed {
			// Cyclic or dangling dependency; the static pipeline above
			// never hits this, but fail loudly if it is ever edited to.
			panic("agents: dependency graph has a cycle")
		}
		remaining = next
	}

	maxLevel := 0
	for _, l := range level {
		if l > maxLevel {
			maxLevel = l
		}
	}
	out := make([][]Stage, maxLevel+1)
	for _, st := range stages {
		l := level[st.Type]
		out[l] = append(out[l], st)
	}
	return out
}

// pipelineState carries everything stage prompt builders may consume.
type pipelineState struct {
	ticker    string
	bars      []types.PriceBar
	closes    []float64
	headlines []string
	done      map[types.AgentType]types.AgentAnalysis
}

func (s *pipelineState) token(t types.AgentType) string {
	return s.done[t].Recommendation
}

func stagePrompts(stage types.AgentType, s *pipelineState) (system, user string) {
	switch stage {
	case types.AgentSentiment:
		return sentimentPrompts(s)
	case types.AgentFundamentals:
		return fundamentalsPrompts(s)
	case types.AgentQuant:
		return quantPrompts(s)
	case types.AgentRisk:
		return riskPrompts(s)
	case types.AgentPortfolio:
		return portfolioPrompts(s)
	default:
		return "", ""
	}
}

func sentimentPrompts(s *pipelineState) (string, string) {
	system := fmt.Sprintf("You are a sentiment analysis expert for financial markets. Analyze market sentiment for %s and provide: 1) Overall sentiment (POSITIVE/NEGATIVE/NEUTRAL), 2) Confidence score (0-1), 3) Key sentiment drivers", s.ticker)
	user := fmt.Sprintf("Analyze current market sentiment for %s. Consider recent news, social media trends, and general market mood.", s.ticker)
	if len(s.headlines) > 0 {
		user += "\nRecent headlines:\n- " + strings.Join(s.headlines, "\n- ")
	}
	return system, user
}

func fundamentalsPrompts(s *pipelineState) (string, string) {
	system := fmt.Sprintf("You are a fundamental analysis expert. Analyze %s fundamentals and provide: 1) Valuation assessment, 2) Growth prospects, 3) Financial health, 4) Recommendation (BUY/SELL/HOLD)", s.ticker)
	recent := s.bars
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	barsJSON, _ := json.Marshal(recent)
	user := fmt.Sprintf("Analyze fundamentals for %s. Recent price data: %s", s.ticker, string(barsJSON))
	return system, user
}

func quantPrompts(s *pipelineState) (string, string) {
	system := fmt.Sprintf("You are a quantitative analyst. Analyze %s technical patterns and provide: 1) Trend direction, 2) Momentum indicators, 3) Key levels, 4) Recommendation", s.ticker)

	parts := make([]string, len(s.closes))
	for i, c := range s.closes {
		parts[i] = fmt.Sprintf("%.2f", c)
	}
	user := fmt.Sprintf("Analyze technical patterns for %s. Recent closing prices: %s", s.ticker, strings.Join(parts, ", "))
	if rsi := ta.RSI(s.closes, 14); !math.IsNaN(rsi) {
		user += fmt.Sprintf("\nRSI(14)=%.1f", rsi)
	}
	if sma := ta.SMA(s.closes, 20); !math.IsNaN(sma) {
		user += fmt.Sprintf(" SMA(20)=%.2f", sma)
	}
	if mid, up, low := ta.Bollinger(s.closes, 20, 2); !math.IsNaN(mid) {
		user += fmt.Sprintf(" BB=[%.2f %.2f %.2f]", low, mid, up)
	}
	return system, user
}

func riskPrompts(s *pipelineState) (string, string) {
	system := fmt.Sprintf("You are a risk management expert. Assess risk for %s and provide: 1) Risk level (LOW/MEDIUM/HIGH), 2) Position sizing recommendation, 3) Stop loss levels", s.ticker)
	user := fmt.Sprintf("Assess risk for %s. Sentiment: %s, Fundamentals: %s, Quant: %s",
		s.ticker,
		s.token(types.AgentSentiment),
		s.token(types.AgentFundamentals),
		s.token(types.AgentQuant),
	)
	if len(s.bars) > 0 {
		last := s.bars[len(s.bars)-1]
		user += fmt.Sprintf(". Latest bar: date=%s close=%.2f volume=%.0f", last.Date, last.Close, last.Volume)
	}
	return system, user
}

func portfolioPrompts(s *pipelineState) (string, string) {
	system := fmt.Sprintf("You are a portfolio manager making final trading decisions. Based on all agent recommendations, decide: BUY, SELL, or HOLD for %s. Provide clear reasoning.", s.ticker)
	user := fmt.Sprintf("Make trading decision for %s:\nSentiment: %s (%.2f)\nFundamentals: %s (%.2f)\nQuant: %s (%.2f)\nRisk: %s (%.2f)",
		s.ticker,
		s.token(types.AgentSentiment), s.done[types.AgentSentiment].Confidence,
		s.token(types.AgentFundamentals), s.done[types.AgentFundamentals].Confidence,
		s.token(types.AgentQuant), s.done[types.AgentQuant].Confidence,
		s.token(types.AgentRisk), s.done[types.AgentRisk].Confidence,
	)
	return system, user
}
