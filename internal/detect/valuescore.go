package detect

import "strings"

// providerIndicators describes one provider's value-based fingerprint
// (spec §4.4.2): explicit-field values score +100, model-name prefixes
// score +50, URL substrings score +30. These are compiled-in, not
// YAML-driven — the spec names openai/anthropic/gemini explicitly as the
// value-based heuristic's scope, distinct from the YAML-declarative
// signature patterns the compiler indexes.
type providerIndicators struct {
	provider          string
	explicitValues    map[string]string // attribute key -> expected value
	modelPrefixes     []string
	urlSubstrings     []string
}

// explicitFields, modelFields, and urlFields are the bounded whitelists of
// attribute keys value-based detection inspects (spec §4.4.1 step 6: "a
// bounded list of explicit-provider indicator fields").
var explicitFields = []string{"gen_ai.system", "llm.vendor", "llm.provider"}
var modelFields = []string{"gen_ai.request.model", "gen_ai.response.model", "llm.model", "model"}
var urlFields = []string{"llm.request.url", "url.full", "http.url"}

var providerIndicatorTable = []providerIndicators{
	{
		provider: "openai",
		explicitValues: map[string]string{
			"gen_ai.system": "openai",
			"llm.vendor":    "openai",
			"llm.provider":  "openai",
		},
		modelPrefixes: []string{"gpt-", "o1-", "o3-", "text-embedding-", "davinci", "curie"},
		urlSubstrings: []string{"api.openai.com"},
	},
	{
		provider: "anthropic",
		explicitValues: map[string]string{
			"gen_ai.system": "anthropic",
			"llm.vendor":    "anthropic",
			"llm.provider":  "anthropic",
		},
		modelPrefixes: []string{"claude-"},
		urlSubstrings: []string{"api.anthropic.com"},
	},
	{
		provider: "gemini",
		explicitValues: map[string]string{
			"gen_ai.system": "gemini",
			"llm.vendor":    "google",
			"llm.provider":  "google",
		},
		modelPrefixes: []string{"gemini-", "models/gemini"},
		urlSubstrings: []string{"generativelanguage.googleapis.com"},
	},
}

// valueBasedScore computes providerIndicators' composite score against the
// given attribute map, per spec §4.4.2.
func valueBasedScore(attrs map[string]any, ind providerIndicators) float64 {
	score := 0.0

	for _, field := range explicitFields {
		expected, wants := ind.explicitValues[field]
		if !wants {
			continue
		}
		if s, ok := attrAsString(attrs, field); ok && strings.EqualFold(s, expected) {
			score += 100
		}
	}

	for _, field := range modelFields {
		s, ok := attrAsString(attrs, field)
		if !ok {
			continue
		}
		for _, prefix := range ind.modelPrefixes {
			if strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix)) {
				score += 50
				break
			}
		}
	}

	for _, field := range urlFields {
		s, ok := attrAsString(attrs, field)
		if !ok {
			continue
		}
		for _, sub := range ind.urlSubstrings {
			if strings.Contains(strings.ToLower(s), strings.ToLower(sub)) {
				score += 30
				break
			}
		}
	}

	return score
}

func attrAsString(attrs map[string]any, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// detectByValue scans every known provider's indicators and returns the
// highest-scoring provider, accepting only if the score reaches the
// explicit-field threshold. Ties prefer the lexicographically smallest
// provider name (spec §4.4.2).
func detectByValue(attrs map[string]any, threshold float64) (provider string, score float64, ok bool) {
	bestProvider := ""
	bestScore := -1.0

	for _, ind := range providerIndicatorTable {
		s := valueBasedScore(attrs, ind)
		if s > bestScore || (s == bestScore && ind.provider < bestProvider) {
			bestScore = s
			bestProvider = ind.provider
		}
	}

	if bestScore >= threshold {
		return bestProvider, bestScore, true
	}
	return "", bestScore, false
}
