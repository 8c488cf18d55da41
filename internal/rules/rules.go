package rules

import (
	"context"
	"errors"
	"sort"
	"time"

	"horse.fit/newsdesk/internal/lexical"
)

const (
	// MaxRules caps the persisted list; the oldest rules are evicted first.
	MaxRules = 200
	// MaxRuleTokens caps the tokens derived for a single rule.
	MaxRuleTokens = 8

	minTokenFrequency = 2
)

// ErrUnreadable marks persisted rules that exist but cannot be decoded.
var ErrUnreadable = errors.New("learned rules unreadable")

// LearnedRule records that stories sharing these headline tokens were merged by an editor.
type LearnedRule struct {
	Tokens    []string  `json:"tokens"`
	Headlines []string  `json:"headlines"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists learned rules. Implementations rewrite the whole list on Append.
type Store interface {
	Load(ctx context.Context) ([]LearnedRule, error)
	// Append adds rule, trims the list to MaxRules and returns the resulting count.
	Append(ctx context.Context, rule LearnedRule) (int, error)
}

// Cap keeps the newest MaxRules entries.
func Cap(list []LearnedRule) []LearnedRule {
	if len(list) <= MaxRules {
		return list
	}
	return list[len(list)-MaxRules:]
}

// DeriveTokens picks the headline tokens shared by at least two headlines,
// most frequent first, ties broken by first occurrence, at most MaxRuleTokens.
func DeriveTokens(headlines []string) []string {
	type tokenCount struct {
		token string
		count int
		first int
	}

	counts := make(map[string]*tokenCount)
	order := 0
	for _, headline := range headlines {
		for _, token := range lexical.Tokens(headline) {
			entry, ok := counts[token]
			if !ok {
				entry = &tokenCount{token: token, first: order}
				counts[token] = entry
				order++
			}
			entry.count++
		}
	}

	ranked := make([]*tokenCount, 0, len(counts))
	for _, entry := range counts {
		if entry.count >= minTokenFrequency {
			ranked = append(ranked, entry)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) > MaxRuleTokens {
		ranked = ranked[:MaxRuleTokens]
	}
	tokens := make([]string, 0, len(ranked))
	for _, entry := range ranked {
		tokens = append(tokens, entry.token)
	}
	return tokens
}

// Matches reports whether each headline token set independently holds at least
// half (rounded up) of the rule's tokens. A rule without tokens never matches.
func Matches(rule LearnedRule, a, b lexical.Set) bool {
	if len(rule.Tokens) == 0 {
		return false
	}
	need := (len(rule.Tokens) + 1) / 2
	return countPresent(rule.Tokens, a) >= need && countPresent(rule.Tokens, b) >= need
}

// MatchesAny reports whether any rule links the two headline token sets.
func MatchesAny(list []LearnedRule, a, b lexical.Set) bool {
	for _, rule := range list {
		if Matches(rule, a, b) {
			return true
		}
	}
	return false
}

func countPresent(tokens []string, set lexical.Set) int {
	n := 0
	for _, token := range tokens {
		if set.Contains(token) {
			n++
		}
	}
	return n
}
