package lexical

import (
	"strings"
	"unicode"
)

const (
	minTokenLength = 3

	precisionWeight = 0.6
	recallWeight    = 0.4
)

// Set is a normalized token set.
type Set map[string]struct{}

// Tokens returns the normalized tokens of text in first-occurrence order, without repeats.
// Text is lowercased, characters other than letters, digits and whitespace are removed,
// and tokens shorter than three characters or listed as stop words are dropped.
func Tokens(text string) []string {
	cleaned := strip(text)
	if cleaned == "" {
		return nil
	}

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < minTokenLength {
			continue
		}
		if _, stop := stopWords[field]; stop {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		tokens = append(tokens, field)
	}
	return tokens
}

// Normalize returns the token set of text.
func Normalize(text string) Set {
	tokens := Tokens(text)
	set := make(Set, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// NormalizeAll normalizes a list of phrases joined by spaces, e.g. keywords.
func NormalizeAll(parts []string) Set {
	return Normalize(strings.Join(parts, " "))
}

func (s Set) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Overlap scores how much of cand is covered by ref: 0.6*precision + 0.4*recall,
// where precision is measured against cand and recall against ref.
// Returns 0 when either side is empty.
func Overlap(ref, cand Set) float64 {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}

	matches := 0
	for token := range cand {
		if _, ok := ref[token]; ok {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}

	precision := float64(matches) / float64(len(cand))
	recall := float64(matches) / float64(len(ref))
	return precisionWeight*precision + recallWeight*recall
}

func strip(text string) string {
	lowered := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
