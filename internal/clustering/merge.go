package clustering

import (
	"time"
	"unicode/utf8"

	"horse.fit/newsdesk/internal/lexical"
	"horse.fit/newsdesk/internal/rules"
	"horse.fit/newsdesk/internal/story"
	"horse.fit/newsdesk/internal/storytype"
)

const (
	headlineWeight = 0.65
	keywordWeight  = 0.35
	mergeThreshold = 0.42
	mergeWindow    = 7 * 24 * time.Hour

	ReasonLexical     = "lexical"
	ReasonLearnedRule = "learned_rule"
)

// MergeScore explains a merge decision between a reference cluster and a candidate.
type MergeScore struct {
	Headline     float64 `json:"headline"`
	Keywords     float64 `json:"keywords"`
	Combined     float64 `json:"combined"`
	WithinWeek   bool    `json:"within_week"`
	LearnedMatch bool    `json:"learned_match"`
}

// Merge reports whether the score qualifies for a merge.
func (s MergeScore) Merge() bool {
	return (s.Combined >= mergeThreshold && s.WithinWeek) || s.LearnedMatch
}

// Reason names the signal behind a qualifying score. Lexical wins when both fire.
func (s MergeScore) Reason() string {
	if s.Combined >= mergeThreshold && s.WithinWeek {
		return ReasonLexical
	}
	if s.LearnedMatch {
		return ReasonLearnedRule
	}
	return ""
}

// Score compares candidate b against reference a.
func Score(a, b story.Cluster, learned []rules.LearnedRule) MergeScore {
	headA := lexical.Normalize(a.Headline)
	headB := lexical.Normalize(b.Headline)

	head := lexical.Overlap(headA, headB)
	kw := lexical.Overlap(lexical.NormalizeAll(a.Keywords), lexical.NormalizeAll(b.Keywords))

	return MergeScore{
		Headline:     head,
		Keywords:     kw,
		Combined:     headlineWeight*head + keywordWeight*kw,
		WithinWeek:   withinWeek(a.Date, b.Date),
		LearnedMatch: rules.MatchesAny(learned, headA, headB),
	}
}

// ShouldMerge reports whether candidate b belongs to reference cluster a.
func ShouldMerge(a, b story.Cluster, learned []rules.LearnedRule) bool {
	return Score(a, b, learned).Merge()
}

// A missing date on either side never blocks a merge.
func withinWeek(a, b *time.Time) bool {
	if a == nil || b == nil {
		return true
	}
	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= mergeWindow
}

// MergeTwo folds b into a. The result keeps a's id; story type is left for the caller.
func MergeTwo(a, b story.Cluster) story.Cluster {
	merged := a.Clone()

	merged.Headline = longer(a.Headline, b.Headline)
	merged.Summary = longer(a.Summary, b.Summary)
	merged.MergedContent = joinContent(a.MergedContent, b.MergedContent)
	merged.Sources = unionSources(a.Sources, b.Sources)
	merged.Images = unionStrings(a.Images, b.Images)
	merged.Keywords = unionStrings(a.Keywords, b.Keywords)
	merged.Date = earliest(a.Date, b.Date)
	merged.ArticleCount = a.ArticleCount + b.ArticleCount
	merged.ArticleIndices = append(append([]int(nil), a.ArticleIndices...), b.ArticleIndices...)
	merged.Duplicate = a.Duplicate || b.Duplicate
	if merged.DuplicateOf == nil && b.DuplicateOf != nil {
		ref := *b.DuplicateOf
		merged.DuplicateOf = &ref
	}
	if merged.OriginalLanguage == "" {
		merged.OriginalLanguage = b.OriginalLanguage
	}
	if merged.ProfileName == "" {
		merged.ProfileName = b.ProfileName
	}
	return merged
}

// MergeStats counts merges by reason during one pass.
type MergeStats struct {
	Lexical     int
	LearnedRule int
}

// MergeCandidates runs one greedy pass in input order: each candidate joins the
// first accumulated cluster it qualifies for, otherwise it starts a new one.
// Ids are reassigned 1..N and every cluster is classified.
func MergeCandidates(candidates []story.Cluster, learned []rules.LearnedRule) ([]story.Cluster, MergeStats) {
	var stats MergeStats
	accumulated := make([]story.Cluster, 0, len(candidates))

	for _, candidate := range candidates {
		placed := false
		for i := range accumulated {
			score := Score(accumulated[i], candidate, learned)
			if !score.Merge() {
				continue
			}
			accumulated[i] = MergeTwo(accumulated[i], candidate)
			switch score.Reason() {
			case ReasonLexical:
				stats.Lexical++
			case ReasonLearnedRule:
				stats.LearnedRule++
			}
			placed = true
			break
		}
		if !placed {
			accumulated = append(accumulated, candidate.Clone())
		}
	}

	for i := range accumulated {
		accumulated[i].ID = i + 1
		storytype.Apply(&accumulated[i])
	}
	return accumulated, stats
}

func longer(a, b string) string {
	if utf8.RuneCountInString(b) > utf8.RuneCountInString(a) {
		return b
	}
	return a
}

func joinContent(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + story.ContentSeparator + b
	}
}

func earliest(a, b *time.Time) *time.Time {
	var pick *time.Time
	switch {
	case a == nil:
		pick = b
	case b == nil:
		pick = a
	case b.Before(*a):
		pick = b
	default:
		pick = a
	}
	if pick == nil {
		return nil
	}
	out := *pick
	return &out
}

func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, value := range list {
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			out = append(out, value)
		}
	}
	return out
}

func unionSources(a, b []story.Source) []story.Source {
	type key struct{ url, title string }
	out := make([]story.Source, 0, len(a)+len(b))
	seen := make(map[key]struct{}, len(a)+len(b))
	for _, list := range [][]story.Source{a, b} {
		for _, source := range list {
			k := key{url: source.URL, title: source.Title}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, source)
		}
	}
	return out
}
