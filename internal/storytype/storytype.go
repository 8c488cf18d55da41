package storytype

import (
	"math"
	"strings"

	"horse.fit/newsdesk/internal/story"
)

const (
	News           = "news"
	Feature        = "feature"
	Interview      = "interview"
	Opinion        = "opinion"
	Review         = "review"
	Recommendation = "recommendation"
	WhatsOn        = "whats_on"
	History        = "history"
	Other          = "other"

	fallbackConfidence = 0.35
	baseConfidence     = 0.5
	confidencePerHit   = 0.1
	maxConfidence      = 0.95
)

type rule struct {
	category string
	keywords []string
}

// Order matters: on equal hit counts the earlier rule wins.
var rules = []rule{
	{News, []string{"announce", "approve", "council", "government", "police", "court", "official", "report", "minister", "mayor", "vote", "law", "arrest"}},
	{Feature, []string{"behind the scenes", "inside", "story of", "portrait", "profile", "explore", "discover", "journey", "life of"}},
	{Interview, []string{"interview", "speaks", "talks to", "in conversation", "q&a", "we asked", "tells us"}},
	{Opinion, []string{"opinion", "column", "editorial", "why we", "should", "we need", "viewpoint", "comment"}},
	{Review, []string{"review", "rated", "verdict", "stars", "tried", "tested"}},
	{Recommendation, []string{"best", "top ", "guide", "where to", "must-see", "must see", "things to do", "recommend", "favourite", "favorite"}},
	{WhatsOn, []string{"festival", "concert", "exhibition", "lineup", "line-up", "gig", "tickets", "performance", "theatre", "theater", "museum", "event", "weekend", "show"}},
	{History, []string{"history", "historic", "century", "anniversary", "years ago", "heritage", "memory", "archive"}},
}

// Result is a story-type classification.
type Result struct {
	Type       string  `json:"story_type"`
	Confidence float64 `json:"confidence"`
}

// Classify labels a story from its headline, summary and keywords by counting
// keyword substring hits per category.
func Classify(headline, summary string, keywords []string) Result {
	corpus := strings.ToLower(strings.Join([]string{headline, summary, strings.Join(keywords, " ")}, " "))

	best := ""
	bestHits := 0
	for _, r := range rules {
		hits := 0
		for _, keyword := range r.keywords {
			if strings.Contains(corpus, keyword) {
				hits++
			}
		}
		if hits > bestHits {
			best = r.category
			bestHits = hits
		}
	}

	if bestHits == 0 {
		return Result{Type: Other, Confidence: fallbackConfidence}
	}
	return Result{
		Type:       best,
		Confidence: math.Min(maxConfidence, baseConfidence+confidencePerHit*float64(bestHits)),
	}
}

// Apply classifies c in place.
func Apply(c *story.Cluster) {
	if c == nil {
		return
	}
	result := Classify(c.Headline, c.Summary, c.Keywords)
	c.StoryType = result.Type
	c.StoryTypeConfidence = result.Confidence
}

// Categories lists every label Classify can return.
func Categories() []string {
	out := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.category)
	}
	return append(out, Other)
}
