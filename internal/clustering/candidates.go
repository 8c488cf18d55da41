package clustering

import (
	"strings"
	"time"

	"horse.fit/newsdesk/internal/story"
)

// candidateSet is the outcome of turning oracle proposals into clusters.
type candidateSet struct {
	clusters []story.Cluster
	// dropped holds every index that was out of range or already claimed.
	dropped []int
	// emptyProposals counts proposals left without a valid article.
	emptyProposals int
	// unreferenced holds articles no proposal claimed.
	unreferenced []int
}

// buildCandidates materializes proposals in emission order. Each article lands in
// at most one candidate: the first proposal to reference it claims it.
func buildCandidates(articles []story.Article, proposals []story.Proposal) candidateSet {
	var out candidateSet
	claimed := make([]bool, len(articles))

	for _, proposal := range proposals {
		valid := make([]int, 0, len(proposal.ArticleIndices))
		for _, index := range proposal.ArticleIndices {
			if index < 0 || index >= len(articles) || claimed[index] {
				out.dropped = append(out.dropped, index)
				continue
			}
			claimed[index] = true
			valid = append(valid, index)
		}
		if len(valid) == 0 {
			out.emptyProposals++
			continue
		}
		out.clusters = append(out.clusters, candidateFromArticles(articles, valid, proposal))
	}

	for index, ok := range claimed {
		if !ok {
			out.unreferenced = append(out.unreferenced, index)
		}
	}
	return out
}

func candidateFromArticles(articles []story.Article, indices []int, proposal story.Proposal) story.Cluster {
	members := make([]story.Article, 0, len(indices))
	for _, index := range indices {
		members = append(members, articles[index])
	}
	first := members[0]

	headline := strings.TrimSpace(proposal.Headline)
	if headline == "" {
		headline = first.DisplayTitle()
	}

	sources := make([]story.Source, 0, len(members))
	bodies := make([]string, 0, len(members))
	var images, keywords []string
	var date *time.Time
	for _, member := range members {
		sources = append(sources, story.Source{
			Name:  member.SourceName,
			URL:   member.SourceURL,
			Title: member.SourceTitle(),
		})
		bodies = append(bodies, member.Body)
		images = unionStrings(images, member.ImageURLs)
		keywords = unionStrings(keywords, member.Keywords)

		date = earliest(date, member.PublishedAt())
	}

	return story.Cluster{
		ID:               proposal.ClusterID,
		Headline:         headline,
		Summary:          strings.TrimSpace(proposal.Summary),
		MergedContent:    strings.Join(bodies, story.ContentSeparator),
		Sources:          sources,
		Images:           images,
		Keywords:         keywords,
		ArticleCount:     len(members),
		ArticleIndices:   append([]int(nil), indices...),
		OriginalLanguage: first.OriginalLanguage,
		ProfileName:      first.ProfileName,
		Date:             date,
	}
}
