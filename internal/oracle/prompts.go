package oracle

import (
	"encoding/json"
	"fmt"

	"horse.fit/newsdesk/internal/story"
)

const snippetLength = 300

type articleDigest struct {
	Index         int    `json:"index"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	Source        string `json:"source"`
	Snippet       string `json:"snippet"`
	Date          string `json:"date"`
}

func buildProposePrompt(articles []story.Article) (string, error) {
	digests := make([]articleDigest, 0, len(articles))
	for i, article := range articles {
		digests = append(digests, articleDigest{
			Index:         i,
			Title:         article.DisplayTitle(),
			OriginalTitle: article.OriginalTitle,
			Source:        article.SourceName,
			Snippet:       truncateRunes(article.Body, snippetLength),
			Date:          article.DateTime,
		})
	}
	encoded, err := json.MarshalIndent(digests, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode article digests: %w", err)
	}

	return fmt.Sprintf(`You are a news editor. Analyze the following %d news articles and group them by story.
Articles about the SAME event or subject (even from different sources, angles, or with slightly different details) belong in the same cluster.

Articles:
%s

Return a JSON array of clusters. Each cluster must have:
- "cluster_id": unique integer starting from 1
- "merged_headline_en": a compelling English headline that covers the combined story
- "article_indices": array of article index numbers that belong to this cluster
- "story_summary_en": a 1-2 sentence English summary of what this story is about

Every article index should appear in exactly one cluster.
Return ONLY the JSON array, no other text.`, len(digests), encoded), nil
}

func buildJudgePrompt(posts []story.PostSummary, clusters []story.ClusterSummary) (string, error) {
	encodedPosts, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode post summaries: %w", err)
	}
	encodedClusters, err := json.MarshalIndent(clusters, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode cluster summaries: %w", err)
	}

	return fmt.Sprintf(`You are a news editor checking for duplicate coverage.

Here are stories ALREADY PUBLISHED on our site recently:
%s

Here are NEW story clusters we are considering publishing:
%s

For each new cluster, decide whether it is essentially the SAME story as any already-published post.
Only mark it as a duplicate if both cover the SAME specific event or announcement, not just the same broad topic.

Return a JSON array with one object per cluster:
[{"cluster_id": 1, "is_duplicate": true/false, "matching_post_title": "title if duplicate, empty string if not", "matching_post_link": "URL if duplicate, empty string if not"}]

Return ONLY the JSON array.`, encodedPosts, encodedClusters), nil
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
