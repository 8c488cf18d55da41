package story

// Proposal is one group suggested by the clustering oracle. Indices point into
// the article batch and are not trusted: they may be out of range or repeated.
type Proposal struct {
	ClusterID      int    `json:"cluster_id"`
	Headline       string `json:"merged_headline_en"`
	Summary        string `json:"story_summary_en"`
	ArticleIndices []int  `json:"article_indices"`
}

// PostSummary is the compact view of a published post sent for duplicate judgment.
type PostSummary struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Link    string `json:"link"`
}

// ClusterSummary is the compact view of a cluster sent for duplicate judgment.
type ClusterSummary struct {
	ClusterID int    `json:"cluster_id"`
	Headline  string `json:"headline"`
	Summary   string `json:"summary"`
}

// DuplicateVerdict is the judge's answer for one cluster.
type DuplicateVerdict struct {
	ClusterID         int    `json:"cluster_id"`
	IsDuplicate       bool   `json:"is_duplicate"`
	MatchingPostTitle string `json:"matching_post_title"`
	MatchingPostLink  string `json:"matching_post_link"`
}
