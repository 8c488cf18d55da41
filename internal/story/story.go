package story

import (
	"strings"
	"time"
)

// ContentSeparator joins article bodies inside a cluster's merged content.
const ContentSeparator = "\n\n---\n\n"

// Article is one ingested news item as produced by the upstream scrapers.
type Article struct {
	Title            string   `json:"title"`
	OriginalTitle    string   `json:"original_title,omitempty"`
	Body             string   `json:"main_content_body"`
	SourceName       string   `json:"source_name,omitempty"`
	SourceURL        string   `json:"source_url"`
	OriginalLanguage string   `json:"original_language,omitempty"`
	DateTime         string   `json:"date_time,omitempty"`
	ImageURLs        []string `json:"image_urls,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	ProfileName      string   `json:"profile_name,omitempty"`
}

// DisplayTitle prefers the (translated) title and falls back to the original one.
func (a Article) DisplayTitle() string {
	if title := strings.TrimSpace(a.Title); title != "" {
		return title
	}
	return strings.TrimSpace(a.OriginalTitle)
}

// SourceTitle is the title recorded against a source link.
func (a Article) SourceTitle() string {
	if title := strings.TrimSpace(a.OriginalTitle); title != "" {
		return title
	}
	return strings.TrimSpace(a.Title)
}

// PublishedAt parses DateTime. Nil when missing or unparseable.
func (a Article) PublishedAt() *time.Time {
	return ParseTimestamp(a.DateTime)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func ParseTimestamp(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

type Source struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type DuplicateRef struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Cluster is a story: one or more articles about the same real-world event.
type Cluster struct {
	ID                  int           `json:"cluster_id"`
	Headline            string        `json:"headline"`
	Summary             string        `json:"summary"`
	MergedContent       string        `json:"merged_content"`
	Sources             []Source      `json:"sources"`
	Images              []string      `json:"images"`
	Keywords            []string      `json:"keywords"`
	Date                *time.Time    `json:"date,omitempty"`
	ArticleCount        int           `json:"article_count"`
	ArticleIndices      []int         `json:"article_indices"`
	OriginalLanguage    string        `json:"original_language,omitempty"`
	ProfileName         string        `json:"profile_name,omitempty"`
	StoryType           string        `json:"story_type"`
	StoryTypeConfidence float64       `json:"story_type_confidence"`
	Duplicate           bool          `json:"duplicate"`
	DuplicateOf         *DuplicateRef `json:"duplicate_of,omitempty"`
}

// Clone returns a deep copy so callers can mutate the result freely.
func (c Cluster) Clone() Cluster {
	out := c
	out.Sources = append([]Source(nil), c.Sources...)
	out.Images = append([]string(nil), c.Images...)
	out.Keywords = append([]string(nil), c.Keywords...)
	out.ArticleIndices = append([]int(nil), c.ArticleIndices...)
	if c.Date != nil {
		date := *c.Date
		out.Date = &date
	}
	if c.DuplicateOf != nil {
		ref := *c.DuplicateOf
		out.DuplicateOf = &ref
	}
	return out
}

func CloneAll(clusters []Cluster) []Cluster {
	out := make([]Cluster, len(clusters))
	for i := range clusters {
		out[i] = clusters[i].Clone()
	}
	return out
}

// RecentPost is an already-published item on the publishing site.
type RecentPost struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Date    string `json:"date"`
	Excerpt string `json:"excerpt"`
}
