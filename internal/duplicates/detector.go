package duplicates

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/metrics"
	"horse.fit/newsdesk/internal/story"
)

const (
	DefaultWindow       = 24 * time.Hour
	DefaultExcerptLimit = 150
)

// RecentPostLister reads posts already published (or drafted) on the site.
type RecentPostLister interface {
	ListRecent(ctx context.Context, since time.Time) ([]story.RecentPost, error)
}

// Judge decides which clusters repeat an already-published post.
type Judge interface {
	Judge(ctx context.Context, posts []story.PostSummary, clusters []story.ClusterSummary) ([]story.DuplicateVerdict, error)
}

// Detector flags clusters that cover a story the site published recently.
// It fails open: any collaborator failure leaves the clusters as they were.
type Detector struct {
	lister       RecentPostLister
	judge        Judge
	window       time.Duration
	excerptLimit int
	logger       zerolog.Logger
	now          func() time.Time
}

func NewDetector(lister RecentPostLister, judge Judge, window time.Duration, logger zerolog.Logger) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Detector{
		lister:       lister,
		judge:        judge,
		window:       window,
		excerptLimit: DefaultExcerptLimit,
		logger:       logger,
		now:          globaltime.UTC,
	}
}

type CheckResult struct {
	Clusters    []story.Cluster `json:"clusters"`
	RecentPosts int             `json:"recent_posts"`
	Flagged     int             `json:"flagged"`
	// Err is the collaborator failure that made the check fail open, if any.
	Err error `json:"-"`
}

// Check returns a copy of clusters with duplicate flags applied. The input is never modified.
func (d *Detector) Check(ctx context.Context, clusters []story.Cluster) CheckResult {
	result := CheckResult{Clusters: story.CloneAll(clusters)}
	if len(clusters) == 0 {
		return result
	}
	if d.lister == nil || d.judge == nil {
		result.Err = fmt.Errorf("duplicate detection is not configured")
		d.logger.Warn().Err(result.Err).Msg("skipping duplicate check")
		metrics.RecordBatch("check_duplicates", "skipped")
		return result
	}

	since := d.now().Add(-d.window)
	posts, err := d.lister.ListRecent(ctx, since)
	if err != nil {
		result.Err = fmt.Errorf("list recent posts since %s: %w", since.Format(time.RFC3339), err)
		d.logger.Warn().Err(err).Msg("could not list recent posts, leaving clusters unflagged")
		metrics.RecordBatch("check_duplicates", "error")
		return result
	}
	result.RecentPosts = len(posts)
	if len(posts) == 0 {
		d.logger.Info().Dur("window", d.window).Msg("no recent posts found, nothing to compare against")
		metrics.RecordBatch("check_duplicates", "empty")
		return result
	}

	verdicts, err := d.judge.Judge(ctx, d.postSummaries(posts), clusterSummaries(result.Clusters))
	if err != nil {
		result.Err = fmt.Errorf("judge %d clusters: %w", len(clusters), err)
		d.logger.Warn().Err(err).Int("clusters", len(clusters)).Msg("duplicate judgment failed, leaving clusters unflagged")
		metrics.RecordBatch("check_duplicates", "error")
		return result
	}

	result.Flagged = applyVerdicts(result.Clusters, verdicts)
	metrics.RecordDuplicates(result.Flagged)
	metrics.RecordBatch("check_duplicates", "ok")
	d.logger.Info().
		Int("clusters", len(clusters)).
		Int("recent_posts", len(posts)).
		Int("flagged", result.Flagged).
		Msg("duplicate check complete")
	return result
}

func (d *Detector) postSummaries(posts []story.RecentPost) []story.PostSummary {
	out := make([]story.PostSummary, 0, len(posts))
	for _, post := range posts {
		out = append(out, story.PostSummary{
			Title:   post.Title,
			Excerpt: truncateRunes(post.Excerpt, d.excerptLimit),
			Link:    post.Link,
		})
	}
	return out
}

func clusterSummaries(clusters []story.Cluster) []story.ClusterSummary {
	out := make([]story.ClusterSummary, 0, len(clusters))
	for _, cluster := range clusters {
		out = append(out, story.ClusterSummary{
			ClusterID: cluster.ID,
			Headline:  cluster.Headline,
			Summary:   cluster.Summary,
		})
	}
	return out
}

// applyVerdicts flags clusters named by positive verdicts and returns how many
// clusters were flagged in this pass. The first positive verdict for a cluster wins.
func applyVerdicts(clusters []story.Cluster, verdicts []story.DuplicateVerdict) int {
	byID := make(map[int]int, len(clusters))
	for i, cluster := range clusters {
		if _, exists := byID[cluster.ID]; !exists {
			byID[cluster.ID] = i
		}
	}

	flagged := 0
	seen := make(map[int]struct{}, len(verdicts))
	for _, verdict := range verdicts {
		if !verdict.IsDuplicate {
			continue
		}
		i, ok := byID[verdict.ClusterID]
		if !ok {
			continue
		}
		if _, done := seen[verdict.ClusterID]; done {
			continue
		}
		seen[verdict.ClusterID] = struct{}{}

		clusters[i].Duplicate = true
		clusters[i].DuplicateOf = &story.DuplicateRef{
			Title: verdict.MatchingPostTitle,
			Link:  verdict.MatchingPostLink,
		}
		flagged++
	}
	return flagged
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
