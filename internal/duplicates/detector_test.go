package duplicates

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/story"
)

type stubLister struct {
	posts []story.RecentPost
	err   error
	since time.Time
	calls int
}

func (s *stubLister) ListRecent(_ context.Context, since time.Time) ([]story.RecentPost, error) {
	s.calls++
	s.since = since
	return s.posts, s.err
}

type stubJudge struct {
	verdicts []story.DuplicateVerdict
	err      error
	posts    []story.PostSummary
	clusters []story.ClusterSummary
	calls    int
}

func (s *stubJudge) Judge(_ context.Context, posts []story.PostSummary, clusters []story.ClusterSummary) ([]story.DuplicateVerdict, error) {
	s.calls++
	s.posts = posts
	s.clusters = clusters
	return s.verdicts, s.err
}

var fixedNow = time.Date(2026, 8, 16, 12, 0, 0, 0, time.UTC)

func newTestDetector(lister RecentPostLister, judge Judge) *Detector {
	detector := NewDetector(lister, judge, 0, zerolog.Nop())
	detector.now = func() time.Time { return fixedNow }
	return detector
}

func sampleClusters() []story.Cluster {
	return []story.Cluster{
		{ID: 1, Headline: "Gràcia festival opens", Summary: "Streets decorated"},
		{ID: 2, Headline: "Metro strike on Monday", Summary: "L1 and L3 affected"},
		{ID: 3, Headline: "New bike lanes", Summary: "Eixample expansion"},
	}
}

func TestCheckFlagsPositiveVerdictsOnly(t *testing.T) {
	t.Parallel()

	lister := &stubLister{posts: []story.RecentPost{
		{ID: 9, Title: "Metro workers strike", Link: "https://barna.news/strike", Excerpt: strings.Repeat("é", 200)},
	}}
	judge := &stubJudge{verdicts: []story.DuplicateVerdict{
		{ClusterID: 1, IsDuplicate: false},
		{ClusterID: 2, IsDuplicate: true, MatchingPostTitle: "Metro workers strike", MatchingPostLink: "https://barna.news/strike"},
		{ClusterID: 2, IsDuplicate: true, MatchingPostTitle: "Other", MatchingPostLink: "https://barna.news/other"},
		{ClusterID: 77, IsDuplicate: true},
	}}
	input := sampleClusters()

	result := newTestDetector(lister, judge).Check(context.Background(), input)
	if result.Err != nil {
		t.Fatalf("unexpected error %v", result.Err)
	}
	if result.Flagged != 1 || result.RecentPosts != 1 {
		t.Fatalf("expected 1 flagged of 1 post, got %+v", result)
	}

	flagged := result.Clusters[1]
	if !flagged.Duplicate || !reflect.DeepEqual(flagged.DuplicateOf, &story.DuplicateRef{Title: "Metro workers strike", Link: "https://barna.news/strike"}) {
		t.Fatalf("expected cluster 2 flagged with first match, got %+v", flagged)
	}
	for _, i := range []int{0, 2} {
		if result.Clusters[i].Duplicate || result.Clusters[i].DuplicateOf != nil {
			t.Fatalf("cluster %d must stay unflagged: %+v", result.Clusters[i].ID, result.Clusters[i])
		}
	}
	if input[1].Duplicate {
		t.Fatalf("input clusters must not be modified")
	}

	if !lister.since.Equal(fixedNow.Add(-24 * time.Hour)) {
		t.Fatalf("expected 24h window, got since=%s", lister.since)
	}
	if got := len([]rune(judge.posts[0].Excerpt)); got != DefaultExcerptLimit {
		t.Fatalf("expected excerpt trimmed to %d runes, got %d", DefaultExcerptLimit, got)
	}
	wantSummaries := []story.ClusterSummary{
		{ClusterID: 1, Headline: "Gràcia festival opens", Summary: "Streets decorated"},
		{ClusterID: 2, Headline: "Metro strike on Monday", Summary: "L1 and L3 affected"},
		{ClusterID: 3, Headline: "New bike lanes", Summary: "Eixample expansion"},
	}
	if !reflect.DeepEqual(judge.clusters, wantSummaries) {
		t.Fatalf("unexpected cluster summaries %+v", judge.clusters)
	}
}

func TestCheckNoRecentPostsSkipsJudge(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{}
	input := sampleClusters()
	result := newTestDetector(&stubLister{}, judge).Check(context.Background(), input)

	if judge.calls != 0 {
		t.Fatalf("judge must not be called without recent posts")
	}
	if result.Err != nil || result.Flagged != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !reflect.DeepEqual(result.Clusters, input) {
		t.Fatalf("clusters must be returned unchanged")
	}
}

func TestCheckFailsOpen(t *testing.T) {
	t.Parallel()

	posts := []story.RecentPost{{Title: "Post"}}
	cases := []struct {
		name   string
		lister *stubLister
		judge  *stubJudge
	}{
		{name: "lister failure", lister: &stubLister{err: errors.New("wordpress down")}, judge: &stubJudge{}},
		{name: "judge failure", lister: &stubLister{posts: posts}, judge: &stubJudge{err: errors.New("oracle unavailable")}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			input := sampleClusters()
			input[0].Duplicate = true
			input[0].DuplicateOf = &story.DuplicateRef{Title: "Earlier", Link: "https://barna.news/earlier"}

			result := newTestDetector(tc.lister, tc.judge).Check(context.Background(), input)
			if result.Err == nil {
				t.Fatalf("expected failure to be reported")
			}
			if !reflect.DeepEqual(result.Clusters, input) {
				t.Fatalf("expected clusters unchanged, got %+v", result.Clusters)
			}
		})
	}
}

func TestCheckNeverClearsFlag(t *testing.T) {
	t.Parallel()

	input := sampleClusters()
	input[2].Duplicate = true
	input[2].DuplicateOf = &story.DuplicateRef{Title: "Bike lanes", Link: "https://barna.news/bikes"}

	judge := &stubJudge{verdicts: []story.DuplicateVerdict{{ClusterID: 3, IsDuplicate: false}}}
	result := newTestDetector(&stubLister{posts: []story.RecentPost{{Title: "x"}}}, judge).Check(context.Background(), input)

	if !result.Clusters[2].Duplicate || result.Clusters[2].DuplicateOf == nil {
		t.Fatalf("existing duplicate flag must survive a negative verdict")
	}
	if result.Flagged != 0 {
		t.Fatalf("expected nothing newly flagged, got %d", result.Flagged)
	}
}

func TestCheckEmptyAndUnconfigured(t *testing.T) {
	t.Parallel()

	lister := &stubLister{}
	result := newTestDetector(lister, &stubJudge{}).Check(context.Background(), nil)
	if lister.calls != 0 || len(result.Clusters) != 0 || result.Err != nil {
		t.Fatalf("empty input must be a no-op, got %+v", result)
	}

	result = newTestDetector(nil, nil).Check(context.Background(), sampleClusters())
	if result.Err == nil || len(result.Clusters) != 3 {
		t.Fatalf("expected unconfigured detector to fail open, got %+v", result)
	}
}

func TestNewDetectorWindow(t *testing.T) {
	t.Parallel()

	lister := &stubLister{}
	detector := NewDetector(lister, &stubJudge{}, 6*time.Hour, zerolog.Nop())
	detector.now = func() time.Time { return fixedNow }
	detector.Check(context.Background(), sampleClusters())

	if !lister.since.Equal(fixedNow.Add(-6 * time.Hour)) {
		t.Fatalf("expected configured window, got since=%s", lister.since)
	}
}
