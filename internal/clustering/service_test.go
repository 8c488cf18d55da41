package clustering

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/rules"
	"horse.fit/newsdesk/internal/story"
)

type stubProposer struct {
	proposals []story.Proposal
	err       error
	calls     int
}

func (s *stubProposer) Propose(_ context.Context, _ []story.Article) ([]story.Proposal, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.proposals, nil
}

type failingStore struct {
	loadErr   error
	appendErr error
	appended  int
}

func (f *failingStore) Load(context.Context) ([]rules.LearnedRule, error) {
	return []rules.LearnedRule{}, f.loadErr
}

func (f *failingStore) Append(context.Context, rules.LearnedRule) (int, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.appended++
	return f.appended, nil
}

func sampleArticles() []story.Article {
	return []story.Article{
		{Title: "Council approves Gracia festival budget", SourceName: "La Vanguardia", SourceURL: "https://lv.example/1", DateTime: "2026-08-14T08:00:00Z", Keywords: []string{"gracia", "festival"}, Body: "body 0", OriginalLanguage: "es"},
		{Title: "Gracia festival budget approved", SourceName: "Ara", SourceURL: "https://ara.example/2", DateTime: "2026-08-13T08:00:00Z", Keywords: []string{"festival", "budget"}, Body: "body 1", OriginalLanguage: "ca"},
		{Title: "Metro strike on Monday", SourceName: "El Periódico", SourceURL: "https://ep.example/3", DateTime: "2026-08-14T10:00:00Z", Body: "body 2"},
		{Title: "Beach cleanup volunteers gather", SourceName: "BTV", SourceURL: "https://btv.example/4", Body: "body 3"},
	}
}

func TestClusterEmptyBatchSkipsOracle(t *testing.T) {
	t.Parallel()

	proposer := &stubProposer{}
	svc := NewService(proposer, rules.NewMemoryStore(), zerolog.Nop())

	result, err := svc.Cluster(context.Background(), nil)
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	if proposer.calls != 0 {
		t.Fatalf("expected no oracle call for an empty batch")
	}
	if len(result.Clusters) != 0 || result.BatchID == "" {
		t.Fatalf("unexpected empty result %+v", result)
	}
}

func TestClusterOracleFailureIsFatal(t *testing.T) {
	t.Parallel()

	oracleErr := errors.New("oracle unavailable")
	svc := NewService(&stubProposer{err: oracleErr}, rules.NewMemoryStore(), zerolog.Nop())

	result, err := svc.Cluster(context.Background(), sampleArticles())
	if !errors.Is(err, oracleErr) {
		t.Fatalf("expected wrapped oracle error, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no partial result, got %+v", result)
	}
}

func TestClusterDropsInvalidIndicesAndConservesArticles(t *testing.T) {
	t.Parallel()

	articles := sampleArticles()
	proposer := &stubProposer{proposals: []story.Proposal{
		{ClusterID: 1, Headline: "Council approves new Gracia festival budget", ArticleIndices: []int{0, 99, -1}},
		{ClusterID: 2, Headline: "Metro strike on Monday", ArticleIndices: []int{2, 0}},
		{ClusterID: 3, Headline: "Gracia festival budget approved by council", ArticleIndices: []int{1}},
		{ClusterID: 4, Headline: "Ghost story", ArticleIndices: []int{42}},
	}}
	svc := NewService(proposer, rules.NewMemoryStore(), zerolog.Nop())

	result, err := svc.Cluster(context.Background(), articles)
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}

	if !reflect.DeepEqual(result.DroppedIndices, []int{99, -1, 0, 42}) {
		t.Fatalf("unexpected dropped indices %v", result.DroppedIndices)
	}
	if !reflect.DeepEqual(result.Unreferenced, []int{3}) {
		t.Fatalf("unexpected unreferenced indices %v", result.Unreferenced)
	}
	if len(result.Clusters) != 2 {
		t.Fatalf("expected festival proposals to merge into one of two clusters, got %d", len(result.Clusters))
	}

	var seen []int
	for i, c := range result.Clusters {
		if c.ID != i+1 {
			t.Fatalf("expected contiguous ids, got %d at %d", c.ID, i)
		}
		if c.ArticleCount != len(c.ArticleIndices) {
			t.Fatalf("article_count %d disagrees with indices %v", c.ArticleCount, c.ArticleIndices)
		}
		seen = append(seen, c.ArticleIndices...)
	}
	sort.Ints(seen)
	if !reflect.DeepEqual(seen, []int{0, 1, 2}) {
		t.Fatalf("expected every valid article exactly once, got %v", seen)
	}

	festival := result.Clusters[0]
	if festival.Date == nil || !festival.Date.Equal(time.Date(2026, 8, 13, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected earliest article date, got %v", festival.Date)
	}
	if len(festival.Sources) != 2 || festival.OriginalLanguage != "es" {
		t.Fatalf("unexpected festival cluster %+v", festival)
	}
	if result.LexicalMerges != 1 {
		t.Fatalf("expected one lexical merge, got %d", result.LexicalMerges)
	}
}

func TestClusterUnreadableRulesAreNotFatal(t *testing.T) {
	t.Parallel()

	store := &failingStore{loadErr: rules.ErrUnreadable}
	svc := NewService(&stubProposer{proposals: []story.Proposal{{ClusterID: 1, ArticleIndices: []int{3}}}}, store, zerolog.Nop())

	result, err := svc.Cluster(context.Background(), sampleArticles())
	if err != nil {
		t.Fatalf("expected unreadable rules to be tolerated, got %v", err)
	}
	if result.RulesLoaded != 0 || len(result.Clusters) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Clusters[0].Headline != "Beach cleanup volunteers gather" {
		t.Fatalf("expected empty oracle headline to fall back to article title, got %q", result.Clusters[0].Headline)
	}
}

func TestClusterAppliesLearnedRules(t *testing.T) {
	t.Parallel()

	store := rules.NewMemoryStore(rules.LearnedRule{Tokens: []string{"festival", "gracia"}})
	proposer := &stubProposer{proposals: []story.Proposal{
		{Headline: "Gracia streets decorated", ArticleIndices: []int{0}},
		{Headline: "Festival crowds arrive", ArticleIndices: []int{1}},
	}}
	svc := NewService(proposer, store, zerolog.Nop())

	result, err := svc.Cluster(context.Background(), sampleArticles())
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	if len(result.Clusters) != 1 || result.LearnedMerges != 1 || result.RulesLoaded != 1 {
		t.Fatalf("expected learned rule to merge proposals, got %+v", result)
	}
}

func TestLearnRequiresTwoClusters(t *testing.T) {
	t.Parallel()

	store := &failingStore{}
	svc := NewService(nil, store, zerolog.Nop())

	_, err := svc.Learn(context.Background(), []story.Cluster{{ID: 1}})
	if !errors.Is(err, ErrInvalidForceMerge) {
		t.Fatalf("expected ErrInvalidForceMerge, got %v", err)
	}
	if store.appended != 0 {
		t.Fatalf("expected no store mutation on validation failure")
	}
}

func TestLearnFestivalGraciaRule(t *testing.T) {
	defer globaltime.Freeze(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))()

	store := rules.NewMemoryStore()
	svc := NewService(nil, store, zerolog.Nop())

	result, err := svc.Learn(context.Background(), []story.Cluster{
		{ID: 2, Headline: "Festival crowds fill Gracia streets", ArticleCount: 2},
		{ID: 5, Headline: "Gracia festival wins decoration award", ArticleCount: 1},
	})
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if result.Rule == nil || !reflect.DeepEqual(result.Rule.Tokens, []string{"festival", "gracia"}) {
		t.Fatalf("expected rule {festival, gracia}, got %+v", result.Rule)
	}
	if !result.Rule.CreatedAt.Equal(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected mocked created_at, got %s", result.Rule.CreatedAt)
	}
	if result.RuleCount != 1 || result.Merged.ID != 2 || result.Merged.ArticleCount != 3 {
		t.Fatalf("unexpected learn result %+v", result)
	}
	if result.Merged.StoryType != "whats_on" {
		t.Fatalf("expected merged cluster to be classified, got %q", result.Merged.StoryType)
	}
}

func TestForceMergeThreeProtestClusters(t *testing.T) {
	t.Parallel()

	store := rules.NewMemoryStore(rules.LearnedRule{Tokens: []string{"older"}})
	svc := NewService(nil, store, zerolog.Nop())
	before, _ := store.Load(context.Background())

	batch := []story.Cluster{
		{ID: 1, Headline: "Students protest tuition rise", ArticleCount: 2},
		{ID: 2, Headline: "Unrelated harbour story", ArticleCount: 1},
		{ID: 3, Headline: "Protest blocks Diagonal avenue", ArticleCount: 1},
		{ID: 4, Headline: "Police monitor protest downtown", ArticleCount: 3},
	}

	result, err := svc.ForceMerge(context.Background(), batch, []int{4, 1, 3})
	if err != nil {
		t.Fatalf("force merge: %v", err)
	}
	if result.Merged.ArticleCount != 6 {
		t.Fatalf("expected article_count 6, got %d", result.Merged.ArticleCount)
	}
	if result.Merged.ID != 1 {
		t.Fatalf("expected merged cluster to keep the first selected id in batch order, got %d", result.Merged.ID)
	}
	if result.RuleCount != len(before)+1 {
		t.Fatalf("expected rule count to grow by exactly one, got %d (before %d)", result.RuleCount, len(before))
	}
	if !reflect.DeepEqual(result.Rule.Tokens, []string{"protest"}) {
		t.Fatalf("unexpected rule tokens %v", result.Rule.Tokens)
	}
}

func TestForceMergeValidation(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, rules.NewMemoryStore(), zerolog.Nop())
	batch := []story.Cluster{{ID: 1}, {ID: 2}}

	if _, err := svc.ForceMerge(context.Background(), batch, []int{1, 1}); !errors.Is(err, ErrInvalidForceMerge) {
		t.Fatalf("expected repeated id to be rejected, got %v", err)
	}
	if _, err := svc.ForceMerge(context.Background(), batch, []int{1, 9}); !errors.Is(err, ErrInvalidForceMerge) {
		t.Fatalf("expected unknown id to be rejected, got %v", err)
	}
}

func TestLearnWithoutSharedTokensStillMerges(t *testing.T) {
	t.Parallel()

	store := rules.NewMemoryStore()
	svc := NewService(nil, store, zerolog.Nop())

	result, err := svc.Learn(context.Background(), []story.Cluster{
		{ID: 1, Headline: "Harbour fire", ArticleCount: 1},
		{ID: 2, Headline: "Metro strike", ArticleCount: 1},
	})
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if result.Rule != nil || result.RuleCount != 0 || result.Merged.ArticleCount != 2 {
		t.Fatalf("expected merge without rule, got %+v", result)
	}
}

func TestLearnAppendFailureStillReturnsMerge(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &failingStore{appendErr: errors.New("read-only filesystem")}, zerolog.Nop())
	result, err := svc.Learn(context.Background(), []story.Cluster{
		{ID: 1, Headline: "Protest downtown", ArticleCount: 1},
		{ID: 2, Headline: "Protest continues", ArticleCount: 1},
	})
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if result.RuleError == "" || result.Rule != nil || result.Merged.ArticleCount != 2 {
		t.Fatalf("expected merge with rule error, got %+v", result)
	}
}
