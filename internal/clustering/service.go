package clustering

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/metrics"
	"horse.fit/newsdesk/internal/rules"
	"horse.fit/newsdesk/internal/story"
	"horse.fit/newsdesk/internal/storytype"
)

// ErrInvalidForceMerge is returned when a force merge selection is rejected.
var ErrInvalidForceMerge = errors.New("invalid force merge")

// Proposer groups a batch of articles into rough story proposals.
type Proposer interface {
	Propose(ctx context.Context, articles []story.Article) ([]story.Proposal, error)
}

type Service struct {
	proposer Proposer
	store    rules.Store
	logger   zerolog.Logger
}

func NewService(proposer Proposer, store rules.Store, logger zerolog.Logger) *Service {
	if store == nil {
		store = rules.NewMemoryStore()
	}
	return &Service{
		proposer: proposer,
		store:    store,
		logger:   logger,
	}
}

// Result is the outcome of one clustering pass.
type Result struct {
	BatchID        string          `json:"batch_id"`
	Clusters       []story.Cluster `json:"clusters"`
	Proposed       int             `json:"proposed"`
	DroppedIndices []int           `json:"dropped_indices"`
	Unreferenced   []int           `json:"unreferenced_indices"`
	RulesLoaded    int             `json:"rules_loaded"`
	LexicalMerges  int             `json:"lexical_merges"`
	LearnedMerges  int             `json:"learned_merges"`
}

// Cluster turns a batch of articles into final, classified clusters.
// A proposer failure fails the whole batch; nothing partial is returned.
func (s *Service) Cluster(ctx context.Context, articles []story.Article) (*Result, error) {
	result := &Result{
		BatchID:        uuid.NewString(),
		Clusters:       []story.Cluster{},
		DroppedIndices: []int{},
		Unreferenced:   []int{},
	}
	if len(articles) == 0 {
		metrics.RecordBatch("cluster", "empty")
		return result, nil
	}
	if s.proposer == nil {
		return nil, fmt.Errorf("clustering proposer is not configured")
	}

	logger := s.logger.With().Str("batch_id", result.BatchID).Logger()

	proposals, err := s.proposer.Propose(ctx, articles)
	if err != nil {
		metrics.RecordBatch("cluster", "error")
		logger.Error().Err(err).Int("articles", len(articles)).Msg("clustering proposal failed")
		return nil, fmt.Errorf("propose clusters for %d articles: %w", len(articles), err)
	}
	result.Proposed = len(proposals)

	learned := s.loadRules(ctx, logger)
	result.RulesLoaded = len(learned)

	candidates := buildCandidates(articles, proposals)
	if len(candidates.dropped) > 0 {
		result.DroppedIndices = candidates.dropped
		logger.Warn().
			Ints("dropped_indices", candidates.dropped).
			Int("articles", len(articles)).
			Msg("dropped invalid article indices from proposals")
	}
	if candidates.emptyProposals > 0 {
		logger.Warn().Int("empty_proposals", candidates.emptyProposals).Msg("dropped proposals without valid articles")
	}
	if len(candidates.unreferenced) > 0 {
		result.Unreferenced = candidates.unreferenced
		logger.Info().Ints("unreferenced_indices", candidates.unreferenced).Msg("articles not referenced by any proposal")
	}

	clusters, stats := MergeCandidates(candidates.clusters, learned)
	result.Clusters = clusters
	result.LexicalMerges = stats.Lexical
	result.LearnedMerges = stats.LearnedRule

	for i := 0; i < stats.Lexical; i++ {
		metrics.RecordMerge(ReasonLexical)
	}
	for i := 0; i < stats.LearnedRule; i++ {
		metrics.RecordMerge(ReasonLearnedRule)
	}
	metrics.RecordClusteringPass(len(clusters), len(candidates.dropped))
	metrics.RecordBatch("cluster", "ok")

	logger.Info().
		Int("articles", len(articles)).
		Int("proposed", len(proposals)).
		Int("candidates", len(candidates.clusters)).
		Int("clusters", len(clusters)).
		Int("lexical_merges", stats.Lexical).
		Int("learned_merges", stats.LearnedRule).
		Int("rules_loaded", len(learned)).
		Msg("clustering pass completed")

	return result, nil
}

// LearnResult is the outcome of a force merge.
type LearnResult struct {
	Merged    story.Cluster      `json:"merged_cluster"`
	RuleCount int                `json:"learned_rule_count"`
	Rule      *rules.LearnedRule `json:"rule,omitempty"`
	// RuleError is set when the merge succeeded but persisting the rule failed.
	RuleError string `json:"rule_error,omitempty"`
}

// Learn merges the selected clusters into one and records a rule from the
// headline tokens they share. The merge is returned even when no rule is learned.
func (s *Service) Learn(ctx context.Context, selected []story.Cluster) (*LearnResult, error) {
	if len(selected) < 2 {
		return nil, fmt.Errorf("%w: at least 2 clusters are required, got %d", ErrInvalidForceMerge, len(selected))
	}

	merged := selected[0].Clone()
	headlines := make([]string, 0, len(selected))
	headlines = append(headlines, selected[0].Headline)
	for _, next := range selected[1:] {
		merged = MergeTwo(merged, next)
		headlines = append(headlines, next.Headline)
	}
	storytype.Apply(&merged)

	result := &LearnResult{Merged: merged}
	tokens := rules.DeriveTokens(headlines)
	if len(tokens) == 0 {
		result.RuleCount = len(s.loadRules(ctx, s.logger))
		s.logger.Info().
			Int("clusters", len(selected)).
			Int("rule_count", result.RuleCount).
			Msg("force merge learned no rule")
		return result, nil
	}

	rule := rules.LearnedRule{
		Tokens:    tokens,
		Headlines: headlines,
		CreatedAt: globaltime.UTC(),
	}
	count, err := s.store.Append(ctx, rule)
	if err != nil {
		result.RuleCount = len(s.loadRules(ctx, s.logger))
		result.RuleError = err.Error()
		s.logger.Error().Err(err).Strs("tokens", tokens).Msg("persist learned rule failed")
		return result, nil
	}

	metrics.RecordRuleLearned()
	result.Rule = &rule
	result.RuleCount = count
	s.logger.Info().
		Int("clusters", len(selected)).
		Strs("tokens", tokens).
		Int("rule_count", count).
		Msg("learned merge rule")
	return result, nil
}

// ForceMerge resolves cluster ids within batch and learns from them in batch order.
func (s *Service) ForceMerge(ctx context.Context, batch []story.Cluster, ids []int) (*LearnResult, error) {
	wanted := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	if len(wanted) < 2 {
		return nil, fmt.Errorf("%w: at least 2 distinct cluster ids are required, got %d", ErrInvalidForceMerge, len(wanted))
	}

	selected := make([]story.Cluster, 0, len(wanted))
	found := make(map[int]struct{}, len(wanted))
	for _, c := range batch {
		if _, ok := wanted[c.ID]; !ok {
			continue
		}
		if _, dup := found[c.ID]; dup {
			continue
		}
		found[c.ID] = struct{}{}
		selected = append(selected, c)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, fmt.Errorf("%w: cluster id %d is not in the batch", ErrInvalidForceMerge, id)
		}
	}

	return s.Learn(ctx, selected)
}

// Rules returns the current learned rules; unreadable storage yields an empty list.
func (s *Service) Rules(ctx context.Context) []rules.LearnedRule {
	return s.loadRules(ctx, s.logger)
}

func (s *Service) loadRules(ctx context.Context, logger zerolog.Logger) []rules.LearnedRule {
	learned, err := s.store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("learned rules unreadable, continuing without rules")
		return []rules.LearnedRule{}
	}
	if learned == nil {
		return []rules.LearnedRule{}
	}
	return learned
}
