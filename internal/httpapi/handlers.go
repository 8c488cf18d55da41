package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/newsdesk/internal/clustering"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/oracle"
	"horse.fit/newsdesk/internal/rules"
	"horse.fit/newsdesk/internal/story"
)

const defaultRulesLimit = 50

type loadArticlesRequest struct {
	Directory string `json:"directory"`
	// DirectoryPath is accepted for older clients.
	DirectoryPath string `json:"directoryPath"`
}

type clusterStoriesRequest struct {
	Articles        []story.Article `json:"articles"`
	CheckDuplicates bool            `json:"check_duplicates"`
}

type clusterStoriesResponse struct {
	*clustering.Result
	RecentPosts    int    `json:"recent_posts,omitempty"`
	Flagged        int    `json:"flagged_duplicates,omitempty"`
	DuplicateError string `json:"duplicate_check_error,omitempty"`
}

type learnForceMergeRequest struct {
	Clusters    []story.Cluster `json:"clusters"`
	SelectedIDs []int           `json:"selected_ids"`
}

type checkDuplicatesRequest struct {
	Clusters []story.Cluster `json:"clusters"`
}

type checkDuplicatesResponse struct {
	Clusters    []story.Cluster `json:"clusters"`
	RecentPosts int             `json:"recent_posts"`
	Flagged     int             `json:"flagged"`
	Skipped     bool            `json:"skipped"`
	Warning     string          `json:"warning,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service":         "newsdesk",
		"time":            globaltime.UTC(),
		"rule_store":      s.opts.RuleStore,
		"duplicate_check": s.checker != nil,
	})
}

func (s *Server) handleRules(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultRulesLimit, 1, rules.MaxRules)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	all := s.clusterer.Rules(c.Request().Context())
	items := all
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return success(c, map[string]any{
		"items": items,
		"count": len(all),
		"limit": limit,
	})
}

func (s *Server) handleLoadArticles(c echo.Context) error {
	if s.loader == nil {
		return internalError(c, "Article loading is not configured")
	}

	var req loadArticlesRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	dir := strings.TrimSpace(req.Directory)
	if dir == "" {
		dir = strings.TrimSpace(req.DirectoryPath)
	}
	if dir == "" {
		return failValidation(c, map[string]string{"directory": "is required"})
	}

	batch, err := s.loader.LoadDirectory(dir)
	if err != nil {
		s.logger.Warn().Err(err).Str("directory", dir).Msg("load article directory failed")
		return failValidation(c, map[string]string{"directory": err.Error()})
	}
	if len(batch.Errors) > 0 {
		s.logger.Warn().Int("errors", len(batch.Errors)).Str("directory", dir).Msg("some article files were rejected")
	}
	s.logger.Info().Int("articles", batch.Count()).Str("directory", dir).Msg("loaded article directory")

	return success(c, map[string]any{
		"articles": batch.Articles,
		"files":    batch.Files,
		"errors":   batch.Errors,
		"count":    batch.Count(),
		"scanned":  batch.Scanned,
	})
}

func (s *Server) handleClusterStories(c echo.Context) error {
	var req clusterStoriesRequest
	raw, err := decodeJSONFields(c, &req)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if !isJSONArray(raw["articles"]) {
		return failValidation(c, map[string]string{"articles": "array is required"})
	}

	ctx := c.Request().Context()
	result, err := s.clusterer.Cluster(ctx, req.Articles)
	if err != nil {
		if errors.Is(err, oracle.ErrUnavailable) {
			return upstreamError(c, "Clustering oracle unavailable")
		}
		s.logger.Error().Err(err).Int("articles", len(req.Articles)).Msg("clustering failed")
		return internalError(c, "Clustering failed")
	}

	resp := clusterStoriesResponse{Result: result}
	if req.CheckDuplicates && s.checker != nil && len(result.Clusters) > 0 {
		checked := s.checker.Check(ctx, result.Clusters)
		result.Clusters = checked.Clusters
		resp.RecentPosts = checked.RecentPosts
		resp.Flagged = checked.Flagged
		if checked.Err != nil {
			resp.DuplicateError = checked.Err.Error()
		}
	}
	return success(c, resp)
}

func (s *Server) handleLearnForceMerge(c echo.Context) error {
	var req learnForceMergeRequest
	raw, err := decodeJSONFields(c, &req)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if !isJSONArray(raw["clusters"]) {
		return failValidation(c, map[string]string{"clusters": "array is required"})
	}

	ctx := c.Request().Context()
	var result *clustering.LearnResult
	if len(req.SelectedIDs) == 0 {
		result, err = s.clusterer.Learn(ctx, req.Clusters)
	} else {
		result, err = s.clusterer.ForceMerge(ctx, req.Clusters, req.SelectedIDs)
	}
	if err != nil {
		if errors.Is(err, clustering.ErrInvalidForceMerge) {
			return failValidation(c, map[string]string{"clusters": err.Error()})
		}
		s.logger.Error().Err(err).Int("clusters", len(req.Clusters)).Msg("force merge failed")
		return internalError(c, "Force merge failed")
	}
	return success(c, result)
}

func (s *Server) handleCheckDuplicates(c echo.Context) error {
	var req checkDuplicatesRequest
	raw, err := decodeJSONFields(c, &req)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if !isJSONArray(raw["clusters"]) {
		return failValidation(c, map[string]string{"clusters": "array is required"})
	}

	if s.checker == nil {
		return success(c, checkDuplicatesResponse{
			Clusters: req.Clusters,
			Skipped:  true,
			Warning:  "duplicate check is not configured",
		})
	}

	checked := s.checker.Check(c.Request().Context(), req.Clusters)
	resp := checkDuplicatesResponse{
		Clusters:    checked.Clusters,
		RecentPosts: checked.RecentPosts,
		Flagged:     checked.Flagged,
	}
	if checked.Err != nil {
		resp.Skipped = true
		resp.Warning = checked.Err.Error()
	}
	return success(c, resp)
}

func decodeJSONBody(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// decodeJSONFields decodes the body into target and also returns the raw top-level fields,
// so handlers can tell a missing array from an empty one.
func decodeJSONFields(c echo.Context, target any) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := decodeJSONBody(c, &raw); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := json.Unmarshal(encoded, target); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return raw, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
