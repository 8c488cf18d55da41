package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"horse.fit/newsdesk/internal/metrics"
	"horse.fit/newsdesk/internal/story"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 2 * time.Second
)

type Options struct {
	// Models are tried in order; the last model that answered is tried first next time.
	Models       []string
	MaxAttempts  int
	RetryBackoff time.Duration
	// MinInterval spaces consecutive requests; zero disables pacing.
	MinInterval time.Duration
}

// Client asks a text-generation provider to propose clusters and judge duplicates.
// Retries and model fallback happen here so callers see a single outcome.
type Client struct {
	provider    Provider
	models      []string
	maxAttempts int
	backoff     time.Duration
	limiter     *rate.Limiter
	logger      zerolog.Logger

	mu     sync.Mutex
	active string
}

func NewClient(provider Provider, opts Options, logger zerolog.Logger) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("oracle provider is nil")
	}

	models := make([]string, 0, len(opts.Models))
	seen := make(map[string]struct{}, len(opts.Models))
	for _, model := range opts.Models {
		name := strings.TrimSpace(model)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		models = append(models, name)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("at least one oracle model is required")
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := opts.RetryBackoff
	if backoff < 0 {
		backoff = defaultRetryBackoff
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Client{
		provider:    provider,
		models:      models,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger,
		active:      models[0],
	}, nil
}

// Propose asks the model to group articles into stories.
func (c *Client) Propose(ctx context.Context, articles []story.Article) ([]story.Proposal, error) {
	prompt, err := buildProposePrompt(articles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	started := time.Now()
	text, err := c.generate(ctx, "propose", prompt)
	if err == nil {
		var proposals []story.Proposal
		proposals, err = parseProposals(text)
		if err == nil {
			metrics.RecordOracleRequest("propose", "ok", time.Since(started).Seconds())
			return proposals, nil
		}
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	metrics.RecordOracleRequest("propose", "error", time.Since(started).Seconds())
	return nil, fmt.Errorf("propose clusters for %d articles: %w", len(articles), err)
}

// Judge asks the model which clusters repeat an already-published post.
func (c *Client) Judge(ctx context.Context, posts []story.PostSummary, clusters []story.ClusterSummary) ([]story.DuplicateVerdict, error) {
	prompt, err := buildJudgePrompt(posts, clusters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	started := time.Now()
	text, err := c.generate(ctx, "judge", prompt)
	if err == nil {
		var verdicts []story.DuplicateVerdict
		verdicts, err = parseVerdicts(text)
		if err == nil {
			metrics.RecordOracleRequest("judge", "ok", time.Since(started).Seconds())
			return verdicts, nil
		}
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	metrics.RecordOracleRequest("judge", "error", time.Since(started).Seconds())
	return nil, fmt.Errorf("judge %d clusters against %d posts: %w", len(clusters), len(posts), err)
}

// Models returns the configured fallback chain in its original order.
func (c *Client) Models() []string {
	return append([]string(nil), c.models...)
}

// ActiveModel is the model that answered most recently.
func (c *Client) ActiveModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Client) generate(ctx context.Context, operation, prompt string) (string, error) {
	var lastErr error
	for _, model := range c.candidateModels() {
		logger := c.logger.With().Str("operation", operation).Str("model", model).Logger()

	attempts:
		for attempt := 0; attempt < c.maxAttempts; attempt++ {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("%w: wait for rate limiter: %v", ErrUnavailable, err)
			}

			text, err := c.provider.Generate(ctx, GenerateRequest{Model: model, Prompt: prompt, JSON: true})
			if err == nil {
				c.setActive(model)
				return text, nil
			}
			lastErr = err
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctxErr)
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				logger.Warn().Err(err).Int("attempt", attempt+1).Msg("oracle transport failure, trying fallback model")
				break attempts
			}

			switch {
			case statusErr.ModelMissing():
				logger.Warn().Int("status", statusErr.Code).Msg("oracle model unavailable, trying fallback model")
				break attempts
			case statusErr.Retryable() && attempt < c.maxAttempts-1:
				wait := c.backoff * time.Duration(attempt+1)
				logger.Warn().Int("status", statusErr.Code).Int("attempt", attempt+1).Dur("backoff", wait).Msg("oracle rate limited, retrying")
				if err := sleepContext(ctx, wait); err != nil {
					return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
				}
			case statusErr.Retryable() || statusErr.ServerError():
				logger.Warn().Int("status", statusErr.Code).Msg("oracle call failed, trying fallback model")
				break attempts
			default:
				return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
	}

	return "", fmt.Errorf("%w: no usable model (tried %s): %v", ErrUnavailable, strings.Join(c.models, ", "), lastErr)
}

func (c *Client) candidateModels() []string {
	active := c.ActiveModel()
	ordered := make([]string, 0, len(c.models))
	ordered = append(ordered, active)
	for _, model := range c.models {
		if model != active {
			ordered = append(ordered, model)
		}
	}
	return ordered
}

func (c *Client) setActive(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = model
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
