package oracle

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/story"
)

type scriptedReply struct {
	text string
	err  error
}

type scriptedProvider struct {
	replies map[string][]scriptedReply
	calls   []string
	prompts []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, req GenerateRequest) (string, error) {
	p.calls = append(p.calls, req.Model)
	p.prompts = append(p.prompts, req.Prompt)
	queue := p.replies[req.Model]
	if len(queue) == 0 {
		return "", &StatusError{Provider: "scripted", Model: req.Model, Code: http.StatusNotFound}
	}
	reply := queue[0]
	p.replies[req.Model] = queue[1:]
	return reply.text, reply.err
}

func newTestClient(t *testing.T, provider Provider, models ...string) *Client {
	t.Helper()
	client, err := NewClient(provider, Options{Models: models, MaxAttempts: 3}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestProposeParsesProposals(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{replies: map[string][]scriptedReply{
		"pro": {{text: "```json\n[{\"cluster_id\":1,\"merged_headline_en\":\"Gracia festival opens\",\"article_indices\":[0,\"1\",2.5],\"story_summary_en\":\"Summary\"}]\n```"}},
	}}
	client := newTestClient(t, provider, "pro")

	proposals, err := client.Propose(context.Background(), []story.Article{
		{Title: "Gracia festival opens", Body: strings.Repeat("x", 400), SourceName: "Ara", DateTime: "2026-08-15"},
		{OriginalTitle: "Arrenca la festa"},
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	want := []story.Proposal{{ClusterID: 1, Headline: "Gracia festival opens", Summary: "Summary", ArticleIndices: []int{0, 1, invalidIndex}}}
	if !reflect.DeepEqual(proposals, want) {
		t.Fatalf("Propose() = %+v, want %+v", proposals, want)
	}

	prompt := provider.prompts[0]
	if !strings.Contains(prompt, `"index": 1`) || !strings.Contains(prompt, `"title": "Arrenca la festa"`) {
		t.Fatalf("expected prompt to list every article with title fallback, got %s", prompt)
	}
	if strings.Contains(prompt, strings.Repeat("x", 301)) {
		t.Fatalf("expected snippet to be truncated to 300 characters")
	}
}

func TestGenerateRetriesRateLimitThenFallsBack(t *testing.T) {
	t.Parallel()

	limited := &StatusError{Code: http.StatusTooManyRequests}
	provider := &scriptedProvider{replies: map[string][]scriptedReply{
		"pro":   {{err: limited}, {err: limited}, {err: limited}},
		"flash": {{text: `[]`}},
	}}
	client := newTestClient(t, provider, "pro", "flash")

	proposals, err := client.Propose(context.Background(), []story.Article{{Title: "a"}})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if len(proposals) != 0 {
		t.Fatalf("expected empty proposal list, got %+v", proposals)
	}
	if !reflect.DeepEqual(provider.calls, []string{"pro", "pro", "pro", "flash"}) {
		t.Fatalf("unexpected call sequence %v", provider.calls)
	}
	if client.ActiveModel() != "flash" {
		t.Fatalf("expected flash to become the active model, got %q", client.ActiveModel())
	}

	// the next call starts with the model that answered last
	provider.replies["flash"] = []scriptedReply{{text: `[]`}}
	if _, err := client.Propose(context.Background(), []story.Article{{Title: "a"}}); err != nil {
		t.Fatalf("second propose: %v", err)
	}
	if provider.calls[len(provider.calls)-1] != "flash" || len(provider.calls) != 5 {
		t.Fatalf("expected sticky model on next call, got %v", provider.calls)
	}
}

func TestGenerateModelMissingAndTransportFallBack(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{replies: map[string][]scriptedReply{
		"a": {{err: &StatusError{Code: http.StatusNotFound}}},
		"b": {{err: errors.New("send chat request: connection reset")}},
		"c": {{err: &StatusError{Code: http.StatusBadGateway}}},
		"d": {{text: `{"verdicts":[{"cluster_id":2,"is_duplicate":"true","matching_post_title":"Post","matching_post_link":"https://site/p"}]}`}},
	}}
	client := newTestClient(t, provider, "a", "b", "c", "d")

	verdicts, err := client.Judge(context.Background(), []story.PostSummary{{Title: "Post"}}, []story.ClusterSummary{{ClusterID: 2}})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	want := []story.DuplicateVerdict{{ClusterID: 2, IsDuplicate: true, MatchingPostTitle: "Post", MatchingPostLink: "https://site/p"}}
	if !reflect.DeepEqual(verdicts, want) {
		t.Fatalf("Judge() = %+v, want %+v", verdicts, want)
	}
	if !reflect.DeepEqual(provider.calls, []string{"a", "b", "c", "d"}) {
		t.Fatalf("unexpected call sequence %v", provider.calls)
	}
}

func TestGenerateNonRetryableStatusStops(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{replies: map[string][]scriptedReply{
		"a": {{err: &StatusError{Code: http.StatusBadRequest, Message: "bad prompt"}}},
		"b": {{text: `[]`}},
	}}
	client := newTestClient(t, provider, "a", "b")

	_, err := client.Propose(context.Background(), []story.Article{{Title: "a"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("expected no fallback after a 400, got %v", provider.calls)
	}
}

func TestGenerateAllModelsExhausted(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{replies: map[string][]scriptedReply{}}
	client := newTestClient(t, provider, "a", "b")

	_, err := client.Judge(context.Background(), nil, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "tried a, b") {
		t.Fatalf("expected tried models in error, got %v", err)
	}
}

func TestProposeUnparseableOutputIsUnavailable(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{replies: map[string][]scriptedReply{
		"a": {{text: "I could not find any clusters."}},
	}}
	client := newTestClient(t, provider, "a")

	if _, err := client.Propose(context.Background(), []story.Article{{Title: "a"}}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for prose output, got %v", err)
	}
}

func TestGenerateCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &scriptedProvider{replies: map[string][]scriptedReply{"a": {{text: `[]`}}}}
	client := newTestClient(t, provider, "a")

	if _, err := client.Propose(ctx, []story.Article{{Title: "a"}}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on canceled context, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(nil, Options{Models: []string{"a"}}, zerolog.Nop()); err == nil {
		t.Fatalf("expected nil provider to be rejected")
	}
	if _, err := NewClient(&scriptedProvider{}, Options{Models: []string{" ", ""}}, zerolog.Nop()); err == nil {
		t.Fatalf("expected empty model list to be rejected")
	}
}
