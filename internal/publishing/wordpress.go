package publishing

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"horse.fit/newsdesk/internal/story"
)

const (
	recentPostsPath  = "/wp-json/wp/v2/posts"
	recentPostsLimit = 100
	recentFields     = "id,title,link,date,excerpt"
	recentStatuses   = "publish,draft"
	maxErrorBody     = 512
)

// WordPress reads recently published posts from a WordPress REST API.
type WordPress struct {
	baseURL  string
	user     string
	password string
	client   *http.Client
	policy   *bluemonday.Policy
}

type WordPressOptions struct {
	BaseURL     string
	User        string
	AppPassword string
	Timeout     time.Duration
}

func NewWordPress(opts WordPressOptions) (*WordPress, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("wordpress base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid wordpress base url %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &WordPress{
		baseURL:  base,
		user:     strings.TrimSpace(opts.User),
		password: opts.AppPassword,
		client:   &http.Client{Timeout: timeout},
		policy:   bluemonday.StrictPolicy(),
	}, nil
}

// ListRecent returns posts (published or draft) created after since.
func (w *WordPress) ListRecent(ctx context.Context, since time.Time) ([]story.RecentPost, error) {
	query := url.Values{}
	query.Set("after", since.UTC().Format(time.RFC3339))
	query.Set("per_page", fmt.Sprintf("%d", recentPostsLimit))
	query.Set("status", recentStatuses)
	query.Set("_fields", recentFields)
	endpoint := w.baseURL + recentPostsPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build wordpress request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if w.user != "" && w.password != "" {
		req.SetBasicAuth(w.user, w.password)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list recent wordpress posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("wordpress returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var posts []wordpressPost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode wordpress posts: %w", err)
	}

	out := make([]story.RecentPost, 0, len(posts))
	for _, post := range posts {
		out = append(out, story.RecentPost{
			ID:      post.ID,
			Title:   w.plainText(post.Title.Rendered),
			Link:    strings.TrimSpace(post.Link),
			Date:    strings.TrimSpace(post.Date),
			Excerpt: w.plainText(post.Excerpt.Rendered),
		})
	}
	return out, nil
}

func (w *WordPress) plainText(rendered string) string {
	stripped := w.policy.Sanitize(rendered)
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}

type wordpressPost struct {
	ID      int64         `json:"id"`
	Title   renderedField `json:"title"`
	Link    string        `json:"link"`
	Date    string        `json:"date"`
	Excerpt renderedField `json:"excerpt"`
}

type renderedField struct {
	Rendered string `json:"rendered"`
}
