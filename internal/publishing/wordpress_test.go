package publishing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"horse.fit/newsdesk/internal/story"
)

func TestListRecentParsesPosts(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	var gotUser, gotPassword string
	var gotAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotQuery = map[string]string{
			"after":    r.URL.Query().Get("after"),
			"per_page": r.URL.Query().Get("per_page"),
			"status":   r.URL.Query().Get("status"),
			"_fields":  r.URL.Query().Get("_fields"),
		}
		gotUser, gotPassword, gotAuth = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 42, "title": {"rendered": "Rock &#8217;n&#8217; roll at <em>Gràcia</em>"},
			 "link": "https://barna.news/rock", "date": "2026-08-15T10:00:00",
			 "excerpt": {"rendered": "<p>The festival\n   starts &amp; ends late.</p>\n"}}
		]`))
	}))
	defer server.Close()

	wp, err := NewWordPress(WordPressOptions{BaseURL: server.URL + "/", User: "editor", AppPassword: "app pass"})
	if err != nil {
		t.Fatalf("new wordpress: %v", err)
	}

	since := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	posts, err := wp.ListRecent(context.Background(), since)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}

	want := []story.RecentPost{{
		ID:      42,
		Title:   "Rock ’n’ roll at Gràcia",
		Link:    "https://barna.news/rock",
		Date:    "2026-08-15T10:00:00",
		Excerpt: "The festival starts & ends late.",
	}}
	if !reflect.DeepEqual(posts, want) {
		t.Fatalf("ListRecent() = %+v, want %+v", posts, want)
	}

	wantQuery := map[string]string{
		"after":    "2026-08-14T10:00:00Z",
		"per_page": "100",
		"status":   "publish,draft",
		"_fields":  "id,title,link,date,excerpt",
	}
	if !reflect.DeepEqual(gotQuery, wantQuery) {
		t.Fatalf("unexpected query %v", gotQuery)
	}
	if !gotAuth || gotUser != "editor" || gotPassword != "app pass" {
		t.Fatalf("expected basic auth editor/app pass, got %q/%q (%v)", gotUser, gotPassword, gotAuth)
	}
}

func TestListRecentWithoutCredentialsSendsNoAuth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); ok {
			t.Errorf("expected no basic auth header")
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	wp, err := NewWordPress(WordPressOptions{BaseURL: server.URL, User: "editor"})
	if err != nil {
		t.Fatalf("new wordpress: %v", err)
	}
	posts, err := wp.ListRecent(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected no posts, got %+v", posts)
	}
}

func TestListRecentNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"rest_forbidden"}`))
	}))
	defer server.Close()

	wp, err := NewWordPress(WordPressOptions{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new wordpress: %v", err)
	}
	if _, err := wp.ListRecent(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected non-2xx status to fail")
	}
}

func TestNewWordPressValidatesURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "barna.news", "://bad"} {
		if _, err := NewWordPress(WordPressOptions{BaseURL: raw}); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
