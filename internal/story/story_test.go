package story

import (
	"testing"
	"time"
)

func TestParseTimestampLayouts(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Time{
		"2026-02-14T10:00:00Z":      time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC),
		"2026-02-14T12:00:00+02:00": time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC),
		"2026-02-14T10:00:00":       time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC),
		"2026-02-14 10:00:00":       time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC),
		"2026-02-14":                time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		got := ParseTimestamp(raw)
		if got == nil {
			t.Fatalf("ParseTimestamp(%q) returned nil", raw)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseTimestamp(%q) = %s, want %s", raw, got, want)
		}
	}

	if got := ParseTimestamp("  "); got != nil {
		t.Fatalf("expected nil for blank timestamp, got %s", got)
	}
	if got := ParseTimestamp("yesterday"); got != nil {
		t.Fatalf("expected nil for unparseable timestamp, got %s", got)
	}
}

func TestArticleTitles(t *testing.T) {
	t.Parallel()

	a := Article{Title: " ", OriginalTitle: "Festa Major de Gràcia"}
	if got := a.DisplayTitle(); got != "Festa Major de Gràcia" {
		t.Fatalf("unexpected display title %q", got)
	}

	b := Article{Title: "Gracia festival", OriginalTitle: "Festa Major"}
	if got := b.SourceTitle(); got != "Festa Major" {
		t.Fatalf("unexpected source title %q", got)
	}
}

func TestClusterCloneIsDeep(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	original := Cluster{
		ID:          1,
		Keywords:    []string{"festival"},
		Sources:     []Source{{Name: "El Periódico", URL: "https://example.com/a"}},
		Date:        &date,
		DuplicateOf: &DuplicateRef{Title: "Post", Link: "https://example.com/p"},
	}

	clone := original.Clone()
	clone.Keywords[0] = "changed"
	clone.Sources[0].Name = "changed"
	*clone.Date = date.Add(time.Hour)
	clone.DuplicateOf.Title = "changed"

	if original.Keywords[0] != "festival" || original.Sources[0].Name != "El Periódico" {
		t.Fatalf("clone shares slices with original: %+v", original)
	}
	if !original.Date.Equal(date) {
		t.Fatalf("clone shares date pointer with original")
	}
	if original.DuplicateOf.Title != "Post" {
		t.Fatalf("clone shares duplicate_of pointer with original")
	}
}
