package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadClustersAcceptsArrayAndWrapper(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	bare := filepath.Join(root, "bare.json")
	wrapped := filepath.Join(root, "wrapped.json")
	mustWriteFile(t, bare, `[{"cluster_id":1,"headline":"A"},{"cluster_id":2,"headline":"B"}]`)
	mustWriteFile(t, wrapped, `{"batch_id":"x","clusters":[{"cluster_id":7,"headline":"C"}]}`)

	clusters, err := readClusters(bare)
	if err != nil {
		t.Fatalf("readClusters bare failed: %v", err)
	}
	if len(clusters) != 2 || clusters[1].ID != 2 || clusters[1].Headline != "B" {
		t.Fatalf("unexpected bare clusters %+v", clusters)
	}

	clusters, err = readClusters(wrapped)
	if err != nil {
		t.Fatalf("readClusters wrapped failed: %v", err)
	}
	if len(clusters) != 1 || clusters[0].ID != 7 {
		t.Fatalf("unexpected wrapped clusters %+v", clusters)
	}
}

func TestReadClustersErrors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	noClusters := filepath.Join(root, "none.json")
	garbage := filepath.Join(root, "garbage.json")
	mustWriteFile(t, noClusters, `{"articles":[]}`)
	mustWriteFile(t, garbage, `not json`)

	for _, path := range []string{"", filepath.Join(root, "missing.json"), noClusters, garbage} {
		if _, err := readClusters(path); err == nil {
			t.Fatalf("expected error for %q", path)
		}
	}
}

func TestWriteJSONCreatesDirectories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "nested", "result.json")
	if err := writeJSON(path, map[string]int{"clusters": 3}); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output failed: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if decoded["clusters"] != 3 {
		t.Fatalf("unexpected output %s", raw)
	}
}

func TestParseIDs(t *testing.T) {
	t.Parallel()

	ids, err := parseIDs(" 3, 1,,12 ")
	if err != nil {
		t.Fatalf("parseIDs failed: %v", err)
	}
	if !reflect.DeepEqual(ids, []int{3, 1, 12}) {
		t.Fatalf("unexpected ids %v", ids)
	}

	ids, err = parseIDs("")
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected no ids for empty input, got %v (%v)", ids, err)
	}

	if _, err := parseIDs("1,two"); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}
