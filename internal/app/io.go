package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"horse.fit/newsdesk/internal/story"
)

// readClusters accepts either a bare cluster array or an object with a
// "clusters" field, which is what the cluster command writes.
func readClusters(path string) ([]story.Cluster, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("input path is empty")
	}

	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cleanPath, err)
	}
	trimmed := bytes.TrimSpace(raw)

	if bytes.HasPrefix(trimmed, []byte("[")) {
		var clusters []story.Cluster
		if err := json.Unmarshal(trimmed, &clusters); err != nil {
			return nil, fmt.Errorf("decode clusters from %s: %w", cleanPath, err)
		}
		return clusters, nil
	}

	var wrapper struct {
		Clusters *[]story.Cluster `json:"clusters"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("decode clusters from %s: %w", cleanPath, err)
	}
	if wrapper.Clusters == nil {
		return nil, fmt.Errorf("%s has no clusters array", cleanPath)
	}
	return *wrapper.Clusters, nil
}

// writeJSON writes value as indented JSON to path, or to stdout when path is empty.
func writeJSON(path string, value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	encoded = append(encoded, '\n')

	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" || cleanPath == "-" {
		_, err := os.Stdout.Write(encoded)
		return err
	}

	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(cleanPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cleanPath, err)
	}
	return nil
}

// parseIDs parses a comma-separated list of cluster ids.
func parseIDs(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		id, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid cluster id %q", value)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
