package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	payloadschema "horse.fit/newsdesk/schema"

	"horse.fit/newsdesk/internal/story"
)

// invalidIndex marks an index the oracle sent in an unusable shape.
const invalidIndex = -1

// parseProposals turns raw model output into proposals. Missing fields default,
// unknown fields are ignored and unusable indices become invalidIndex.
func parseProposals(text string) ([]story.Proposal, error) {
	items, err := decodeArray(text, payloadschema.ProposalSchema)
	if err != nil {
		return nil, err
	}

	proposals := make([]story.Proposal, 0, len(items))
	for i, item := range items {
		fields, isObject := item.(map[string]any)
		if !isObject {
			continue
		}
		id, ok := asInt(fields["cluster_id"])
		if !ok {
			id = i + 1
		}

		rawIndices, _ := fields["article_indices"].([]any)
		indices := make([]int, 0, len(rawIndices))
		for _, raw := range rawIndices {
			index, ok := asInt(raw)
			if !ok {
				index = invalidIndex
			}
			indices = append(indices, index)
		}

		proposals = append(proposals, story.Proposal{
			ClusterID:      id,
			Headline:       asString(fields["merged_headline_en"]),
			Summary:        asString(fields["story_summary_en"]),
			ArticleIndices: indices,
		})
	}
	return proposals, nil
}

// parseVerdicts turns raw model output into verdicts. Entries without a usable
// cluster_id are skipped since they cannot be applied to any cluster.
func parseVerdicts(text string) ([]story.DuplicateVerdict, error) {
	items, err := decodeArray(text, payloadschema.VerdictSchema)
	if err != nil {
		return nil, err
	}

	verdicts := make([]story.DuplicateVerdict, 0, len(items))
	for _, item := range items {
		fields, isObject := item.(map[string]any)
		if !isObject {
			continue
		}
		id, ok := asInt(fields["cluster_id"])
		if !ok {
			continue
		}
		verdicts = append(verdicts, story.DuplicateVerdict{
			ClusterID:         id,
			IsDuplicate:       asBool(fields["is_duplicate"]),
			MatchingPostTitle: asString(fields["matching_post_title"]),
			MatchingPostLink:  asString(fields["matching_post_link"]),
		})
	}
	return verdicts, nil
}

func decodeArray(text, schemaName string) ([]any, error) {
	body := extractJSON(text)
	if body == "" {
		return nil, fmt.Errorf("model output contains no JSON")
	}

	value, err := payloadschema.DecodeStrict([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	value = unwrapArray(value)

	if err := payloadschema.Validate(schemaName, value); err != nil {
		return nil, fmt.Errorf("model output rejected: %w", err)
	}
	items, _ := value.([]any)
	return items, nil
}

// extractJSON strips markdown fences and any prose around the first JSON document.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
			trimmed = trimmed[newline+1:]
		}
		if end := strings.LastIndex(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return trimmed
	}

	start := strings.IndexAny(trimmed, "[{")
	if start < 0 {
		return ""
	}
	closing := "]"
	if trimmed[start] == '{' {
		closing = "}"
	}
	end := strings.LastIndex(trimmed, closing)
	if end < start {
		return ""
	}
	return trimmed[start : end+1]
}

// unwrapArray accepts {"clusters":[...]} style wrappers produced by JSON-object modes.
func unwrapArray(value any) any {
	object, ok := value.(map[string]any)
	if !ok {
		return value
	}

	var found any
	arrays := 0
	for _, field := range object {
		if _, isArray := field.([]any); isArray {
			found = field
			arrays++
		}
	}
	if arrays != 1 {
		return value
	}
	return found
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func asBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		}
		return false
	case json.Number:
		n, err := v.Float64()
		return err == nil && n != 0
	default:
		return false
	}
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
