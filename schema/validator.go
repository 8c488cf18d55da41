package payloadschema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/newsdesk/internal/story"
)

const (
	ArticleSchema  = "article.schema.json"
	ProposalSchema = "proposal.schema.json"
	VerdictSchema  = "verdict.schema.json"
)

//go:embed *.schema.json
var schemaFiles embed.FS

var (
	compileMu sync.Mutex
	compiled  = map[string]*jsonschema.Schema{}
)

// ValidateArticlePayload checks one scraped article file and decodes it.
func ValidateArticlePayload(payload json.RawMessage) (*story.Article, error) {
	value, err := DecodeStrict(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}
	if err := Validate(ArticleSchema, value); err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}
	var article story.Article
	if err := json.Unmarshal(normalized, &article); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateArticleSemantics(&article); err != nil {
		return nil, err
	}
	return &article, nil
}

// Validate checks an already-decoded JSON value against one of the embedded schemas.
func Validate(name string, value any) error {
	schema, err := loadSchema(name)
	if err != nil {
		return fmt.Errorf("load schema %s: %w", name, err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func loadSchema(name string) (*jsonschema.Schema, error) {
	compileMu.Lock()
	defer compileMu.Unlock()

	if schema, ok := compiled[name]; ok {
		return schema, nil
	}

	raw, err := schemaFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	compiled[name] = schema
	return schema, nil
}

// DecodeStrict decodes exactly one JSON value, keeping numbers as json.Number.
func DecodeStrict(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}
	return value, nil
}

func validateArticleSemantics(article *story.Article) error {
	if article == nil {
		return fmt.Errorf("payload is nil")
	}
	if strings.TrimSpace(article.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(article.Body) == "" {
		return fmt.Errorf("main_content_body must not be empty")
	}
	if err := validateURI("source_url", article.SourceURL); err != nil {
		return err
	}
	if raw := strings.TrimSpace(article.DateTime); raw != "" && story.ParseTimestamp(raw) == nil {
		return fmt.Errorf("date_time %q is not a recognised timestamp", raw)
	}
	for i, image := range article.ImageURLs {
		if err := validateURI(fmt.Sprintf("image_urls[%d]", i), image); err != nil {
			return err
		}
	}
	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
