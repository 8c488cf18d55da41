package articles

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	payloadschema "horse.fit/newsdesk/schema"

	"horse.fit/newsdesk/internal/langdetect"
	"horse.fit/newsdesk/internal/story"
)

// FileError records one file that could not be loaded.
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Batch is the result of loading one directory of scraped articles.
type Batch struct {
	Articles []story.Article `json:"articles"`
	Files    []string        `json:"files"`
	Errors   []FileError     `json:"errors"`
	Scanned  int             `json:"scanned"`
}

// Count is the number of articles that loaded cleanly.
func (b *Batch) Count() int {
	return len(b.Articles)
}

// LanguageDetector returns a two-letter language code for text, or "".
type LanguageDetector func(text string) string

type Loader struct {
	detect LanguageDetector
}

// NewLoader builds a loader. A nil detector leaves original_language as scraped.
func NewLoader(detect LanguageDetector) *Loader {
	return &Loader{detect: detect}
}

// DefaultLoader detects missing languages with lingua.
func DefaultLoader() *Loader {
	return NewLoader(langdetect.DetectISO6391)
}

// LoadDirectory reads every .json article below dir. Invalid files are reported
// in Batch.Errors and skipped; articles come back ordered by date, undated first.
func (l *Loader) LoadDirectory(dir string) (*Batch, error) {
	files, err := CollectJSONFiles(dir)
	if err != nil {
		return nil, err
	}

	type loaded struct {
		article story.Article
		file    string
	}
	entries := make([]loaded, 0, len(files))
	batch := &Batch{
		Articles: []story.Article{},
		Files:    []string{},
		Errors:   []FileError{},
		Scanned:  len(files),
	}

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			batch.Errors = append(batch.Errors, FileError{File: path, Error: err.Error()})
			continue
		}
		article, err := payloadschema.ValidateArticlePayload(raw)
		if err != nil {
			batch.Errors = append(batch.Errors, FileError{File: path, Error: err.Error()})
			continue
		}
		l.fillLanguage(article)
		entries = append(entries, loaded{article: *article, file: path})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return publishedBefore(entries[i].article, entries[j].article)
	})
	for _, entry := range entries {
		batch.Articles = append(batch.Articles, entry.article)
		batch.Files = append(batch.Files, entry.file)
	}
	return batch, nil
}

func (l *Loader) fillLanguage(article *story.Article) {
	if code := langdetect.NormalizeCode(article.OriginalLanguage); code != "" {
		article.OriginalLanguage = code
		return
	}
	article.OriginalLanguage = ""
	if l.detect == nil {
		return
	}
	article.OriginalLanguage = l.detect(article.SourceTitle() + "\n" + article.Body)
}

// publishedBefore orders undated articles before every dated one, then by date.
func publishedBefore(a, b story.Article) bool {
	left, right := a.PublishedAt(), b.PublishedAt()
	switch {
	case left == nil:
		return right != nil
	case right == nil:
		return false
	default:
		return left.Before(*right)
	}
}

// CollectJSONFiles walks root recursively and returns .json files in lexical
// order, skipping hidden files and directories.
func CollectJSONFiles(root string) ([]string, error) {
	cleanRoot := strings.TrimSpace(root)
	if cleanRoot == "" {
		return nil, fmt.Errorf("directory path is empty")
	}

	info, err := os.Stat(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cleanRoot)
	}

	var files []string
	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != cleanRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", cleanRoot, err)
	}

	sort.Strings(files)
	return files, nil
}
