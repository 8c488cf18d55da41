package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minimumLetters is the smallest sample lingua is asked to classify.
const minimumLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// FeedLanguages are the languages the scrapers deliver.
var FeedLanguages = []lingua.Language{
	lingua.Spanish,
	lingua.Catalan,
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
}

// DetectISO6391 returns the two-letter code of the dominant language in text,
// or "" when the sample is too short or ambiguous.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
			if letterCount >= minimumLetters {
				break
			}
		}
	}
	if letterCount < minimumLetters {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}
	return NormalizeCode(language.IsoCode639_1().String())
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(FeedLanguages...).
			Build()
	})
	return detector
}
