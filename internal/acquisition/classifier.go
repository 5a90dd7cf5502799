package acquisition

import (
	"strings"

	"github.com/watchnext/watchnext/internal/media"
)

// Classifier decides whether a show should be requested as anime.
// Backends like Ombi route anime to a different root folder, so the
// flag has to be decided before the request is sent.
type Classifier interface {
	IsAnime(item media.Item) bool
}

// defaultAnimeKeywords seed KeywordClassifier when config leaves the
// list empty.
var defaultAnimeKeywords = []string{
	"anime",
	"shippuden",
	"one piece",
	"dragon ball",
	"attack on titan",
	"my hero academia",
	"jujutsu kaisen",
	"demon slayer",
}

// KeywordClassifier matches the genre list first and falls back to
// title keywords. Keyword matching is a blunt instrument; the genre
// check catches most cases before it runs.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier creates a classifier with the given title
// keywords, or the built-in list when keywords is empty.
func NewKeywordClassifier(keywords []string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = defaultAnimeKeywords
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &KeywordClassifier{keywords: lowered}
}

func (c *KeywordClassifier) IsAnime(item media.Item) bool {
	for _, genre := range item.Genres {
		if strings.EqualFold(genre, "anime") {
			return true
		}
	}
	title := strings.ToLower(item.Title)
	for _, kw := range c.keywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}
