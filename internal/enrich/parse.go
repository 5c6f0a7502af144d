package enrich

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/linkhoard/linkhoard/internal/model"
)

// responseItem is the intermediate schema for one object of the model's JSON
// array. Every field is optional; validation fills defaults rather than
// trusting the payload shape.
type responseItem struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Keywords        []string `json:"keywords"`
	PublicationDate string   `json:"publicationDate"`
}

// parseResponse extracts the JSON array from the model output. Markdown
// fences are tolerated; anything that does not parse as a JSON array is an
// error (the caller treats it as retryable).
func parseResponse(text string) ([]responseItem, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// The model may wrap the array in prose despite instructions; take the
	// outermost bracket span.
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			text = text[start : end+1]
		}
	}

	var items []responseItem
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, eris.Wrap(err, "enrich: response is not a JSON array")
	}
	return items, nil
}

// matchItem finds the response object for an input URL: exact
// case-insensitive match first, then substring containment in either
// direction to tolerate the model normalizing the URL.
func matchItem(inputURL string, items []responseItem) *responseItem {
	for i := range items {
		if strings.EqualFold(items[i].URL, inputURL) {
			return &items[i]
		}
	}
	lowerInput := strings.ToLower(inputURL)
	for i := range items {
		lowerItem := strings.ToLower(items[i].URL)
		if lowerItem == "" {
			continue
		}
		if strings.Contains(lowerInput, lowerItem) || strings.Contains(lowerItem, lowerInput) {
			return &items[i]
		}
	}
	return nil
}

// buildResult validates a matched item (or fabricates fallback fields for an
// unmatched input) into a Result.
func buildResult(inputURL string, item *responseItem, sources []model.Source) Result {
	res := Result{
		URL:      inputURL,
		Keywords: []string{},
		Sources:  sources,
	}
	if item != nil {
		res.Title = strings.TrimSpace(item.Title)
		res.Summary = strings.TrimSpace(item.Summary)
		res.Keywords = model.NormalizeKeywords(item.Keywords)
		res.PublicationDate = parsePublicationDate(item.PublicationDate)
	}
	if res.Title == "" {
		res.Title = fallbackTitle(inputURL)
	}
	if item == nil {
		res.Summary = FallbackSummary
	}
	return res
}

// parsePublicationDate accepts only strict YYYY-MM-DD values with year > 1970.
func parsePublicationDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil || t.Year() <= 1970 {
		return nil
	}
	return &t
}

// fallbackTitle derives a readable title from the URL itself: the second
// path segment when present, else the first, else the host.
func fallbackTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	segments := []string{}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	var title string
	switch {
	case len(segments) >= 2:
		title = segments[1]
	case len(segments) == 1:
		title = segments[0]
	default:
		title = u.Host
	}
	title = strings.NewReplacer("-", " ", "_", " ").Replace(title)
	if title == "" {
		return rawURL
	}
	return title
}
