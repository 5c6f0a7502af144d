package prefetch

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	socialAPIBase    = "https://api.twitter.com/2/tweets/"
	socialOEmbedBase = "https://publish.twitter.com/oembed?url="
)

var (
	socialHosts = []string{"twitter.com/", "x.com/"}
	postIDRe    = regexp.MustCompile(`/status(?:es)?/(\d+)`)
	tagRe       = regexp.MustCompile(`<[^>]*>`)
)

func isSocialPost(u string) bool {
	for _, h := range socialHosts {
		if strings.Contains(u, h) {
			return true
		}
	}
	return false
}

// fetchSocial retrieves the text of a social post. With a bearer token it
// tries the authenticated API first, then falls back to the public oEmbed
// endpoint, which returns an HTML fragment to strip down to plain text.
func (f *Fetcher) fetchSocial(ctx context.Context, postURL string) *Context {
	m := postIDRe.FindStringSubmatch(postURL)
	if m == nil {
		return nil
	}
	postID := m[1]

	if f.cfg.BearerToken != "" {
		header := http.Header{"Authorization": {"Bearer " + f.cfg.BearerToken}}
		body := f.get(ctx, socialAPIBase+postID+"?tweet.fields=text,author_id", header)
		if text := gjson.Get(body, "data.text").String(); text != "" {
			return &Context{Platform: "social", Text: text}
		}
	}

	body := f.get(ctx, socialOEmbedBase+url.QueryEscape(postURL), nil)
	if body == "" {
		return nil
	}
	html := gjson.Get(body, "html").String()
	text := strings.TrimSpace(tagRe.ReplaceAllString(html, " "))
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	if author := gjson.Get(body, "author_name").String(); author != "" {
		text = author + ": " + text
	}
	return &Context{Platform: "social", Text: text}
}
