package prefetch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const maxPlaylistTitles = 15

var (
	videoHosts = []string{"youtube.com/", "youtu.be/"}

	videoIDRe    = regexp.MustCompile(`(?:[?&]v=|youtu\.be/|/embed/|/shorts/)([\w-]{11})`)
	playlistIDRe = regexp.MustCompile(`[?&]list=([\w-]+)`)

	// <meta> attribute order and quoting vary across pages.
	metaTitleRe = regexp.MustCompile(`<meta\s+(?:property|name)=["']og:title["']\s+content=["']([^"']+)["']`)
	metaDescRe  = regexp.MustCompile(`<meta\s+(?:property|name)=["'](?:og:)?description["']\s+content=["']([^"']+)["']`)

	// Playlist item titles live in inline JSON: "title":{"runs":[{"text":...}]}.
	runsTitleRe = regexp.MustCompile(`"title":\{"runs":\[(\{.*?\})\]`)
)

func isVideo(u string) bool {
	for _, h := range videoHosts {
		if strings.Contains(u, h) {
			return true
		}
	}
	return false
}

// fetchVideo retrieves title/description for a video or playlist URL by
// fetching the canonical page through the configured relay. Video ID takes
// priority when both a video and playlist ID are present.
func (f *Fetcher) fetchVideo(ctx context.Context, videoURL string) *Context {
	if f.cfg.RelayBaseURL == "" {
		return nil
	}

	var videoID, playlistID string
	if m := videoIDRe.FindStringSubmatch(videoURL); m != nil {
		videoID = m[1]
	}
	if m := playlistIDRe.FindStringSubmatch(videoURL); m != nil {
		playlistID = m[1]
	}

	var canonical string
	switch {
	case videoID != "":
		canonical = "https://www.youtube.com/watch?v=" + videoID
	case playlistID != "":
		canonical = "https://www.youtube.com/playlist?list=" + playlistID
	default:
		return nil
	}

	body := f.get(ctx, strings.TrimSuffix(f.cfg.RelayBaseURL, "/")+"/"+canonical, nil)
	if body == "" {
		return nil
	}

	var parts []string
	if m := metaTitleRe.FindStringSubmatch(body); m != nil {
		parts = append(parts, "Title: "+m[1])
	}
	if m := metaDescRe.FindStringSubmatch(body); m != nil {
		parts = append(parts, "Description: "+m[1])
	}

	if videoID == "" && playlistID != "" {
		if titles := playlistItemTitles(body); len(titles) > 0 {
			parts = append(parts, fmt.Sprintf("Playlist items: %s", strings.Join(titles, "; ")))
		}
	}

	if len(parts) == 0 {
		return nil
	}
	return &Context{Platform: "video", Text: strings.Join(parts, "\n")}
}

// playlistItemTitles scrapes item titles out of the inline JSON structures
// embedded in a playlist page, deduplicated and capped.
func playlistItemTitles(body string) []string {
	var titles []string
	seen := make(map[string]struct{})
	for _, m := range runsTitleRe.FindAllStringSubmatch(body, -1) {
		title := gjson.Get(m[1], "text").String()
		if title == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
		if len(titles) >= maxPlaylistTitles {
			break
		}
	}
	return titles
}
