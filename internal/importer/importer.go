// Package importer parses pasted bookmark text into import entries.
//
// Input is free text, one logical item per line: plain URLs, numbered or
// bulleted lists, or fragments of a Netscape bookmark file (anchor tags with
// an optional ADD_DATE Unix-seconds attribute).
package importer

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is one normalized import item.
type Entry struct {
	URL        string
	ImportedAt *time.Time
}

var (
	// <A HREF="..." ... ADD_DATE="1700000000" ...>
	anchorWithDateRe = regexp.MustCompile(`(?i)<a\s+[^>]*href="([^"]+)"[^>]*add_date="(\d+)"`)
	// ADD_DATE may precede HREF in some exports.
	dateBeforeHrefRe = regexp.MustCompile(`(?i)<a\s+[^>]*add_date="(\d+)"[^>]*href="([^"]+)"`)
	bareAnchorRe     = regexp.MustCompile(`(?i)<a\s+[^>]*href="([^"]+)"`)
	bulletPrefixRe   = regexp.MustCompile(`^(\d+[.)]\s+|[-*+]\s+)`)
)

// Parse splits raw pasted text into ordered import entries. Lines that carry
// no URL (empty lines, list container markup) are discarded. Emitted URLs
// have tracking query parameters stripped.
func Parse(text string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := anchorWithDateRe.FindStringSubmatch(line); m != nil {
			entries = append(entries, newEntry(m[1], m[2]))
			continue
		}
		if m := dateBeforeHrefRe.FindStringSubmatch(line); m != nil {
			entries = append(entries, newEntry(m[2], m[1]))
			continue
		}
		if m := bareAnchorRe.FindStringSubmatch(line); m != nil {
			entries = append(entries, newEntry(m[1], ""))
			continue
		}
		if strings.HasPrefix(line, "<") {
			// Markup noise: list container tags, <DT>, <H3> headers.
			continue
		}

		line = bulletPrefixRe.ReplaceAllString(line, "")
		if line == "" {
			continue
		}
		entries = append(entries, newEntry(line, ""))
	}
	return entries
}

func newEntry(rawURL, unixSeconds string) Entry {
	e := Entry{URL: StripTracking(rawURL)}
	if unixSeconds != "" {
		if secs, err := strconv.ParseInt(unixSeconds, 10, 64); err == nil {
			t := time.Unix(secs, 0).UTC()
			e.ImportedAt = &t
		}
	}
	return e
}

// trackingPrefixes are query-parameter key prefixes that identify campaign
// tracking parameters.
var trackingPrefixes = []string{"utm_"}

// StripTracking removes tracking query parameters from rawURL, preserving
// all other URL structure. Idempotent. Unparseable input passes through
// unchanged.
func StripTracking(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.RawQuery == "" {
		return rawURL
	}

	q := u.Query()
	changed := false
	for key := range q {
		for _, prefix := range trackingPrefixes {
			if strings.HasPrefix(strings.ToLower(key), prefix) {
				q.Del(key)
				changed = true
				break
			}
		}
	}
	if !changed {
		return rawURL
	}
	u.RawQuery = q.Encode()
	return u.String()
}
