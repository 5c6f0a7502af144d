package enrich

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a bookmark librarian. For each URL you are given,
find the real page content using web search, then describe it accurately.
Respond with a JSON array only, no prose and no markdown fences.`

// buildPrompt renders one prompt covering the whole batch, embedding any
// prefetched context per URL.
func buildPrompt(reqs []Request) string {
	var b strings.Builder

	b.WriteString("For each of the following URLs, produce one JSON object with fields:\n")
	b.WriteString(`- "url": the input URL, verbatim` + "\n")
	b.WriteString(`- "title": a short title for the page` + "\n")
	b.WriteString(`- "summary": roughly two sentences describing the content` + "\n")
	b.WriteString(`- "keywords": 3-5 short keywords` + "\n")
	b.WriteString(`- "publicationDate": the original publication date as "YYYY-MM-DD", or null if unknown` + "\n")
	b.WriteString("\nReturn a JSON array with exactly one object per URL, in the same order.\n")

	for i, req := range reqs {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, req.URL)
		if req.Context != "" {
			fmt.Fprintf(&b, "Known context for this URL:\n%s\n", req.Context)
		}
	}
	return b.String()
}
