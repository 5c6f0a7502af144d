// Package export renders the record collection into interchange formats.
// Every generator is a pure function from records to bytes.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/linkhoard/linkhoard/internal/model"
)

// Format names accepted by Render.
const (
	FormatNetscape = "netscape"
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatXLSX     = "xlsx"
)

// Render dispatches to the named format generator.
func Render(format string, records []model.Bookmark) ([]byte, error) {
	switch format {
	case FormatNetscape:
		return Netscape(records), nil
	case FormatCSV:
		return CSV(records)
	case FormatJSON:
		return JSON(records)
	case FormatMarkdown:
		return Markdown(records), nil
	case FormatHTML:
		return HTML(records), nil
	case FormatXLSX:
		return XLSX(records)
	default:
		return nil, eris.Errorf("export: unknown format %q", format)
	}
}

// Netscape renders the classic browser bookmark-file format.
func Netscape(records []model.Bookmark) []byte {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n<H1>Bookmarks</H1>\n<DL><p>\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "    <DT><A HREF=%q ADD_DATE=%q>%s</A>\n",
			rec.URL, fmt.Sprint(rec.CreatedAt.Unix()), html.EscapeString(rec.Title))
	}
	b.WriteString("</DL><p>\n")
	return b.Bytes()
}

// CSV renders records with RFC 4180 quoting.
func CSV(records []model.Bookmark) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"url", "title", "summary", "keywords", "date", "status"}); err != nil {
		return nil, eris.Wrap(err, "export: csv header")
	}
	for _, rec := range records {
		row := []string{
			rec.URL,
			rec.Title,
			rec.Summary,
			strings.Join(rec.Keywords, ", "),
			rec.CreatedAt.Format("2006-01-02"),
			string(rec.Status),
		}
		if err := w.Write(row); err != nil {
			return nil, eris.Wrap(err, "export: csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: csv flush")
	}
	return b.Bytes(), nil
}

// JSON renders the raw record collection, indented.
func JSON(records []model.Bookmark) ([]byte, error) {
	if records == nil {
		records = []model.Bookmark{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	return data, eris.Wrap(err, "export: json")
}

// Markdown renders one section per record.
func Markdown(records []model.Bookmark) []byte {
	var b bytes.Buffer
	b.WriteString("# Bookmarks\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "\n## [%s](%s)\n\n", rec.Title, rec.URL)
		if rec.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", rec.Summary)
		}
		if len(rec.Keywords) > 0 {
			fmt.Fprintf(&b, "Keywords: %s\n\n", strings.Join(rec.Keywords, ", "))
		}
		fmt.Fprintf(&b, "Date: %s\n", rec.CreatedAt.Format("2006-01-02"))
	}
	return b.Bytes()
}

// HTML renders a standalone, self-contained page.
func HTML(records []model.Bookmark) []byte {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Bookmarks</title>\n</head>\n<body>\n<h1>Bookmarks</h1>\n<ul>\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "  <li><a href=%q>%s</a>", rec.URL, html.EscapeString(rec.Title))
		if rec.Summary != "" {
			fmt.Fprintf(&b, " &mdash; %s", html.EscapeString(rec.Summary))
		}
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n</body>\n</html>\n")
	return b.Bytes()
}
