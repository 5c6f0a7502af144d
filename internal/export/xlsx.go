package export

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/linkhoard/linkhoard/internal/model"
)

// XLSX renders records as a single-sheet spreadsheet.
func XLSX(records []model.Bookmark) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Bookmarks")
	if err != nil {
		return nil, eris.Wrap(err, "export: xlsx add sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{"URL", "Title", "Summary", "Keywords", "Date", "Status"} {
		header.AddCell().Value = col
	}

	for _, rec := range records {
		row := sheet.AddRow()
		row.AddCell().Value = rec.URL
		row.AddCell().Value = rec.Title
		row.AddCell().Value = rec.Summary
		row.AddCell().Value = strings.Join(rec.Keywords, ", ")
		row.AddCell().Value = rec.CreatedAt.Format("2006-01-02")
		row.AddCell().Value = string(rec.Status)
	}

	var b bytes.Buffer
	if err := file.Write(&b); err != nil {
		return nil, eris.Wrap(err, "export: xlsx write")
	}
	return b.Bytes(), nil
}
