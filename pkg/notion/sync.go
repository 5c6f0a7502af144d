package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/model"
)

// Property names the sync maintains on the target database.
const (
	propURL         = "URL"
	propDescription = "Description"
	propKeywords    = "Keywords"
	propDate        = "Date"
)

// SyncResult counts upsert outcomes for one sync run.
type SyncResult struct {
	Synced int
	Failed int
}

// Sync ensures the target database carries the expected columns, then
// upserts one page per record keyed by URL. Per-record failures are counted
// and logged, never fatal for the batch.
func Sync(ctx context.Context, c Client, dbID string, records []model.Bookmark) (SyncResult, error) {
	var res SyncResult

	if err := ensureProperties(ctx, c, dbID); err != nil {
		return res, eris.Wrap(err, "notion: ensure properties")
	}

	for _, rec := range records {
		if err := upsertRecord(ctx, c, dbID, rec); err != nil {
			zap.L().Warn("notion: record sync failed",
				zap.String("url", rec.URL),
				zap.Error(err),
			)
			res.Failed++
			continue
		}
		res.Synced++
	}
	return res, nil
}

// ensureProperties adds any missing expected columns to the database schema.
func ensureProperties(ctx context.Context, c Client, dbID string) error {
	db, err := c.GetDatabase(ctx, dbID)
	if err != nil {
		return err
	}

	missing := notionapi.PropertyConfigs{}
	if _, ok := db.Properties[propURL]; !ok {
		missing[propURL] = notionapi.URLPropertyConfig{Type: notionapi.PropertyConfigTypeURL}
	}
	if _, ok := db.Properties[propDescription]; !ok {
		missing[propDescription] = notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText}
	}
	if _, ok := db.Properties[propKeywords]; !ok {
		missing[propKeywords] = notionapi.MultiSelectPropertyConfig{
			Type:        notionapi.PropertyConfigTypeMultiSelect,
			MultiSelect: notionapi.Select{Options: []notionapi.Option{}},
		}
	}
	if _, ok := db.Properties[propDate]; !ok {
		missing[propDate] = notionapi.DatePropertyConfig{Type: notionapi.PropertyConfigTypeDate}
	}

	if len(missing) == 0 {
		return nil
	}
	_, err = c.UpdateDatabase(ctx, dbID, &notionapi.DatabaseUpdateRequest{Properties: missing})
	return err
}

// upsertRecord creates or updates the page whose URL property matches.
func upsertRecord(ctx context.Context, c Client, dbID string, rec model.Bookmark) error {
	existing, err := findByURL(ctx, c, dbID, rec.URL)
	if err != nil {
		return err
	}

	props := recordProperties(rec)
	if existing != "" {
		_, err = c.UpdatePage(ctx, existing, &notionapi.PageUpdateRequest{Properties: props})
		return err
	}

	_, err = c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	return err
}

func findByURL(ctx context.Context, c Client, dbID, url string) (string, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: propURL,
			URL:      &notionapi.TextFilterCondition{Equals: url},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return string(resp.Results[0].ID), nil
}

// recordProperties maps a bookmark onto page properties. The database's
// title property is assumed to be named "Name" (Notion's default).
func recordProperties(rec model.Bookmark) notionapi.Properties {
	keywords := make([]notionapi.Option, 0, len(rec.Keywords))
	for _, kw := range rec.Keywords {
		keywords = append(keywords, notionapi.Option{Name: kw})
	}

	date := notionapi.Date(rec.CreatedAt)
	return notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: rec.Title}}},
		},
		propURL: notionapi.URLProperty{URL: rec.URL},
		propDescription: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: rec.Summary}}},
		},
		propKeywords: notionapi.MultiSelectProperty{MultiSelect: keywords},
		propDate:     notionapi.DateProperty{Date: &notionapi.DateObject{Start: &date}},
	}
}
