package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/linkhoard/linkhoard/internal/model"
)

// collectionKey is the fixed key the whole record collection is stored under.
const collectionKey = "bookmarks"

// Persister writes and reads the full record collection as one serialized
// JSON array under a fixed key.
type Persister interface {
	Save(ctx context.Context, records []model.Bookmark) error
	Load(ctx context.Context) ([]model.Bookmark, error)
	Close() error
}

// legacyRecord mirrors model.Bookmark with every field optional, so that
// data written by older versions still loads.
type legacyRecord struct {
	ID        string         `json:"id"`
	URL       string         `json:"url"`
	Title     string         `json:"title"`
	Summary   string         `json:"summary"`
	Keywords  []string       `json:"keywords"`
	Sources   []model.Source `json:"sources"`
	CreatedAt string         `json:"createdAt"`
	Status    string         `json:"status"`
	ErrorText string         `json:"errorText"`
}

// decodeRecords unmarshals a stored JSON array, filling generated defaults
// for fields missing from legacy data: id, status, createdAt.
func decodeRecords(data []byte) ([]model.Bookmark, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var raw []legacyRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "store: decode records")
	}

	records := make([]model.Bookmark, 0, len(raw))
	for _, lr := range raw {
		rec := model.Bookmark{
			ID:        lr.ID,
			URL:       lr.URL,
			Title:     lr.Title,
			Summary:   lr.Summary,
			Keywords:  model.NormalizeKeywords(lr.Keywords),
			Sources:   lr.Sources,
			Status:    model.Status(lr.Status),
			ErrorText: lr.ErrorText,
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if !rec.Status.Valid() {
			rec.Status = model.StatusDone
		}
		// Records that were mid-flight when the process died go back to the
		// queue rather than staying stuck.
		if rec.Status == model.StatusProcessing {
			rec.Status = model.StatusQueued
		}
		rec.CreatedAt = parseCreatedAt(lr.CreatedAt)
		records = append(records, rec)
	}
	return records, nil
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func encodeRecords(records []model.Bookmark) ([]byte, error) {
	if records == nil {
		records = []model.Bookmark{}
	}
	data, err := json.Marshal(records)
	return data, eris.Wrap(err, "store: encode records")
}
