// Package store owns the canonical bookmark collection and all status
// transitions. The in-memory slice is replaced wholesale on every mutation
// and written through to the injected Persister.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/enrich"
	"github.com/linkhoard/linkhoard/internal/importer"
	"github.com/linkhoard/linkhoard/internal/model"
)

// warningSummaryLen is the minimum summary length for a result to count as
// fully done rather than warning.
const warningSummaryLen = 10

// errorTitle is the sentinel title for failed records.
const errorTitle = "Enrichment failed"

// placeholderSummary is shown while a record waits in the queue.
const placeholderSummary = "Waiting for enrichment."

// Store is the authoritative record collection plus its persistence side
// effect. All mutations go through it; persistence failures are logged and
// never fail the mutation.
type Store struct {
	mu      sync.RWMutex
	records []model.Bookmark
	persist Persister
}

// New creates a Store backed by p.
func New(p Persister) *Store {
	return &Store{persist: p}
}

// Open loads the persisted collection, applying the legacy migration.
func (s *Store) Open(ctx context.Context) error {
	records, err := s.persist.Load(ctx)
	if err != nil {
		return eris.Wrap(err, "store: open")
	}
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

// List returns a copy of all records in insertion order.
func (s *Store) List() []model.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Bookmark, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (model.Bookmark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return model.Bookmark{}, false
}

// Queued returns all records currently in the queued state, oldest first.
func (s *Store) Queued() []model.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Bookmark
	for _, rec := range s.records {
		if rec.Status == model.StatusQueued {
			out = append(out, rec)
		}
	}
	return out
}

// Admit creates queued records for entries whose URL is not already present
// among non-error records (case-insensitive), deduplicating within the batch
// as well. Returns the newly created records.
func (s *Store) Admit(ctx context.Context, entries []importer.Entry) []model.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := make(map[string]struct{})
	exists := func(url string) bool {
		for _, rec := range s.records {
			if rec.Status != model.StatusError && model.SameURL(rec.URL, url) {
				return true
			}
		}
		return false
	}

	var created []model.Bookmark
	next := append([]model.Bookmark(nil), s.records...)
	for _, entry := range entries {
		if entry.URL == "" || exists(entry.URL) {
			continue
		}
		if _, dup := taken[model.FoldURL(entry.URL)]; dup {
			continue
		}
		taken[model.FoldURL(entry.URL)] = struct{}{}

		createdAt := time.Now().UTC()
		if entry.ImportedAt != nil {
			createdAt = *entry.ImportedAt
		}
		rec := model.Bookmark{
			ID:        uuid.New().String(),
			URL:       entry.URL,
			Title:     entry.URL,
			Summary:   placeholderSummary,
			Keywords:  []string{},
			CreatedAt: createdAt,
			Status:    model.StatusQueued,
		}
		next = append(next, rec)
		created = append(created, rec)
	}

	if len(created) > 0 {
		s.replace(ctx, next)
	}
	return created
}

// MarkProcessing moves a queued record into processing.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.StatusProcessing, func(rec *model.Bookmark) {})
}

// Requeue returns an in-flight record to the queue (run abort path).
func (s *Store) Requeue(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.StatusQueued, func(rec *model.Bookmark) {})
}

// ApplySuccess merges an enrichment result onto the record. A missing id is
// a no-op: the user may have deleted the record mid-flight.
func (s *Store) ApplySuccess(ctx context.Context, id string, result enrich.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		zap.L().Debug("store: result for deleted record dropped", zap.String("id", id))
		return nil
	}

	target := model.StatusDone
	if len(result.Summary) < warningSummaryLen {
		target = model.StatusWarning
	}
	if !model.CanTransition(s.records[idx].Status, target) {
		return eris.Errorf("store: illegal transition %s -> %s for %s", s.records[idx].Status, target, id)
	}

	next := append([]model.Bookmark(nil), s.records...)
	rec := &next[idx]
	rec.Title = result.Title
	rec.Summary = result.Summary
	rec.Keywords = model.NormalizeKeywords(result.Keywords)
	rec.Sources = result.Sources
	rec.ErrorText = ""
	if result.PublicationDate != nil {
		rec.CreatedAt = *result.PublicationDate
	}
	rec.Status = target

	s.replace(ctx, next)
	return nil
}

// ApplyFailure marks the record failed, with the message as its visible
// summary. A missing id is a no-op.
func (s *Store) ApplyFailure(ctx context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}
	if !model.CanTransition(s.records[idx].Status, model.StatusError) {
		return eris.Errorf("store: illegal transition %s -> error for %s", s.records[idx].Status, id)
	}

	next := append([]model.Bookmark(nil), s.records...)
	rec := &next[idx]
	rec.Status = model.StatusError
	rec.Title = errorTitle
	rec.Summary = message
	rec.ErrorText = message

	s.replace(ctx, next)
	return nil
}

// Retry re-arms a terminal record to queued and clears its error text.
// In-flight records belong to the scheduler and cannot be retried.
func (s *Store) Retry(ctx context.Context, id string) error {
	if rec, ok := s.Get(id); ok && !rec.Status.Terminal() {
		return eris.Errorf("store: cannot retry record in %s status: %s", rec.Status, id)
	}
	return s.transition(ctx, id, model.StatusQueued, func(rec *model.Bookmark) {
		rec.ErrorText = ""
		if rec.Title == errorTitle {
			rec.Title = rec.URL
			rec.Summary = placeholderSummary
		}
	})
}

// Update overwrites an existing record with a user edit. Status is not
// editable this way; keyword invariants are enforced.
func (s *Store) Update(ctx context.Context, in model.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(in.ID)
	if idx < 0 {
		return eris.Errorf("store: record not found: %s", in.ID)
	}

	next := append([]model.Bookmark(nil), s.records...)
	rec := &next[idx]
	rec.Title = in.Title
	rec.Summary = in.Summary
	rec.Keywords = model.NormalizeKeywords(in.Keywords)

	s.replace(ctx, next)
	return nil
}

// Delete removes one record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return eris.Errorf("store: record not found: %s", id)
	}
	next := append([]model.Bookmark(nil), s.records[:idx]...)
	next = append(next, s.records[idx+1:]...)
	s.replace(ctx, next)
	return nil
}

// Clear removes all records.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(ctx, nil)
	return nil
}

// Close flushes nothing (every mutation already persisted) and closes the
// persister.
func (s *Store) Close() error {
	return s.persist.Close()
}

// transition applies a table-checked status change plus a mutation fn.
func (s *Store) transition(ctx context.Context, id string, to model.Status, mutate func(*model.Bookmark)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return eris.Errorf("store: record not found: %s", id)
	}
	from := s.records[idx].Status
	if !model.CanTransition(from, to) {
		return eris.Errorf("store: illegal transition %s -> %s for %s", from, to, id)
	}

	next := append([]model.Bookmark(nil), s.records...)
	next[idx].Status = to
	mutate(&next[idx])
	s.replace(ctx, next)
	return nil
}

// indexOf finds a record by id. Callers hold the lock.
func (s *Store) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// replace swaps in the new collection and persists it. Callers hold the lock.
func (s *Store) replace(ctx context.Context, next []model.Bookmark) {
	s.records = next
	if err := s.persist.Save(ctx, next); err != nil {
		zap.L().Error("store: persist failed", zap.Error(err))
	}
}
