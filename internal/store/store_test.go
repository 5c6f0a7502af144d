package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/enrich"
	"github.com/linkhoard/linkhoard/internal/importer"
	"github.com/linkhoard/linkhoard/internal/model"
)

// memPersister keeps the last saved collection in memory.
type memPersister struct {
	saved  [][]model.Bookmark
	loaded []model.Bookmark
}

func (m *memPersister) Save(_ context.Context, records []model.Bookmark) error {
	cp := make([]model.Bookmark, len(records))
	copy(cp, records)
	m.saved = append(m.saved, cp)
	return nil
}

func (m *memPersister) Load(_ context.Context) ([]model.Bookmark, error) {
	return m.loaded, nil
}

func (m *memPersister) Close() error { return nil }

func newTestStore(t *testing.T) (*Store, *memPersister) {
	t.Helper()
	p := &memPersister{}
	s := New(p)
	require.NoError(t, s.Open(context.Background()))
	return s, p
}

func admitOne(t *testing.T, s *Store, url string) model.Bookmark {
	t.Helper()
	created := s.Admit(context.Background(), []importer.Entry{{URL: url}})
	require.Len(t, created, 1)
	return created[0]
}

func TestAdmit_CreatesQueuedRecords(t *testing.T) {
	s, p := newTestStore(t)

	rec := admitOne(t, s, "https://a.example/")
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, model.StatusQueued, rec.Status)
	assert.Equal(t, "https://a.example/", rec.Title)
	assert.NotEmpty(t, rec.Summary)
	require.Len(t, p.saved, 1, "every mutation persists")
}

func TestAdmit_DedupAgainstExisting(t *testing.T) {
	s, _ := newTestStore(t)

	admitOne(t, s, "https://a.example/")
	created := s.Admit(context.Background(), []importer.Entry{{URL: "HTTPS://A.EXAMPLE/"}})
	assert.Empty(t, created, "case-insensitive duplicate must be dropped")
	assert.Len(t, s.List(), 1)
}

func TestAdmit_DedupWithinBatch(t *testing.T) {
	s, _ := newTestStore(t)

	created := s.Admit(context.Background(), []importer.Entry{
		{URL: "https://a.example/"},
		{URL: "https://a.example/"},
	})
	assert.Len(t, created, 1)
}

func TestAdmit_ErrorRecordDoesNotBlockReadmission(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := admitOne(t, s, "https://a.example/")
	require.NoError(t, s.MarkProcessing(ctx, rec.ID))
	require.NoError(t, s.ApplyFailure(ctx, rec.ID, "boom"))

	created := s.Admit(ctx, []importer.Entry{{URL: "https://a.example/"}})
	assert.Len(t, created, 1, "error records don't hold the URL")
}

func TestAdmit_ImportedDateSeedsCreatedAt(t *testing.T) {
	s, _ := newTestStore(t)

	imported := time.Unix(1700000000, 0).UTC()
	created := s.Admit(context.Background(), []importer.Entry{{URL: "https://b.example", ImportedAt: &imported}})
	require.Len(t, created, 1)
	assert.Equal(t, imported, created[0].CreatedAt)
}

func TestApplySuccess_Done(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := admitOne(t, s, "https://a.example/")
	require.NoError(t, s.MarkProcessing(ctx, rec.ID))

	pub := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.ApplySuccess(ctx, rec.ID, enrich.Result{
		Title:           "A",
		Summary:         "A perfectly good summary.",
		Keywords:        []string{"a", "A", "b"},
		Sources:         []model.Source{{URI: "https://src.example/"}},
		PublicationDate: &pub,
	}))

	got, ok := s.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusDone, got.Status)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, []string{"a", "b"}, got.Keywords)
	assert.Equal(t, pub, got.CreatedAt, "publication date overwrites createdAt")
}

func TestApplySuccess_ShortSummaryIsWarning(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, summary := range []string{"", "short"} {
		rec := admitOne(t, s, "https://w.example/"+summary)
		require.NoError(t, s.MarkProcessing(ctx, rec.ID))
		require.NoError(t, s.ApplySuccess(ctx, rec.ID, enrich.Result{Title: "T", Summary: summary}))

		got, _ := s.Get(rec.ID)
		assert.Equal(t, model.StatusWarning, got.Status, "summary %q", summary)
	}
}

func TestApplySuccess_KeepsCreatedAtWithoutPublicationDate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := admitOne(t, s, "https://a.example/")
	require.NoError(t, s.MarkProcessing(ctx, rec.ID))
	require.NoError(t, s.ApplySuccess(ctx, rec.ID, enrich.Result{Title: "T", Summary: "Long enough summary."}))

	got, _ := s.Get(rec.ID)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
}

func TestApplySuccess_DeletedRecordIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := admitOne(t, s, "https://a.example/")
	require.NoError(t, s.MarkProcessing(ctx, rec.ID))
	require.NoError(t, s.Delete(ctx, rec.ID))

	// Result arrives after the user deleted the record mid-flight.
	require.NoError(t, s.ApplySuccess(ctx, rec.ID, enrich.Result{Title: "T", Summary: "Whatever text here."}))
	assert.Empty(t, s.List())
}

func TestApplyFailure(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := admitOne(t, s, "https://a.example/")
	require.NoError(t, s.MarkProcessing(ctx, rec.ID))
	require.NoError(t, s.ApplyFailure(ctx, rec.ID, "quota exceeded"))

	got, _ := s.Get(rec.ID)
	assert.Equal(t, model.StatusError, got.Status)
	assert.Equal(t, "quota exceeded", got.Summary, "error message becomes the visible summary")
	assert.Equal(t, "quota exceeded", got.ErrorText)
	assert.Equal(t, errorTitle, got.Title)
}

func TestRetry_FromErrorClearsErrorText(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := admitOne(t, s, "https://a.example/")
	require.NoError(t, s.MarkProcessing(ctx, rec.ID))
	require.NoError(t, s.ApplyFailure(ctx, rec.ID, "boom"))
	require.NoError(t, s.Retry(ctx, rec.ID))

	got, _ := s.Get(rec.ID)
	assert.Equal(t, model.StatusQueued, got.Status)
	assert.Empty(t, got.ErrorText)

	// A later successful enrichment completes the cycle.
	require.NoError(t, s.MarkProcessing(ctx, rec.ID))
	require.NoError(t, s.ApplySuccess(ctx, rec.ID, enrich.Result{Title: "A", Summary: "Recovered just fine now."}))
	got, _ = s.Get(rec.ID)
	assert.Equal(t, model.StatusDone, got.Status)
}

func TestRetry_NonTerminalRejected(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := admitOne(t, s, "https://a.example/")
	require.Error(t, s.Retry(ctx, rec.ID), "queued")

	require.NoError(t, s.MarkProcessing(ctx, rec.ID))
	require.Error(t, s.Retry(ctx, rec.ID), "processing belongs to the scheduler")
}

func TestStatusTransitions_IllegalRejected(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := admitOne(t, s, "https://a.example/")
	// queued → done is not reachable without processing.
	err := s.ApplySuccess(ctx, rec.ID, enrich.Result{Title: "T", Summary: "Long enough summary."})
	require.Error(t, err)

	// queued → error is not reachable either.
	err = s.ApplyFailure(ctx, rec.ID, "nope")
	require.Error(t, err)
}

func TestUpdate_EnforcesKeywordInvariants(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := admitOne(t, s, "https://a.example/")
	rec.Title = "Edited"
	rec.Keywords = []string{"Go", "go", "", "tools"}
	require.NoError(t, s.Update(ctx, rec))

	got, _ := s.Get(rec.ID)
	assert.Equal(t, "Edited", got.Title)
	assert.Equal(t, []string{"Go", "tools"}, got.Keywords)
}

func TestDeleteAndClear(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a := admitOne(t, s, "https://a.example/")
	admitOne(t, s, "https://b.example/")

	require.NoError(t, s.Delete(ctx, a.ID))
	assert.Len(t, s.List(), 1)

	require.Error(t, s.Delete(ctx, a.ID), "double delete")

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.List())
}

func TestQueued_ReturnsOldestFirst(t *testing.T) {
	s, _ := newTestStore(t)

	a := admitOne(t, s, "https://a.example/")
	b := admitOne(t, s, "https://b.example/")

	queued := s.Queued()
	require.Len(t, queued, 2)
	assert.Equal(t, a.ID, queued[0].ID)
	assert.Equal(t, b.ID, queued[1].ID)
}
