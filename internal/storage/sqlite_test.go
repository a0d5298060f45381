package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/recall-mcp/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func boolPtr(b bool) *bool { return &b }

func TestSaveAndGetRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	occurred := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	record := &types.ExperienceRecord{
		ID:                "rec-1",
		CreatedAt:         time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
		OccurredAt:        &occurred,
		Text:              "morning walk by the river",
		Who:               "claude",
		Perspective:       "I",
		ProcessingStage:   "during",
		ContentType:       "experience",
		Crafted:           boolPtr(false),
		Qualities:         []string{"embodied.sensing", "mood.open"},
		QualityVector:     types.QualityVector{0.9, 0.2, 0.8, 0.1, 0.7, 0.5, 0.3},
		SemanticEmbedding: []float32{0.1, -0.4, 0.25},
		Reflects:          nil,
	}
	require.NoError(t, store.SaveRecord(ctx, record))

	got, err := store.GetRecord(ctx, "rec-1")
	require.NoError(t, err)

	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.Text, got.Text)
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.OccurredAt)
	assert.True(t, occurred.Equal(*got.OccurredAt))
	assert.Equal(t, record.Who, got.Who)
	assert.Equal(t, record.Perspective, got.Perspective)
	assert.Equal(t, record.ProcessingStage, got.ProcessingStage)
	assert.Equal(t, record.ContentType, got.ContentType)
	require.NotNil(t, got.Crafted)
	assert.False(t, *got.Crafted)
	assert.Equal(t, record.Qualities, got.Qualities)
	assert.Equal(t, record.QualityVector, got.QualityVector)
	assert.Equal(t, record.SemanticEmbedding, got.SemanticEmbedding)
	assert.Nil(t, got.Reflects)
}

func TestGetRecordNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRecordUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := &types.ExperienceRecord{
		ID:        "rec-1",
		CreatedAt: time.Now().UTC(),
		Text:      "first version",
	}
	require.NoError(t, store.SaveRecord(ctx, record))

	record.Text = "second version"
	record.Reflects = []string{"rec-0"}
	require.NoError(t, store.SaveRecord(ctx, record))

	got, err := store.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "second version", got.Text)
	assert.Equal(t, []string{"rec-0"}, got.Reflects)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSaveRecordRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveRecord(ctx, &types.ExperienceRecord{Text: "no id"})
	assert.ErrorIs(t, err, types.ErrMissingRecordID)

	err = store.SaveRecord(ctx, &types.ExperienceRecord{
		ID:            "bad-vec",
		CreatedAt:     time.Now().UTC(),
		QualityVector: types.QualityVector{0.5, 0.5},
	})
	assert.ErrorIs(t, err, types.ErrInvalidQualityVector)
}

func TestGetAllRecordsOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, rec := range []struct {
		id     string
		offset time.Duration
	}{
		{"c", 2 * time.Hour},
		{"a", 0},
		{"b", time.Hour},
	} {
		require.NoError(t, store.SaveRecord(ctx, &types.ExperienceRecord{
			ID:        rec.id,
			CreatedAt: base.Add(rec.offset),
			Text:      "entry " + rec.id,
		}))
	}

	records, err := store.GetAllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, "c", records[2].ID)
}

func TestDeleteRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecord(ctx, &types.ExperienceRecord{
		ID:        "rec-1",
		CreatedAt: time.Now().UTC(),
		Text:      "ephemeral",
	}))
	require.NoError(t, store.DeleteRecord(ctx, "rec-1"))

	_, err := store.GetRecord(ctx, "rec-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, store.DeleteRecord(ctx, "rec-1"))
}

func TestVectorRoundTrip(t *testing.T) {
	vector := []float32{0.5, -1.25, 0, 3.75}
	blob := serializeVector(vector)
	assert.Len(t, blob, 16)
	assert.Equal(t, vector, deserializeVector(blob))

	assert.Nil(t, serializeVector(nil))
	assert.Nil(t, deserializeVector(nil))
}
