package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dossier/internal/model"
)

func openTestDB(t *testing.T) *SQLiteBackend {
	t.Helper()
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "dossier.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func rawRecord(metaID, source string) model.SourceRecord {
	return model.SourceRecord{
		Meta: model.SourceMeta{ID: metaID, Source: source, Timestamp: "2024-01-01T00:00:00"},
		Data: []model.Attribute{{Name: "title", Data: "Jane"}},
	}
}

func testDocument(wikidataID string, created time.Time) *model.PoliticianDocument {
	return &model.PoliticianDocument{
		ID:         model.FallbackID(wikidataID),
		WikidataID: wikidataID,
		Title:      "Jane Doe",
		Type:       model.DocumentType,
		Metadata:   []model.MetadataItem{{SubQuestion: "Jane Doe", Answer: "Jane Doe"}},
		CreatedAt:  model.NewTimestamp(created),
		UpdatedAt:  model.NewTimestamp(created),
	}
}

func TestOpenSQLite_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dossier.db")

	b, err := OpenSQLite(path, 0)
	require.NoError(t, err)
	version, err := schemaVersion(b.conn)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), version)
	require.NoError(t, b.Close())

	again, err := OpenSQLite(path, 0)
	require.NoError(t, err)
	defer again.Close()
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite("", 0)
	assert.Error(t, err)
}

func TestSQLite_SearchRawFiltersByMetaID(t *testing.T) {
	b := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, b.PutRaw(ctx, rawRecord("Q1", "https://en.wikipedia.org/wiki/Jane")))
	require.NoError(t, b.PutRaw(ctx, rawRecord("Q2", "https://en.wikipedia.org/wiki/John")))
	require.NoError(t, b.PutRaw(ctx, rawRecord("Q1", "https://www.wikidata.org/wiki/Q1")))

	records, err := b.SearchRaw(ctx, "Q1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Jane", records[0].Meta.Source)
	assert.Equal(t, "https://www.wikidata.org/wiki/Q1", records[1].Meta.Source)
	assert.Equal(t, "Jane", records[0].Data[0].Data)

	none, err := b.SearchRaw(ctx, "Q404")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_SearchRawHonorsLimit(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "dossier.db"), 2)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, b.PutRaw(ctx, rawRecord("Q1", "https://en.wikipedia.org/wiki/Jane")))
	}

	records, err := b.SearchRaw(ctx, "Q1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSQLite_IndexGeneratesKeyWithoutIDs(t *testing.T) {
	b := openTestDB(t)

	doc := testDocument("Q9", time.Now())
	doc.ID = ""
	key, err := b.Index(context.Background(), "", doc)
	require.NoError(t, err)
	assert.Len(t, key, 36)
}

func TestSQLite_IndexFirstWriteThenUpsertKeepsKey(t *testing.T) {
	b := openTestDB(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	doc := testDocument("Q7747", created)
	key, err := b.Index(ctx, "", doc)
	require.NoError(t, err)
	require.Equal(t, "7747", key)

	hits, err := b.FindByExternalID(ctx, "Q7747")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, key, hits[0].ID)
	assert.True(t, hits[0].CreatedAt.Equal(created))

	doc.Title = "Jane Q. Doe"
	doc.UpdatedAt = model.NewTimestamp(created.Add(time.Hour))
	again, err := b.Index(ctx, key, doc)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	count, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := b.GetDocument(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Jane Q. Doe", stored.Title)
	assert.True(t, stored.CreatedAt.Equal(created))
	assert.True(t, stored.UpdatedAt.After(stored.CreatedAt.Time))
}

func TestSQLite_GetDocumentMissing(t *testing.T) {
	b := openTestDB(t)

	doc, err := b.GetDocument(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSQLite_FindByExternalIDKeepsInsertionOrder(t *testing.T) {
	b := openTestDB(t)
	ctx := context.Background()

	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := b.Index(ctx, "a", testDocument("Q1", later))
	require.NoError(t, err)
	_, err = b.Index(ctx, "b", testDocument("Q1", earlier))
	require.NoError(t, err)

	hits, err := b.FindByExternalID(ctx, "Q1")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), model.IndexConfig{Backend: "elastic"})
	assert.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	b, err := Open(context.Background(), model.IndexConfig{
		Backend:    BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "x.db"),
	})
	require.NoError(t, err)
	assert.NoError(t, b.Close())
}
