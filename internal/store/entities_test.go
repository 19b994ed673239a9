package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
)

func refs(ids ...string) []ancestry.Value {
	out := make([]ancestry.Value, len(ids))
	for i, id := range ids {
		out[i] = ancestry.Value{Raw: id, Ref: id}
	}
	return out
}

func collectionRecords() []EntityRecord {
	return []EntityRecord{
		{ID: "A", Type: "Collection", Label: "Archive"},
		{ID: "B", Type: "Collection", Label: "Books", Properties: map[string][]ancestry.Value{"memberOf": refs("A")}},
		{ID: "C", Type: "Collection", Label: "Charters", Properties: map[string][]ancestry.Value{"additionalMemberOf": refs("A")}},
		{ID: "D", Type: "Collection", Label: "Deeds", Properties: map[string][]ancestry.Value{
			"memberOf": refs("C"),
			"title":    {{Raw: "Deeds of the abbey"}},
		}},
		{ID: "P", Type: "Person", Label: "Prior"},
	}
}

func newMemoryEntities(t *testing.T) *SQLiteEntities {
	t.Helper()
	s, err := OpenEntities("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Put(context.Background(), collectionRecords()...))
	return s
}

func TestSQLiteEntities_ResolveAndProperty(t *testing.T) {
	s := newMemoryEntities(t)
	ctx := context.Background()

	d, err := s.Resolve(ctx, "D")
	require.NoError(t, err)
	assert.Equal(t, "D", d.ID())
	assert.Equal(t, "Collection", d.Type())

	values, err := s.Property(ctx, d, "memberOf")
	require.NoError(t, err)
	assert.Equal(t, refs("C"), values)

	values, err = s.Property(ctx, d, "additionalMemberOf")
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = s.Resolve(ctx, "ghost")
	assert.ErrorIs(t, err, ancestry.ErrNotFound)
}

func TestSQLiteEntities_ResolverEndToEnd(t *testing.T) {
	s := newMemoryEntities(t)
	ctx := context.Background()

	d, err := s.Resolve(ctx, "D")
	require.NoError(t, err)

	got, err := ancestry.NewResolver(s).FindAncestors(ctx, d, []string{"memberOf", "additionalMemberOf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, got.IDs())
}

func TestSQLiteEntities_PutReplacesProperties(t *testing.T) {
	s := newMemoryEntities(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, EntityRecord{
		ID: "D", Type: "Collection", Label: "Deeds (moved)",
		Properties: map[string][]ancestry.Value{"memberOf": refs("B", "A")},
	}))

	rec, err := s.Get(ctx, "D")
	require.NoError(t, err)
	assert.Equal(t, "Deeds (moved)", rec.Label)
	assert.Equal(t, refs("B", "A"), rec.Properties["memberOf"])
	assert.NotContains(t, rec.Properties, "title")
}

func TestSQLiteEntities_PutRejectsIncompleteRecord(t *testing.T) {
	s := newMemoryEntities(t)
	err := s.Put(context.Background(), EntityRecord{ID: "X"})
	require.Error(t, err)
	assert.Equal(t, ancerrors.ErrCodeInvalidInput, ancerrors.GetCode(err))

	_, err = s.Resolve(context.Background(), "X")
	assert.ErrorIs(t, err, ancestry.ErrNotFound)
}

func TestSQLiteEntities_ListAndCount(t *testing.T) {
	s := newMemoryEntities(t)
	ctx := context.Background()

	collections, err := s.List(ctx, "Collection")
	require.NoError(t, err)
	ids := make([]string, len(collections))
	for i, r := range collections {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestSQLiteEntities_ReferencingAndDelete(t *testing.T) {
	s := newMemoryEntities(t)
	ctx := context.Background()

	children, err := s.Referencing(ctx, "memberOf", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, children)

	require.NoError(t, s.Delete(ctx, "B", "ghost"))
	children, err = s.Referencing(ctx, "memberOf", "A")
	require.NoError(t, err)
	assert.Empty(t, children)

	_, err = s.Resolve(ctx, "B")
	assert.ErrorIs(t, err, ancestry.ErrNotFound)
}

func TestSQLiteEntities_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "entities.db")
	ctx := context.Background()

	s, err := OpenEntities(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, collectionRecords()...))
	require.NoError(t, s.Close())

	reopened, err := OpenEntities(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Get(ctx, "D")
	require.NoError(t, err)
	assert.Equal(t, refs("C"), rec.Properties["memberOf"])
	assert.Equal(t, path, reopened.Path())
}

func TestSQLiteEntities_ClosedStore(t *testing.T) {
	s, err := OpenEntities("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Resolve(context.Background(), "A")
	assert.Equal(t, ancerrors.ErrCodeStoreFailed, ancerrors.GetCode(err))
}

func TestSQLiteEntities_CGODriver(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cgo.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewEntitiesFromDB(db)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, collectionRecords()...))

	d, err := s.Resolve(ctx, "D")
	require.NoError(t, err)
	got, err := ancestry.NewResolver(s).FindAncestors(ctx, d, []string{"memberOf", "additionalMemberOf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, got.IDs())
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))

	other := classify(assert.AnError)
	assert.Equal(t, ancerrors.ErrCodeStoreFailed, ancerrors.GetCode(other))
	assert.False(t, ancerrors.IsRetryable(other))

	locked := classify(sqlErr("database is locked (5) (SQLITE_BUSY)"))
	assert.Equal(t, ancerrors.ErrCodeStoreBusy, ancerrors.GetCode(locked))
	assert.True(t, ancerrors.IsRetryable(locked))
}

type sqlErr string

func (e sqlErr) Error() string { return string(e) }
