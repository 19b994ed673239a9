package preprocess

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	"github.com/Aman-CERP/ancestry/internal/hierarchy"
)

func collectionStore() *ancestry.MemoryStore {
	m := ancestry.NewMemoryStore()
	for _, id := range []string{"A", "B", "C", "D"} {
		m.Put(id, "Collection")
	}
	m.Link("B", "memberOf", "A")
	m.Link("C", "additionalMemberOf", "A")
	m.Link("D", "memberOf", "C")
	return m
}

func bothRelations() hierarchy.Configuration {
	return hierarchy.Configuration{Fields: map[string][]string{
		"member_of": {"Collection-memberOf", "Collection-additionalMemberOf"},
	}}
}

func newProcessor(store ancestry.Store) *Processor {
	return NewProcessor(store, ancestry.NewResolver(store), WithWorkers(4))
}

func TestPreprocess_UnionOfHierarchies(t *testing.T) {
	store := collectionStore()
	doc := NewDocument("entity:D", "Collection", "D")
	doc.SetField("member_of")

	stats, err := newProcessor(store).Preprocess(context.Background(), []Item{doc}, bothRelations())
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "A"}, doc.Field("member_of").Values())
	assert.Equal(t, 1, stats.FieldsUpdated)
	assert.Equal(t, 2, stats.ValuesAdded)
}

func TestPreprocess_KeepsExistingValuesWithoutDuplicates(t *testing.T) {
	store := collectionStore()
	doc := NewDocument("entity:D", "Collection", "D")
	doc.SetField("member_of", "C", "external")

	_, err := newProcessor(store).Preprocess(context.Background(), []Item{doc}, bothRelations())
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "external", "A"}, doc.Field("member_of").Values())
}

func TestPreprocess_Idempotent(t *testing.T) {
	store := collectionStore()
	doc := NewDocument("entity:D", "Collection", "D")
	doc.SetField("member_of")
	p := newProcessor(store)

	_, err := p.Preprocess(context.Background(), []Item{doc}, bothRelations())
	require.NoError(t, err)
	first := doc.Field("member_of").Values()

	stats, err := p.Preprocess(context.Background(), []Item{doc}, bothRelations())
	require.NoError(t, err)
	assert.Equal(t, first, doc.Field("member_of").Values())
	assert.Equal(t, 0, stats.ValuesAdded)
}

func TestPreprocess_AncestorReachableThroughBothRelations(t *testing.T) {
	store := ancestry.NewMemoryStore()
	for _, id := range []string{"item", "viaA", "viaB", "both"} {
		store.Put(id, "Collection")
	}
	store.Link("item", "memberOf", "viaA", "both")
	store.Link("item", "additionalMemberOf", "viaB", "both")

	doc := NewDocument("entity:item", "Collection", "item")
	doc.SetField("member_of")

	_, err := newProcessor(store).Preprocess(context.Background(), []Item{doc}, bothRelations())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"viaA", "viaB", "both"}, doc.Field("member_of").Values())
}

func TestPreprocess_FailuresStayScoped(t *testing.T) {
	store := collectionStore()

	orphan := NewDocument("entity:ghost", "Collection", "ghost")
	orphan.SetField("member_of")
	noField := NewDocument("entity:B", "Collection", "B")
	good := NewDocument("entity:D", "Collection", "D")
	good.SetField("member_of")

	stats, err := newProcessor(store).Preprocess(context.Background(), []Item{orphan, noField, good}, bothRelations())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.MissingEntity)
	assert.Equal(t, 1, stats.MissingFields)
	assert.Empty(t, orphan.Field("member_of").Values())
	assert.Nil(t, noField.Field("member_of"))
	assert.Equal(t, []string{"C", "A"}, good.Field("member_of").Values())
}

func TestPreprocess_MultipleFieldsUseTheirOwnRelations(t *testing.T) {
	store := collectionStore()
	cfg := hierarchy.Configuration{Fields: map[string][]string{
		"member_of":  {"Collection-memberOf"},
		"additional": {"Collection-additionalMemberOf"},
	}}

	doc := NewDocument("entity:C", "Collection", "C")
	doc.SetField("member_of")
	doc.SetField("additional")

	_, err := newProcessor(store).Preprocess(context.Background(), []Item{doc}, cfg)
	require.NoError(t, err)
	assert.Empty(t, doc.Field("member_of").Values())
	assert.Equal(t, []string{"A"}, doc.Field("additional").Values())
}

func TestPreprocess_TruncatedWalkKeepsPartialSet(t *testing.T) {
	store := ancestry.NewMemoryStore()
	for i := 0; i < 6; i++ {
		store.Put(fmt.Sprintf("p%d", i), "Page")
		if i > 0 {
			store.Link(fmt.Sprintf("p%d", i-1), "up", fmt.Sprintf("p%d", i))
		}
	}
	resolver := ancestry.NewResolver(store, ancestry.WithLimits(ancestry.Limits{MaxDepth: 2}))
	p := NewProcessor(store, resolver)

	doc := NewDocument("entity:p0", "Page", "p0")
	doc.SetField("parent")
	cfg := hierarchy.Configuration{Fields: map[string][]string{"parent": {"Page-up"}}}

	stats, err := p.Preprocess(context.Background(), []Item{doc}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Truncated)
	assert.Equal(t, []string{"p1", "p2"}, doc.Field("parent").Values())
}

func TestPreprocess_ManyItemsInParallel(t *testing.T) {
	store := collectionStore()
	cached, err := ancestry.NewCachedStore(store, 64)
	require.NoError(t, err)
	p := NewProcessor(cached, ancestry.NewResolver(cached), WithWorkers(8))

	var items []Item
	var docs []*Document
	for i := 0; i < 100; i++ {
		doc := NewDocument(fmt.Sprintf("entity:D:%d", i), "Collection", "D")
		doc.SetField("member_of")
		docs = append(docs, doc)
		items = append(items, doc)
	}

	stats, err := p.Preprocess(context.Background(), items, bothRelations())
	require.NoError(t, err)
	assert.Equal(t, 100, stats.FieldsUpdated)
	for _, doc := range docs {
		assert.Equal(t, []string{"C", "A"}, doc.Field("member_of").Values())
	}
}

func TestPreprocess_EmptyConfigurationIsNoop(t *testing.T) {
	store := collectionStore()
	doc := NewDocument("entity:D", "Collection", "D")
	doc.SetField("member_of")

	stats, err := newProcessor(store).Preprocess(context.Background(), []Item{doc}, hierarchy.Default())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ValuesAdded)
	assert.Empty(t, doc.Field("member_of").Values())
}

func TestPreprocess_CancelledContext(t *testing.T) {
	store := collectionStore()
	doc := NewDocument("entity:D", "Collection", "D")
	doc.SetField("member_of")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newProcessor(store).Preprocess(ctx, []Item{doc}, bothRelations())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestField(t *testing.T) {
	f := NewField("a")
	f.AddValue("b")
	f.AddValue("b")
	assert.Equal(t, []string{"a", "b", "b"}, f.Values())

	vals := f.Values()
	vals[0] = "mutated"
	assert.Equal(t, []string{"a", "b", "b"}, f.Values())
}

func TestMerge_SkipsPresentAndRepeatedIDs(t *testing.T) {
	f := NewField("C", "x")

	added := merge(f, []string{"C", "A", "A", "B"})

	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"C", "x", "A", "B"}, f.Values())
}
