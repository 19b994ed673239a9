package schema

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspector_CachesOptionsPerIndex(t *testing.T) {
	src := &countingSource{Schema: mustParse(t, repositorySchema)}
	insp, err := NewInspector(src)
	require.NoError(t, err)

	first, err := insp.Options("repository")
	require.NoError(t, err)
	second, err := insp.Options("repository")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)
}

func TestInspector_ReturnsCopies(t *testing.T) {
	insp, err := NewInspector(mustParse(t, repositorySchema))
	require.NoError(t, err)

	opts, err := insp.Options("repository")
	require.NoError(t, err)
	delete(opts, "member_of")
	opts["additional"]["bogus"] = "x"

	again, err := insp.Options("repository")
	require.NoError(t, err)
	assert.Contains(t, again, "member_of")
	assert.NotContains(t, again["additional"], "bogus")
}

func TestInspector_Invalidate(t *testing.T) {
	src := &countingSource{Schema: mustParse(t, repositorySchema)}
	insp, err := NewInspector(src)
	require.NoError(t, err)

	_, err = insp.Options("repository")
	require.NoError(t, err)
	insp.Invalidate("repository")
	_, err = insp.Options("repository")
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
}

func TestInspector_Reload(t *testing.T) {
	insp, err := NewInspector(mustParse(t, repositorySchema))
	require.NoError(t, err)
	_, err = insp.Options("repository")
	require.NoError(t, err)

	insp.Reload(mustParse(t, `
entity_types:
  - id: Collection
    properties: [{name: parent, label: Parent, type: entity, target: Collection}]
indexes:
  - id: repository
    fields: [{id: parent, label: Parent, datasource: Collection, path: parent}]
`))

	opts, err := insp.Options("repository")
	require.NoError(t, err)
	assert.Equal(t, []string{"parent"}, opts.Fields())
}

func TestInspector_UnknownIndex(t *testing.T) {
	insp, err := NewInspector(mustParse(t, repositorySchema))
	require.NoError(t, err)

	_, err = insp.Options("missing")
	assert.Error(t, err)
}

func TestInspector_ConcurrentAccess(t *testing.T) {
	insp, err := NewInspector(mustParse(t, repositorySchema), WithCacheSize(1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				insp.Invalidate("repository")
				return
			}
			opts, err := insp.Options("repository")
			assert.NoError(t, err)
			assert.Len(t, opts, 2)
		}(i)
	}
	wg.Wait()
}
