package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const repositorySchema = `
entity_types:
  - id: Collection
    label: Collection
    properties:
      - {name: title, label: Title, type: string}
      - {name: memberOf, label: Member of, type: entity, target: Collection}
      - {name: additionalMemberOf, label: Additional member of, type: reference, target: Collection}
      - {name: owner, label: Owner, type: entity, target: Person}
  - id: Person
    properties:
      - {name: name, type: string}
indexes:
  - id: repository
    fields:
      - {id: member_of, label: Member of, datasource: Collection, path: memberOf}
      - {id: additional, label: Additional, datasource: Collection, path: additionalMemberOf}
      - {id: title, label: Title, datasource: Collection, path: title}
      - {id: owner, label: Owner, datasource: Collection, path: owner}
      - {id: broken, label: Broken, datasource: Collection, path: gone}
`

func mustParse(t *testing.T, doc string) *Schema {
	t.Helper()
	s, err := ParseSchema([]byte(doc))
	require.NoError(t, err)
	return s
}

// countingSource counts Fields calls to observe caching.
type countingSource struct {
	*Schema
	calls int
}

func (c *countingSource) Fields(indexID string) ([]FieldDefinition, error) {
	c.calls++
	return c.Schema.Fields(indexID)
}
