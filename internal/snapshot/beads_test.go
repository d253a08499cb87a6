package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTriage_Array(t *testing.T) {
	items := parseTriage([]byte(`[{"id":"b-1","title":"fix sync","priority":"high"}]`))
	require.Len(t, items, 1)
	assert.Equal(t, "b-1", items[0].ID)
	assert.Equal(t, "high", items[0].Priority)
}

func TestParseTriage_WrappedObject(t *testing.T) {
	items := parseTriage([]byte(`{"items":[{"id":"b-2","title":"triage me","priority":"low"}]}`))
	require.Len(t, items, 1)
	assert.Equal(t, "b-2", items[0].ID)
}

func TestParseTriage_MalformedReturnsNil(t *testing.T) {
	assert.Nil(t, parseTriage([]byte(`not json`)))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "synced 3 issues", firstLine("  synced 3 issues\nextra detail\n"))
	assert.Equal(t, "", firstLine("   \n"))
}
