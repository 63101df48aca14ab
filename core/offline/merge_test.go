package offline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFields(t *testing.T) {
	base := map[string]interface{}{"first_name": "Amani", "last_name": "Kabila", "address": "Gombe", "tags": []interface{}{"a"}}
	local := map[string]interface{}{"first_name": "Amani", "address": "Lingwala", "tags": []interface{}{"a", "b"}}
	server := map[string]interface{}{"first_name": "Amani J.", "last_name": "Kabila", "address": "Gombe", "tags": []interface{}{"a"}}

	assert.Equal(t,
		map[string]interface{}{"address": "Lingwala", "tags": []interface{}{"a", "b"}},
		Changed(base, local),
	)
	assert.Equal(t,
		map[string]interface{}{"first_name": "Amani J.", "last_name": "Kabila", "address": "Lingwala", "tags": []interface{}{"a", "b"}},
		MergeFields(base, local, server),
	)
	// fields absent from the base count as changed
	assert.Equal(t, map[string]interface{}{"x": 1.0}, Changed(nil, map[string]interface{}{"x": 1.0}))
}

func TestServerIsNewer(t *testing.T) {
	older := map[string]interface{}{"name": "a", "updated_at": "2025-01-01T10:00:00Z"}
	newer := map[string]interface{}{"name": "a", "updated_at": "2025-01-01T10:00:00.5Z"}

	assert.True(t, ServerIsNewer(older, newer))
	assert.False(t, ServerIsNewer(newer, older))
	assert.False(t, ServerIsNewer(older, older))
	// no timestamps
	assert.True(t, ServerIsNewer(map[string]interface{}{"a": 1.0}, map[string]interface{}{"a": 2.0}))
	assert.False(t, ServerIsNewer(map[string]interface{}{"a": 1.0}, map[string]interface{}{"a": 1.0}))
}

func TestDecode(t *testing.T) {
	obj, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, obj)

	obj, err = Decode([]byte(`{"a": 1}`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, obj["a"])

	_, err = Decode([]byte(`[1]`))
	assert.Error(t, err)
}
