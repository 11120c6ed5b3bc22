package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue_AcceptsConstrainedTypes(t *testing.T) {
	v, err := ParseValue([]byte(`{"name":"x","count":3,"ok":true,"tags":["a","b"],"nested":{"d":-1}}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, String("x"), obj["name"])
	assert.Equal(t, Int(3), obj["count"])
	assert.Equal(t, Bool(true), obj["ok"])
	assert.Equal(t, Array{String("a"), String("b")}, obj["tags"])
	assert.Equal(t, Object{"d": Int(-1)}, obj["nested"])
}

func TestParseValue_RejectsFloats(t *testing.T) {
	cases := []string{`1.5`, `{"k":2.0}`, `[1e3]`, `{"k":[{"d":0.1}]}`}
	for _, c := range cases {
		_, err := ParseValue([]byte(c))
		assert.Error(t, err, "input %s", c)
	}
}

func TestParseValue_RejectsNulls(t *testing.T) {
	cases := []string{`null`, `{"k":null}`, `[null]`}
	for _, c := range cases {
		_, err := ParseValue([]byte(c))
		assert.Error(t, err, "input %s", c)
	}
}

func TestParseValue_RejectsOutOfRangeIntegers(t *testing.T) {
	// One past int64 max.
	_, err := ParseValue([]byte(`9223372036854775808`))
	assert.Error(t, err)
}

func TestParseObject_RejectsNonObject(t *testing.T) {
	_, err := ParseObject([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestParseArray_RejectsNonArray(t *testing.T) {
	_, err := ParseArray([]byte(`{"k":1}`))
	assert.Error(t, err)
}

func TestUnmarshal_LenientMapsNullForStoredData(t *testing.T) {
	// Stored rows round-trip nulls; only canonical serialization rejects them.
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(`{"k":null}`), &obj))
	assert.Equal(t, Null{}, obj["k"])

	_, err := MarshalCanonical(obj)
	assert.Error(t, err)
}

func TestObject_MarshalJSONOrdersKeys(t *testing.T) {
	obj := Object{"b": Int(1), "a": Int(2), "c": Int(3)}
	b, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(b))
}

func TestCompareKeysRFC8785_PrefixOrdering(t *testing.T) {
	assert.Equal(t, -1, compareKeysRFC8785("a", "ab"))
	assert.Equal(t, 1, compareKeysRFC8785("ab", "a"))
	assert.Equal(t, 0, compareKeysRFC8785("ab", "ab"))
}
