package json

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine(t *testing.T) {
	for _, name := range append(Engines(), "", "SONIC") {
		api, err := Engine(name)
		require.NoError(t, err, name)
		assert.NotNil(t, api)
	}
	_, err := Engine("gob")
	assert.Error(t, err)
}

func TestSortedKeys(t *testing.T) {
	v := map[string]any{"y": 2, "x": 1, "a": map[string]any{"d": true, "c": false}}
	for _, name := range Engines() {
		api, err := Engine(name)
		require.NoError(t, err)
		out, err := api.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, `{"a":{"c":false,"d":true},"x":1,"y":2}`, string(out), name)
	}
}

func TestUseNumber(t *testing.T) {
	for _, name := range Engines() {
		api, err := Engine(name)
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, api.Unmarshal([]byte(`{"big":9007199254740993}`), &out))
		assert.Equal(t, "9007199254740993", fmt.Sprint(out["big"]), name)
		_, isFloat := out["big"].(float64)
		assert.False(t, isFloat, name)
	}
}

func TestDefault(t *testing.T) {
	out, err := Marshal(map[string]int{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, string(out))

	out, err = MarshalIndent(map[string]int{"a": 1}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(out))

	assert.True(t, Valid(out))
	assert.False(t, Valid([]byte("{")))

	var v map[string]int
	require.NoError(t, Unmarshal([]byte(`{"a":1}`), &v))
	assert.Equal(t, 1, v["a"])
}
