package bookmarks

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	raw := map[string]interface{}{
		"old": map[string]interface{}{
			"addresses": []interface{}{"http://10.0.0.1:9200"},
			"user":      "elastic",
			"password":  "secret",
		},
		"new": map[string]interface{}{
			"addresses": []string{"http://10.0.0.2:9200", "http://10.0.0.3:9200"},
			"alias":     "prod-2",
		},
	}

	b, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, b.Names())

	old, err := b.Get("old")
	require.NoError(t, err)
	assert.Equal(t, "old", old.Alias)
	assert.Equal(t, "elastic", old.User)
	assert.Equal(t, "secret", old.Password)

	nw, err := b.Get("new")
	require.NoError(t, err)
	assert.Equal(t, "prod-2", nw.Alias)
	assert.Len(t, nw.Addresses, 2)
}

func TestGetMissing(t *testing.T) {
	_, err := Bookmarks{}.Get("nope")
	assert.True(t, errors.Is(err, errors.NotFound))

	_, err = Bookmarks{"empty": {}}.Get("empty")
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestDecodeRejectsBadShape(t *testing.T) {
	_, err := Decode(map[string]interface{}{"x": "not a map"})
	assert.Error(t, err)
}
