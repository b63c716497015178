package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLaunchConfigPreservesFields tests that unmodelled members survive an image change
func TestLaunchConfigPreservesFields(t *testing.T) {
	input := `{
		"imageUuid": "docker:old:1.0",
		"environment": {"DB_HOST": "db"},
		"ports": ["8080:80/tcp"],
		"labels": {"io.rancher.container.pull_image": "always"},
		"startOnCreate": true
	}`

	var lc LaunchConfig
	require.NoError(t, json.Unmarshal([]byte(input), &lc))
	assert.Equal(t, "docker:old:1.0", lc.ImageUUID)
	assert.Equal(t, 5, lc.Len())

	lc.ImageUUID = ImageUUID("new:2.0")
	out, err := json.Marshal(lc)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "docker:new:2.0", got["imageUuid"])
	assert.Equal(t, map[string]interface{}{"DB_HOST": "db"}, got["environment"])
	assert.Equal(t, []interface{}{"8080:80/tcp"}, got["ports"])
	assert.Equal(t, true, got["startOnCreate"])
	assert.Len(t, got, 5)
}

func TestLaunchConfigInvalidImage(t *testing.T) {
	var lc LaunchConfig
	err := json.Unmarshal([]byte(`{"imageUuid": 42}`), &lc)
	assert.Error(t, err)
}

func TestUpgradeRequestShape(t *testing.T) {
	lc := &LaunchConfig{}
	require.NoError(t, json.Unmarshal([]byte(`{"imageUuid":"docker:a:1","tty":true}`), lc))

	out, err := json.Marshal(UpgradeRequest{InServiceStrategy: InServiceStrategy{LaunchConfig: lc}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"inServiceStrategy":{"launchConfig":{"imageUuid":"docker:a:1","tty":true}}}`, string(out))
}

func TestCollectionFirst(t *testing.T) {
	var empty Collection[Stack]
	_, ok := empty.First()
	assert.False(t, ok)

	var nilCollection *Collection[Stack]
	_, ok = nilCollection.First()
	assert.False(t, ok)

	c := Collection[Stack]{Data: []Stack{{ID: "1st1"}, {ID: "1st2"}}}
	first, ok := c.First()
	assert.True(t, ok)
	assert.Equal(t, "1st1", first.ID)
}

func TestImageUUID(t *testing.T) {
	assert.Equal(t, "docker:nginx:1.25", ImageUUID("nginx:1.25"))
	assert.Equal(t, "nginx:1.25", ImageFromUUID("docker:nginx:1.25"))
	assert.Equal(t, "nginx", ImageFromUUID("nginx"))
}
