package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilitiesCommand(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		output, err := execute(t, "", "capabilities", "--config", quietConfig(t))
		require.NoError(t, err)
		assert.Contains(t, output, "time.get_time")
		assert.Contains(t, output, "time.add_days")
	})

	t.Run("json schemas", func(t *testing.T) {
		output, err := execute(t, "", "capabilities", "--config", quietConfig(t), "--json")
		require.NoError(t, err)

		var schemas []struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		}
		require.NoError(t, json.Unmarshal([]byte(output), &schemas))
		require.Len(t, schemas, 2)
		assert.Equal(t, "time.get_time", schemas[0].Name)
		assert.Equal(t, "object", schemas[0].Parameters["type"])
		assert.Equal(t, []any{"date", "days"}, schemas[1].Parameters["required"])
	})

	t.Run("honours disabled list", func(t *testing.T) {
		cfg := writeConfig(t, `{"logging":{"level":"error"},"capabilities":{"disabled":["time.add_days"]}}`)

		output, err := execute(t, "", "capabilities", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, output, "time.get_time")
		assert.NotContains(t, output, "time.add_days")
	})
}

func TestConfigCommand(t *testing.T) {
	path := quietConfig(t)

	output, err := execute(t, "", "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, output, "# "+path)
	assert.Contains(t, output, `"level": "error"`)
	assert.Contains(t, output, `"max_concurrency": 4`)
}
