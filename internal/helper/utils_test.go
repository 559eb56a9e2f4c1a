package helper

import (
	"bytes"
	"path/filepath"
	"testing"

	"document-index/internal/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	id, err := GenerateUUID()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.json")
	in := map[string]int{"a": 1, "b": 2}

	require.NoError(t, WriteJSON(path, in))

	var out map[string]int
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)
}

func TestReadJSONMissingFile(t *testing.T) {
	var out []int
	assert.Error(t, ReadJSON(filepath.Join(t.TempDir(), "nope.json"), &out))
}

func TestFprettyPrint(t *testing.T) {
	var buf bytes.Buffer
	FprettyPrint(&buf, []string{"x"})
	assert.Equal(t, "[\n  \"x\"\n]\n", buf.String())
}

func TestInitLoggerLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	InitLogger(config.LogConfig{Level: "warn"}, false)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	InitLogger(config.LogConfig{Level: "warn"}, true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	InitLogger(config.LogConfig{Level: "loud"}, false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
