package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceConfig_Getters(t *testing.T) {
	cfg := &SourceConfig{
		Options: map[string]interface{}{
			"str":      "hello",
			"int":      5,
			"int64":    int64(7),
			"float64":  float64(9),
			"dur_str":  "3s",
			"dur_int":  2,
			"bool_val": true,
		},
	}

	assert.Equal(t, "hello", cfg.GetString("str", "x"))
	assert.Equal(t, "x", cfg.GetString("missing", "x"))
	assert.Equal(t, 5, cfg.GetInt("int", 0))
	assert.Equal(t, 7, cfg.GetInt("int64", 0))
	assert.Equal(t, 9, cfg.GetInt("float64", 0))
	assert.Equal(t, 3*time.Second, cfg.GetDuration("dur_str", 0))
	assert.Equal(t, 2*time.Second, cfg.GetDuration("dur_int", 0))
	assert.Equal(t, true, cfg.GetBool("bool_val", false))
	assert.Equal(t, false, cfg.GetBool("missing", false))
}

func TestRegistry_KnownSourceTypesRegistered(t *testing.T) {
	assert.True(t, IsRegistered(SourceTypeFile))
	assert.True(t, IsRegistered(SourceTypeHTTP))
	assert.True(t, IsRegistered(SourceTypeDB))
	assert.True(t, IsRegistered(SourceTypeQueue))
	assert.False(t, IsRegistered(SourceType("made-up")))
}

func TestCreateSource_UnknownType(t *testing.T) {
	_, err := CreateSource(&SourceConfig{Type: SourceType("made-up")})
	assert.Error(t, err)
}

func TestCreateSources_SkipsDisabled(t *testing.T) {
	configs := []*SourceConfig{
		{Type: SourceTypeFile, Name: "a", Enabled: false},
		{Type: SourceTypeFile, Name: "b", Enabled: true, Options: map[string]interface{}{"dir": t.TempDir()}},
	}

	sources, err := CreateSources(configs)
	assert.NoError(t, err)
	assert.Len(t, sources, 1)
	assert.Equal(t, "b", sources[0].Name())
}
