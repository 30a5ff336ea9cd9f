package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlayerJSON = `{
	"logLevel": "debug",
	"userAgent": "videotrack-test",
	"transcriptTranslationUrl": "https://courses.example.org/xblock/video/handler/transcript/translation/__lang__",
	"transcriptLanguages": {"en": "English", "fr": "French"},
	"language": "fr",
	"youtubeId": "3_yD_cEKoCk",
	"startTime": 10,
	"endTime": 110,
	"completionEnabled": true,
	"completionPercentage": 0.9,
	"publishCompletionUrl": "https://courses.example.org/xblock/video/handler/publish_completion"
}`

const testPlayerYAML = `
log_level: warn
transcript_translation_url: https://courses.example.org/transcript/translation/__lang__
transcript_languages:
  en: English
duration: 300
completion_enabled: true
publish_completion_url: https://courses.example.org/publish_completion
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_JSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "player.json", testPlayerJSON))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "videotrack-test", cfg.UserAgent)
	assert.Equal(t, "fr", cfg.Language)
	assert.Equal(t, "3_yD_cEKoCk", cfg.YoutubeID)
	assert.Equal(t, map[string]string{"en": "English", "fr": "French"}, cfg.TranscriptLanguages)
	assert.Equal(t, 10.0, cfg.StartTime)
	assert.Equal(t, 110.0, cfg.EndTime)
	assert.True(t, cfg.CompletionEnabled)
	assert.Equal(t, 0.9, cfg.CompletionPercentage)

	end, ok := cfg.ClipEnd()
	assert.True(t, ok)
	assert.Equal(t, 110.0, end)
}

func TestLoadConfig_YAMLDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "player.yml", testPlayerYAML))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 300.0, cfg.Duration)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, DefaultCompletionPercentage, cfg.CompletionPercentage)
	_, ok := cfg.ClipEnd()
	assert.False(t, ok)
}

func TestParse_ExplicitZeroPercentageIsKept(t *testing.T) {
	cfg, err := Parse([]byte(`{"completionPercentage": 0}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.CompletionPercentage)
}

func TestParse_MissingPublishURLIsValid(t *testing.T) {
	cfg, err := Parse([]byte(`{"completionEnabled": true}`), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, cfg.PublishCompletionURL)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"percentage above one": `{"completionPercentage": 1.5}`,
		"negative start":       `{"startTime": -1}`,
		"end before start":     `{"startTime": 20, "endTime": 10}`,
		"bad publish url":      `{"publishCompletionUrl": "not a url"}`,
		"bad log level":        `{"logLevel": "chatty"}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), FormatJSON)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "broken.json", "{"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.YAML"))
	assert.Equal(t, FormatYAML, FormatFromPath("b.yml"))
	assert.Equal(t, FormatJSON, FormatFromPath("b.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("b"))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultCompletionPercentage, cfg.CompletionPercentage)
	assert.NoError(t, cfg.Validate())
}
