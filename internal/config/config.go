package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultCompletionPercentage is used when the config does not set one.
const DefaultCompletionPercentage = 0.95

// ErrInvalid wraps every validation failure returned by LoadConfig and Parse.
var ErrInvalid = errors.New("invalid player configuration")

// Player holds the fully processed configuration for one video player.
// Times are in seconds.
type Player struct {
	LogLevel  string `validate:"omitempty,oneof=debug info warn warning error"`
	UserAgent string

	// TranscriptTranslationURL may contain the __lang__ placeholder.
	TranscriptTranslationURL string `validate:"omitempty,url"`
	// TranscriptLanguages maps language codes to display names.
	TranscriptLanguages map[string]string
	Language            string
	YoutubeID           string

	// Duration is the media length when known up front, otherwise 0.
	Duration  float64 `validate:"gte=0"`
	StartTime float64 `validate:"gte=0"`
	// EndTime of 0 means the clip runs to the end of the media.
	EndTime float64 `validate:"gte=0"`

	CompletionEnabled    bool
	CompletionPercentage float64 `validate:"gte=0,lte=1"`
	PublishCompletionURL string  `validate:"omitempty,url"`
}

// rawPlayer maps directly to the JSON or YAML file. Pointer fields tell
// "unset" apart from zero so defaults can be applied.
type rawPlayer struct {
	LogLevel                 string            `json:"logLevel" yaml:"log_level"`
	UserAgent                string            `json:"userAgent" yaml:"user_agent"`
	TranscriptTranslationURL string            `json:"transcriptTranslationUrl" yaml:"transcript_translation_url"`
	TranscriptLanguages      map[string]string `json:"transcriptLanguages" yaml:"transcript_languages"`
	Language                 string            `json:"language" yaml:"language"`
	YoutubeID                string            `json:"youtubeId" yaml:"youtube_id"`
	Duration                 float64           `json:"duration" yaml:"duration"`
	StartTime                float64           `json:"startTime" yaml:"start_time"`
	EndTime                  *float64          `json:"endTime" yaml:"end_time"`
	CompletionEnabled        bool              `json:"completionEnabled" yaml:"completion_enabled"`
	CompletionPercentage     *float64          `json:"completionPercentage" yaml:"completion_percentage"`
	PublishCompletionURL     string            `json:"publishCompletionUrl" yaml:"publish_completion_url"`
}

// Format is a configuration file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from the file extension. Unknown
// extensions are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadConfig reads, parses and validates the configuration file at path.
func LoadConfig(path string) (*Player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}
	cfg, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format, applies defaults and validates.
func Parse(data []byte, format Format) (*Player, error) {
	var raw rawPlayer
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config JSON: %w", err)
		}
	}

	cfg := raw.process()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Player {
	return rawPlayer{}.process()
}

func (r rawPlayer) process() *Player {
	cfg := &Player{
		LogLevel:                 strings.ToLower(r.LogLevel),
		UserAgent:                r.UserAgent,
		TranscriptTranslationURL: r.TranscriptTranslationURL,
		TranscriptLanguages:      r.TranscriptLanguages,
		Language:                 r.Language,
		YoutubeID:                r.YoutubeID,
		Duration:                 r.Duration,
		StartTime:                r.StartTime,
		CompletionEnabled:        r.CompletionEnabled,
		CompletionPercentage:     DefaultCompletionPercentage,
		PublishCompletionURL:     r.PublishCompletionURL,
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if r.EndTime != nil {
		cfg.EndTime = *r.EndTime
	}
	if r.CompletionPercentage != nil {
		cfg.CompletionPercentage = *r.CompletionPercentage
	}
	if cfg.TranscriptLanguages == nil {
		cfg.TranscriptLanguages = map[string]string{}
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return cfg
}

var validate = validator.New()

// Validate checks field ranges and the clip bounds.
func (p *Player) Validate() error {
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s' (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if p.EndTime > 0 && p.EndTime <= p.StartTime {
		return fmt.Errorf("%w: EndTime (%v) must be after StartTime (%v)", ErrInvalid, p.EndTime, p.StartTime)
	}
	return nil
}

// ClipEnd returns the configured end time and whether one is set.
func (p *Player) ClipEnd() (float64, bool) {
	return p.EndTime, p.EndTime > 0
}
