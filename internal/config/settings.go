package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gookit/validate"

	"github.com/verte-zerg/wishwell/internal/fetch"
	"github.com/verte-zerg/wishwell/internal/model"
)

// Defaults.
const (
	DefaultBaseURL      = fetch.DefaultBaseURL
	DefaultLang         = "en"
	DefaultPageDelayMs  = 100
	DefaultTimeoutSec   = 30
	DefaultNoviceBanner = 100
	DefaultLogLevel     = "info"

	EnvRegion = "WISHWELL_REGION"
	EnvToken  = "WISHWELL_TOKEN"
)

// Settings is the resolved configuration.
type Settings struct {
	BaseURL      string `validate:"required|fullUrl"`
	Lang         string `validate:"required"`
	PageDelayMs  int    `validate:"min:0"`
	TimeoutSec   int    `validate:"required|min:1"`
	Region       string
	Token        string
	DBPath       string `validate:"required"`
	LegacyPath   string
	NoviceBanner int64  `validate:"min:0"`
	LogLevel     string `validate:"required|in:trace,debug,info,warn,error"`
	LogFile      bool
	LogPath      string
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:      DefaultBaseURL,
		Lang:         DefaultLang,
		PageDelayMs:  DefaultPageDelayMs,
		TimeoutSec:   DefaultTimeoutSec,
		DBPath:       DefaultDBPath(),
		LegacyPath:   DefaultLegacyPath(),
		NoviceBanner: DefaultNoviceBanner,
		LogLevel:     DefaultLogLevel,
		LogFile:      true,
		LogPath:      DefaultLogPath(),
	}
}

// Apply overlays the values set in the file.
func (s *Settings) Apply(fc FileConfig) {
	setString(&s.BaseURL, fc.API.BaseURL)
	setString(&s.Lang, fc.API.Lang)
	setInt(&s.PageDelayMs, fc.API.PageDelayMs)
	setInt(&s.TimeoutSec, fc.API.TimeoutSec)
	setString(&s.Region, fc.Auth.Region)
	setString(&s.Token, fc.Auth.Token)
	setString(&s.DBPath, fc.Store.Path)
	setString(&s.LegacyPath, fc.Store.LegacyPath)
	if fc.Stats.NoviceBanner != nil {
		s.NoviceBanner = *fc.Stats.NoviceBanner
	}
	setString(&s.LogLevel, fc.Log.Level)
	if fc.Log.File != nil {
		s.LogFile = *fc.Log.File
	}
}

// ApplyEnv overlays credentials from the environment.
func (s *Settings) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvRegion)); v != "" {
		s.Region = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		s.Token = v
	}
}

// Validate checks value ranges and formats.
func (s *Settings) Validate() error {
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	v := validate.Struct(s)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}
	return nil
}

// Credentials returns the configured region and token.
func (s Settings) Credentials() model.Credentials {
	return model.Credentials{Region: s.Region, Token: s.Token}
}

// PageDelay returns the inter-page delay. Zero disables it.
func (s Settings) PageDelay() time.Duration {
	if s.PageDelayMs <= 0 {
		return -1
	}
	return time.Duration(s.PageDelayMs) * time.Millisecond
}

// Timeout returns the HTTP client timeout.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

func setString(target, value *string) {
	if value == nil {
		return
	}
	if v := strings.TrimSpace(*value); v != "" {
		*target = v
	}
}

func setInt(target, value *int) {
	if value == nil {
		return
	}
	*target = *value
}
