package config

import (
	"errors"
	"io/fs"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CompletionSettings are the completion provider tunables that can be
// changed without a restart. Sampling temperature and output length are
// fixed by the provider client and are not configurable.
type CompletionSettings struct {
	BaseURL        string `mapstructure:"baseURL"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

type CompletionSettingsHolder struct {
	current atomic.Value // holds CompletionSettings
}

// NewCompletionSettingsHolder seeds settings from the environment and, when a
// completion.yml is found, overlays it and watches it for changes.
func NewCompletionSettingsHolder(cfg Config, log *zap.Logger) (*CompletionSettingsHolder, error) {
	defaults := CompletionSettings{
		BaseURL:        cfg.Completion.BaseURL,
		Model:          cfg.Completion.Model,
		TimeoutSeconds: cfg.Completion.TimeoutSeconds,
	}
	if err := validateCompletionSettings(defaults); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("completion")
	v.SetConfigType("yml")
	if cfg.Completion.SettingsPath != "" {
		v.SetConfigFile(cfg.Completion.SettingsPath)
	}
	v.AddConfigPath("/etc/fincoach")
	v.AddConfigPath(".")

	v.SetDefault("completion.baseURL", defaults.BaseURL)
	v.SetDefault("completion.model", defaults.Model)
	v.SetDefault("completion.timeoutSeconds", defaults.TimeoutSeconds)

	holder := &CompletionSettingsHolder{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case errors.Is(err, fs.ErrNotExist):
			// An explicit path that does not exist yet falls back like a search miss.
			log.Warn("completion settings file missing, using environment",
				zap.String("path", cfg.Completion.SettingsPath))
		default:
			return nil, err
		}
		holder.current.Store(defaults)
		return holder, nil
	}

	var settings CompletionSettings
	if err := v.UnmarshalKey("completion", &settings); err != nil {
		return nil, err
	}
	if err := validateCompletionSettings(settings); err != nil {
		return nil, err
	}
	holder.current.Store(settings)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CompletionSettings
		if err := v.UnmarshalKey("completion", &updated); err != nil {
			log.Warn("completion settings reload failed", zap.Error(err))
			return
		}
		if err := validateCompletionSettings(updated); err != nil {
			log.Warn("completion settings invalid, keeping previous", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("completion settings reloaded", zap.String("file", e.Name), zap.String("model", updated.Model))
	})

	return holder, nil
}

// NewStaticCompletionSettings returns a holder that never changes.
func NewStaticCompletionSettings(settings CompletionSettings) *CompletionSettingsHolder {
	holder := &CompletionSettingsHolder{}
	holder.current.Store(settings)
	return holder
}

func (h *CompletionSettingsHolder) Get() CompletionSettings {
	return h.current.Load().(CompletionSettings)
}

func validateCompletionSettings(s CompletionSettings) error {
	if strings.TrimSpace(s.BaseURL) == "" {
		return errors.New("completion.baseURL cannot be empty")
	}
	if strings.TrimSpace(s.Model) == "" {
		return errors.New("completion.model cannot be empty")
	}
	if s.TimeoutSeconds <= 0 {
		return errors.New("completion.timeoutSeconds must be positive")
	}
	return nil
}
