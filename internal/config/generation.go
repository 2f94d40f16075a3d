package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// GenerationConfig tunes the outbound recipe generation call.
type GenerationConfig struct {
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float64       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SystemPrompt string        `mapstructure:"system_prompt"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Model:        "gpt-4o-mini",
		MaxTokens:    1000,
		Temperature:  0.7,
		Timeout:      60 * time.Second,
		SystemPrompt: "You are a professional chef who writes clear, practical home recipes in markdown.",
	}
}

type GenerationConfigHolder struct {
	current atomic.Value // holds GenerationConfig
}

// NewStaticGenerationConfigHolder returns a holder that never reloads.
func NewStaticGenerationConfigHolder(cfg GenerationConfig) *GenerationConfigHolder {
	holder := &GenerationConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewGenerationConfigHolder(log *zap.Logger) (*GenerationConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("generation.config")

	v := viper.New()

	v.SetConfigName("generation")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/recipeverse")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RECIPEVERSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultGenerationConfig()
	v.SetDefault("generation.model", defaults.Model)
	v.SetDefault("generation.max_tokens", defaults.MaxTokens)
	v.SetDefault("generation.temperature", defaults.Temperature)
	v.SetDefault("generation.timeout", defaults.Timeout)
	v.SetDefault("generation.system_prompt", defaults.SystemPrompt)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg GenerationConfig
	if err := v.UnmarshalKey("generation", &cfg); err != nil {
		return nil, err
	}
	if err := validateGenerationConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticGenerationConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated GenerationConfig
		if err := v.UnmarshalKey("generation", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateGenerationConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *GenerationConfigHolder) Get() GenerationConfig {
	if h == nil {
		return DefaultGenerationConfig()
	}
	return h.current.Load().(GenerationConfig)
}

func validateGenerationConfig(cfg GenerationConfig) error {
	if strings.TrimSpace(cfg.Model) == "" {
		return errors.New("generation.model cannot be empty")
	}
	if cfg.MaxTokens <= 0 {
		return errors.New("generation.max_tokens must be positive")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return errors.New("generation.temperature must be between 0 and 2")
	}
	if cfg.Timeout <= 0 {
		return errors.New("generation.timeout must be positive")
	}
	return nil
}
