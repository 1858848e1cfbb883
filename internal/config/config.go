// Package config provides configuration management for the avatar pipeline.
package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all pipeline configuration.
type Config struct {
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Smoothing SmoothingConfig `mapstructure:"smoothing"`
	Session   SessionConfig   `mapstructure:"session"`
	Viseme    VisemeConfig    `mapstructure:"viseme"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PipelineConfig configures orchestrator policy.
type PipelineConfig struct {
	RecognitionTimeout time.Duration `mapstructure:"recognition_timeout"`
	ResponseTimeout    time.Duration `mapstructure:"response_timeout"`
	SynthesisTimeout   time.Duration `mapstructure:"synthesis_timeout"`
	FallbackText       string        `mapstructure:"fallback_text"`
	MinConfidence      float64       `mapstructure:"min_confidence"`
}

// SmoothingConfig configures timeline smoothing thresholds in milliseconds.
type SmoothingConfig struct {
	GapEpsilonMs     int `mapstructure:"gap_epsilon_ms"`
	MergeThresholdMs int `mapstructure:"merge_threshold_ms"`
	BlendWindowMs    int `mapstructure:"blend_window_ms"`
}

// SessionConfig bounds coordinator concurrency.
type SessionConfig struct {
	MaxInFlight int `mapstructure:"max_in_flight"`
	QueueDepth  int `mapstructure:"queue_depth"`
}

// VisemeConfig overrides individual phoneme-to-viseme mappings.
type VisemeConfig struct {
	// Overrides maps phoneme symbols to viseme category names; applied
	// once when the mapping table is built at startup.
	Overrides map[string]string `mapstructure:"overrides"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			RecognitionTimeout: 8 * time.Second,
			ResponseTimeout:    2 * time.Second,
			SynthesisTimeout:   10 * time.Second,
			FallbackText:       "I'm sorry, I didn't quite catch that. Could you say it again?",
			MinConfidence:      0.2,
		},
		Smoothing: SmoothingConfig{
			GapEpsilonMs:     20,
			MergeThresholdMs: 60,
			BlendWindowMs:    40,
		},
		Session: SessionConfig{
			MaxInFlight: 8,
			QueueDepth:  4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Manager loads configuration and supports hot reload of the tunable
// values (timeouts, smoothing thresholds). The viseme table and session
// bounds are read once at startup.
type Manager struct {
	mu  sync.RWMutex
	v   *viper.Viper
	cfg *Config
}

// Load reads configuration from path (optional) with env overrides under
// the AVATARPIPE prefix, falling back to defaults for everything unset.
func Load(path string) (*Manager, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AVATARPIPE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return &Manager{v: v, cfg: cfg}, nil
}

// Get returns the current configuration snapshot.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Watch re-reads the config file on change and invokes onChange with the
// new snapshot. No-op when no config file was loaded.
func (m *Manager) Watch(onChange func(*Config)) {
	if m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(_ fsnotify.Event) {
		cfg := Default()
		if err := m.v.Unmarshal(cfg); err != nil {
			return
		}
		m.mu.Lock()
		m.cfg = cfg
		m.mu.Unlock()
		if onChange != nil {
			onChange(cfg)
		}
	})
	m.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("pipeline.recognition_timeout", def.Pipeline.RecognitionTimeout)
	v.SetDefault("pipeline.response_timeout", def.Pipeline.ResponseTimeout)
	v.SetDefault("pipeline.synthesis_timeout", def.Pipeline.SynthesisTimeout)
	v.SetDefault("pipeline.fallback_text", def.Pipeline.FallbackText)
	v.SetDefault("pipeline.min_confidence", def.Pipeline.MinConfidence)
	v.SetDefault("smoothing.gap_epsilon_ms", def.Smoothing.GapEpsilonMs)
	v.SetDefault("smoothing.merge_threshold_ms", def.Smoothing.MergeThresholdMs)
	v.SetDefault("smoothing.blend_window_ms", def.Smoothing.BlendWindowMs)
	v.SetDefault("session.max_in_flight", def.Session.MaxInFlight)
	v.SetDefault("session.queue_depth", def.Session.QueueDepth)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.console", def.Logging.Console)
}
