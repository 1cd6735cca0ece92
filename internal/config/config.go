package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Songstats SongstatsConfig `yaml:"songstats" mapstructure:"songstats"`
	Discogs   DiscogsConfig   `yaml:"discogs" mapstructure:"discogs"`
	Resolve   ResolveConfig   `yaml:"resolve" mapstructure:"resolve"`
	Download  DownloadConfig  `yaml:"download" mapstructure:"download"`
	Pacing    PacingConfig    `yaml:"pacing" mapstructure:"pacing"`
	Tag       TagConfig       `yaml:"tag" mapstructure:"tag"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// LedgerConfig configures the CSV ledgers and checkpointing.
type LedgerConfig struct {
	InputPath      string `yaml:"input_path" mapstructure:"input_path"`
	OutputPath     string `yaml:"output_path" mapstructure:"output_path"`
	SecondaryPath  string `yaml:"secondary_path" mapstructure:"secondary_path"`
	MergedPath     string `yaml:"merged_path" mapstructure:"merged_path"`
	CheckpointEach int    `yaml:"checkpoint_each" mapstructure:"checkpoint_each"`
}

// SongstatsConfig configures the per-row resolution source.
type SongstatsConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	RendererURL       string  `yaml:"renderer_url" mapstructure:"renderer_url"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// DiscogsConfig configures the per-group catalog source.
type DiscogsConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Key               string  `yaml:"key" mapstructure:"key"`
	Secret            string  `yaml:"secret" mapstructure:"secret"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ResolveConfig bounds resolution runs.
type ResolveConfig struct {
	MaxRuntimeMins    int     `yaml:"max_runtime_mins" mapstructure:"max_runtime_mins"`
	MaxUnits          int     `yaml:"max_units" mapstructure:"max_units"`
	RetrySoftTerminal bool    `yaml:"retry_soft_terminal" mapstructure:"retry_soft_terminal"`
	MatchThreshold    float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
}

// DownloadConfig configures the retrieval driver.
type DownloadConfig struct {
	Root             string  `yaml:"root" mapstructure:"root"`
	Binary           string  `yaml:"binary" mapstructure:"binary"`
	CookiesPath      string  `yaml:"cookies_path" mapstructure:"cookies_path"`
	AudioFormat      string  `yaml:"audio_format" mapstructure:"audio_format"`
	MaxRuntimeMins   int     `yaml:"max_runtime_mins" mapstructure:"max_runtime_mins"`
	MaxUnits         int     `yaml:"max_units" mapstructure:"max_units"`
	SearchLimit      int     `yaml:"search_limit" mapstructure:"search_limit"`
	TolerancePercent float64 `yaml:"tolerance_percent" mapstructure:"tolerance_percent"`
	ToleranceFloorS  float64 `yaml:"tolerance_floor_secs" mapstructure:"tolerance_floor_secs"`
}

// PacingConfig configures the anti-throttling behavior of the drivers.
type PacingConfig struct {
	UnitDelaySecs     float64 `yaml:"unit_delay_secs" mapstructure:"unit_delay_secs"`
	UnitJitterSecs    float64 `yaml:"unit_jitter_secs" mapstructure:"unit_jitter_secs"`
	LongBreakEvery    int     `yaml:"long_break_every" mapstructure:"long_break_every"`
	LongBreakMinSecs  float64 `yaml:"long_break_min_secs" mapstructure:"long_break_min_secs"`
	LongBreakMaxSecs  float64 `yaml:"long_break_max_secs" mapstructure:"long_break_max_secs"`
	CooldownAfter     int     `yaml:"cooldown_after" mapstructure:"cooldown_after"`
	CooldownMins      int     `yaml:"cooldown_mins" mapstructure:"cooldown_mins"`
}

// TagConfig configures metadata embedding.
type TagConfig struct {
	EmbedArt bool `yaml:"embed_art" mapstructure:"embed_art"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LIBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ledger.input_path", "library.csv")
	v.SetDefault("ledger.output_path", "library_resolved.csv")
	v.SetDefault("ledger.secondary_path", "library_discogs.csv")
	v.SetDefault("ledger.merged_path", "library_merged.csv")
	v.SetDefault("ledger.checkpoint_each", 25)
	v.SetDefault("songstats.base_url", "https://songstats.com")
	v.SetDefault("songstats.user_agent", "libsync/1.0")
	v.SetDefault("songstats.requests_per_second", 0.5)
	v.SetDefault("discogs.base_url", "https://api.discogs.com")
	v.SetDefault("discogs.user_agent", "libsync/1.0")
	v.SetDefault("discogs.requests_per_second", 0.8)
	v.SetDefault("resolve.match_threshold", 0.66)
	v.SetDefault("download.root", "library")
	v.SetDefault("download.binary", "yt-dlp")
	v.SetDefault("download.audio_format", "mp3")
	v.SetDefault("download.search_limit", 5)
	v.SetDefault("download.tolerance_percent", 15)
	v.SetDefault("download.tolerance_floor_secs", 30)
	v.SetDefault("pacing.unit_delay_secs", 2)
	v.SetDefault("pacing.unit_jitter_secs", 3)
	v.SetDefault("pacing.long_break_every", 25)
	v.SetDefault("pacing.long_break_min_secs", 60)
	v.SetDefault("pacing.long_break_max_secs", 180)
	v.SetDefault("pacing.cooldown_after", 5)
	v.SetDefault("pacing.cooldown_mins", 15)
	v.SetDefault("tag.embed_art", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
