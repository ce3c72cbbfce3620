package domain

import (
	"runtime"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Library      LibraryConfig      `mapstructure:"library"`
	Player       PlayerConfig       `mapstructure:"player"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains asset server configuration
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	AudioDir   string `mapstructure:"audio_dir"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	SizeHeader string `mapstructure:"size_header"` // uncompressed size header sent with every asset
}

// TLSEnabled reports whether both certificate and key are configured
func (c ServerConfig) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// LibraryConfig describes where the player fetches variants from
type LibraryConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Container      string        `mapstructure:"container"`
	Bitrates       []string      `mapstructure:"bitrates"` // descending by convention
	SizeHeader     string        `mapstructure:"size_header"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// PlayerConfig contains decoding and real-time output configuration
type PlayerConfig struct {
	SampleRate        int           `mapstructure:"sample_rate"`
	FramesPerBuffer   int           `mapstructure:"frames_per_buffer"`
	LoopStart         time.Duration `mapstructure:"loop_start"`
	DecodeConcurrency int           `mapstructure:"decode_concurrency"`
	FFmpegBinary      string        `mapstructure:"ffmpeg_binary"`
	ProgressInterval  time.Duration `mapstructure:"progress_interval"`
	ControlEnabled    bool          `mapstructure:"control_enabled"`
	ControlHost       string        `mapstructure:"control_host"`
	ControlPort       int           `mapstructure:"control_port"`
}

// HistoryConfig contains run history configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultBitrates are the variant labels of a comparison folder, highest first
var DefaultBitrates = []string{"512", "192", "128", "96", "64", "32", "16", "10", "6", "2"}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	bitrates := make([]string, len(DefaultBitrates))
	copy(bitrates, DefaultBitrates)

	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8443,
			AudioDir:   "./audio",
			SizeHeader: "X-File-Size",
		},
		Library: LibraryConfig{
			BaseURL:    "http://localhost:8443/audio",
			Container:  "webm",
			Bitrates:   bitrates,
			SizeHeader: "X-File-Size",
		},
		Player: PlayerConfig{
			SampleRate:        48000,
			FramesPerBuffer:   512,
			LoopStart:         time.Millisecond,
			DecodeConcurrency: runtime.NumCPU(),
			FFmpegBinary:      "ffmpeg",
			ProgressInterval:  16 * time.Millisecond,
			ControlEnabled:    false,
			ControlHost:       "localhost",
			ControlPort:       8090,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.bitswitch/history.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
