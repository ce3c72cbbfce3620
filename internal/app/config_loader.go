package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/bitswitch/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.bitswitch")
		v.AddConfigPath("/etc/bitswitch")
	}

	// Read environment variables
	v.SetEnvPrefix("BITSWITCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys makes every known key visible to AutomaticEnv during Unmarshal
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port", "server.audio_dir", "server.cert_file", "server.key_file", "server.size_header",
		"library.base_url", "library.container", "library.bitrates", "library.size_header", "library.request_timeout",
		"player.sample_rate", "player.frames_per_buffer", "player.loop_start", "player.decode_concurrency",
		"player.ffmpeg_binary", "player.progress_interval", "player.control_enabled", "player.control_host", "player.control_port",
		"history.enabled", "history.database_path",
		"notification.enabled", "notification.sound", "notification.method",
		"logging.level", "logging.format", "logging.output_path",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Server.AudioDir = expandPath(config.Server.AudioDir)
	config.Server.CertFile = expandPath(config.Server.CertFile)
	config.Server.KeyFile = expandPath(config.Server.KeyFile)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	// Replace $HOME first so it resolves even when the variable is unset
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.AudioDir == "" {
		return fmt.Errorf("audio directory not configured")
	}

	if (config.Server.CertFile == "") != (config.Server.KeyFile == "") {
		return fmt.Errorf("cert_file and key_file must be set together")
	}

	if config.Library.BaseURL == "" {
		return fmt.Errorf("library base url not configured")
	}

	if config.Library.Container == "" {
		return fmt.Errorf("library container not configured")
	}

	if len(config.Library.Bitrates) == 0 {
		return fmt.Errorf("at least one bitrate must be configured")
	}

	if config.Player.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}

	if config.Player.FramesPerBuffer <= 0 {
		return fmt.Errorf("frames per buffer must be positive")
	}

	if config.Player.LoopStart < 0 {
		return fmt.Errorf("loop start cannot be negative")
	}

	if config.Player.DecodeConcurrency < 1 {
		return fmt.Errorf("decode concurrency must be at least 1")
	}

	if config.Player.ControlEnabled && (config.Player.ControlPort < 1 || config.Player.ControlPort > 65535) {
		return fmt.Errorf("invalid control port: %d", config.Player.ControlPort)
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", map[string]interface{}{
		"host":        config.Server.Host,
		"port":        config.Server.Port,
		"audio_dir":   config.Server.AudioDir,
		"cert_file":   config.Server.CertFile,
		"key_file":    config.Server.KeyFile,
		"size_header": config.Server.SizeHeader,
	})
	v.Set("library", map[string]interface{}{
		"base_url":        config.Library.BaseURL,
		"container":       config.Library.Container,
		"bitrates":        config.Library.Bitrates,
		"size_header":     config.Library.SizeHeader,
		"request_timeout": config.Library.RequestTimeout.String(),
	})
	v.Set("player", map[string]interface{}{
		"sample_rate":        config.Player.SampleRate,
		"frames_per_buffer":  config.Player.FramesPerBuffer,
		"loop_start":         config.Player.LoopStart.String(),
		"decode_concurrency": config.Player.DecodeConcurrency,
		"ffmpeg_binary":      config.Player.FFmpegBinary,
		"progress_interval":  config.Player.ProgressInterval.String(),
		"control_enabled":    config.Player.ControlEnabled,
		"control_host":       config.Player.ControlHost,
		"control_port":       config.Player.ControlPort,
	})
	v.Set("history", map[string]interface{}{
		"enabled":       config.History.Enabled,
		"database_path": config.History.DatabasePath,
	})
	v.Set("notification", map[string]interface{}{
		"enabled": config.Notification.Enabled,
		"sound":   config.Notification.Sound,
		"method":  config.Notification.Method,
	})
	v.Set("logging", map[string]interface{}{
		"level":        config.Logging.Level,
		"format":       config.Logging.Format,
		"output_path":  config.Logging.OutputPath,
		"max_size_mb":  config.Logging.MaxSizeMB,
		"max_backups":  config.Logging.MaxBackups,
		"max_age_days": config.Logging.MaxAgeDays,
	})

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
