package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, 8443, config.Server.Port)
	assert.Equal(t, "./audio", config.Server.AudioDir)
	assert.Equal(t, "X-File-Size", config.Server.SizeHeader)
	assert.False(t, config.Server.TLSEnabled())
	assert.Equal(t, "webm", config.Library.Container)
	assert.Equal(t, DefaultBitrates, config.Library.Bitrates)
	assert.Equal(t, 48000, config.Player.SampleRate)
	assert.Equal(t, 512, config.Player.FramesPerBuffer)
	assert.Equal(t, time.Millisecond, config.Player.LoopStart)
	assert.Positive(t, config.Player.DecodeConcurrency)
	assert.Equal(t, 16*time.Millisecond, config.Player.ProgressInterval)
	assert.True(t, config.History.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestDefaultConfig_BitratesAreCopied(t *testing.T) {
	config := DefaultConfig()
	config.Library.Bitrates[0] = "999"

	assert.Equal(t, "512", DefaultBitrates[0])
}

func TestServerConfig_TLSEnabled(t *testing.T) {
	assert.False(t, ServerConfig{CertFile: "cert.pem"}.TLSEnabled())
	assert.True(t, ServerConfig{CertFile: "cert.pem", KeyFile: "key.pem"}.TLSEnabled())
}
