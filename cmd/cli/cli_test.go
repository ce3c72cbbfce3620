package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bitswitch/internal/app"
	"github.com/yourusername/bitswitch/internal/domain"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{"1", command{kind: cmdPlay, index: 0}},
		{" 10 ", command{kind: cmdPlay, index: 9}},
		{"p", command{kind: cmdPause}},
		{"r", command{kind: cmdResume}},
		{"q", command{kind: cmdQuit}},
		{"f my track", command{kind: cmdFolder, folder: "my track"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Invalid(t *testing.T) {
	_, err := parseCommand("   ")
	assert.True(t, errors.Is(err, errEmptyCommand))

	_, err = parseCommand("louder")
	assert.Error(t, err)

	_, err = parseCommand("f ")
	assert.Error(t, err)
}

func TestFormatKiB(t *testing.T) {
	assert.Equal(t, "0.0 KiB", formatKiB(0))
	assert.Equal(t, "1.0 KiB", formatKiB(1024))
	assert.Equal(t, "1.5 KiB", formatKiB(1536))
	assert.Equal(t, "3072.0 KiB", formatKiB(3*1024*1024))
}

func TestPrintVariants(t *testing.T) {
	var buf bytes.Buffer

	printVariants(&buf, []app.VariantStatus{
		{Index: 0, Bitrate: "512", Size: 2048},
		{Index: 1, Bitrate: "2", Size: 512},
	})

	out := buf.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "512 kbit/s")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "0.5 KiB")
	assert.Regexp(t, `(?m)^2\s+2 kbit/s`, out)
}

func TestTerminalDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := newTerminalDisplay(&buf)

	d.Render(28)
	d.Complete()
	d.Fail(errors.New("boom"))

	assert.Equal(t, "\rLoading... 28 %\rLoading... 100 %\n\nERROR: boom\n", buf.String())
}

func TestLibraryHealthURL(t *testing.T) {
	tests := []struct {
		base  string
		want  string
		local bool
	}{
		{"http://localhost:8443/audio", "http://localhost:8443/health", true},
		{"https://127.0.0.1:8443/audio/", "https://127.0.0.1:8443/health", true},
		{"https://music.example.com/audio", "https://music.example.com/health", false},
	}

	for _, tt := range tests {
		got, local, err := libraryHealthURL(tt.base)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.local, local, tt.base)
	}

	_, _, err := libraryHealthURL("://bad")
	assert.Error(t, err)
}

func TestPrintRuns(t *testing.T) {
	run := domain.NewRun("jazz", 10)
	run.MarkAcquiring()
	run.MarkArmed(4096)
	started := *run.StartedAt
	completed := started.Add(1500 * time.Millisecond)
	run.CompletedAt = &completed

	var buf bytes.Buffer
	printRuns(&buf, []*domain.Run{run}, &domain.RunStats{Total: 1, Armed: 1})

	out := buf.String()
	assert.Contains(t, out, "jazz")
	assert.Contains(t, out, "armed")
	assert.Contains(t, out, "4.0 KiB")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "Total: 1  Armed: 1")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 8))
	assert.Equal(t, "12345...", truncate("1234567890", 8))
}
