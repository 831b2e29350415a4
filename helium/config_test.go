package helium

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinders/helium/pcm"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "helium.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, pcm.PCM16LE, cfg.Format)
	assert.Equal(t, defaultChannels, cfg.Channels)
	assert.Equal(t, defaultSampleRate, cfg.SampleRate)
	assert.Equal(t, defaultWindowSeconds, cfg.WindowSeconds)
	assert.Equal(t, defaultMaxGain, cfg.MaxGain)
	assert.Equal(t, "-", cfg.Input)
	assert.Equal(t, "-", cfg.Output)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_OverridesFromYAML(t *testing.T) {
	path := writeConfig(t, `
audio:
  format: pcm8
  channels: 1
  sample_rate: 8000
  window_seconds: 2.5
  max_gain: 10
  per_channel: true
  dc_offset_enabled: true
io:
  input: in.pcm
  output: out.wav
encoder:
  command: lame
  args: ["-r", "-"]
log:
  level: DEBUG
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, pcm.PCM8, cfg.Format)
	assert.Equal(t, 1, cfg.Channels)
	assert.Equal(t, 8000, cfg.SampleRate)
	assert.Equal(t, 2.5, cfg.WindowSeconds)
	assert.Equal(t, 10.0, cfg.MaxGain)
	assert.True(t, cfg.PerChannel)
	assert.True(t, cfg.DCOffsetEnabled)
	assert.Equal(t, "in.pcm", cfg.Input)
	assert.Equal(t, "out.wav", cfg.Output)
	assert.Equal(t, "lame", cfg.EncoderCommand)
	assert.Equal(t, []string{"-r", "-"}, cfg.EncoderArgs)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_RejectsUnknownFormat(t *testing.T) {
	path := writeConfig(t, "audio:\n  format: pcm24\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_RejectsLowMaxGain(t *testing.T) {
	path := writeConfig(t, "audio:\n  max_gain: 0.2\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_RejectsUnknownLogLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: loud\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
