// Package helium wires application-level configuration for the heliumd
// daemon: the normalizer's construction parameters plus the ambient
// concerns (input/output routing, logging, the external encoder
// command) that sit outside the core per spec §1.
package helium

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meinders/helium/pcm"
)

const (
	defaultSampleRate    = 44100
	defaultChannels      = 2
	defaultWindowSeconds = 1.0
	defaultMaxGain       = 30.0
	defaultLogLevel      = "info"
)

// Config is the fully resolved, validated application configuration.
type Config struct {
	Format          pcm.Kind
	Channels        int
	SampleRate      int
	WindowSeconds   float64
	MaxGain         float64
	PerChannel      bool
	DCOffsetEnabled bool

	Input  string // "-" for stdin
	Output string // "-" or "" for stdout; WAV-wrapped unless EncoderCommand is set

	EncoderCommand string
	EncoderArgs    []string

	LogLevel string
}

type yamlConfig struct {
	Audio struct {
		Format        string  `yaml:"format"`
		Channels      int     `yaml:"channels"`
		SampleRate    int     `yaml:"sample_rate"`
		WindowSeconds float64 `yaml:"window_seconds"`
		MaxGain       float64 `yaml:"max_gain"`
		PerChannel    bool    `yaml:"per_channel"`
		DCOffset      bool    `yaml:"dc_offset_enabled"`
	} `yaml:"audio"`
	IO struct {
		Input  string `yaml:"input"`
		Output string `yaml:"output"`
	} `yaml:"io"`
	Encoder struct {
		Command string   `yaml:"command"`
		Args    []string `yaml:"args"`
	} `yaml:"encoder"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadConfig reads and validates a YAML configuration file at path.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Format:        pcm.PCM16LE,
		Channels:      defaultChannels,
		SampleRate:    defaultSampleRate,
		WindowSeconds: defaultWindowSeconds,
		MaxGain:       defaultMaxGain,
		Input:         "-",
		Output:        "-",
		LogLevel:      defaultLogLevel,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.Audio.Format != "" {
		kind, err := parseKind(yc.Audio.Format)
		if err != nil {
			return Config{}, err
		}
		cfg.Format = kind
	}

	if yc.Audio.Channels > 0 {
		cfg.Channels = yc.Audio.Channels
	}
	if yc.Audio.SampleRate > 0 {
		cfg.SampleRate = yc.Audio.SampleRate
	}
	if yc.Audio.WindowSeconds > 0 {
		cfg.WindowSeconds = yc.Audio.WindowSeconds
	}
	if yc.Audio.MaxGain > 0 {
		cfg.MaxGain = yc.Audio.MaxGain
	}
	if cfg.MaxGain < 1.0 {
		return Config{}, errors.New("audio.max_gain must be >= 1.0")
	}
	cfg.PerChannel = yc.Audio.PerChannel
	cfg.DCOffsetEnabled = yc.Audio.DCOffset

	if yc.IO.Input != "" {
		cfg.Input = yc.IO.Input
	}
	if yc.IO.Output != "" {
		cfg.Output = yc.IO.Output
	}

	cfg.EncoderCommand = yc.Encoder.Command
	cfg.EncoderArgs = yc.Encoder.Args

	if yc.Log.Level != "" {
		cfg.LogLevel = strings.ToLower(yc.Log.Level)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("log.level must be one of debug/info/warn/error, got %q", cfg.LogLevel)
	}

	return cfg, nil
}

func parseKind(s string) (pcm.Kind, error) {
	switch strings.ToUpper(s) {
	case "PCM8":
		return pcm.PCM8, nil
	case "PCM16LE":
		return pcm.PCM16LE, nil
	case "PCM16BE":
		return pcm.PCM16BE, nil
	default:
		return 0, fmt.Errorf("audio.format must be one of PCM8/PCM16LE/PCM16BE, got %q", s)
	}
}
