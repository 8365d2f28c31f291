package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEndpoint       = "http://127.0.0.1:30766/v1/audio/transcriptions"
	defaultLanguage       = "zh"
	defaultRequestTimeout = 30 * time.Second
	defaultSampleRate     = 16000
	defaultChannels       = 1
	defaultChunkSize      = 3200
	minChunkSize          = 256
	defaultLinger         = 100 * time.Millisecond
	defaultFallback       = 10 * time.Second
	defaultRestoreDelay   = 100 * time.Millisecond
	defaultIterationLimit = 30
	defaultTriggerKey     = "f9"
	defaultMetricsAddr    = "127.0.0.1:9464"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config stores runtime configuration for the dictation daemon.
type Config struct {
	ASR     ASRConfig     `yaml:"asr"`
	Audio   AudioConfig   `yaml:"audio"`
	Session SessionConfig `yaml:"session"`
	Commit  CommitConfig  `yaml:"commit"`
	Trigger TriggerConfig `yaml:"trigger"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ASRConfig points at the remote recognition endpoint.
type ASRConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	Language       string        `yaml:"language"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AudioConfig struct {
	RecorderCommand string `yaml:"recorder_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	ChunkSize       int    `yaml:"chunk_size"`
}

// SessionConfig holds the two deadlines that bound a dictation session.
type SessionConfig struct {
	// Linger keeps capturing after release so trailing syllables survive.
	Linger time.Duration `yaml:"linger"`

	// FallbackTimeout commits whatever is known if no result arrives.
	FallbackTimeout time.Duration `yaml:"fallback_timeout"`
}

type CommitConfig struct {
	RestoreDelay       time.Duration `yaml:"restore_delay"`
	PasteModifier      string        `yaml:"paste_modifier"`
	RulesPath          string        `yaml:"rules_path"`
	RuleIterationLimit int           `yaml:"rule_iteration_limit"`
}

type TriggerConfig struct {
	// Key is the global hotkey name. Empty disables the hook.
	Key string `yaml:"key"`
}

type LogConfig struct {
	Level LogLevel `yaml:"level"`
	File  string   `yaml:"file"`
}

type MetricsConfig struct {
	// ListenAddr serves /metrics and /healthz. Empty disables the listener.
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ASR: ASRConfig{
			Endpoint:       defaultEndpoint,
			Language:       defaultLanguage,
			RequestTimeout: defaultRequestTimeout,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      defaultSampleRate,
			Channels:        defaultChannels,
			ChunkSize:       defaultChunkSize,
		},
		Session: SessionConfig{
			Linger:          defaultLinger,
			FallbackTimeout: defaultFallback,
		},
		Commit: CommitConfig{
			RestoreDelay:       defaultRestoreDelay,
			PasteModifier:      "auto",
			RulesPath:          defaultRulesPath(),
			RuleIterationLimit: defaultIterationLimit,
		},
		Trigger: TriggerConfig{Key: defaultTriggerKey},
		Log:     LogConfig{Level: LogInfo},
		Metrics: MetricsConfig{ListenAddr: defaultMetricsAddr},
	}
}

// Load reads the YAML file at path over the defaults, applies MURMUR_*
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (Config, error) {
	if path == "" {
		return finish(Default())
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes YAML from r over the defaults. Unknown keys are
// rejected.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode YAML: %w", err)
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	applyEnv(&cfg)
	normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ASR.Endpoint = envOrDefault("MURMUR_ASR_ENDPOINT", cfg.ASR.Endpoint)
	cfg.ASR.Language = envOrDefault("MURMUR_ASR_LANGUAGE", cfg.ASR.Language)
	cfg.ASR.APIKey = envOrDefault("MURMUR_ASR_API_KEY", cfg.ASR.APIKey)
	cfg.ASR.Model = envOrDefault("MURMUR_ASR_MODEL", cfg.ASR.Model)
	cfg.ASR.RequestTimeout = envOrDefaultMillis("MURMUR_ASR_TIMEOUT_MS", cfg.ASR.RequestTimeout)

	cfg.Audio.RecorderCommand = envOrDefault("MURMUR_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.InputFormat = envOrDefault("MURMUR_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = firstNonEmpty(os.Getenv("MURMUR_AUDIO_INPUT_DEVICE"), os.Getenv("PULSE_SOURCE"), cfg.Audio.InputDevice)
	cfg.Audio.SampleRate = envOrDefaultInt("MURMUR_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("MURMUR_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.ChunkSize = envOrDefaultInt("MURMUR_AUDIO_CHUNK_SIZE", cfg.Audio.ChunkSize)

	cfg.Session.Linger = envOrDefaultMillis("MURMUR_LINGER_MS", cfg.Session.Linger)
	cfg.Session.FallbackTimeout = envOrDefaultMillis("MURMUR_FALLBACK_TIMEOUT_MS", cfg.Session.FallbackTimeout)

	cfg.Commit.RestoreDelay = envOrDefaultMillis("MURMUR_RESTORE_DELAY_MS", cfg.Commit.RestoreDelay)
	cfg.Commit.PasteModifier = envOrDefault("MURMUR_PASTE_MODIFIER", cfg.Commit.PasteModifier)
	cfg.Commit.RulesPath = envOrDefault("MURMUR_RULES_FILE", cfg.Commit.RulesPath)
	cfg.Commit.RuleIterationLimit = envOrDefaultInt("MURMUR_RULE_ITERATION_LIMIT", cfg.Commit.RuleIterationLimit)

	if value, ok := os.LookupEnv("MURMUR_TRIGGER_KEY"); ok {
		cfg.Trigger.Key = strings.TrimSpace(value)
	}

	cfg.Log.Level = LogLevel(strings.ToLower(envOrDefault("MURMUR_LOG_LEVEL", string(cfg.Log.Level))))
	cfg.Log.File = envOrDefault("MURMUR_LOG_FILE", cfg.Log.File)

	if value, ok := os.LookupEnv("MURMUR_METRICS_ADDR"); ok {
		cfg.Metrics.ListenAddr = strings.TrimSpace(value)
	}
}

// normalize replaces out-of-range numbers with defaults instead of failing.
func normalize(cfg *Config) {
	if cfg.ASR.RequestTimeout <= 0 {
		cfg.ASR.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = defaultSampleRate
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = defaultChannels
	}
	if cfg.Audio.ChunkSize < minChunkSize {
		cfg.Audio.ChunkSize = defaultChunkSize
	}
	if cfg.Session.Linger <= 0 {
		cfg.Session.Linger = defaultLinger
	}
	if cfg.Session.FallbackTimeout <= 0 {
		cfg.Session.FallbackTimeout = defaultFallback
	}
	if cfg.Commit.RestoreDelay <= 0 {
		cfg.Commit.RestoreDelay = defaultRestoreDelay
	}
	if cfg.Commit.RuleIterationLimit <= 0 {
		cfg.Commit.RuleIterationLimit = defaultIterationLimit
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = LogInfo
	}
}

// Validate reports every problem with cfg at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.ASR.Endpoint == "" {
		errs = append(errs, errors.New("config: asr.endpoint is required"))
	} else if u, err := url.Parse(cfg.ASR.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("config: asr.endpoint %q must be an http(s) URL", cfg.ASR.Endpoint))
	}
	if cfg.ASR.Language == "" {
		errs = append(errs, errors.New("config: asr.language is required"))
	}
	if cfg.Audio.RecorderCommand == "" {
		errs = append(errs, errors.New("config: audio.recorder_command is required"))
	}
	if cfg.Session.Linger >= cfg.Session.FallbackTimeout {
		errs = append(errs, fmt.Errorf("config: session.linger (%s) must be shorter than session.fallback_timeout (%s)", cfg.Session.Linger, cfg.Session.FallbackTimeout))
	}
	switch cfg.Commit.PasteModifier {
	case "auto", "ctrl", "super", "cmd":
	default:
		errs = append(errs, fmt.Errorf("config: commit.paste_modifier %q must be one of auto, ctrl, super", cfg.Commit.PasteModifier))
	}
	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("config: log.level %q is invalid", cfg.Log.Level))
	}

	return errors.Join(errs...)
}

func defaultRulesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return firstExisting(
		filepath.Join(home, ".config", "murmur", "substitutions.rules"),
		filepath.Join(home, ".config", "hypr", "whisper-substitutions.rules"),
	)
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}
