package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Schedule   string           `yaml:"schedule"`
	RunOnStart bool             `yaml:"run_on_start"`
	Feed       FeedConfig       `yaml:"feed"`
	Storage    StorageConfig    `yaml:"storage"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Summarize  SummarizeConfig  `yaml:"summarize"`
	Segment    SegmentConfig    `yaml:"segment"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
	S3         S3Config         `yaml:"s3"`
}

type FeedConfig struct {
	URL       string `yaml:"url"`
	SkipIntro bool   `yaml:"skip_intro"`
}

type StorageConfig struct {
	DownloadDir string `yaml:"download_dir"`
	ArchiveDir  string `yaml:"archive_dir"`
	StateFile   string `yaml:"state_file"`
}

type TranscribeConfig struct {
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	WhisperBinary    string `yaml:"whisper_binary"`
	WhisperModelPath string `yaml:"whisper_model_path"`
	Language         string `yaml:"language"`
	GoogleAPIKey     string `yaml:"google_api_key"`
}

type SummarizeConfig struct {
	OpenAIAPIKey string   `yaml:"openai_api_key"`
	Models       []string `yaml:"models"`
	WebChatURL   string   `yaml:"web_chat_url"`
	WebChatWait  int      `yaml:"web_chat_wait_seconds"`
	Headless     *bool    `yaml:"headless"`
	Keywords     []string `yaml:"keywords"`
	IntroPhrases []string `yaml:"intro_phrases"`
	LightMode    bool     `yaml:"light_mode"`
}

type SegmentConfig struct {
	PrimaryMarker string   `yaml:"primary_marker"`
	BackupMarkers []string `yaml:"backup_markers"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type CleanupConfig struct {
	Enabled           bool `yaml:"enabled"`
	TranscriptAgeDays int  `yaml:"transcript_age_days"`
	DownloadAgeDays   int  `yaml:"download_age_days"`
}

type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Location  string `yaml:"location"`
	Prefix    string `yaml:"prefix"`
	Secure    *bool  `yaml:"secure"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 7 * * *"
	}
	if cfg.Feed.URL == "" {
		cfg.Feed.URL = "https://feeds.fireside.fm/rosaryinayear/rss"
	}
	if cfg.Storage.DownloadDir == "" {
		cfg.Storage.DownloadDir = "downloads"
	}
	if cfg.Storage.ArchiveDir == "" {
		cfg.Storage.ArchiveDir = "transcripts"
	}
	if cfg.Storage.StateFile == "" {
		cfg.Storage.StateFile = "episodes.db"
	}
	if cfg.Transcribe.WhisperBinary == "" {
		cfg.Transcribe.WhisperBinary = "whisper"
	}
	if cfg.Transcribe.WhisperModelPath == "" {
		cfg.Transcribe.WhisperModelPath = "models/ggml-base.bin"
	}
	if cfg.Transcribe.Language == "" {
		cfg.Transcribe.Language = "en"
	}
	if len(cfg.Summarize.Models) == 0 {
		cfg.Summarize.Models = []string{"gpt-4o-mini"}
	}
	if cfg.Summarize.WebChatURL == "" {
		cfg.Summarize.WebChatURL = "https://chat.openai.com"
	}
	if cfg.Summarize.WebChatWait == 0 {
		cfg.Summarize.WebChatWait = 20
	}
	if cfg.Summarize.Headless == nil {
		headless := true
		cfg.Summarize.Headless = &headless
	}
	if cfg.Cleanup.TranscriptAgeDays == 0 {
		cfg.Cleanup.TranscriptAgeDays = 30
	}
	if cfg.Cleanup.DownloadAgeDays == 0 {
		cfg.Cleanup.DownloadAgeDays = 7
	}
	if cfg.S3.Secure == nil {
		secure := true
		cfg.S3.Secure = &secure
	}
}

func validate(cfg *Config) error {
	if cfg.Feed.URL == "" {
		return fmt.Errorf("config: feed.url is required")
	}
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("config: telegram.bot_token is required (set TELEGRAM_BOT_TOKEN env var)")
	}
	if cfg.Telegram.ChatID == "" {
		return fmt.Errorf("config: telegram.chat_id is required (set TELEGRAM_USER_ID env var)")
	}
	if cfg.S3.Enabled {
		if cfg.S3.Endpoint == "" {
			return fmt.Errorf("config: s3.endpoint is required when s3 is enabled")
		}
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("config: s3.bucket is required when s3 is enabled")
		}
	}
	return nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
