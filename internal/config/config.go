package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port              int      `env:"PORT" envDefault:"8080"`
	DatabaseURL       string   `env:"DATABASE_URL,required"`
	RedisURL          string   `env:"REDIS_URL,required"`
	LogLevel          string   `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret         string   `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	SessionTokenTTL   int      `env:"SESSION_TOKEN_TTL_MINUTES" envDefault:"120"`
	AdminUsername     string   `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash string   `env:"ADMIN_PASSWORD_HASH"`
	CORSOrigins       []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	Interview InterviewConfig
	Providers ProviderConfig
	Storage   StorageConfig
}

// InterviewConfig holds the timing and budget policy for every session.
type InterviewConfig struct {
	AnswerSeconds int    `env:"ANSWER_SECONDS" envDefault:"120"`
	BufferSeconds int    `env:"BUFFER_SECONDS" envDefault:"10"`
	GraceSeconds  int    `env:"GRACE_SECONDS" envDefault:"2"`
	MaxQuestions  int    `env:"MAX_QUESTIONS" envDefault:"15"`
	MaxRetries    int    `env:"MAX_RETRIES" envDefault:"5"`
	StructureFile string `env:"INTERVIEW_STRUCTURE_FILE"`
}

func (c InterviewConfig) AnswerWindow() time.Duration {
	return time.Duration(c.AnswerSeconds) * time.Second
}

func (c InterviewConfig) Buffer() time.Duration {
	return time.Duration(c.BufferSeconds) * time.Second
}

func (c InterviewConfig) Grace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

type ProviderConfig struct {
	Evaluator         string `env:"EVALUATOR_PROVIDER" envDefault:"groq"`
	GroqAPIKey        string `env:"GROQ_API_KEY"`
	GroqBaseURL       string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	GroqChatModel     string `env:"GROQ_CHAT_MODEL" envDefault:"llama-3.3-70b-versatile"`
	GroqWhisperModel  string `env:"GROQ_WHISPER_MODEL" envDefault:"whisper-large-v3"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY"`
	GeminiModel       string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	TranscribeSeconds int    `env:"TRANSCRIBE_TIMEOUT_SECONDS" envDefault:"60"`
	EvaluateSeconds   int    `env:"EVALUATE_TIMEOUT_SECONDS" envDefault:"30"`
}

func (c ProviderConfig) TranscribeTimeout() time.Duration {
	return time.Duration(c.TranscribeSeconds) * time.Second
}

func (c ProviderConfig) EvaluateTimeout() time.Duration {
	return time.Duration(c.EvaluateSeconds) * time.Second
}

type StorageConfig struct {
	AudioPath         string `env:"AUDIO_STORAGE_PATH" envDefault:"audio_files"`
	MaxAudioMB        int    `env:"MAX_AUDIO_MB" envDefault:"50"`
	RetentionDays     int    `env:"RETENTION_DAYS" envDefault:"60"`
	RetentionSchedule string `env:"RETENTION_SCHEDULE" envDefault:"0 3 * * *"`
}

func (c StorageConfig) MaxAudioBytes() int64 {
	return int64(c.MaxAudioMB) << 20
}

func (c StorageConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.SessionTokenTTL) * time.Minute
}

func (c *Config) Validate(isProduction bool) error {
	positives := []struct {
		name  string
		value int
	}{
		{"ANSWER_SECONDS", c.Interview.AnswerSeconds},
		{"BUFFER_SECONDS", c.Interview.BufferSeconds},
		{"GRACE_SECONDS", c.Interview.GraceSeconds},
		{"MAX_QUESTIONS", c.Interview.MaxQuestions},
		{"MAX_RETRIES", c.Interview.MaxRetries},
		{"TRANSCRIBE_TIMEOUT_SECONDS", c.Providers.TranscribeSeconds},
		{"EVALUATE_TIMEOUT_SECONDS", c.Providers.EvaluateSeconds},
		{"MAX_AUDIO_MB", c.Storage.MaxAudioMB},
		{"RETENTION_DAYS", c.Storage.RetentionDays},
		{"SESSION_TOKEN_TTL_MINUTES", c.SessionTokenTTL},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %d", p.name, p.value)
		}
	}

	switch c.Providers.Evaluator {
	case "groq", "gemini":
	default:
		return fmt.Errorf("EVALUATOR_PROVIDER must be one of groq, gemini (got %q)", c.Providers.Evaluator)
	}

	if c.AdminPasswordHash != "" {
		if !strings.HasPrefix(c.AdminPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2y$") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if isProduction {
		if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
			return err
		}
		if c.AdminPasswordHash == "" {
			log.Warn().Msg("ADMIN_PASSWORD_HASH is empty in production: admin endpoints are disabled")
		}
		if c.Providers.GroqAPIKey == "" {
			log.Warn().Msg("GROQ_API_KEY is empty in production: every answer will be recorded as a transcription failure")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
