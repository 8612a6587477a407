package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Chatbot  ChatbotConfig  `mapstructure:"chatbot"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	ATS      ATSConfig      `mapstructure:"ats"`
	NLP      NLPConfig      `mapstructure:"nlp"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// AllowedOrigins 为空时，WebSocket 仅允许同源连接。
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ChatbotConfig 描述对话状态机的静态配置，进程生命周期内不可变。
type ChatbotConfig struct {
	Domains          []string `mapstructure:"domains"`
	ExperienceLevels []string `mapstructure:"experience_levels"`
	Templates        []string `mapstructure:"templates"`
	DefaultTemplate  string   `mapstructure:"default_template"`
	// ResponseTimeoutSec 是会话空闲过期阈值（秒）。
	ResponseTimeoutSec int `mapstructure:"response_timeout"`
	// CleanupIntervalSec 是后台清扫周期（秒），与过期阈值相互独立。
	CleanupIntervalSec int `mapstructure:"cleanup_interval"`
}

// ResponseTimeout 返回会话空闲过期阈值。
func (c ChatbotConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutSec) * time.Second
}

// CleanupInterval 返回清扫周期。
func (c ChatbotConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSec) * time.Second
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// ATSConfig 描述 ATS 打分所需的关键词与必备段落。
type ATSConfig struct {
	Keywords         []string `mapstructure:"keywords"`
	RequiredSections []string `mapstructure:"required_sections"`
}

// NLPConfig 描述可选的实体抽取能力；APIKey 为空时该能力整体关闭。
type NLPConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	Model        string `mapstructure:"model"`
}

// UploadConfig 描述照片上传限制；ClamdAddr 为空时跳过病毒扫描。
type UploadConfig struct {
	ClamdAddr     string   `mapstructure:"clamd_addr"`
	MaxBytes      int64    `mapstructure:"max_bytes"`
	MIMEWhitelist []string `mapstructure:"mime_whitelist"`
	MaxPerDay     int      `mapstructure:"max_per_day"`
}

// AuthConfig 描述会话令牌签名配置。
type AuthConfig struct {
	SessionTokenSecret string `mapstructure:"session_token_secret"`
	SessionTokenTTLSec int    `mapstructure:"session_token_ttl"`
}

// SessionTokenTTL 返回会话令牌有效期。
func (a AuthConfig) SessionTokenTTL() time.Duration {
	return time.Duration(a.SessionTokenTTLSec) * time.Second
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	normalize(&cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("chatbot.domains", "IT,Healthcare,Marketing,Finance,Engineering,Education")
	v.SetDefault("chatbot.experience_levels", "Fresher,1-2 years,3-5 years,5+ years")
	v.SetDefault("chatbot.templates", "modern,classic,minimal")
	v.SetDefault("chatbot.default_template", "modern")
	v.SetDefault("chatbot.response_timeout", 300)
	v.SetDefault("chatbot.cleanup_interval", 300)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "chatresume")
	v.SetDefault("database.user", "chatresume")
	v.SetDefault("database.password", "chatresume")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("ats.keywords", "teamwork,leadership,communication,problem solving,project management")
	v.SetDefault("ats.required_sections", "skills,experiences,education")
	v.SetDefault("nlp.model", "gemini-2.5-flash")
	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("upload.mime_whitelist", "image/png,image/jpeg")
	v.SetDefault("upload.max_per_day", 20)
	v.SetDefault("auth.session_token_ttl", 86400)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                  "API_PORT",
		"api.allowed_origins":       "API_ALLOWED_ORIGINS",
		"chatbot.domains":           "CHATBOT_DOMAINS",
		"chatbot.experience_levels": "CHATBOT_EXPERIENCE_LEVELS",
		"chatbot.templates":         "CHATBOT_TEMPLATES",
		"chatbot.default_template":  "CHATBOT_DEFAULT_TEMPLATE",
		"chatbot.response_timeout":  "CHATBOT_RESPONSE_TIMEOUT",
		"chatbot.cleanup_interval":  "CHATBOT_CLEANUP_INTERVAL",
		"database.host":             "DATABASE_HOST",
		"database.port":             "DATABASE_PORT",
		"database.name":             "POSTGRES_DB",
		"database.user":             "POSTGRES_USER",
		"database.password":         "POSTGRES_PASSWORD",
		"database.sslmode":          "DATABASE_SSLMODE",
		"redis.host":                "REDIS_HOST",
		"redis.port":                "REDIS_PORT",
		"minio.endpoint":            "MINIO_ENDPOINT",
		"minio.access_key_id":       "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":   "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":             "MINIO_USE_SSL",
		"minio.bucket":              "MINIO_BUCKET",
		"minio.auto_create_bucket":  "MINIO_AUTO_CREATE_BUCKET",
		"ats.keywords":              "ATS_KEYWORDS",
		"ats.required_sections":     "ATS_REQUIRED_SECTIONS",
		"nlp.gemini_api_key":        "GEMINI_API_KEY",
		"nlp.model":                 "NLP_MODEL",
		"upload.clamd_addr":         "CLAMD_ADDR",
		"upload.max_bytes":          "UPLOAD_MAX_BYTES",
		"upload.mime_whitelist":     "UPLOAD_MIME_WHITELIST",
		"upload.max_per_day":        "UPLOAD_MAX_PER_DAY",
		"auth.session_token_secret": "SESSION_TOKEN_SECRET",
		"auth.session_token_ttl":    "SESSION_TOKEN_TTL",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

// normalize 将从环境变量读入的逗号分隔字符串展开为切片。
func normalize(cfg *Config) {
	cfg.API.AllowedOrigins = splitCSV(cfg.API.AllowedOrigins)
	cfg.Chatbot.Domains = splitCSV(cfg.Chatbot.Domains)
	cfg.Chatbot.ExperienceLevels = splitCSV(cfg.Chatbot.ExperienceLevels)
	cfg.Chatbot.Templates = splitCSV(cfg.Chatbot.Templates)
	cfg.ATS.Keywords = splitCSV(cfg.ATS.Keywords)
	cfg.ATS.RequiredSections = splitCSV(cfg.ATS.RequiredSections)
	cfg.Upload.MIMEWhitelist = splitCSV(cfg.Upload.MIMEWhitelist)
}

func splitCSV(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if len(cfg.Chatbot.Domains) == 0 {
		return errors.New("chatbot domains are required")
	}
	if len(cfg.Chatbot.ExperienceLevels) == 0 {
		return errors.New("chatbot experience levels are required")
	}
	if len(cfg.Chatbot.Templates) == 0 {
		return errors.New("chatbot templates are required")
	}
	if cfg.Chatbot.ResponseTimeoutSec <= 0 {
		return errors.New("chatbot response timeout must be positive")
	}
	if cfg.Chatbot.CleanupIntervalSec <= 0 {
		return errors.New("chatbot cleanup interval must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Upload.MaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}
	if cfg.Auth.SessionTokenSecret == "" {
		return errors.New("session token secret is required")
	}
	if cfg.Auth.SessionTokenTTLSec <= 0 {
		return errors.New("session token ttl must be positive")
	}
	return nil
}
