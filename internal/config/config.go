package config

import (
	"fmt"
	"os"
	"strconv"

	commoncfg "crediflow-data/internal/common/config"

	"gopkg.in/yaml.v3"
)

// Config crediflow-data（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	DBEnabled bool                     `yaml:"db_enabled"`
	Database  commoncfg.DatabaseConfig `yaml:"database"`
	Redis     commoncfg.RedisConfig    `yaml:"redis"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Mailer MailerConfig `yaml:"mailer"`
	Events EventsConfig `yaml:"events"`
}

// MailerConfig 邮件通知服务配置（外部协作服务，通过 HTTP 调用）
type MailerConfig struct {
	Enabled     bool   `yaml:"enabled"`      // 是否启用状态变更邮件通知（默认 false）
	HttpAddress string `yaml:"http_address"` // 邮件服务地址
	APIKey      string `yaml:"api_key"`      // 认证 Key（可选）
}

// EventsConfig 状态变更事件发布配置（Redis Streams）
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"` // 是否发布状态变更事件（默认 false）
	Stream  string `yaml:"stream"`  // Stream 名称
}

// Load 加载配置：先取环境变量（带默认值），再用可选的 YAML 文件覆盖
// YAML 文件路径由 CONFIG_FILE 指定，不存在时静默跳过
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, crediflow-data falls back to memory repos.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "crediflow")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 邮件通知（默认禁用；未配置地址时保持 noop）
	cfg.Mailer.Enabled = getEnv("MAILER_ENABLED", "false") == "true"
	cfg.Mailer.HttpAddress = getEnv("MAILER_HTTP_ADDRESS", "")
	cfg.Mailer.APIKey = getEnv("MAILER_API_KEY", "")

	// 状态变更事件发布（默认禁用）
	cfg.Events.Enabled = getEnv("EVENTS_ENABLED", "false") == "true"
	cfg.Events.Stream = getEnv("EVENTS_STREAM", "credit-request-events")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, nil
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
