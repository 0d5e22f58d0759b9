package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Store    StoreConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Domain   DomainVerifyConfig
	Admin    AdminConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type DatabaseConfig struct {
	Driver  string // postgres / sqlite
	DSN     string
	Migrate string // auto: GORM AutoMigrate, sql: golang-migrate
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// StoreConfig 店铺域名相关配置
// STORE_IP_ADDRESS / STORE_DOMAIN 用于生成自定义域名的 DNS 记录
type StoreConfig struct {
	IPAddress string
	Domain    string
	CacheTTL  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// DomainVerifyConfig 自定义域名校验配置
type DomainVerifyConfig struct {
	DoHEndpoint string
	Cron        string
	BatchSize   int
	Concurrency int
}

// AdminConfig 启动时自动创建的管理员账号
type AdminConfig struct {
	Username string
	Password string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load 读取配置
// 优先级：环境变量 > config.yaml > 默认值
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "release")

	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=localhost user=reseller password=reseller dbname=reseller_hub port=5432 sslmode=disable")
	v.SetDefault("DATABASE_MIGRATE", "auto")

	v.SetDefault("JWT_SECRET", "reseller-hub-secret-change-in-production")
	v.SetDefault("JWT_ACCESS_TTL", "2h")
	v.SetDefault("JWT_REFRESH_TTL", "168h")
	v.SetDefault("JWT_ISSUER", "reseller-hub")

	v.SetDefault("STORE_IP_ADDRESS", "123.456.789.0")
	v.SetDefault("STORE_DOMAIN", "yourdomain.com")
	v.SetDefault("STORE_CACHE_TTL", "5m")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "store-events")

	v.SetDefault("DOH_ENDPOINT", "https://cloudflare-dns.com/dns-query")
	v.SetDefault("DOMAIN_VERIFY_CRON", "0 */10 * * * *")
	v.SetDefault("DOMAIN_VERIFY_BATCH", 200)
	v.SetDefault("DOMAIN_VERIFY_CONCURRENCY", 10)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:    v.GetString("SERVER_PORT"),
			GinMode: v.GetString("GIN_MODE"),
		},
		Database: DatabaseConfig{
			Driver:  v.GetString("DATABASE_DRIVER"),
			DSN:     v.GetString("DATABASE_DSN"),
			Migrate: v.GetString("DATABASE_MIGRATE"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			AccessTTL:  v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL: v.GetDuration("JWT_REFRESH_TTL"),
			Issuer:     v.GetString("JWT_ISSUER"),
		},
		Store: StoreConfig{
			IPAddress: v.GetString("STORE_IP_ADDRESS"),
			Domain:    v.GetString("STORE_DOMAIN"),
			CacheTTL:  v.GetDuration("STORE_CACHE_TTL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Domain: DomainVerifyConfig{
			DoHEndpoint: v.GetString("DOH_ENDPOINT"),
			Cron:        v.GetString("DOMAIN_VERIFY_CRON"),
			BatchSize:   v.GetInt("DOMAIN_VERIFY_BATCH"),
			Concurrency: v.GetInt("DOMAIN_VERIFY_CONCURRENCY"),
		},
		Admin: AdminConfig{
			Username: v.GetString("ADMIN_USERNAME"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// splitList 解析逗号分隔的列表，忽略空项
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
