package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Solver   SolverConfig   `mapstructure:"solver"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Client   ClientConfig   `mapstructure:"client"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
// 令牌由外部认证服务签发（HS256，共享密钥），本服务只做校验
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"` // 仅用于开发环境自签令牌
}

// SolverConfig 外部求解服务配置
type SolverConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`   // 同一用户求解互斥锁有效期
	RateLimit int           `mapstructure:"rate_limit"` // 每分钟允许的求解请求数
}

// PlannerConfig 排课网格配置
type PlannerConfig struct {
	PeriodCount int      `mapstructure:"period_count"`
	PeriodTimes []string `mapstructure:"period_times"` // "07:25-08:15"，下标 0 对应第 1 节
	TermStart   string   `mapstructure:"term_start"`   // YYYY-MM-DD，学期第一周周一
	TermWeeks   int      `mapstructure:"term_weeks"`
	Timezone    string   `mapstructure:"timezone"`
}

// ClientConfig 命令行客户端配置
type ClientConfig struct {
	GatewayURL string        `mapstructure:"gateway_url"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// defaultPeriodTimes 默认节次时间（11 节）
var defaultPeriodTimes = []string{
	"07:25-08:15", "08:30-09:20", "09:35-10:25", "10:40-11:30",
	"11:45-12:35", "12:50-13:40", "13:55-14:45", "15:00-15:50",
	"16:05-16:55", "17:10-18:00", "18:15-19:05",
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "ai_advisor")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/New_York")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "ai-advisor")
	v.SetDefault("auth.access_token_ttl", "1h")

	v.SetDefault("solver.url", "http://localhost:8000/solve/")
	v.SetDefault("solver.timeout", "30s")
	v.SetDefault("solver.lock_ttl", "60s")
	v.SetDefault("solver.rate_limit", 20)

	v.SetDefault("planner.period_count", 11)
	v.SetDefault("planner.period_times", defaultPeriodTimes)
	v.SetDefault("planner.term_start", "2026-01-12")
	v.SetDefault("planner.term_weeks", 16)
	v.SetDefault("planner.timezone", "America/New_York")

	v.SetDefault("client.gateway_url", "http://localhost:8080")
	v.SetDefault("client.timeout", "45s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &cfg, nil
}

// Validate 校验服务端关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Solver.URL == "" {
		return fmt.Errorf("配置校验失败: solver.url 不能为空")
	}
	return c.Planner.Validate()
}

// Validate 校验排课网格配置
func (p *PlannerConfig) Validate() error {
	if p.PeriodCount <= 0 {
		return fmt.Errorf("配置校验失败: planner.period_count 必须大于 0")
	}
	if len(p.PeriodTimes) > 0 && len(p.PeriodTimes) < p.PeriodCount {
		return fmt.Errorf("配置校验失败: planner.period_times 数量不足 %d 节", p.PeriodCount)
	}
	if p.TermStart != "" {
		if _, err := time.Parse("2006-01-02", p.TermStart); err != nil {
			return fmt.Errorf("配置校验失败: planner.term_start 格式应为 YYYY-MM-DD: %w", err)
		}
	}
	return nil
}
