package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	// 为空则放行所有来源
	CORSOrigins []string `mapstructure:"cors_origins"`
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret    string
	Issuer    string
	ExpiresIn string `mapstructure:"expires_in"` // 3600 / 2h / 7d
}

type Auth struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
	// 登录/注册每 IP 限速
	LoginRPS   float64 `mapstructure:"login_rps"`
	LoginBurst int     `mapstructure:"login_burst"`
	// 守卫链按 ID 查用户的缓存时间（需要 redis）
	UserCacheTTLSec int `mapstructure:"user_cache_ttl_sec"`
	// 启动时授予 admin 角色的账号（逗号分隔）
	AdminEmails []string `mapstructure:"admin_emails"`
}

type Google struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	CallbackURL  string `mapstructure:"callback_url"`
	StateTTLMin  int    `mapstructure:"state_ttl_min"`
}

// Enabled 三项都配置了才挂载 Google 登录路由
func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.CallbackURL != ""
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App    App
	Log    Log
	JWT    JWT
	Auth   Auth
	Google Google
	DB     DB
	Redis  Redis `mapstructure:"redis"`
}

// 规范里约定的环境变量名，优先级高于 APP_ 前缀
var envAliases = map[string][]string{
	"db.dsn":               {"DB_CONNECTION_URL", "APP_DB_DSN"},
	"jwt.secret":           {"JWT_SECRET", "APP_JWT_SECRET"},
	"jwt.expires_in":       {"JWT_EXPIRES_IN", "APP_JWT_EXPIRES_IN"},
	"google.client_id":     {"GOOGLE_CLIENT_ID", "APP_GOOGLE_CLIENT_ID"},
	"google.client_secret": {"GOOGLE_CLIENT_SECRET", "APP_GOOGLE_CLIENT_SECRET"},
	"google.callback_url":  {"GOOGLE_CALLBACK_URL", "APP_GOOGLE_CALLBACK_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth-api")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.http.cors_origins", []string{})
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.filename", "")
	v.SetDefault("log.file.compress", false)
	v.SetDefault("log.file.maxsizemb", 100)
	v.SetDefault("log.file.maxbackups", 7)
	v.SetDefault("log.file.maxagedays", 30)

	v.SetDefault("jwt.issuer", "auth-api")

	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.login_rps", 5)
	v.SetDefault("auth.login_burst", 10)
	v.SetDefault("auth.user_cache_ttl_sec", 30)
	v.SetDefault("auth.admin_emails", []string{})

	v.SetDefault("google.state_ttl_min", 10)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxopenconns", 50)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.loglevel", "warn")
}

// Load 读取 YAML（可选）+ 环境变量，并在返回前做一次完整校验
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	explicit := path != ""
	if path == "" {
		path = "./configs/config.local.yaml"
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, envs := range envAliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// 默认路径不存在时只用环境变量
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not defined"))
	}
	if c.JWT.ExpiresIn == "" {
		errs = append(errs, errors.New("JWT_EXPIRES_IN is not defined"))
	} else if _, err := ParseExpiresIn(c.JWT.ExpiresIn); err != nil {
		errs = append(errs, err)
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported db driver %q", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("DB_CONNECTION_URL is not defined"))
	}
	return errors.Join(errs...)
}

// TokenTTL 校验过后才调用
func (c *Config) TokenTTL() time.Duration {
	d, _ := ParseExpiresIn(c.JWT.ExpiresIn)
	return d
}

// ParseExpiresIn 支持纯数字（秒）、Go duration（2h30m）以及天数（7d）
func ParseExpiresIn(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("JWT_EXPIRES_IN is empty")
	}
	var d time.Duration
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if d, err = scale(s, n, time.Second); err != nil {
			return 0, err
		}
	} else if strings.HasSuffix(s, "d") {
		n, err := strconv.ParseInt(strings.TrimSuffix(s, "d"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid JWT_EXPIRES_IN %q", s)
		}
		if d, err = scale(s, n, 24*time.Hour); err != nil {
			return 0, err
		}
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid JWT_EXPIRES_IN %q", s)
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("JWT_EXPIRES_IN must be positive, got %q", s)
	}
	return d, nil
}

// scale n*unit，超出 time.Duration 范围时报错而不是溢出
func scale(raw string, n int64, unit time.Duration) (time.Duration, error) {
	if n <= 0 {
		return 0, fmt.Errorf("JWT_EXPIRES_IN must be positive, got %q", raw)
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("JWT_EXPIRES_IN %q is out of range", raw)
	}
	return time.Duration(n) * unit, nil
}
