package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	StaticPath     string        `mapstructure:"static_path"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	Secret         string        `mapstructure:"secret"`
	LogLevel       string        `mapstructure:"log_level"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	Backpressure   string        `mapstructure:"backpressure"`
	RingTimeout    time.Duration `mapstructure:"ring_timeout"`
	ReaperInterval time.Duration `mapstructure:"reaper_interval"`
	InviteLimit    int           `mapstructure:"invite_limit"`
	InviteInterval time.Duration `mapstructure:"invite_interval"`

	// TrustUserHeader takes the principal from X-User-ID. Set it only behind
	// an authenticating gateway that strips the header from client requests.
	TrustUserHeader bool     `mapstructure:"trust_user_header"`
	// AllowedOrigins lists browser origins allowed to open the signaling
	// socket besides the server's own host. "*" allows any origin.
	AllowedOrigins  []string `mapstructure:"allowed_origins"`

	History HistoryConfig `mapstructure:"history"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type HistoryConfig struct {
	Driver    string        `mapstructure:"driver"`
	DSN       string        `mapstructure:"dsn"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("log_level", "info")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("backpressure", "kick")
	v.SetDefault("ring_timeout", "60s")
	v.SetDefault("reaper_interval", "5s")
	v.SetDefault("invite_limit", 10)
	v.SetDefault("invite_interval", "1m")
	v.SetDefault("trust_user_header", false)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("history.driver", "memory")
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.queue_size", 256)
	v.SetDefault("history.timeout", "5s")
	v.SetDefault("metrics.namespace", "calls")
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). Any key can
// be overridden by SIGNAL_<KEY>, with dots as underscores.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("SIGNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.PongWait <= cfg.PingPeriod {
		return nil, fmt.Errorf("pong_wait (%s) must exceed ping_period (%s)", cfg.PongWait, cfg.PingPeriod)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | History: %s\n", cfg.Mode, cfg.Port, cfg.History.Driver)
	return &cfg, nil
}
