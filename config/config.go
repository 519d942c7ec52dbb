package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/go-gotop/igkit/limiter"
	"github.com/go-gotop/igkit/streammanager"
	"github.com/go-gotop/igkit/utils"
)

const (
	BrokerNone  = ""
	BrokerKafka = "kafka"
	BrokerRedis = "redis"
	BrokerNats  = "nats"

	SubPrice       = "price"
	SubAccount     = "account"
	SubTrade       = "trade"
	SubChartTick   = "chart_tick"
	SubChartCandle = "chart_candle"
)

type Config struct {
	IG            IGConfig             `yaml:"ig"`
	Stream        StreamConfig         `yaml:"stream"`
	Broker        BrokerConfig         `yaml:"broker"`
	Log           LogConfig            `yaml:"log"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

type IGConfig struct {
	APIKey     string `yaml:"api_key"`
	Identifier string `yaml:"identifier"`
	Password   string `yaml:"password"`
	Demo       bool   `yaml:"demo"`
	// Encrypted 为 true 时 APIKey 和 Password 是 utils.Encrypt 的密文
	Encrypted  bool   `yaml:"encrypted"`
	BaseURL    string `yaml:"base_url"`
	Proxy      string `yaml:"proxy"`
}

type StreamConfig struct {
	Reconnect      *bool          `yaml:"reconnect"`
	ReconnectDelay time.Duration  `yaml:"reconnect_delay"`
	AdapterSet     string         `yaml:"adapter_set"`
	ConnectLimits  []ConnectLimit `yaml:"connect_limits"`
}

// ConnectLimit 在 Period 内最多建立 Times 次推送连接
type ConnectLimit struct {
	Period string `yaml:"period"`
	Times  int64  `yaml:"times"`
}

type BrokerConfig struct {
	Type          string   `yaml:"type"`
	Addrs         []string `yaml:"addrs"`
	Topic         string   `yaml:"topic"`
	Password      string   `yaml:"password"`
	DB            int      `yaml:"db"`
	SubjectPrefix string   `yaml:"subject_prefix"`
}

type LogConfig struct {
	Env           string `yaml:"env"`
	Service       string `yaml:"service"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type SubscriptionConfig struct {
	Type   string   `yaml:"type"`
	Epic   string   `yaml:"epic"`
	Scale  string   `yaml:"scale"`
	Fields []string `yaml:"fields"`
	// Sample 仅用于 chart_tick，按该周期把逐笔聚合后再转发，例如 "1m"
	Sample string   `yaml:"sample"`
}

// NewConfig 读取 .env 和 YAML 配置，环境变量优先
func NewConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 内容，应用环境变量和默认值后校验
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.decrypt(); err != nil {
		return nil, err
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("IG_API_KEY"); v != "" {
		c.IG.APIKey = v
	}
	if v := os.Getenv("IG_IDENTIFIER"); v != "" {
		c.IG.Identifier = v
	}
	if v := os.Getenv("IG_PASSWORD"); v != "" {
		c.IG.Password = v
	}
	if v := os.Getenv("IG_DEMO"); v != "" {
		demo, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid IG_DEMO %q: %w", v, err)
		}
		c.IG.Demo = demo
	}
	return nil
}

func (c *Config) decrypt() error {
	if !c.IG.Encrypted {
		return nil
	}
	key, err := utils.LoadEncryptionKey()
	if err != nil {
		return err
	}
	if c.IG.APIKey, err = utils.Decrypt(c.IG.APIKey, key); err != nil {
		return fmt.Errorf("decrypt api_key: %w", err)
	}
	if c.IG.Password, err = utils.Decrypt(c.IG.Password, key); err != nil {
		return fmt.Errorf("decrypt password: %w", err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Stream.ReconnectDelay == 0 {
		c.Stream.ReconnectDelay = 5 * time.Second
	}
	if c.Log.Service == "" {
		c.Log.Service = "igstream"
	}
}

// SampleDuration 返回聚合周期，未配置时为 0
func (s SubscriptionConfig) SampleDuration() time.Duration {
	if s.Sample == "" {
		return 0
	}
	d, _ := limiter.PeriodDuration(s.Sample)
	return d
}

// ReconnectEnabled 未配置时默认开启
func (c *Config) ReconnectEnabled() bool {
	return c.Stream.Reconnect == nil || *c.Stream.Reconnect
}

// PeriodLimits 转换成限流器的配置
func (c *Config) PeriodLimits() []limiter.PeriodLimit {
	limits := make([]limiter.PeriodLimit, 0, len(c.Stream.ConnectLimits))
	for _, l := range c.Stream.ConnectLimits {
		limits = append(limits, limiter.PeriodLimit{WsConnectPeriod: l.Period, WsConnectTimes: l.Times})
	}
	return limits
}

func (c *Config) Validate() error {
	if c.IG.APIKey == "" {
		return fmt.Errorf("ig api_key cannot be empty")
	}
	if c.IG.Identifier == "" || c.IG.Password == "" {
		return fmt.Errorf("ig identifier and password cannot be empty")
	}
	if c.Stream.ReconnectDelay < 0 {
		return fmt.Errorf("invalid reconnect_delay: %s", c.Stream.ReconnectDelay)
	}
	for i, l := range c.Stream.ConnectLimits {
		if _, _, err := limiter.ParsePeriod(l.Period); err != nil {
			return fmt.Errorf("connect limit %d: %w", i, err)
		}
		if l.Times <= 0 {
			return fmt.Errorf("connect limit %d: times must be positive", i)
		}
	}

	switch c.Broker.Type {
	case BrokerNone:
	case BrokerKafka, BrokerRedis, BrokerNats:
		if len(c.Broker.Addrs) == 0 {
			return fmt.Errorf("broker '%s': addrs cannot be empty", c.Broker.Type)
		}
		if c.Broker.Topic == "" {
			return fmt.Errorf("broker '%s': topic cannot be empty", c.Broker.Type)
		}
	default:
		return fmt.Errorf("unknown broker type '%s'", c.Broker.Type)
	}

	if len(c.Subscriptions) == 0 {
		return fmt.Errorf("at least one subscription must be configured")
	}
	for i, s := range c.Subscriptions {
		if err := s.validate(); err != nil {
			return fmt.Errorf("subscription %d: %w", i, err)
		}
	}
	return nil
}

func (s SubscriptionConfig) validate() error {
	switch s.Type {
	case SubAccount, SubTrade:
	case SubPrice, SubChartTick:
		if s.Epic == "" {
			return fmt.Errorf("%s requires epic", s.Type)
		}
	case SubChartCandle:
		if s.Epic == "" || s.Scale == "" {
			return fmt.Errorf("%s requires epic and scale", s.Type)
		}
	default:
		return fmt.Errorf("unknown subscription type '%s'", s.Type)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%s: %w", s.Type, streammanager.ErrInvalidFields)
	}
	if s.Sample != "" {
		if s.Type != SubChartTick {
			return fmt.Errorf("sample is only supported for %s", SubChartTick)
		}
		if _, err := limiter.PeriodDuration(s.Sample); err != nil {
			return fmt.Errorf("sample: %w", err)
		}
	}
	return nil
}
