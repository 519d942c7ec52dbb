package center

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// 日志列表最多保留的条数
	defaultMaxEntries = 100000
	defaultExpire     = 10 * 24 * time.Hour
)

type LogEntry struct {
	Service   string `json:"service"`
	Level     string `json:"level"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// Config 日志配置，Env 为 PRD 且配置了 redis 地址时同时写入 redis
type Config struct {
	Env      string
	Service  string
	Addr     string
	Password string
	DB       int
}

// RedisHandler 是一个log.Logger，将日志追加到 redis 列表 log:<service>。
type RedisHandler struct {
	client      *redis.Client
	serviceName string // 日志json格式中的服务名 用做检索
	maxEntries  int64
}

type MultiLogger struct {
	loggers []log.Logger
}

func newMultiLogger(loggers ...log.Logger) *MultiLogger {
	return &MultiLogger{
		loggers: loggers,
	}
}

// Log 每个 logger 都会写入，返回第一个错误
func (m *MultiLogger) Log(level log.Level, keyvals ...interface{}) error {
	var first error
	for _, logger := range m.loggers {
		if err := logger.Log(level, keyvals...); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *RedisHandler) key() string {
	return "log:" + h.serviceName
}

// Log 实现了log.Logger接口。
func (h *RedisHandler) Log(level log.Level, keyvals ...interface{}) error {
	entry := &LogEntry{
		Service:   h.serviceName,
		Level:     levelToString(level),
		Timestamp: time.Now().UnixNano(),
		Message:   formatKeyvals(keyvals...),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pipe := h.client.TxPipeline()
	pipe.RPush(ctx, h.key(), data)
	pipe.LTrim(ctx, h.key(), -h.maxEntries, -1)
	pipe.Expire(ctx, h.key(), defaultExpire)
	_, err = pipe.Exec(ctx)
	return err
}

// formatKeyvals 拼接成 key=value 格式，缺少值的 key 标记为 MISSING_VALUE
func formatKeyvals(keyvals ...interface{}) string {
	var b strings.Builder
	for i := 0; i < len(keyvals); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i+1 < len(keyvals) {
			fmt.Fprintf(&b, "%v=%v", keyvals[i], keyvals[i+1])
		} else {
			fmt.Fprintf(&b, "%v=MISSING_VALUE", keyvals[i])
		}
	}
	return b.String()
}

func newStdoutHandler() log.Logger {
	return log.NewStdLogger(os.Stdout)
}

// NewRedisHandler 创建一个新的RedisHandler实例。
func NewRedisHandler(client *redis.Client, name string) *RedisHandler {
	return &RedisHandler{
		client:      client,
		serviceName: name,
		maxEntries:  defaultMaxEntries,
	}
}

func newRedisClient(addr, passwd string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: passwd,
		DB:       db,
	})
	return rdb
}

// NewLogger 标准输出加可选的 redis，带上时间和服务名
func NewLogger(cfg Config) log.Logger {
	loggers := []log.Logger{newStdoutHandler()}
	if cfg.Env == "PRD" && cfg.Addr != "" {
		loggers = append(loggers, NewRedisHandler(newRedisClient(cfg.Addr, cfg.Password, cfg.DB), cfg.Service))
	}
	return log.With(newMultiLogger(loggers...),
		"ts", log.DefaultTimestamp,
		"service", cfg.Service,
	)
}

// levelToString 将日志级别转换为字符串
func levelToString(level log.Level) string {
	switch level {
	case log.LevelDebug:
		return "DEBUG"
	case log.LevelInfo:
		return "INFO"
	case log.LevelWarn:
		return "WARN"
	case log.LevelError:
		return "ERROR"
	case log.LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
