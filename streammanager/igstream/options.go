package igstream

import (
	"time"

	"github.com/go-gotop/igkit/limiter"
	"github.com/go-kratos/kratos/v2/log"
)

type Option func(*options)

type options struct {
	logger          *log.Helper
	reconnect       bool            // 断线后是否自动重连
	reconnectDelay  time.Duration   // 重连前的固定等待
	adapterSet      string          // Lightstreamer adapter set
	defaultEndpoint string          // 凭证没有推送地址时使用
	connLimiter     limiter.Limiter // 连接限流器
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(logger)
	}
}

func WithReconnect(reconnect bool) Option {
	return func(o *options) {
		o.reconnect = reconnect
	}
}

func WithReconnectDelay(delay time.Duration) Option {
	return func(o *options) {
		o.reconnectDelay = delay
	}
}

func WithAdapterSet(adapterSet string) Option {
	return func(o *options) {
		o.adapterSet = adapterSet
	}
}

func WithDefaultEndpoint(endpoint string) Option {
	return func(o *options) {
		o.defaultEndpoint = endpoint
	}
}

func WithConnLimiter(connLimiter limiter.Limiter) Option {
	return func(o *options) {
		o.connLimiter = connLimiter
	}
}
