package lightstreamer

import (
	"time"

	"github.com/go-gotop/igkit/websocket"
	"github.com/go-gotop/igkit/websocket/gorilla"
	"github.com/go-kratos/kratos/v2/log"
)

type Option func(*options)

type options struct {
	logger           *log.Helper
	newWebsocket     func() websocket.Websocket
	cid              string
	connectTimeout   time.Duration
	stalledTimeout   time.Duration
	reconnectTimeout time.Duration
	checkInterval    time.Duration
}

func defaultOptions() *options {
	return &options{
		logger: log.NewHelper(log.DefaultLogger),
		newWebsocket: func() websocket.Websocket {
			return gorilla.NewGorillaWebsocket(gorilla.NewGorillaWebSocketConn(), &websocket.WebsocketConfig{})
		},
		cid:              defaultCID,
		connectTimeout:   10 * time.Second,
		stalledTimeout:   2 * time.Second,
		reconnectTimeout: 3 * time.Second,
		checkInterval:    time.Second,
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(logger)
	}
}

// WithWebsocket 替换底层 websocket 实现
func WithWebsocket(f func() websocket.Websocket) Option {
	return func(o *options) {
		o.newWebsocket = f
	}
}

func WithCID(cid string) Option {
	return func(o *options) {
		o.cid = cid
	}
}

// WithConnectTimeout 等待 CONOK 的最长时间
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = d
	}
}

// WithStalledTimeout 超过 keepalive 之后多久没有消息判定为 STALLED
func WithStalledTimeout(d time.Duration) Option {
	return func(o *options) {
		o.stalledTimeout = d
	}
}

// WithReconnectTimeout STALLED 之后多久仍没有消息就断开连接
func WithReconnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.reconnectTimeout = d
	}
}

func WithCheckInterval(d time.Duration) Option {
	return func(o *options) {
		o.checkInterval = d
	}
}
