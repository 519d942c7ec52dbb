package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/nats-io/nats.go"

	"github.com/go-gotop/igkit/broker"
)

var _ broker.Publisher = (*Publisher)(nil)

type conn interface {
	PublishMsg(m *nats.Msg) error
	Drain() error
}

type Option func(*options)

type options struct {
	logger         *log.Helper
	name           string
	subjectPrefix  string
	connectTimeout time.Duration
	reconnectWait  time.Duration
	maxReconnects  int
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(logger)
	}
}

func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithSubjectPrefix 所有 subject 加上统一前缀
func WithSubjectPrefix(prefix string) Option {
	return func(o *options) {
		o.subjectPrefix = prefix
	}
}

func WithReconnect(wait time.Duration, max int) Option {
	return func(o *options) {
		o.reconnectWait = wait
		o.maxReconnects = max
	}
}

func defaultOptions() *options {
	return &options{
		logger:         log.NewHelper(log.DefaultLogger),
		name:           "igstream",
		connectTimeout: 5 * time.Second,
		reconnectWait:  2 * time.Second,
		maxReconnects:  -1,
	}
}

// NewPublisher 连接 nats，断线后由 nats 客户端自动重连
func NewPublisher(url string, opts ...Option) (*Publisher, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	nc, err := nats.Connect(url,
		nats.Name(o.name),
		nats.Timeout(o.connectTimeout),
		nats.ReconnectWait(o.reconnectWait),
		nats.MaxReconnects(o.maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			o.logger.Warnf("nats disconnected, attempting reconnect: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			o.logger.Infof("nats reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			o.logger.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connection failed: %w", err)
	}
	return &Publisher{opts: o, conn: nc}, nil
}

type Publisher struct {
	opts *options
	conn conn
}

func (p *Publisher) subject(topic string) string {
	if p.opts.subjectPrefix == "" {
		return topic
	}
	return p.opts.subjectPrefix + "." + topic
}

// Publish 消息头随消息一起发送，不等待确认
func (p *Publisher) Publish(_ context.Context, topic string, msg *broker.Message) error {
	m := nats.NewMsg(p.subject(topic))
	m.Data = msg.Body
	for k, v := range msg.Headers {
		m.Header.Set(k, v)
	}
	return p.conn.PublishMsg(m)
}

// Close 发送完缓冲区中的消息后关闭
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
