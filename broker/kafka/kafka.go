package kafka

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/go-gotop/igkit/broker"
)

var _ broker.Publisher = (*Publisher)(nil)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

type Option func(*options)

type options struct {
	logger       *log.Helper
	batchTimeout time.Duration
	async        bool
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(logger)
	}
}

// WithBatchTimeout 批量发送的最长等待时间
func WithBatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.batchTimeout = d
	}
}

// WithAsync 异步写入，错误只记录日志
func WithAsync(async bool) Option {
	return func(o *options) {
		o.async = async
	}
}

func NewPublisher(addrs []string, opts ...Option) *Publisher {
	o := &options{
		logger:       log.NewHelper(log.DefaultLogger),
		batchTimeout: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(addrs...),
		Balancer:               &kafkaGo.Hash{},
		BatchTimeout:           o.batchTimeout,
		Async:                  o.async,
		AllowAutoTopicCreation: true,
		Logger:                 &Logger{logger: o.logger},
		ErrorLogger:            &ErrorLogger{logger: o.logger},
	}
	return &Publisher{opts: o, writer: w}
}

// Publisher 同一个 key 的消息落在同一个分区，保持推送顺序
type Publisher struct {
	opts   *options
	writer writer
}

func (p *Publisher) Publish(ctx context.Context, topic string, msg *broker.Message) error {
	return p.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic:   topic,
		Key:     []byte(msg.Key),
		Value:   msg.Body,
		Headers: mapToKafkaHeader(msg.Headers),
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
