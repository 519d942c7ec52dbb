package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/go-gotop/igkit/broker"
)

var _ broker.Publisher = (*Publisher)(nil)

// NewRedisClient
func NewRedisClient(addr, passwd string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: passwd,
		DB:       db,
	})
}

func NewPublisher(client *goredis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publisher 使用 PUBLISH 发布，redis 频道没有消息头，只发送消息体
type Publisher struct {
	client *goredis.Client
}

func (p *Publisher) Publish(ctx context.Context, topic string, msg *broker.Message) error {
	return p.client.Publish(ctx, topic, msg.Body).Err()
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
