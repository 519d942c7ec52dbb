// Description: 行情推送转发到消息中间件

package broker

import (
	"context"
	"time"

	"github.com/go-gotop/igkit/streammanager"
	"github.com/go-kratos/kratos/v2/log"
	jsoniter "github.com/json-iterator/go"
)

const (
	// HeaderStreamKey 消息头中的流标识
	HeaderStreamKey = "stream-key"

	publishTimeout = 5 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Headers map[string]string

type Message struct {
	Key     string
	Headers Headers
	Body    []byte
}

// Publisher 消息发布方，kafka、redis、nats 各有实现
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *Message) error
	Close() error
}

// UpdateEvent 转发出去的一条推送，字段为 null 时编码为 null
type UpdateEvent struct {
	Key       string             `json:"key"`
	Timestamp int64              `json:"timestamp"`
	Fields    map[string]*string `json:"fields"`
}

func NewUpdateEvent(key streammanager.StreamKey, fields streammanager.Fields) *UpdateEvent {
	return &UpdateEvent{
		Key:       key.String(),
		Timestamp: time.Now().UnixMilli(),
		Fields:    fields,
	}
}

func (e *UpdateEvent) Message() (*Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &Message{
		Key:     e.Key,
		Headers: Headers{HeaderStreamKey: e.Key},
		Body:    body,
	}, nil
}

func DecodeUpdateEvent(data []byte) (*UpdateEvent, error) {
	e := &UpdateEvent{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Forward 返回一个回调，把收到的推送编码后发布到 topic。发布失败只记录日志。
func Forward(pub Publisher, topic string, logger log.Logger) streammanager.Callback {
	helper := log.NewHelper(logger)
	return func(key streammanager.StreamKey, fields streammanager.Fields) {
		msg, err := NewUpdateEvent(key, fields).Message()
		if err != nil {
			helper.Errorf("encode update %s failed: %v", key, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := pub.Publish(ctx, topic, msg); err != nil {
			helper.Errorf("publish %s to %s failed: %v", key, topic, err)
		}
	}
}
