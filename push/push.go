package push

import (
	"errors"
	"strings"
)

var (
	ErrNotConnected        = errors.New("push transport not connected")
	ErrUnknownSubscription = errors.New("unknown subscription")
)

// Status 连接状态，可能带有子状态，例如 "CONNECTED:WS-STREAMING"、"DISCONNECTED:WILL-RETRY"
type Status string

const (
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
	StatusStalled      Status = "STALLED"
	StatusDisconnected Status = "DISCONNECTED"
)

func (s Status) IsConnecting() bool {
	return strings.HasPrefix(string(s), string(StatusConnecting))
}

func (s Status) IsConnected() bool {
	return strings.HasPrefix(string(s), string(StatusConnected))
}

func (s Status) IsStalled() bool {
	return strings.HasPrefix(string(s), string(StatusStalled))
}

func (s Status) IsDisconnected() bool {
	return strings.HasPrefix(string(s), string(StatusDisconnected))
}

// ItemUpdate 一个 item 的一次推送
type ItemUpdate interface {
	ItemName() string
	// Value 返回字段当前值，ok 为 false 表示没有值
	Value(field string) (value string, ok bool)
	IsChanged(field string) bool
	IsSnapshot() bool
}

// SubscriptionListener 订阅事件回调，在传输层的读协程里同步调用
type SubscriptionListener interface {
	OnItemUpdate(update ItemUpdate)
	OnSubscription()
	OnSubscriptionError(code int, message string)
	OnUnsubscription()
}

// ClientListener 连接事件回调
type ClientListener interface {
	OnStatusChange(status Status)
	OnServerError(code int, message string)
}

// Subscription 传输层订阅对象
type Subscription struct {
	Mode        string
	Items       []string
	Fields      []string
	DataAdapter string
	Listener    SubscriptionListener
}

// Config 建立推送连接所需参数
type Config struct {
	Endpoint   string
	User       string
	Password   string
	AdapterSet string
}

// Factory 根据配置创建一个新的传输层连接
type Factory func(cfg *Config) Transport

//go:generate mockgen -destination=mock/transport.go -package=mock_push . Transport
type Transport interface {
	AddListener(l ClientListener)
	Connect() error
	Disconnect() error
	Subscribe(sub *Subscription) error
	Unsubscribe(sub *Subscription) error
}
