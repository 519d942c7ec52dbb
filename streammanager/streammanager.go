package streammanager

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingSessionTokens 缺少 CST 或 X-SECURITY-TOKEN，需要先登录
	ErrMissingSessionTokens = errors.New("missing CST or X-SECURITY-TOKEN, make sure you are logged in")
	ErrInvalidKey           = errors.New("invalid stream key")
	ErrInvalidFields        = errors.New("invalid subscription fields")
	ErrInvalidMode          = errors.New("invalid subscription mode")
	ErrNilCallback          = errors.New("subscription callback is nil")
	ErrStopped              = errors.New("stream manager stopped")
	ErrAlreadyStarted       = errors.New("stream manager already started")
)

// Mode 订阅模式
type Mode string

const (
	// ModeMerge 只推送变化的字段，回调收到合并后的完整字段集
	ModeMerge Mode = "MERGE"
	// ModeDistinct 每次推送独立交付，不做合并
	ModeDistinct Mode = "DISTINCT"
)

func (m Mode) Validate() error {
	switch m {
	case ModeMerge, ModeDistinct:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMode, string(m))
}

// Callback 接收某个流的字段更新，fields 中每个声明的字段都有一项
type Callback func(key StreamKey, fields Fields)

// Descriptor 描述一个逻辑订阅，创建后不可修改，重新订阅同一个 key 会整体替换
type Descriptor struct {
	Key      StreamKey
	Mode     Mode
	Fields   []string
	Adapter  string // 服务端数据适配器，空表示默认
	Callback Callback
}

func (d *Descriptor) Validate() error {
	if err := d.Key.Validate(); err != nil {
		return err
	}
	if err := d.Mode.Validate(); err != nil {
		return err
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("%w: empty field list for %s", ErrInvalidFields, d.Key)
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for _, f := range d.Fields {
		if f == "" {
			return fmt.Errorf("%w: empty field name for %s", ErrInvalidFields, d.Key)
		}
		if _, ok := seen[f]; ok {
			return fmt.Errorf("%w: duplicate field %q for %s", ErrInvalidFields, f, d.Key)
		}
		seen[f] = struct{}{}
	}
	if d.Callback == nil {
		return ErrNilCallback
	}
	return nil
}

// ConnectionState 推送连接的生命周期状态
type ConnectionState int32

const (
	StateStopped ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return "UNKNOWN"
	}
}

type SubscribeOption func(*Descriptor)

// WithAdapter 指定服务端数据适配器，例如价格流使用 "Pricing"
func WithAdapter(adapter string) SubscribeOption {
	return func(d *Descriptor) {
		d.Adapter = adapter
	}
}

// StreamManager 是推送订阅管理接口
type StreamManager interface {
	Start(ctx context.Context) error
	Stop() error
	State() ConnectionState

	Subscribe(key StreamKey, mode Mode, fields []string, cb Callback, opts ...SubscribeOption) error
	Unsubscribe(key StreamKey)
	Subscriptions() []StreamKey

	SubscribePrice(epic string, fields []string, cb Callback) error
	UnsubscribePrice(epic string)
	SubscribeAccount(fields []string, cb Callback) error
	UnsubscribeAccount()
	SubscribeTrade(fields []string, cb Callback) error
	UnsubscribeTrade()
	SubscribeChartTick(epic string, fields []string, cb Callback) error
	UnsubscribeChartTick(epic string)
	SubscribeChartCandle(epic string, scale Scale, fields []string, cb Callback) error
	UnsubscribeChartCandle(epic string, scale Scale)
}
