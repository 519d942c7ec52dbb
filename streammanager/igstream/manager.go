// Description: IG Lightstreamer 订阅管理
// 订阅表是"应该订阅什么"的唯一来源，断线重连后按订阅表重放。
// 传输层连接只由 Manager 持有，每次重连都会换一个新的连接，旧连接的事件直接丢弃。

package igstream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gotop/igkit/push"
	"github.com/go-gotop/igkit/streammanager"
	"github.com/go-kratos/kratos/v2/log"
)

var _ streammanager.StreamManager = (*Manager)(nil)

const (
	defaultPushEndpoint = "https://push.lightstreamer.com"
	defaultAdapterSet   = "DEFAULT"
	pricingAdapter      = "Pricing"
)

func NewManager(source streammanager.CredentialSource, factory push.Factory, opts ...Option) *Manager {
	// 默认配置
	o := &options{
		logger:          log.NewHelper(log.DefaultLogger),
		reconnect:       true,
		reconnectDelay:  5 * time.Second,
		adapterSet:      defaultAdapterSet,
		defaultEndpoint: defaultPushEndpoint,
	}

	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:     o,
		source:   source,
		factory:  factory,
		registry: newRegistry(),
		retryCh:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		exitChan: make(chan struct{}),
	}
}

type Manager struct {
	opts    *options
	source  streammanager.CredentialSource
	factory push.Factory

	credOnce sync.Once
	creds    streammanager.Credentials

	mux       sync.Mutex // 保护 registry、transport、pushCfg、started
	registry  *registry
	transport push.Transport
	pushCfg   *push.Config
	started   bool

	gen     atomic.Uint64 // 当前连接代数，旧连接的状态事件不处理
	state   atomic.Int32
	stopped atomic.Bool

	retryCh  chan struct{}
	loopOnce sync.Once
	ctx      context.Context // Stop 时取消，用于重连
	cancel   context.CancelFunc
	exitChan chan struct{}
	stopOnce sync.Once
}

// credentials 只读取一次
func (m *Manager) credentials() streammanager.Credentials {
	m.credOnce.Do(func() {
		m.creds = m.source.Credentials()
	})
	return m.creds
}

// Start 建立推送连接。缺少会话令牌时直接返回 ErrMissingSessionTokens；
// ctx 在首次连接完成前结束时返回 ctx 的错误，之后可以再次 Start；
// 其他连接错误只记录日志并进入重连。
func (m *Manager) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.stopped.Load() {
		return streammanager.ErrStopped
	}

	creds := m.credentials()
	endpoint := creds.PushEndpoint
	if endpoint == "" {
		endpoint = m.opts.defaultEndpoint
	}
	m.opts.logger.Infof("using lightstreamer endpoint: %s", endpoint)
	if !creds.HasTokens() {
		return streammanager.ErrMissingSessionTokens
	}

	m.mux.Lock()
	if m.started {
		m.mux.Unlock()
		return streammanager.ErrAlreadyStarted
	}
	m.started = true
	m.pushCfg = &push.Config{
		Endpoint:   endpoint,
		User:       creds.AccountID,
		Password:   creds.Password(),
		AdapterSet: m.opts.adapterSet,
	}
	m.mux.Unlock()

	m.loopOnce.Do(func() {
		go m.retryLoop()
	})

	m.setState(streammanager.StateConnecting)
	if !m.allowConnect() {
		m.setState(streammanager.StateDisconnected)
		m.scheduleReconnect()
		return nil
	}
	n, err := m.connect(ctx)
	if err != nil {
		if errors.Is(err, streammanager.ErrStopped) || errors.Is(err, errSuperseded) {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			m.opts.logger.Warnf("connect lightstreamer cancelled: %v", err)
			m.setState(streammanager.StateDisconnected)
			m.mux.Lock()
			m.started = false
			m.mux.Unlock()
			return err
		}
		m.opts.logger.Warnf("connect lightstreamer failed, retry in %s: %v", m.opts.reconnectDelay, err)
		m.setState(streammanager.StateDisconnected)
		m.scheduleReconnect()
		return nil
	}
	m.opts.logger.Infof("[Lightstreamer] connected and subscribed %d subscriptions", n)
	return nil
}

// Stop 停止推送，可重复调用，之后不会再重连
func (m *Manager) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		m.stopped.Store(true)
		m.state.Store(int32(streammanager.StateStopped))
		m.cancel()
		close(m.exitChan)

		m.mux.Lock()
		t := m.transport
		m.transport = nil
		m.gen.Add(1)
		m.mux.Unlock()

		if t != nil {
			err = t.Disconnect()
		}
		m.opts.logger.Info("stream manager stopped")
	})
	return err
}

func (m *Manager) State() streammanager.ConnectionState {
	return streammanager.ConnectionState(m.state.Load())
}

// setState 停止后状态固定为 STOPPED
func (m *Manager) setState(s streammanager.ConnectionState) {
	for {
		cur := m.state.Load()
		if m.stopped.Load() && streammanager.ConnectionState(cur) == streammanager.StateStopped {
			return
		}
		if m.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Subscribe 注册订阅。注册总是成功，传输层订阅失败只记录日志，等待下一次重连重放。
// 同一个 key 重复订阅会替换旧的描述，旧的传输层订阅会被退订，旧回调不再收到更新。
func (m *Manager) Subscribe(key streammanager.StreamKey, mode streammanager.Mode, fields []string, cb streammanager.Callback, opts ...streammanager.SubscribeOption) error {
	d := &streammanager.Descriptor{
		Key:      key,
		Mode:     mode,
		Fields:   append([]string(nil), fields...),
		Callback: cb,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if m.stopped.Load() {
		return streammanager.ErrStopped
	}

	m.mux.Lock()
	defer m.mux.Unlock()

	e, prev := m.registry.register(d)
	if prev != nil {
		m.opts.logger.Infof("replace subscription %s", key)
		m.unsubscribeTransportLocked(prev)
	}
	m.subscribeTransportLocked(e)
	return nil
}

// Unsubscribe 不存在的 key 直接忽略
func (m *Manager) Unsubscribe(key streammanager.StreamKey) {
	m.mux.Lock()
	defer m.mux.Unlock()

	e := m.registry.remove(key)
	if e == nil {
		return
	}
	m.unsubscribeTransportLocked(e)
}

// Subscriptions 返回当前订阅表中的 key，按注册顺序
func (m *Manager) Subscriptions() []streammanager.StreamKey {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.registry.keys()
}

func (m *Manager) subscribeTransportLocked(e *entry) {
	if m.transport == nil {
		e.sub = nil
		return
	}
	sub := m.newSubscription(e.desc)
	e.sub = sub
	if err := m.transport.Subscribe(sub); err != nil {
		m.opts.logger.Warnf("subscribe %s on transport failed, will retry on reconnect: %v", e.desc.Key, err)
	}
}

func (m *Manager) unsubscribeTransportLocked(e *entry) {
	sub := e.sub
	e.sub = nil
	if m.transport == nil || sub == nil {
		return
	}
	if err := m.transport.Unsubscribe(sub); err != nil {
		m.opts.logger.Warnf("unsubscribe %s on transport failed: %v", e.desc.Key, err)
	}
}

// replayLocked 在新连接上重新订阅订阅表中的每一项，复用原来的描述和回调
func (m *Manager) replayLocked() int {
	entries := m.registry.snapshot()
	for _, e := range entries {
		m.subscribeTransportLocked(e)
	}
	return len(entries)
}
