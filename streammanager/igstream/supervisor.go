package igstream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-gotop/igkit/push"
	"github.com/go-gotop/igkit/streammanager"
)

var _ push.ClientListener = (*statusListener)(nil)

var (
	errSuperseded = errors.New("connection superseded")
	errLost       = errors.New("transport disconnected before connect completed")
)

// statusListener 绑定连接代数，重连后旧连接的事件会被忽略。
// 连接换入之前收到的 DISCONNECTED 只做标记，由 connect 丢弃这个连接。
type statusListener struct {
	m   *Manager
	gen uint64

	mux       sync.Mutex
	installed bool
	lost      bool
}

func (l *statusListener) OnStatusChange(status push.Status) {
	l.m.onStatusChange(l, status)
}

func (l *statusListener) OnServerError(code int, message string) {
	l.m.opts.logger.Errorf("[Lightstreamer] server error: %d - %s", code, message)
}

// markInstalled 连接换入时调用，已经断开返回 false
func (l *statusListener) markInstalled() bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	if l.lost {
		return false
	}
	l.installed = true
	l.m.setState(streammanager.StateConnected)
	return true
}

// markLost 连接还没换入时返回 false
func (l *statusListener) markLost() bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	if !l.installed {
		l.lost = true
		return false
	}
	l.m.setState(streammanager.StateDisconnected)
	return true
}

func (m *Manager) onStatusChange(l *statusListener, status push.Status) {
	if l.gen != m.gen.Load() {
		m.opts.logger.Debugf("[Lightstreamer] ignore status %s from stale connection", status)
		return
	}
	m.opts.logger.Infof("[Lightstreamer] connection status: %s", status)

	switch {
	case status.IsDisconnected():
		if m.stopped.Load() {
			return
		}
		if !l.markLost() {
			m.opts.logger.Debugf("[Lightstreamer] status %s before connect completed", status)
			return
		}
		if !m.opts.reconnect {
			return
		}
		m.opts.logger.Infof("[Lightstreamer] disconnected, reconnect in %s", m.opts.reconnectDelay)
		m.scheduleReconnect()
	case status.IsConnected():
		m.setState(streammanager.StateConnected)
	case status.IsConnecting():
		if m.State() != streammanager.StateReconnecting {
			m.setState(streammanager.StateConnecting)
		}
	case status.IsStalled():
		m.opts.logger.Warn("[Lightstreamer] connection stalled")
	}
}

// scheduleReconnect 最多只挂起一次重连
func (m *Manager) scheduleReconnect() {
	select {
	case m.retryCh <- struct{}{}:
	default:
	}
}

// retryLoop 在独立协程里等待固定延迟后重连，不占用传输层的事件协程
func (m *Manager) retryLoop() {
	for {
		select {
		case <-m.exitChan:
			return
		case <-m.retryCh:
		}

		timer := time.NewTimer(m.opts.reconnectDelay)
		select {
		case <-m.exitChan:
			timer.Stop()
			return
		case <-timer.C:
		}
		m.reconnect()
	}
}

func (m *Manager) allowConnect() bool {
	if m.opts.connLimiter == nil || m.opts.connLimiter.WsAllow() {
		return true
	}
	m.opts.logger.Warnf("[Lightstreamer] connect too frequent, retry in %s", m.opts.reconnectDelay)
	return false
}

func (m *Manager) reconnect() {
	// Stop 之后不再发起重连，进行中的 Connect 由 m.ctx 取消
	if m.stopped.Load() {
		return
	}
	if !m.allowConnect() {
		m.setState(streammanager.StateDisconnected)
		m.scheduleReconnect()
		return
	}
	m.setState(streammanager.StateReconnecting)

	m.mux.Lock()
	old := m.transport
	m.transport = nil
	m.gen.Add(1)
	m.mux.Unlock()

	// 旧连接可能已经失效，错误忽略
	if old != nil {
		if err := old.Disconnect(); err != nil {
			m.opts.logger.Debugf("[Lightstreamer] disconnect stale transport: %v", err)
		}
	}

	n, err := m.connect(m.ctx)
	if err != nil {
		if m.stopped.Load() || errors.Is(err, errSuperseded) {
			return
		}
		m.opts.logger.Warnf("[Lightstreamer] reconnect failed, retry in %s: %v", m.opts.reconnectDelay, err)
		m.setState(streammanager.StateDisconnected)
		m.scheduleReconnect()
		return
	}
	m.opts.logger.Infof("[Lightstreamer] reconnected and re-subscribed %d subscriptions", n)
}

// connect 创建新连接，成功后在锁内换入、进入 CONNECTED 并重放订阅表，返回重放的订阅数
func (m *Manager) connect(ctx context.Context) (int, error) {
	m.mux.Lock()
	cfg := *m.pushCfg
	m.mux.Unlock()

	gen := m.gen.Add(1)
	t := m.factory(&cfg)
	l := &statusListener{m: m, gen: gen}
	t.AddListener(l)
	if err := dial(ctx, t); err != nil {
		return 0, err
	}

	m.mux.Lock()
	if m.stopped.Load() || gen != m.gen.Load() {
		m.mux.Unlock()
		// 连接期间被 Stop 或者已经有更新的连接
		_ = t.Disconnect()
		if m.stopped.Load() {
			return 0, streammanager.ErrStopped
		}
		return 0, errSuperseded
	}
	if !l.markInstalled() {
		m.mux.Unlock()
		_ = t.Disconnect()
		return 0, errLost
	}
	m.transport = t
	n := m.replayLocked()
	m.mux.Unlock()
	return n, nil
}

// dial 等待 Connect 返回。ctx 先结束时放弃这个连接，Connect 成功后再断开它
func dial(ctx context.Context, t push.Transport) error {
	done := make(chan error, 1)
	go func() {
		done <- t.Connect()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		go func() {
			if err := <-done; err == nil {
				_ = t.Disconnect()
			}
		}()
		return ctx.Err()
	}
}
