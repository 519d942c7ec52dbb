// Description: Lightstreamer TLCP 客户端，基于 websocket 传输
// 一个 Client 只对应一次会话，断开后不能再次 Connect，重连由上层换新的 Client 完成。

package lightstreamer

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gotop/igkit/push"
	"github.com/go-gotop/igkit/websocket"
	"github.com/google/uuid"
	gwebsocket "github.com/gorilla/websocket"
)

var _ push.Transport = (*Client)(nil)

var (
	ErrClosed         = errors.New("lightstreamer client closed")
	ErrConnectTimeout = errors.New("lightstreamer connect timeout")
)

// statusStreaming 目前只支持 websocket 流式连接
const statusStreaming push.Status = "CONNECTED:WS-STREAMING"

// Factory 返回给订阅管理器使用的传输层工厂
func Factory(opts ...Option) push.Factory {
	return func(cfg *push.Config) push.Transport {
		return NewClient(cfg, opts...)
	}
}

func NewClient(cfg *push.Config, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Client{
		opts:     o,
		cfg:      *cfg,
		status:   push.StatusDisconnected,
		subs:     make(map[int]*subscription),
		bySub:    make(map[*push.Subscription]*subscription),
		closing:  make(map[int]*subscription),
		pending:  make(map[int]int),
		exitChan: make(chan struct{}),
	}
}

type Client struct {
	opts *options
	cfg  push.Config

	mux         sync.Mutex
	listeners   []push.ClientListener
	ws          websocket.Websocket
	session     string
	established bool // 收到过 CONOK
	status      push.Status
	closed      bool
	reqID       int
	subID       int
	subs        map[int]*subscription
	bySub       map[*push.Subscription]*subscription
	closing     map[int]*subscription // 已发送退订，等待 UNSUB
	pending     map[int]int           // reqId -> subId
	connResult  chan error

	lastRecv  atomic.Int64
	exitChan  chan struct{}
	closeOnce sync.Once
}

func (c *Client) AddListener(l push.ClientListener) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.listeners = append(c.listeners, l)
}

// Connect 建立 websocket 连接并创建会话，收到 CONOK 后返回
func (c *Client) Connect() error {
	endpoint, err := wsURL(c.cfg.Endpoint)
	if err != nil {
		return err
	}

	c.mux.Lock()
	if c.closed || c.ws != nil {
		c.mux.Unlock()
		return ErrClosed
	}
	ws := c.opts.newWebsocket()
	c.ws = ws
	result := make(chan error, 1)
	c.connResult = result
	c.mux.Unlock()

	c.setStatus(push.StatusConnecting)

	header := http.Header{}
	header.Set("Sec-WebSocket-Protocol", Subprotocol)
	id := uuid.New().String()
	c.opts.logger.Infof("[Lightstreamer] connecting %s, id: %s", endpoint, id)
	c.lastRecv.Store(time.Now().UnixNano())
	if err := ws.Connect(&websocket.WebsocketRequest{
		Endpoint:       endpoint,
		ID:             id,
		Header:         header,
		MessageHandler: c.onMessage,
		ErrorHandler:   c.onError,
	}); err != nil {
		c.fail()
		return err
	}

	if err := c.write(ws, []byte("wsok")); err != nil {
		c.fail()
		return err
	}
	createSession := request("create_session",
		"LS_cid", c.opts.cid,
		"LS_adapter_set", c.cfg.AdapterSet,
		"LS_user", c.cfg.User,
		"LS_password", c.cfg.Password,
		"LS_send_sync", "false",
		"LS_cause", "api",
	)
	if err := c.write(ws, createSession); err != nil {
		c.fail()
		return err
	}

	timer := time.NewTimer(c.opts.connectTimeout)
	defer timer.Stop()
	select {
	case err = <-result:
	case <-timer.C:
		err = ErrConnectTimeout
	case <-c.exitChan:
		err = ErrClosed
	}
	if err != nil {
		c.fail()
		return err
	}
	return nil
}

// fail 建立会话失败，关闭连接但不通知 DISCONNECTED
func (c *Client) fail() {
	c.mux.Lock()
	ws := c.ws
	c.closed = true
	c.session = ""
	c.status = push.StatusDisconnected
	c.mux.Unlock()
	c.closeOnce.Do(func() {
		close(c.exitChan)
	})
	if ws != nil {
		_ = ws.Disconnect()
	}
}

// Disconnect 销毁会话并关闭连接，可重复调用
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		close(c.exitChan)
	})

	c.mux.Lock()
	ws := c.ws
	session := c.session
	c.session = ""
	c.closed = true
	if session != "" {
		c.reqID++
		_ = c.write(ws, request("control",
			"LS_reqId", strconv.Itoa(c.reqID),
			"LS_op", "destroy",
			"LS_cause", "api",
		))
	}
	c.mux.Unlock()

	if ws == nil {
		return nil
	}
	err := ws.Disconnect()
	c.setStatus(push.StatusDisconnected)
	return err
}

func (c *Client) Subscribe(sub *push.Subscription) error {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.session == "" {
		return push.ErrNotConnected
	}
	if _, ok := c.bySub[sub]; ok {
		return nil
	}
	c.subID++
	c.reqID++
	s := newSubscription(c.subID, sub)
	c.subs[s.id] = s
	c.bySub[sub] = s
	c.pending[c.reqID] = s.id

	if err := c.write(c.ws, s.params(c.reqID)); err != nil {
		delete(c.subs, s.id)
		delete(c.bySub, sub)
		delete(c.pending, c.reqID)
		return err
	}
	return nil
}

// Unsubscribe 本地立即移除，之后收到的更新直接丢弃
func (c *Client) Unsubscribe(sub *push.Subscription) error {
	c.mux.Lock()
	defer c.mux.Unlock()

	s, ok := c.bySub[sub]
	if !ok {
		return push.ErrUnknownSubscription
	}
	delete(c.bySub, sub)
	delete(c.subs, s.id)
	if c.session == "" {
		return push.ErrNotConnected
	}
	c.closing[s.id] = s
	c.reqID++
	return c.write(c.ws, request("control",
		"LS_reqId", strconv.Itoa(c.reqID),
		"LS_op", "delete",
		"LS_subId", strconv.Itoa(s.id),
	))
}

func (c *Client) write(ws websocket.Websocket, data []byte) error {
	if ws == nil {
		return push.ErrNotConnected
	}
	return ws.WriteMessage(gwebsocket.TextMessage, data)
}

func (c *Client) setStatus(s push.Status) {
	c.mux.Lock()
	if c.status == s || (c.status.IsDisconnected() && s.IsDisconnected()) {
		c.mux.Unlock()
		return
	}
	c.status = s
	listeners := append([]push.ClientListener(nil), c.listeners...)
	c.mux.Unlock()

	for _, l := range listeners {
		l.OnStatusChange(s)
	}
}

// Status 当前连接状态
func (c *Client) Status() push.Status {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.status
}

func (c *Client) serverError(e *ServerError) {
	c.mux.Lock()
	listeners := append([]push.ClientListener(nil), c.listeners...)
	c.mux.Unlock()
	for _, l := range listeners {
		l.OnServerError(e.Code, e.Message)
	}
}

// onError 读循环出错，连接已经不可用。会话建立前出错只交给 Connect 返回。
func (c *Client) onError(id string, err error) {
	c.opts.logger.Warnf("[Lightstreamer] connection %s read error: %v", id, err)
	c.lost(err)
}

// lost 会话结束。CONOK 之前结束时由 Connect 返回错误，不通知 DISCONNECTED
func (c *Client) lost(err error) {
	c.mux.Lock()
	c.session = ""
	established := c.established
	result := c.connResult
	c.mux.Unlock()
	if !established {
		select {
		case result <- err:
		default:
		}
		return
	}
	c.setStatus(push.StatusDisconnected)
}

func (c *Client) onMessage(data []byte) {
	c.lastRecv.Store(time.Now().UnixNano())
	if c.Status().IsStalled() {
		c.setStatus(statusStreaming)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		c.handle(line)
	}
}

func (c *Client) handle(line string) {
	msg := parseMessage(line)
	switch msg.kind {
	case "CONOK":
		c.onConnOK(msg)
	case "CONERR":
		e := msg.serverError(0)
		c.opts.logger.Errorf("[Lightstreamer] create session refused: %v", e)
		c.serverError(e)
		c.mux.Lock()
		result := c.connResult
		c.mux.Unlock()
		select {
		case result <- e:
		default:
		}
	case "END":
		e := msg.serverError(0)
		c.opts.logger.Warnf("[Lightstreamer] session closed by server: %v", e)
		c.serverError(e)
		c.lost(e)
	case "ERROR":
		e := msg.serverError(0)
		c.opts.logger.Errorf("[Lightstreamer] request error: %v", e)
		c.serverError(e)
	case "REQOK":
		if reqID, err := msg.int(0); err == nil {
			c.mux.Lock()
			delete(c.pending, reqID)
			c.mux.Unlock()
		}
	case "REQERR":
		c.onRequestError(msg)
	case "SUBOK":
		if s := c.lookup(msg, false); s != nil {
			s.sub.Listener.OnSubscription()
		}
	case "UNSUB":
		if s := c.lookup(msg, true); s != nil {
			s.sub.Listener.OnUnsubscription()
		}
	case "U":
		c.onUpdate(msg)
	case "EOS", "CS":
		c.onSnapshot(msg)
	case "OV":
		c.opts.logger.Warnf("[Lightstreamer] updates lost: %s", line)
	case "NOOP", "SYNC", "LOOP", "WSOK", "SERVNAME", "CLIENTIP", "CONS", "PROG", "CONF", "SUBCMD", "MSGDONE", "MSGFAIL":
	default:
		c.opts.logger.Debugf("[Lightstreamer] ignore message: %s", line)
	}
}

func (c *Client) onConnOK(msg message) {
	keepalive := 5 * time.Second
	if ms, err := msg.int(2); err == nil && ms > 0 {
		keepalive = time.Duration(ms) * time.Millisecond
	}

	c.mux.Lock()
	if c.closed {
		c.mux.Unlock()
		return
	}
	c.session = msg.str(0)
	c.established = true
	result := c.connResult
	c.mux.Unlock()

	c.opts.logger.Infof("[Lightstreamer] session %s created, keepalive %s", msg.str(0), keepalive)
	c.setStatus(statusStreaming)
	go c.watch(keepalive)
	select {
	case result <- nil:
	default:
	}
}

func (c *Client) onRequestError(msg message) {
	reqID, err := msg.int(0)
	if err != nil {
		return
	}
	e := msg.serverError(1)

	c.mux.Lock()
	subID, ok := c.pending[reqID]
	delete(c.pending, reqID)
	var s *subscription
	if ok {
		s = c.subs[subID]
		delete(c.subs, subID)
		if s != nil {
			delete(c.bySub, s.sub)
		}
	}
	c.mux.Unlock()

	if s == nil {
		c.opts.logger.Errorf("[Lightstreamer] request %d refused: %v", reqID, e)
		return
	}
	s.sub.Listener.OnSubscriptionError(e.Code, e.Message)
}

// lookup 查找订阅号对应的订阅，remove 为 true 时从退订等待表中删除
func (c *Client) lookup(msg message, remove bool) *subscription {
	subID, err := msg.int(0)
	if err != nil {
		return nil
	}
	c.mux.Lock()
	defer c.mux.Unlock()
	if remove {
		s := c.closing[subID]
		delete(c.closing, subID)
		return s
	}
	return c.subs[subID]
}

func (c *Client) onUpdate(msg message) {
	subID, err := msg.int(0)
	if err != nil {
		c.opts.logger.Warnf("[Lightstreamer] bad update: %v", err)
		return
	}
	item, err := msg.int(1)
	if err != nil {
		c.opts.logger.Warnf("[Lightstreamer] bad update: %v", err)
		return
	}
	raw := ""
	if len(msg.args) > 2 {
		raw = msg.args[2]
	}

	c.mux.Lock()
	s := c.subs[subID]
	if s == nil {
		c.mux.Unlock()
		return
	}
	u, err := s.apply(item, raw)
	c.mux.Unlock()
	if err != nil {
		c.opts.logger.Warnf("[Lightstreamer] bad update for subscription %d: %v", subID, err)
		return
	}
	s.sub.Listener.OnItemUpdate(u)
}

func (c *Client) onSnapshot(msg message) {
	subID, err := msg.int(0)
	if err != nil {
		return
	}
	item, err := msg.int(1)
	if err != nil {
		return
	}
	c.mux.Lock()
	defer c.mux.Unlock()
	s := c.subs[subID]
	if s == nil {
		return
	}
	if msg.kind == "EOS" {
		s.endOfSnapshot(item)
	} else {
		s.clearSnapshot(item)
	}
}

// watch 超过 keepalive 没有消息先标记 STALLED，再超时则断开连接
func (c *Client) watch(keepalive time.Duration) {
	ticker := time.NewTicker(c.opts.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.exitChan:
			return
		case <-ticker.C:
		}
		idle := time.Since(time.Unix(0, c.lastRecv.Load()))
		switch {
		case idle > keepalive+c.opts.stalledTimeout+c.opts.reconnectTimeout:
			c.opts.logger.Warnf("[Lightstreamer] no data for %s, closing connection", idle)
			c.abort()
			return
		case idle > keepalive+c.opts.stalledTimeout:
			if c.Status().IsConnected() {
				c.setStatus(push.StatusStalled)
			}
		}
	}
}

// abort 关闭失效的连接，通知 DISCONNECTED
func (c *Client) abort() {
	c.mux.Lock()
	ws := c.ws
	c.session = ""
	c.closed = true
	c.mux.Unlock()
	c.closeOnce.Do(func() {
		close(c.exitChan)
	})
	if ws != nil {
		if err := ws.Disconnect(); err != nil {
			c.opts.logger.Debugf("[Lightstreamer] close stalled connection: %v", err)
		}
	}
	c.setStatus(push.StatusDisconnected)
}
