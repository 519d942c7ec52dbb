package igstream

import (
	"sync"
	"testing"

	"github.com/go-gotop/igkit/push"
	mock_push "github.com/go-gotop/igkit/push/mock"
	"github.com/go-gotop/igkit/streammanager"
	"go.uber.org/mock/gomock"
)

var testCreds = streammanager.StaticCredentials{
	AccountID:     "ACC1",
	PushEndpoint:  "https://push.example.com",
	CST:           "cst",
	SecurityToken: "xst",
}

// fakeConn 记录 AddListener 传入的监听器和收到的订阅对象
type fakeConn struct {
	*mock_push.MockTransport
	mux      sync.Mutex
	listener push.ClientListener
	subs     []*push.Subscription
}

func newConn(ctrl *gomock.Controller) *fakeConn {
	c := &fakeConn{MockTransport: mock_push.NewMockTransport(ctrl)}
	c.EXPECT().AddListener(gomock.Any()).Do(func(l push.ClientListener) {
		c.mux.Lock()
		c.listener = l
		c.mux.Unlock()
	})
	return c
}

func (c *fakeConn) expectConnect(err error) *fakeConn {
	c.EXPECT().Connect().Return(err)
	return c
}

func (c *fakeConn) expectSubscribe(times int) *fakeConn {
	c.EXPECT().Subscribe(gomock.Any()).DoAndReturn(c.record).Times(times)
	return c
}

// expectAny 订阅、退订和断开可以调用任意次
func (c *fakeConn) expectAny() *fakeConn {
	c.EXPECT().Subscribe(gomock.Any()).DoAndReturn(c.record).AnyTimes()
	c.EXPECT().Unsubscribe(gomock.Any()).Return(nil).AnyTimes()
	c.EXPECT().Disconnect().Return(nil).AnyTimes()
	return c
}

func (c *fakeConn) record(sub *push.Subscription) error {
	c.mux.Lock()
	c.subs = append(c.subs, sub)
	c.mux.Unlock()
	return nil
}

// items 返回所有订阅过的 item
func (c *fakeConn) items() map[string]bool {
	out := make(map[string]bool)
	for _, sub := range c.subscriptions() {
		for _, item := range sub.Items {
			out[item] = true
		}
	}
	return out
}

func (c *fakeConn) status(s push.Status) {
	c.mux.Lock()
	l := c.listener
	c.mux.Unlock()
	l.OnStatusChange(s)
}

func (c *fakeConn) subscriptions() []*push.Subscription {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]*push.Subscription(nil), c.subs...)
}

func (c *fakeConn) lastSub() *push.Subscription {
	subs := c.subscriptions()
	if len(subs) == 0 {
		return nil
	}
	return subs[len(subs)-1]
}

// factory 依次返回预先准备好的连接
type factory struct {
	t     *testing.T
	mux   sync.Mutex
	conns []*fakeConn
	cfgs  []push.Config
}

func newFactory(t *testing.T, conns ...*fakeConn) *factory {
	return &factory{t: t, conns: conns}
}

func (f *factory) New(cfg *push.Config) push.Transport {
	f.mux.Lock()
	defer f.mux.Unlock()
	i := len(f.cfgs)
	f.cfgs = append(f.cfgs, *cfg)
	if i >= len(f.conns) {
		f.t.Errorf("unexpected transport #%d", i+1)
		return nopTransport{}
	}
	return f.conns[i]
}

func (f *factory) count() int {
	f.mux.Lock()
	defer f.mux.Unlock()
	return len(f.cfgs)
}

func (f *factory) config(i int) push.Config {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.cfgs[i]
}

type nopTransport struct{}

func (nopTransport) AddListener(push.ClientListener)    {}
func (nopTransport) Connect() error                     { return nil }
func (nopTransport) Disconnect() error                  { return nil }
func (nopTransport) Subscribe(*push.Subscription) error { return nil }
func (nopTransport) Unsubscribe(*push.Subscription) error {
	return nil
}

// fakeUpdate 只有 values 和 nulls 中的字段算作有变化，nulls 表示服务端推送了 null
type fakeUpdate struct {
	item   string
	values map[string]string
	nulls  map[string]bool
}

func (u *fakeUpdate) ItemName() string {
	return u.item
}

func (u *fakeUpdate) Value(field string) (string, bool) {
	v, ok := u.values[field]
	return v, ok
}

func (u *fakeUpdate) IsChanged(field string) bool {
	_, ok := u.values[field]
	return ok || u.nulls[field]
}

func (u *fakeUpdate) IsSnapshot() bool {
	return false
}

func deliver(sub *push.Subscription, values map[string]string, nulls ...string) {
	u := &fakeUpdate{item: sub.Items[0], values: values, nulls: make(map[string]bool)}
	for _, f := range nulls {
		u.nulls[f] = true
	}
	sub.Listener.OnItemUpdate(u)
}

type received struct {
	key    streammanager.StreamKey
	fields streammanager.Fields
}

// recorder 收集回调
type recorder struct {
	mux  sync.Mutex
	list []received
}

func (r *recorder) callback(key streammanager.StreamKey, fields streammanager.Fields) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.list = append(r.list, received{key: key, fields: fields})
}

func (r *recorder) len() int {
	r.mux.Lock()
	defer r.mux.Unlock()
	return len(r.list)
}

func (r *recorder) last() received {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.list[len(r.list)-1]
}

func (r *recorder) at(i int) received {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.list[i]
}

type fakeLimiter struct {
	mux   sync.Mutex
	allow []bool
	calls int
}

func (l *fakeLimiter) WsAllow() bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	i := l.calls
	l.calls++
	if i < len(l.allow) {
		return l.allow[i]
	}
	return true
}

func (l *fakeLimiter) count() int {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.calls
}
