package igstream

import (
	"github.com/go-gotop/igkit/push"
	"github.com/go-gotop/igkit/streammanager"
)

var _ push.SubscriptionListener = (*listener)(nil)

// listener 把传输层事件转给 Manager，只持有订阅描述
type listener struct {
	m    *Manager
	desc *streammanager.Descriptor
}

func (l *listener) OnItemUpdate(update push.ItemUpdate) {
	l.m.dispatch(l.desc, update)
}

func (l *listener) OnSubscription() {
	l.m.opts.logger.Infof("[Subscription] subscribed to %s", l.desc.Key)
}

func (l *listener) OnSubscriptionError(code int, message string) {
	l.m.opts.logger.Errorf("[Subscription] error for %s: %d - %s", l.desc.Key, code, message)
}

func (l *listener) OnUnsubscription() {
	l.m.opts.logger.Infof("[Subscription] unsubscribed from %s", l.desc.Key)
}

func (m *Manager) newSubscription(d *streammanager.Descriptor) *push.Subscription {
	return &push.Subscription{
		Mode:        string(d.Mode),
		Items:       []string{string(d.Key)},
		Fields:      append([]string(nil), d.Fields...),
		DataAdapter: d.Adapter,
		Listener:    &listener{m: m, desc: d},
	}
}

// dispatch 只取声明过的字段，替换或退订后的旧描述不再回调
func (m *Manager) dispatch(d *streammanager.Descriptor, update push.ItemUpdate) {
	fields := make(streammanager.Fields, len(d.Fields))
	unchanged := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if v, ok := update.Value(f); ok {
			fields[f] = &v
			continue
		}
		fields[f] = nil
		unchanged[f] = !update.IsChanged(f)
	}

	m.mux.Lock()
	e := m.registry.get(d.Key)
	if e == nil || e.desc != d {
		m.mux.Unlock()
		m.opts.logger.Debugf("drop update for inactive subscription %s", d.Key)
		return
	}
	// MERGE 下没有变化的字段沿用上次的值，服务端推送的 null 会清空字段
	if d.Mode == streammanager.ModeMerge {
		for f := range unchanged {
			if !unchanged[f] {
				continue
			}
			if last, ok := e.last[f]; ok && last != nil {
				fields[f] = last
			}
		}
		e.last = fields.Clone()
	}
	m.mux.Unlock()

	m.invoke(d, fields)
}

// invoke 回调中的 panic 只记录日志，不影响其他订阅
func (m *Manager) invoke(d *streammanager.Descriptor, fields streammanager.Fields) {
	defer func() {
		if r := recover(); r != nil {
			m.opts.logger.Errorf("exception in update callback for %s: %v", d.Key, r)
		}
	}()
	d.Callback(d.Key, fields)
}
