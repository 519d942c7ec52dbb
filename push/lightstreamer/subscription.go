package lightstreamer

import (
	"strconv"
	"strings"

	"github.com/go-gotop/igkit/push"
)

var _ push.ItemUpdate = (*itemUpdate)(nil)

type itemState struct {
	values   []*string
	snapshot bool
}

// subscription 服务端订阅号对应的状态，只在 Client.mux 下修改
type subscription struct {
	id       int
	sub      *push.Subscription
	fieldIdx map[string]int
	items    []*itemState
}

func newSubscription(id int, sub *push.Subscription) *subscription {
	s := &subscription{
		id:       id,
		sub:      sub,
		fieldIdx: make(map[string]int, len(sub.Fields)),
	}
	for i, f := range sub.Fields {
		s.fieldIdx[f] = i
	}
	s.items = make([]*itemState, len(sub.Items))
	for i := range s.items {
		s.items[i] = s.newItem()
	}
	return s
}

func (s *subscription) newItem() *itemState {
	return &itemState{
		values:   make([]*string, len(s.sub.Fields)),
		snapshot: s.wantSnapshot(),
	}
}

func (s *subscription) wantSnapshot() bool {
	switch strings.ToUpper(s.sub.Mode) {
	case "MERGE", "DISTINCT", "COMMAND":
		return true
	}
	return false
}

func (s *subscription) params(reqID int) []byte {
	kv := []string{
		"LS_reqId", strconv.Itoa(reqID),
		"LS_op", "add",
		"LS_subId", strconv.Itoa(s.id),
		"LS_mode", s.sub.Mode,
		"LS_group", strings.Join(s.sub.Items, " "),
		"LS_schema", strings.Join(s.sub.Fields, " "),
	}
	if s.sub.DataAdapter != "" {
		kv = append(kv, "LS_data_adapter", s.sub.DataAdapter)
	}
	if s.wantSnapshot() {
		kv = append(kv, "LS_snapshot", "true")
	}
	return request("control", kv...)
}

// apply 合并一条 U 消息，item 从 1 开始
func (s *subscription) apply(item int, raw string) (*itemUpdate, error) {
	if item < 1 || item > len(s.items) {
		return nil, errMalformed
	}
	st := s.items[item-1]
	values, changed, err := decodeValues(raw, st.values)
	if err != nil {
		return nil, err
	}
	u := &itemUpdate{
		name:     s.sub.Items[item-1],
		fieldIdx: s.fieldIdx,
		values:   values,
		changed:  changed,
		snapshot: st.snapshot,
	}
	st.values = values
	// MERGE 只有第一条是快照，其余模式以 EOS 结束快照
	if strings.EqualFold(s.sub.Mode, "MERGE") {
		st.snapshot = false
	}
	return u, nil
}

func (s *subscription) endOfSnapshot(item int) {
	if item >= 1 && item <= len(s.items) {
		s.items[item-1].snapshot = false
	}
}

// clearSnapshot 服务端要求清空 item 的当前状态
func (s *subscription) clearSnapshot(item int) {
	if item >= 1 && item <= len(s.items) {
		s.items[item-1] = s.newItem()
		s.items[item-1].snapshot = false
	}
}

type itemUpdate struct {
	name     string
	fieldIdx map[string]int
	values   []*string
	changed  []bool
	snapshot bool
}

func (u *itemUpdate) ItemName() string {
	return u.name
}

// Value 返回字段当前值，null 或未声明的字段返回 false
func (u *itemUpdate) Value(field string) (string, bool) {
	i, ok := u.fieldIdx[field]
	if !ok || u.values[i] == nil {
		return "", false
	}
	return *u.values[i], true
}

func (u *itemUpdate) IsChanged(field string) bool {
	i, ok := u.fieldIdx[field]
	return ok && u.changed[i]
}

func (u *itemUpdate) IsSnapshot() bool {
	return u.snapshot
}
