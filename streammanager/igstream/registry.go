package igstream

import (
	"sort"

	"github.com/go-gotop/igkit/push"
	"github.com/go-gotop/igkit/streammanager"
)

// entry 是订阅表中的一项
type entry struct {
	desc *streammanager.Descriptor
	sub  *push.Subscription   // 当前连接上的订阅对象，未订阅时为 nil
	last streammanager.Fields // MERGE 模式下各字段最后的值
	seq  uint64
}

// registry 记录"应该订阅"的流，与连接状态无关。
// 不自带锁，所有访问都在 Manager.mux 下进行。
type registry struct {
	seq     uint64
	entries map[streammanager.StreamKey]*entry
}

func newRegistry() *registry {
	return &registry{
		entries: make(map[streammanager.StreamKey]*entry),
	}
}

// register 插入或整体替换 key 对应的项，返回新项和被替换的旧项
func (r *registry) register(d *streammanager.Descriptor) (e *entry, prev *entry) {
	prev = r.entries[d.Key]
	e = &entry{desc: d}
	if prev != nil {
		e.seq = prev.seq
	} else {
		r.seq++
		e.seq = r.seq
	}
	r.entries[d.Key] = e
	return e, prev
}

// remove 删除并返回 key 对应的项，不存在时返回 nil
func (r *registry) remove(key streammanager.StreamKey) *entry {
	e, ok := r.entries[key]
	if !ok {
		return nil
	}
	delete(r.entries, key)
	return e
}

func (r *registry) get(key streammanager.StreamKey) *entry {
	return r.entries[key]
}

func (r *registry) len() int {
	return len(r.entries)
}

// snapshot 按首次注册顺序返回当前所有项的拷贝切片
func (r *registry) snapshot() []*entry {
	list := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].seq < list[j].seq
	})
	return list
}

func (r *registry) keys() []streammanager.StreamKey {
	snap := r.snapshot()
	keys := make([]streammanager.StreamKey, 0, len(snap))
	for _, e := range snap {
		keys = append(keys, e.desc.Key)
	}
	return keys
}
