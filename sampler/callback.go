package sampler

import (
	"sync"

	"github.com/go-gotop/igkit/streammanager"
	"github.com/go-kratos/kratos/v2/log"
)

// Callback 把逐笔推送交给 s 聚合，每完成一个周期用聚合字段调用 next
func Callback(s Sampler, next streammanager.Callback, logger log.Logger) streammanager.Callback {
	helper := log.NewHelper(logger)
	var mux sync.Mutex
	return func(key streammanager.StreamKey, fields streammanager.Fields) {
		tick, err := TickFromFields(fields)
		if err != nil {
			helper.Warnf("skip tick on %s: %v", key, err)
			return
		}
		mux.Lock()
		agg := s.Sample(tick)
		mux.Unlock()
		if agg != nil {
			next(key, agg.Fields())
		}
	}
}
