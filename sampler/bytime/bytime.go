package bytime

import (
	"github.com/go-gotop/igkit/sampler"
)

// NewByTime 按 ms 毫秒对齐的时间窗口聚合逐笔
func NewByTime(ms int64) sampler.Sampler {
	return &millisecond{
		ms: ms,
	}
}

func timestampMod(t int64, m int64) int64 {
	return t % m
}

func toPrice(t *sampler.Tick) sampler.PricePoint {
	return sampler.PricePoint{
		Timestamp: t.Timestamp,
		Price:     t.Price,
	}
}

func toAgg(t *sampler.Tick, ms int64) *sampler.AggregatedTick {
	agg := &sampler.AggregatedTick{}
	agg.HighestPrice = toPrice(t)
	agg.LowestPrice = toPrice(t)
	agg.OpenPrice = toPrice(t)
	agg.ClosePrice = toPrice(t)
	// 当前逐笔数据的时间戳减掉余数
	agg.Timestamp = t.Timestamp - timestampMod(t.Timestamp, ms)
	agg.TotalVolume = t.Volume
	agg.Count = 1
	return agg
}

type millisecond struct {
	ms  int64
	agg *sampler.AggregatedTick
}

func (m *millisecond) Sample(t *sampler.Tick) (agg *sampler.AggregatedTick) {
	if m.agg == nil {
		m.agg = toAgg(t, m.ms)
	} else {
		if t.Timestamp >= m.agg.Timestamp+m.ms {
			agg = m.agg
			m.agg = toAgg(t, m.ms)
		} else {
			m.aggregate(t)
		}
	}
	return
}

func (m *millisecond) aggregate(t *sampler.Tick) {
	m.agg.ClosePrice = toPrice(t)
	m.agg.Count++
	m.agg.TotalVolume = m.agg.TotalVolume.Add(t.Volume)
	if t.Price.GreaterThan(m.agg.HighestPrice.Price) {
		m.agg.HighestPrice = toPrice(t)
	}
	if t.Price.LessThan(m.agg.LowestPrice.Price) {
		m.agg.LowestPrice = toPrice(t)
	}
}
