package sampler

import (
	"errors"
	"strconv"

	"github.com/go-gotop/igkit/streammanager"
	"github.com/shopspring/decimal"
)

// 图表逐笔推送的字段
const (
	FieldBid    = "BID"
	FieldOffer  = "OFR"
	FieldLast   = "LTP"
	FieldVolume = "LTV"
	FieldTime   = "UTM"
)

// 聚合后转发的字段
const (
	FieldOpen  = "OPEN"
	FieldHigh  = "HIGH"
	FieldLow   = "LOW"
	FieldClose = "CLOSE"
	FieldTotal = "VOLUME"
	FieldCount = "COUNT"
	FieldStart = "START"
)

var (
	ErrNoTimestamp = errors.New("tick has no UTM")
	ErrNoPrice     = errors.New("tick has no price")
)

type PricePoint struct {
	Timestamp int64
	Price     decimal.Decimal
}

// Tick 一条逐笔报价，Price 优先取成交价，没有时取买卖中间价
type Tick struct {
	Timestamp int64
	Price     decimal.Decimal
	Volume    decimal.Decimal
}

func TickFromFields(f streammanager.Fields) (*Tick, error) {
	utm, ok := f.Get(FieldTime)
	if !ok || utm == "" {
		return nil, ErrNoTimestamp
	}
	ts, err := strconv.ParseInt(utm, 10, 64)
	if err != nil {
		return nil, err
	}

	tick := &Tick{Timestamp: ts}
	if tick.Volume, _, err = f.Decimal(FieldVolume); err != nil {
		return nil, err
	}

	last, ok, err := f.Decimal(FieldLast)
	if err != nil {
		return nil, err
	}
	if ok {
		tick.Price = last
		return tick, nil
	}
	bid, bidOk, err := f.Decimal(FieldBid)
	if err != nil {
		return nil, err
	}
	offer, offerOk, err := f.Decimal(FieldOffer)
	if err != nil {
		return nil, err
	}
	switch {
	case bidOk && offerOk:
		tick.Price = bid.Add(offer).Div(decimal.NewFromInt(2))
	case bidOk:
		tick.Price = bid
	case offerOk:
		tick.Price = offer
	default:
		return nil, ErrNoPrice
	}
	return tick, nil
}

type AggregatedTick struct {
	Count        uint64
	Timestamp    int64
	OpenPrice    PricePoint
	ClosePrice   PricePoint
	HighestPrice PricePoint
	LowestPrice  PricePoint
	TotalVolume  decimal.Decimal
}

func (a *AggregatedTick) Difference() decimal.Decimal {
	head, tail := a.PriceRange()
	return tail.Price.Sub(head.Price)
}

// PriceRange returns the prices at the highest and lowest points, in time order.
func (a *AggregatedTick) PriceRange() (head PricePoint, tail PricePoint) {
	head = a.HighestPrice
	tail = a.LowestPrice
	if a.HighestPrice.Timestamp > a.LowestPrice.Timestamp {
		head = a.LowestPrice
		tail = a.HighestPrice
	}
	return
}

func (a *AggregatedTick) IsUp() bool {
	head, tail := a.PriceRange()
	return tail.Price.GreaterThan(head.Price)
}

func (a *AggregatedTick) Equal() bool {
	return a.HighestPrice.Price.Equal(a.LowestPrice.Price)
}

// Fields 转成推送字段，便于沿用同一个回调转发
func (a *AggregatedTick) Fields() streammanager.Fields {
	str := func(s string) *string { return &s }
	return streammanager.Fields{
		FieldOpen:  str(a.OpenPrice.Price.String()),
		FieldHigh:  str(a.HighestPrice.Price.String()),
		FieldLow:   str(a.LowestPrice.Price.String()),
		FieldClose: str(a.ClosePrice.Price.String()),
		FieldTotal: str(a.TotalVolume.String()),
		FieldCount: str(strconv.FormatUint(a.Count, 10)),
		FieldStart: str(strconv.FormatInt(a.Timestamp, 10)),
	}
}

// Sampler is the interface that wraps the basic Sample method.
type Sampler interface {
	// Sample 输入一条逐笔，周期结束时返回上一个周期的聚合结果，否则返回 nil
	Sample(t *Tick) *AggregatedTick
}
