package wslimiter

import (
	"time"

	"github.com/go-gotop/igkit/limiter"
	"golang.org/x/time/rate"
)

var _ limiter.Limiter = (*WsLimiter)(nil)

// NewWsLimiter 每个 PeriodLimit 对应一个令牌桶，所有桶都有令牌才允许连接
func NewWsLimiter(limits ...limiter.PeriodLimit) (*WsLimiter, error) {
	l := &WsLimiter{}
	for _, pl := range limits {
		d, err := limiter.PeriodDuration(pl.WsConnectPeriod)
		if err != nil {
			return nil, err
		}
		if pl.WsConnectTimes <= 0 {
			continue
		}
		every := d / time.Duration(pl.WsConnectTimes)
		l.limiters = append(l.limiters, rate.NewLimiter(rate.Every(every), int(pl.WsConnectTimes)))
	}
	return l, nil
}

type WsLimiter struct {
	limiters []*rate.Limiter
}

func (w *WsLimiter) WsAllow() bool {
	now := time.Now()
	reservations := make([]*rate.Reservation, 0, len(w.limiters))
	for _, l := range w.limiters {
		r := l.ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			r.CancelAt(now)
			// 已经拿到的令牌还回去
			for _, prev := range reservations {
				prev.CancelAt(now)
			}
			return false
		}
		reservations = append(reservations, r)
	}
	return true
}
