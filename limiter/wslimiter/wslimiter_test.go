package wslimiter

import (
	"testing"

	"github.com/go-gotop/igkit/limiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWsAllow(t *testing.T) {
	l, err := NewWsLimiter(limiter.PeriodLimit{WsConnectPeriod: "1h", WsConnectTimes: 2})
	require.NoError(t, err)

	assert.True(t, l.WsAllow())
	assert.True(t, l.WsAllow())
	assert.False(t, l.WsAllow())
}

func TestWsAllowAllPeriods(t *testing.T) {
	l, err := NewWsLimiter(
		limiter.PeriodLimit{WsConnectPeriod: "1h", WsConnectTimes: 3},
		limiter.PeriodLimit{WsConnectPeriod: "1h", WsConnectTimes: 1},
	)
	require.NoError(t, err)

	assert.True(t, l.WsAllow())
	// 第二个周期已经用完，第一个周期的令牌不能被消耗
	assert.False(t, l.WsAllow())
	assert.False(t, l.WsAllow())
}

func TestNoLimits(t *testing.T) {
	l, err := NewWsLimiter()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.True(t, l.WsAllow())
	}
}

func TestInvalidPeriod(t *testing.T) {
	_, err := NewWsLimiter(limiter.PeriodLimit{WsConnectPeriod: "5d", WsConnectTimes: 1})
	assert.Error(t, err)
}
