package limiter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodLimit 一个周期内允许的连接次数，例如 {"5m", 300}
type PeriodLimit struct {
	WsConnectPeriod string
	WsConnectTimes  int64
}

//go:generate mockgen -destination=../limiter/mocks/limiter.go -package=mklimiter . Limiter
type Limiter interface {
	// WsAllow 是否允许现在建立推送连接
	WsAllow() bool
}

// ParsePeriod 解析 period 字符串，例如 "500ms"、"10s"、"5m"、"1h"，返回时间单位和数量
func ParsePeriod(period string) (time.Duration, int, error) {
	var unit time.Duration

	// 去除字符串中的空格
	period = strings.TrimSpace(period)

	// 获取数字部分
	var numStr string
	var unitStr string
	for i, char := range period {
		if char >= '0' && char <= '9' {
			numStr += string(char)
		} else {
			unitStr = period[i:]
			break
		}
	}
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid period %q: %w", period, err)
	}
	if num <= 0 {
		return 0, 0, fmt.Errorf("invalid period %q: must be positive", period)
	}
	switch strings.ToLower(unitStr) {
	case "ms":
		unit = time.Millisecond
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	default:
		return 0, 0, fmt.Errorf("unsupported time unit: %s", unitStr)
	}
	return unit, num, nil
}

// PeriodDuration 返回 period 对应的总时长
func PeriodDuration(period string) (time.Duration, error) {
	unit, num, err := ParsePeriod(period)
	if err != nil {
		return 0, err
	}
	return unit * time.Duration(num), nil
}
