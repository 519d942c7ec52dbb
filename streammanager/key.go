package streammanager

import (
	"fmt"
	"strings"
	"unicode"
)

// StreamKey 是逻辑流的唯一标识，同样的类别和参数总是得到同样的 key
type StreamKey string

// Scale K线周期
type Scale string

const (
	ScaleSecond  Scale = "SECOND"
	Scale1Minute Scale = "1MINUTE"
	Scale5Minute Scale = "5MINUTE"
	ScaleHour    Scale = "HOUR"
)

func PriceKey(accountID, epic string) StreamKey {
	return StreamKey(fmt.Sprintf("PRICE:%s:%s", accountID, epic))
}

func AccountKey(accountID string) StreamKey {
	return StreamKey(fmt.Sprintf("ACCOUNT:%s", accountID))
}

func TradeKey(accountID string) StreamKey {
	return StreamKey(fmt.Sprintf("TRADE:%s", accountID))
}

func ChartTickKey(epic string) StreamKey {
	return StreamKey(fmt.Sprintf("CHART:%s:TICK", epic))
}

func ChartCandleKey(epic string, scale Scale) StreamKey {
	return StreamKey(fmt.Sprintf("CHART:%s:%s", epic, scale))
}

func (k StreamKey) String() string {
	return string(k)
}

// Validate 检查 key 非空且不含空白，空白会把一个订阅拆成多个 item
func (k StreamKey) Validate() error {
	if k == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.IndexFunc(string(k), unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidKey, string(k))
	}
	return nil
}
