package igstream

import (
	"github.com/go-gotop/igkit/streammanager"
)

// SubscribePrice 订阅 epic 的报价，使用 Pricing 适配器
func (m *Manager) SubscribePrice(epic string, fields []string, cb streammanager.Callback) error {
	key := streammanager.PriceKey(m.credentials().AccountID, epic)
	return m.Subscribe(key, streammanager.ModeMerge, fields, cb, streammanager.WithAdapter(pricingAdapter))
}

func (m *Manager) UnsubscribePrice(epic string) {
	m.Unsubscribe(streammanager.PriceKey(m.credentials().AccountID, epic))
}

// SubscribeAccount 订阅账户资金变化
func (m *Manager) SubscribeAccount(fields []string, cb streammanager.Callback) error {
	key := streammanager.AccountKey(m.credentials().AccountID)
	return m.Subscribe(key, streammanager.ModeMerge, fields, cb)
}

func (m *Manager) UnsubscribeAccount() {
	m.Unsubscribe(streammanager.AccountKey(m.credentials().AccountID))
}

// SubscribeTrade 订阅成交确认和持仓变化，每条推送独立交付
func (m *Manager) SubscribeTrade(fields []string, cb streammanager.Callback) error {
	key := streammanager.TradeKey(m.credentials().AccountID)
	return m.Subscribe(key, streammanager.ModeDistinct, fields, cb)
}

func (m *Manager) UnsubscribeTrade() {
	m.Unsubscribe(streammanager.TradeKey(m.credentials().AccountID))
}

func (m *Manager) SubscribeChartTick(epic string, fields []string, cb streammanager.Callback) error {
	return m.Subscribe(streammanager.ChartTickKey(epic), streammanager.ModeDistinct, fields, cb)
}

func (m *Manager) UnsubscribeChartTick(epic string) {
	m.Unsubscribe(streammanager.ChartTickKey(epic))
}

func (m *Manager) SubscribeChartCandle(epic string, scale streammanager.Scale, fields []string, cb streammanager.Callback) error {
	return m.Subscribe(streammanager.ChartCandleKey(epic, scale), streammanager.ModeMerge, fields, cb)
}

func (m *Manager) UnsubscribeChartCandle(epic string, scale streammanager.Scale) {
	m.Unsubscribe(streammanager.ChartCandleKey(epic, scale))
}
