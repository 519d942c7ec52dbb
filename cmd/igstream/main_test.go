package main

import (
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-gotop/igkit/config"
	"github.com/go-gotop/igkit/streammanager"
)

type fakeSubscriber struct {
	calls []string
}

func (f *fakeSubscriber) SubscribePrice(epic string, _ []string, _ streammanager.Callback) error {
	f.calls = append(f.calls, "price:"+epic)
	return nil
}

func (f *fakeSubscriber) SubscribeAccount(_ []string, _ streammanager.Callback) error {
	f.calls = append(f.calls, "account")
	return nil
}

func (f *fakeSubscriber) SubscribeTrade(_ []string, _ streammanager.Callback) error {
	f.calls = append(f.calls, "trade")
	return nil
}

func (f *fakeSubscriber) SubscribeChartTick(epic string, _ []string, _ streammanager.Callback) error {
	f.calls = append(f.calls, "tick:"+epic)
	return nil
}

func (f *fakeSubscriber) SubscribeChartCandle(epic string, scale streammanager.Scale, _ []string, _ streammanager.Callback) error {
	f.calls = append(f.calls, "candle:"+epic+":"+string(scale))
	return streammanager.ErrInvalidFields
}

func TestSubscribeAll(t *testing.T) {
	f := &fakeSubscriber{}
	cb := func(streammanager.StreamKey, streammanager.Fields) {}
	err := subscribeAll(f, []config.SubscriptionConfig{
		{Type: config.SubPrice, Epic: "E1", Fields: []string{"BID"}},
		{Type: config.SubAccount, Fields: []string{"PNL"}},
		{Type: config.SubTrade, Fields: []string{"OPU"}},
		{Type: config.SubChartTick, Epic: "E2", Fields: []string{"LTV"}, Sample: "1m"},
	}, cb, log.DefaultLogger)
	require.NoError(t, err)
	assert.Equal(t, []string{"price:E1", "account", "trade", "tick:E2"}, f.calls)

	err = subscribeAll(f, []config.SubscriptionConfig{
		{Type: config.SubChartCandle, Epic: "E3", Scale: "HOUR", Fields: []string{"X"}},
	}, cb, log.DefaultLogger)
	assert.ErrorIs(t, err, streammanager.ErrInvalidFields)

	err = subscribeAll(f, []config.SubscriptionConfig{{Type: "news"}}, cb, log.DefaultLogger)
	assert.ErrorContains(t, err, "unknown subscription type")
}

func TestNewPublisherNone(t *testing.T) {
	pub, err := newPublisher(config.BrokerConfig{}, log.DefaultLogger)
	assert.NoError(t, err)
	assert.Nil(t, pub)
}
