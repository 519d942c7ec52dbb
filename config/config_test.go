package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-gotop/igkit/streammanager"
	"github.com/go-gotop/igkit/utils"
)

const sample = `
ig:
  api_key: file-key
  identifier: user
  password: pass
  demo: true
stream:
  reconnect_delay: 2s
  connect_limits:
    - period: 1m
      times: 10
broker:
  type: kafka
  addrs: [localhost:9092]
  topic: ig.updates
subscriptions:
  - type: price
    epic: CS.D.EURUSD.CFD.IP
    fields: [BID, OFFER]
  - type: chart_candle
    epic: CS.D.EURUSD.CFD.IP
    scale: 1MINUTE
    fields: [BID_OPEN, BID_CLOSE]
  - type: trade
    fields: [CONFIRMS]
  - type: chart_tick
    epic: CS.D.EURUSD.CFD.IP
    fields: [BID, OFR, UTM]
    sample: 30s
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewConfig(t *testing.T) {
	c, err := NewConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "file-key", c.IG.APIKey)
	assert.True(t, c.IG.Demo)
	assert.Equal(t, 2*time.Second, c.Stream.ReconnectDelay)
	assert.True(t, c.ReconnectEnabled())
	assert.Equal(t, "igstream", c.Log.Service)
	assert.Equal(t, BrokerKafka, c.Broker.Type)
	require.Len(t, c.Subscriptions, 4)
	assert.Equal(t, []string{"BID", "OFFER"}, c.Subscriptions[0].Fields)
	assert.Equal(t, "1MINUTE", c.Subscriptions[1].Scale)
	assert.Zero(t, c.Subscriptions[0].SampleDuration())
	assert.Equal(t, 30*time.Second, c.Subscriptions[3].SampleDuration())

	limits := c.PeriodLimits()
	require.Len(t, limits, 1)
	assert.Equal(t, "1m", limits[0].WsConnectPeriod)
	assert.Equal(t, int64(10), limits[0].WsConnectTimes)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IG_API_KEY", "env-key")
	t.Setenv("IG_IDENTIFIER", "env-user")
	t.Setenv("IG_PASSWORD", "env-pass")
	t.Setenv("IG_DEMO", "false")

	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "env-key", c.IG.APIKey)
	assert.Equal(t, "env-user", c.IG.Identifier)
	assert.Equal(t, "env-pass", c.IG.Password)
	assert.False(t, c.IG.Demo)

	t.Setenv("IG_DEMO", "maybe")
	_, err = Parse([]byte(sample))
	assert.ErrorContains(t, err, "invalid IG_DEMO")
}

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte(`
ig: {api_key: k, identifier: u, password: p}
stream: {reconnect: false}
subscriptions:
  - {type: account, fields: [PNL]}
`))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.Stream.ReconnectDelay)
	assert.False(t, c.ReconnectEnabled())
	assert.Equal(t, BrokerNone, c.Broker.Type)
	assert.Empty(t, c.PeriodLimits())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			IG:            IGConfig{APIKey: "k", Identifier: "u", Password: "p"},
			Stream:        StreamConfig{ReconnectDelay: time.Second},
			Subscriptions: []SubscriptionConfig{{Type: SubAccount, Fields: []string{"PNL"}}},
		}
	}
	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{"ok", func(c *Config) {}, ""},
		{"no api key", func(c *Config) { c.IG.APIKey = "" }, "api_key"},
		{"no password", func(c *Config) { c.IG.Password = "" }, "identifier and password"},
		{"negative delay", func(c *Config) { c.Stream.ReconnectDelay = -time.Second }, "reconnect_delay"},
		{"bad period", func(c *Config) { c.Stream.ConnectLimits = []ConnectLimit{{Period: "1x", Times: 1}} }, "connect limit 0"},
		{"bad times", func(c *Config) { c.Stream.ConnectLimits = []ConnectLimit{{Period: "1s"}} }, "times must be positive"},
		{"unknown broker", func(c *Config) { c.Broker.Type = "mq" }, "unknown broker type"},
		{"broker no addrs", func(c *Config) { c.Broker = BrokerConfig{Type: BrokerRedis, Topic: "t"} }, "addrs cannot be empty"},
		{"broker no topic", func(c *Config) { c.Broker = BrokerConfig{Type: BrokerNats, Addrs: []string{"nats://x"}} }, "topic cannot be empty"},
		{"no subscriptions", func(c *Config) { c.Subscriptions = nil }, "at least one subscription"},
		{"unknown sub", func(c *Config) { c.Subscriptions[0].Type = "news" }, "unknown subscription type"},
		{"price no epic", func(c *Config) { c.Subscriptions[0].Type = SubPrice }, "requires epic"},
		{"candle no scale", func(c *Config) {
			c.Subscriptions[0] = SubscriptionConfig{Type: SubChartCandle, Epic: "E", Fields: []string{"X"}}
		}, "requires epic and scale"},
		{"no fields", func(c *Config) { c.Subscriptions[0].Fields = nil }, streammanager.ErrInvalidFields.Error()},
		{"sample on account", func(c *Config) { c.Subscriptions[0].Sample = "1m" }, "only supported for chart_tick"},
		{"bad sample", func(c *Config) {
			c.Subscriptions[0] = SubscriptionConfig{Type: SubChartTick, Epic: "E", Fields: []string{"LTP"}, Sample: "1y"}
		}, "sample"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.modify(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestEncryptedCredentials(t *testing.T) {
	const secret = "25c0517796a5419782d06c3d85cf3b53"
	key, err := utils.ParseKey(secret)
	require.NoError(t, err)
	apiKey, err := utils.Encrypt("plain-key", key)
	require.NoError(t, err)
	password, err := utils.Encrypt("plain-pass", key)
	require.NoError(t, err)

	content := `
ig:
  api_key: "` + apiKey + `"
  identifier: user
  password: "` + password + `"
  encrypted: true
subscriptions:
  - {type: account, fields: [PNL]}
`
	t.Setenv(utils.EncryptionKeyEnv, secret)
	c, err := Parse([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, "plain-key", c.IG.APIKey)
	assert.Equal(t, "plain-pass", c.IG.Password)

	t.Setenv(utils.EncryptionKeyEnv, "")
	_, err = Parse([]byte(content))
	assert.ErrorIs(t, err, utils.ErrKeyMissing)
}
