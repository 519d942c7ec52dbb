package nats

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-gotop/igkit/broker"
)

type fakeConn struct {
	msgs    []*nats.Msg
	drained bool
}

func (c *fakeConn) PublishMsg(m *nats.Msg) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func TestPublish(t *testing.T) {
	c := &fakeConn{}
	o := defaultOptions()
	WithSubjectPrefix("ig")(o)
	p := &Publisher{opts: o, conn: c}

	err := p.Publish(context.Background(), "prices", &broker.Message{
		Key:     "PRICE:ACC1:EPIC",
		Headers: broker.Headers{broker.HeaderStreamKey: "PRICE:ACC1:EPIC"},
		Body:    []byte(`{"key":"PRICE:ACC1:EPIC"}`),
	})
	require.NoError(t, err)
	require.Len(t, c.msgs, 1)
	m := c.msgs[0]
	assert.Equal(t, "ig.prices", m.Subject)
	assert.Equal(t, "PRICE:ACC1:EPIC", m.Header.Get(broker.HeaderStreamKey))
	assert.Equal(t, []byte(`{"key":"PRICE:ACC1:EPIC"}`), m.Data)

	require.NoError(t, p.Close())
	assert.True(t, c.drained)
}

func TestSubjectWithoutPrefix(t *testing.T) {
	p := &Publisher{opts: defaultOptions()}
	assert.Equal(t, "prices", p.subject("prices"))
}
