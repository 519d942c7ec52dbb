package gorilla

import (
	"errors"
	"net/http"
	"sync"
	"time"

	gwebsocket "github.com/gorilla/websocket"
)

var errNotDialed = errors.New("websocket not dialed")

func NewGorillaWebSocketConn() *GorillaWebSocketConn {
	return &GorillaWebSocketConn{}
}

type GorillaWebSocketConn struct {
	mux  sync.RWMutex
	conn *gwebsocket.Conn
}

// Dial 请求头里的 Sec-WebSocket-Protocol 会作为子协议协商
func (g *GorillaWebSocketConn) Dial(endpoint string, requestHeader http.Header) error {
	dialer := gwebsocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.Dial(endpoint, requestHeader)
	if err != nil {
		return err
	}
	conn.SetReadLimit(655350)
	g.mux.Lock()
	g.conn = conn
	g.mux.Unlock()
	return nil
}

func (g *GorillaWebSocketConn) get() *gwebsocket.Conn {
	g.mux.RLock()
	defer g.mux.RUnlock()
	return g.conn
}

func (g *GorillaWebSocketConn) ReadMessage() (int, []byte, error) {
	conn := g.get()
	if conn == nil {
		return 0, nil, errNotDialed
	}
	return conn.ReadMessage()
}

func (g *GorillaWebSocketConn) WriteMessage(messageType int, data []byte) error {
	conn := g.get()
	if conn == nil {
		return errNotDialed
	}
	return conn.WriteMessage(messageType, data)
}

func (g *GorillaWebSocketConn) SetPingHandler(h func(appData string) error) {
	if conn := g.get(); conn != nil {
		conn.SetPingHandler(h)
	}
}

func (g *GorillaWebSocketConn) SetPongHandler(h func(appData string) error) {
	if conn := g.get(); conn != nil {
		conn.SetPongHandler(h)
	}
}

func (g *GorillaWebSocketConn) Close() error {
	conn := g.get()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
