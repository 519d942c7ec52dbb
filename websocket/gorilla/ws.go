package gorilla

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gotop/igkit/websocket"
)

var _ websocket.Websocket = (*GorillaWebsocket)(nil)

func NewGorillaWebsocket(conn websocket.WebSocketConn, config *websocket.WebsocketConfig) *GorillaWebsocket {
	if config == nil {
		config = &websocket.WebsocketConfig{}
	}
	g := &GorillaWebsocket{
		conn:    conn,
		config:  config,
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	return g
}

// GorillaWebsocket 是 Websocket 接口的实现，一个实例只对应一次连接
type GorillaWebsocket struct {
	messageCount atomic.Uint64
	isConnected  atomic.Bool
	conn         websocket.WebSocketConn
	config       *websocket.WebsocketConfig
	req          *websocket.WebsocketRequest
	writeMux     sync.Mutex
	closeCh      chan struct{}
	doneCh       chan struct{}
	closeOnce    sync.Once
	doneOnce     sync.Once
	connectTime  time.Time
}

func (w *GorillaWebsocket) Connect(req *websocket.WebsocketRequest) error {
	if err := w.conn.Dial(req.Endpoint, req.Header); err != nil {
		w.doneOnce.Do(func() {
			close(w.doneCh)
		})
		return err
	}
	w.configure()
	w.req = req
	w.connectTime = time.Now()
	w.messageCount.Store(0)
	w.isConnected.Store(true)
	go w.readMessages(req)

	return nil
}

func (w *GorillaWebsocket) configure() {
	if w.config.PingHandler != nil {
		w.conn.SetPingHandler(w.config.PingHandler)
	}
	if w.config.PongHandler != nil {
		w.conn.SetPongHandler(w.config.PongHandler)
	}
}

func (w *GorillaWebsocket) readMessages(req *websocket.WebsocketRequest) {
	defer w.doneOnce.Do(func() {
		close(w.doneCh)
	}) // 确保此方法退出时标记doneCh为已完成
	for {
		select {
		case <-w.closeCh: // 如果收到关闭信号，则立即退出循环
			return
		default:
			_, message, err := w.conn.ReadMessage()
			if err != nil {
				// 当遇到错误时，首先检查是否因为连接已关闭
				select {
				case <-w.closeCh: // 如果已经收到关闭信号，则不处理错误
				default:
					// 读取消息时发生错误，标识连接已断开
					w.isConnected.Store(false)
					if req.ErrorHandler != nil {
						req.ErrorHandler(req.ID, err)
					}
				}
				return // 退出循环
			}
			w.messageCount.Add(1)
			if req.MessageHandler != nil {
				req.MessageHandler(message) // 处理接收到的消息
			}
		}
	}
}

func (w *GorillaWebsocket) ID() string {
	if w.req == nil {
		return ""
	}
	return w.req.ID
}

// Disconnect 不能在 MessageHandler 里调用，会等待读协程退出
func (w *GorillaWebsocket) Disconnect() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh) // 通知读协程退出
		if w.conn != nil {
			err = w.conn.Close() // 关闭WebSocket连接
		}
	})
	w.isConnected.Store(false)
	if w.req == nil {
		// 从未连接成功，没有读协程
		w.doneOnce.Do(func() {
			close(w.doneCh)
		})
	}
	<-w.doneCh // 确保读协程已经结束
	return err
}

func (w *GorillaWebsocket) IsConnected() bool {
	return w.isConnected.Load()
}

func (w *GorillaWebsocket) WriteMessage(messageType int, data []byte) error {
	w.writeMux.Lock()
	defer w.writeMux.Unlock()
	return w.conn.WriteMessage(messageType, data)
}

func (w *GorillaWebsocket) MessageCount() uint64 {
	return w.messageCount.Load()
}

func (w *GorillaWebsocket) GetCurrentRate() int {
	elapsed := time.Since(w.connectTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	rate := float64(w.messageCount.Load()) / elapsed
	return int(rate) // 返回每秒消息数
}

func (w *GorillaWebsocket) ConnectionDuration() time.Duration {
	return time.Since(w.connectTime)
}
