package lightstreamer

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// Subprotocol 握手时协商的 TLCP 版本
	Subprotocol = "TLCP-2.2.0.lightstreamer.com"

	defaultCID = "mgQkwtwdysogQz2BJ4Ji kOj2Bg"
)

var errMalformed = errors.New("malformed message")

// ServerError 服务端返回的 CONERR、END、ERROR、REQERR
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("lightstreamer error %d: %s", e.Code, e.Message)
}

// wsURL 把推送地址转换成 websocket 地址，http 对应 ws，https 对应 wss
func wsURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported push endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("push endpoint %q has no host", endpoint)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/lightstreamer"
	return u.String(), nil
}

// encode 参数值按百分号编码，空格编码为 %20
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// request 组装一条请求，kv 按 key、value 依次排列，保持参数顺序
func request(name string, kv ...string) []byte {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString("\r\n")
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv[i])
		b.WriteByte('=')
		b.WriteString(encode(kv[i+1]))
	}
	return []byte(b.String())
}

type message struct {
	kind string
	args []string
}

// parseMessage 按消息类型切分参数，最后一个参数可能包含逗号
func parseMessage(line string) message {
	kind, rest, found := strings.Cut(line, ",")
	if !found {
		return message{kind: kind}
	}
	n := -1
	switch kind {
	case "U", "REQERR", "OV":
		n = 3
	case "CONERR", "END", "ERROR", "MSGFAIL":
		n = 2
	}
	return message{kind: kind, args: strings.SplitN(rest, ",", n)}
}

func (m message) int(i int) (int, error) {
	if i >= len(m.args) {
		return 0, fmt.Errorf("%w: %s missing argument %d", errMalformed, m.kind, i)
	}
	return strconv.Atoi(m.args[i])
}

func (m message) str(i int) string {
	if i >= len(m.args) {
		return ""
	}
	return unescape(m.args[i])
}

// serverError 解析 <code>,<message> 格式的参数
func (m message) serverError(offset int) *ServerError {
	code, err := m.int(offset)
	if err != nil {
		code = -1
	}
	return &ServerError{Code: code, Message: m.str(offset + 1)}
}

func unescape(s string) string {
	v, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return v
}

// decodeValues 解析 U 消息中的字段值：
// 空表示不变，# 表示 null，$ 表示空字符串，^N 表示后面 N 个字段都不变
func decodeValues(raw string, prev []*string) ([]*string, []bool, error) {
	next := make([]*string, len(prev))
	changed := make([]bool, len(prev))
	i := 0
	for _, tok := range strings.Split(raw, "|") {
		if strings.HasPrefix(tok, "^") {
			n, err := strconv.Atoi(tok[1:])
			if err != nil || n < 0 || i+n > len(prev) {
				return nil, nil, fmt.Errorf("%w: bad skip %q", errMalformed, tok)
			}
			for j := 0; j < n; j++ {
				next[i] = prev[i]
				i++
			}
			continue
		}
		if i >= len(prev) {
			return nil, nil, fmt.Errorf("%w: more than %d values", errMalformed, len(prev))
		}
		switch tok {
		case "":
			next[i] = prev[i]
		case "#":
			next[i] = nil
			changed[i] = true
		case "$":
			empty := ""
			next[i] = &empty
			changed[i] = true
		default:
			v := unescape(tok)
			next[i] = &v
			changed[i] = true
		}
		i++
	}
	if i != len(prev) {
		return nil, nil, fmt.Errorf("%w: expected %d values, got %d", errMalformed, len(prev), i)
	}
	return next, changed, nil
}
