package ighttp

import (
	"net/http"
)

type Option func(o *options)

type options struct {
	apiKey     string
	baseURL    string
	proxyUrl   string
	httpClient *http.Client
}

func BaseUrl(b string) Option {
	return func(o *options) { o.baseURL = b }
}

// Demo 切换模拟盘或实盘地址
func Demo(demo bool) Option {
	return func(o *options) {
		if demo {
			o.baseURL = DemoBaseURL
		} else {
			o.baseURL = LiveBaseURL
		}
	}
}

func ProxyURL(p string) Option {
	return func(o *options) { o.proxyUrl = p }
}

func HttpClient(h *http.Client) Option {
	return func(o *options) { o.httpClient = h }
}

func APIKey(k string) Option {
	return func(o *options) { o.apiKey = k }
}
