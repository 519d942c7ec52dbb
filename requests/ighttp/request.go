package ighttp

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type SecType int

const (
	SecTypeNone    SecType = iota
	SecTypeAPIKey          // X-IG-API-KEY
	SecTypeSession         // X-IG-API-KEY + CST + X-SECURITY-TOKEN
)

type Params map[string]interface{}

// Request define an API request
type Request struct {
	Method   string
	Endpoint string
	SecType  SecType
	Version  int
	query    url.Values
	payload  interface{}
	header   http.Header
	body     io.Reader
	fullURL  string
}

// AddParam add param with key/value to query string
func (r *Request) AddParam(key string, value interface{}) *Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Add(key, fmt.Sprintf("%v", value))
	return r
}

// SetParam set param with key/value to query string
func (r *Request) SetParam(key string, value interface{}) *Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Set(key, fmt.Sprintf("%v", value))
	return r
}

// SetParams set params with key/values to query string
func (r *Request) SetParams(m Params) *Request {
	for k, v := range m {
		r.SetParam(k, v)
	}
	return r
}

// SetBody 请求体，按 JSON 编码
func (r *Request) SetBody(v interface{}) *Request {
	r.payload = v
	return r
}

func (r *Request) validate() (err error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	if r.query == nil {
		r.query = url.Values{}
	}
	return nil
}

// RequestOption define option type for request
type RequestOption func(*Request)

// WithVersion 设置 IG 接口版本号
func WithVersion(v int) RequestOption {
	return func(r *Request) {
		r.Version = v
	}
}

// WithHeader set or add a header value to the request
func WithHeader(key, value string, replace bool) RequestOption {
	return func(r *Request) {
		if r.header == nil {
			r.header = http.Header{}
		}
		if replace {
			r.header.Set(key, value)
		} else {
			r.header.Add(key, value)
		}
	}
}

// WithHeaders set or replace the headers of the request
func WithHeaders(header http.Header) RequestOption {
	return func(r *Request) {
		r.header = header.Clone()
	}
}
