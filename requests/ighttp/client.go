package ighttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/bitly/go-simplejson"
	jsoniter "github.com/json-iterator/go"
)

const (
	DemoBaseURL = "https://demo-api.ig.com/gateway/deal"
	LiveBaseURL = "https://api.ig.com/gateway/deal"

	HeaderAPIKey        = "X-IG-API-KEY"
	HeaderCST           = "CST"
	HeaderSecurityToken = "X-SECURITY-TOKEN"
	HeaderVersion       = "Version"
)

var ErrNoSession = errors.New("ighttp: no session tokens, login first")

// Redefining the standard package
var Json = jsoniter.ConfigCompatibleWithStandardLibrary

func NewJSON(data []byte) (j *simplejson.Json, err error) {
	j, err = simplejson.NewJson(data)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// NewClient 创建 IG REST 客户端，默认使用模拟盘地址
func NewClient(ops ...Option) *Client {
	opts := &options{
		baseURL:    DemoBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range ops {
		o(opts)
	}
	if opts.proxyUrl != "" {
		proxy, err := url.Parse(opts.proxyUrl)
		if err != nil {
			panic(err)
		}
		tr := &http.Transport{
			Proxy: http.ProxyURL(proxy),
		}
		opts.httpClient = &http.Client{Transport: tr, Timeout: opts.httpClient.Timeout}
	}
	return &Client{
		baseURL:   opts.baseURL,
		apiKey:    opts.apiKey,
		userAgent: "GoTop",
		opts:      opts,
	}
}

// APIError define API error when response status is 4xx or 5xx
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"errorCode"`
}

// Error return status and IG error code
func (e APIError) Error() string {
	return fmt.Sprintf("<APIError> status=%d, code=%s", e.StatusCode, e.Code)
}

// IsAPIError check if e is an API error
func IsAPIError(e error) bool {
	var apiErr *APIError
	return errors.As(e, &apiErr)
}

// Response 保留响应头，登录时需要从中读取会话令牌
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type doFunc func(req *http.Request) (*http.Response, error)

// Client define API client
type Client struct {
	baseURL   string
	apiKey    string
	opts      *options
	userAgent string
	do        doFunc

	mux           sync.RWMutex
	cst           string
	securityToken string
}

// SetTokens 保存会话令牌，之后 SecTypeSession 的请求都会带上
func (c *Client) SetTokens(cst, securityToken string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.cst = cst
	c.securityToken = securityToken
}

func (c *Client) Tokens() (cst, securityToken string) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.cst, c.securityToken
}

func (c *Client) APIKey() string {
	return c.apiKey
}

func (c *Client) SetAPIKey(k string) {
	c.apiKey = k
}

func (c *Client) parseRequest(r *Request, opts ...RequestOption) (err error) {
	// set request options from user
	for _, opt := range opts {
		opt(r)
	}
	err = r.validate()
	if err != nil {
		return err
	}

	fullURL := fmt.Sprintf("%s%s", c.baseURL, r.Endpoint)
	queryString := r.query.Encode()
	header := http.Header{}
	if r.header != nil {
		header = r.header.Clone()
	}
	header.Set("Accept", "application/json; charset=UTF-8")
	header.Set("User-Agent", c.userAgent)

	var body io.Reader = http.NoBody
	if r.payload != nil {
		data, err := Json.Marshal(r.payload)
		if err != nil {
			return err
		}
		header.Set("Content-Type", "application/json; charset=UTF-8")
		body = bytes.NewReader(data)
	}
	if r.Version > 0 {
		header.Set(HeaderVersion, strconv.Itoa(r.Version))
	}
	if r.SecType == SecTypeAPIKey || r.SecType == SecTypeSession {
		header.Set(HeaderAPIKey, c.apiKey)
	}
	if r.SecType == SecTypeSession {
		cst, token := c.Tokens()
		if cst == "" || token == "" {
			return ErrNoSession
		}
		header.Set(HeaderCST, cst)
		header.Set(HeaderSecurityToken, token)
	}
	if queryString != "" {
		fullURL = fmt.Sprintf("%s?%s", fullURL, queryString)
	}

	r.fullURL = fullURL
	r.header = header
	r.body = body
	return nil
}

// Do 发送请求并返回完整响应，4xx 和 5xx 返回 *APIError
func (c *Client) Do(ctx context.Context, r *Request, opts ...RequestOption) (res *Response, err error) {
	err = c.parseRequest(r, opts...)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.fullURL, r.body)
	if err != nil {
		return nil, err
	}
	req.Header = r.header
	f := c.do
	if f == nil {
		f = c.opts.httpClient.Do
	}
	resp, err := f(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		cerr := resp.Body.Close()
		// Only overwrite the retured error if the original error was nil and an
		// error occurred while closing the body.
		if err == nil && cerr != nil {
			err = cerr
		}
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(data) > 0 {
			// 错误体不是 JSON 时只返回状态码
			_ = Json.Unmarshal(data, apiErr)
		}
		return nil, apiErr
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *Client) CallAPI(ctx context.Context, r *Request, opts ...RequestOption) (data []byte, err error) {
	res, err := c.Do(ctx, r, opts...)
	if err != nil {
		return []byte{}, err
	}
	return res.Body, nil
}

// SetApiEndpoint set api Endpoint
func (c *Client) SetApiEndpoint(url string) {
	c.baseURL = url
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
