// Description: IG REST 会话，登录后提供推送连接需要的账户和令牌

package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/go-gotop/igkit/requests/ighttp"
	"github.com/go-gotop/igkit/streammanager"
)

var (
	ErrAPIKeyMissing = errors.New("API key is missing")
	ErrMissingTokens = errors.New("login response has no CST or X-SECURITY-TOKEN header")
)

var _ streammanager.CredentialSource = (*Session)(nil)

// Session 一次登录的结果
type Session struct {
	cli *ighttp.Client

	mux      sync.RWMutex
	creds    streammanager.Credentials
	clientID string
	currency string
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Login 使用 v2 接口登录，令牌从响应头读取，账户和推送地址从响应体读取
func Login(ctx context.Context, cli *ighttp.Client, apiKey, identifier, password string) (*Session, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	cli.SetAPIKey(apiKey)

	r := &ighttp.Request{
		Method:   http.MethodPost,
		Endpoint: "/session",
		SecType:  ighttp.SecTypeAPIKey,
	}
	r.SetBody(loginRequest{Identifier: identifier, Password: password})
	res, err := cli.Do(ctx, r, ighttp.WithVersion(2))
	if err != nil {
		return nil, err
	}

	cst := res.Header.Get(ighttp.HeaderCST)
	token := res.Header.Get(ighttp.HeaderSecurityToken)
	if cst == "" || token == "" {
		return nil, ErrMissingTokens
	}
	j, err := ighttp.NewJSON(res.Body)
	if err != nil {
		return nil, err
	}
	cli.SetTokens(cst, token)

	return &Session{
		cli: cli,
		creds: streammanager.Credentials{
			AccountID:     j.Get("currentAccountId").MustString(),
			PushEndpoint:  j.Get("lightstreamerEndpoint").MustString(),
			CST:           cst,
			SecurityToken: token,
		},
		clientID: j.Get("clientId").MustString(),
		currency: j.Get("currencyIsoCode").MustString(),
	}, nil
}

func (s *Session) Credentials() streammanager.Credentials {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.creds
}

func (s *Session) AccountID() string {
	return s.Credentials().AccountID
}

func (s *Session) ClientID() string {
	return s.clientID
}

func (s *Session) Currency() string {
	return s.currency
}

// Details 查询当前会话信息
func (s *Session) Details(ctx context.Context) (map[string]interface{}, error) {
	data, err := s.cli.CallAPI(ctx, &ighttp.Request{
		Method:   http.MethodGet,
		Endpoint: "/session",
		SecType:  ighttp.SecTypeSession,
	})
	if err != nil {
		return nil, err
	}
	j, err := ighttp.NewJSON(data)
	if err != nil {
		return nil, err
	}
	return j.Map()
}

// Logout 结束会话，之后令牌失效
func (s *Session) Logout(ctx context.Context) error {
	_, err := s.cli.CallAPI(ctx, &ighttp.Request{
		Method:   http.MethodDelete,
		Endpoint: "/session",
		SecType:  ighttp.SecTypeSession,
	}, ighttp.WithVersion(1))
	if err != nil {
		return err
	}
	s.cli.SetTokens("", "")
	s.mux.Lock()
	s.creds.CST = ""
	s.creds.SecurityToken = ""
	s.mux.Unlock()
	return nil
}
