package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-gotop/igkit/requests/ighttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginBody = `{
	"accountType": "CFD",
	"currencyIsoCode": "GBP",
	"currentAccountId": "ABC123",
	"lightstreamerEndpoint": "https://demo-apd.marketdatasystems.com",
	"clientId": "100",
	"timezoneOffset": 1
}`

func newServer(t *testing.T, withTokens bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /session":
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"identifier":"user","password":"pass"}`, string(body))
			assert.Equal(t, "key", r.Header.Get(ighttp.HeaderAPIKey))
			assert.Equal(t, "2", r.Header.Get(ighttp.HeaderVersion))
			if r.Header.Get(ighttp.HeaderAPIKey) != "key" {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"errorCode":"error.security.api-key-invalid"}`))
				return
			}
			if withTokens {
				w.Header().Set("CST", "cst-token")
				w.Header().Set("X-SECURITY-TOKEN", "xst-token")
			}
			w.Write([]byte(loginBody))
		case "GET /session":
			assert.Equal(t, "cst-token", r.Header.Get(ighttp.HeaderCST))
			w.Write([]byte(`{"clientId":"100","accountId":"ABC123"}`))
		case "DELETE /session":
			assert.Equal(t, "cst-token", r.Header.Get(ighttp.HeaderCST))
			assert.Equal(t, "xst-token", r.Header.Get(ighttp.HeaderSecurityToken))
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestLogin(t *testing.T) {
	srv := newServer(t, true)
	defer srv.Close()
	cli := ighttp.NewClient(ighttp.BaseUrl(srv.URL))

	s, err := Login(context.Background(), cli, "key", "user", "pass")
	require.NoError(t, err)

	creds := s.Credentials()
	assert.Equal(t, "ABC123", creds.AccountID)
	assert.Equal(t, "https://demo-apd.marketdatasystems.com", creds.PushEndpoint)
	assert.Equal(t, "cst-token", creds.CST)
	assert.Equal(t, "xst-token", creds.SecurityToken)
	assert.True(t, creds.HasTokens())
	assert.Equal(t, "CST-cst-token|XST-xst-token", creds.Password())
	assert.Equal(t, "ABC123", s.AccountID())
	assert.Equal(t, "100", s.ClientID())
	assert.Equal(t, "GBP", s.Currency())

	cst, xst := cli.Tokens()
	assert.Equal(t, "cst-token", cst)
	assert.Equal(t, "xst-token", xst)

	details, err := s.Details(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ABC123", details["accountId"])

	require.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.Credentials().HasTokens())
	_, err = s.Details(context.Background())
	assert.ErrorIs(t, err, ighttp.ErrNoSession)
}

func TestLoginMissingAPIKey(t *testing.T) {
	_, err := Login(context.Background(), ighttp.NewClient(), "", "user", "pass")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestLoginMissingTokens(t *testing.T) {
	srv := newServer(t, false)
	defer srv.Close()

	_, err := Login(context.Background(), ighttp.NewClient(ighttp.BaseUrl(srv.URL)), "key", "user", "pass")
	assert.ErrorIs(t, err, ErrMissingTokens)
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errorCode":"error.security.invalid-details"}`))
	}))
	defer srv.Close()

	_, err := Login(context.Background(), ighttp.NewClient(ighttp.BaseUrl(srv.URL)), "key", "user", "bad")
	require.Error(t, err)
	assert.True(t, ighttp.IsAPIError(err))
	assert.Contains(t, err.Error(), "error.security.invalid-details")
}
