package streammanager

import "fmt"

// Credentials 推送连接所需的账户信息和会话令牌
type Credentials struct {
	AccountID     string
	PushEndpoint  string // Lightstreamer 地址，空则使用默认地址
	CST           string
	SecurityToken string // X-SECURITY-TOKEN
}

// HasTokens reports whether both session secrets are present.
func (c Credentials) HasTokens() bool {
	return c.CST != "" && c.SecurityToken != ""
}

// Password 拼接推送连接密码
func (c Credentials) Password() string {
	return fmt.Sprintf("CST-%s|XST-%s", c.CST, c.SecurityToken)
}

// CredentialSource 提供凭证，管理器只读取一次
type CredentialSource interface {
	Credentials() Credentials
}

// StaticCredentials 固定凭证
type StaticCredentials Credentials

func (s StaticCredentials) Credentials() Credentials {
	return Credentials(s)
}
