package client

import (
	"sync"

	"ai-advisor/backend/pkg/jwt"
)

// TokenAuth 基于本地访问令牌的身份提供者
// 令牌由外部认证服务签发，客户端只读取 sub 判断当前用户，不校验签名
type TokenAuth struct {
	mu     sync.RWMutex
	token  string
	userID string
	subs   map[int]func(userID string, ok bool)
	nextID int
}

// NewTokenAuth 创建身份提供者；令牌为空或无法解析时视为未登录
func NewTokenAuth(token string) *TokenAuth {
	a := &TokenAuth{subs: make(map[int]func(string, bool))}
	a.token, a.userID = resolve(token)
	return a
}

func resolve(token string) (string, string) {
	if token == "" {
		return "", ""
	}
	sub, err := jwt.SubjectOf(token)
	if err != nil {
		return "", ""
	}
	return token, sub
}

// CurrentUser 当前用户 ID
func (a *TokenAuth) CurrentUser() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID, a.userID != ""
}

// Token 当前访问令牌，未登录时为空
func (a *TokenAuth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Subscribe 注册身份变更回调
func (a *TokenAuth) Subscribe(fn func(userID string, ok bool)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// SetToken 替换令牌（登录、切换账号、登出传空串）
// 仅当用户发生变化时通知订阅者；返回令牌是否有效
func (a *TokenAuth) SetToken(token string) bool {
	tok, uid := resolve(token)

	a.mu.Lock()
	changed := uid != a.userID
	a.token, a.userID = tok, uid
	subs := make([]func(string, bool), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	if changed {
		for _, fn := range subs {
			fn(uid, uid != "")
		}
	}
	return token == "" || uid != ""
}
