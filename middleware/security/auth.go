package security

import (
	"net/http"
	"strings"

	"PPicture/tools/errs"

	"github.com/gin-gonic/gin"
)

// 后续模块统一用这个 key 读取凭证
const PPCtxAuthKey = "authorization" // string

type Options struct {
	HeaderToken               string // 默认 "authorization"
	EnableAuthorizationBearer bool   // 默认 true
	QueryParam                string // 浏览器 websocket 不能带头，默认 "token"
	CookieName                string // 默认 "pp_token"
	// Required 为 true 时没有凭证直接 401；websocket 握手交给后续鉴权决定
	Required bool
}

func DefaultOptions() *Options {
	return &Options{
		HeaderToken:               PPCtxAuthKey,
		EnableAuthorizationBearer: true,
		QueryParam:                "token",
		CookieName:                "pp_token",
	}
}

// Extract 依次从请求头、query、cookie 取凭证
func Extract(r *http.Request, opts *Options) string {
	if opts == nil {
		opts = DefaultOptions()
	}
	token := strings.TrimSpace(r.Header.Get(opts.HeaderToken))
	// 兼容 Authorization: Bearer xxx
	if opts.EnableAuthorizationBearer && len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" && opts.QueryParam != "" {
		token = strings.TrimSpace(r.URL.Query().Get(opts.QueryParam))
	}
	if token == "" && opts.CookieName != "" {
		if ck, err := r.Cookie(opts.CookieName); err == nil {
			token = strings.TrimSpace(ck.Value)
		}
	}
	return token
}

func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := Extract(c.Request, opts)
		if token != "" {
			c.Set(PPCtxAuthKey, token)
		}
		if token == "" && opts.Required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    errs.ErrNotLogin.Code,
				"message": errs.ErrNotLogin.Msg,
			})
			return
		}
		c.Next()
	}
}

// TokenFrom 读取 Middleware 写入的凭证；未挂中间件时现取
func TokenFrom(c *gin.Context) string {
	if v, ok := c.Get(PPCtxAuthKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return Extract(c.Request, nil)
}
