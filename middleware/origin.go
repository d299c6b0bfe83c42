package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker websocket 来源校验；allowed 为空时全部放行。
// 支持 "*" 和 "*.example.com" 形式。
func OriginChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	exact := make(map[string]struct{}, len(allowed))
	var suffixes []string
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		switch {
		case a == "*":
			return func(*http.Request) bool { return true }
		case strings.HasPrefix(a, "*."):
			suffixes = append(suffixes, a[1:])
		case a != "":
			exact[a] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// 非浏览器客户端
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(u.Host)
		if _, ok := exact[host]; ok {
			return true
		}
		if _, ok := exact[strings.ToLower(origin)]; ok {
			return true
		}
		for _, s := range suffixes {
			if strings.HasSuffix(host, s) {
				return true
			}
		}
		return false
	}
}
