package middleware

import (
	midsec "PPicture/middleware/security"

	"github.com/gin-gonic/gin"
)

// RouteOpt 路由选项
type RouteOpt struct {
	IsAuth bool
	Auth   *midsec.Options // nil => midsec.DefaultOptions()
}

func (o RouteOpt) chain(handler gin.HandlerFunc) []gin.HandlerFunc {
	if !o.IsAuth {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{midsec.Middleware(o.Auth), handler}
}

func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.POST(path, opt.chain(handler)...)
}

func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.GET(path, opt.chain(handler)...)
}
